// Package cli parses the command line and runs commands against a task store.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/logging"
	"tasksync/internal/notify"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, log *logging.Logger) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	log      *logging.Logger
	in       io.Reader
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger shared by the dispatcher, store and backends.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithInput sets where the shell reads its lines from.
func WithInput(r io.Reader) Option {
	return func(d *Dispatcher) { d.in = r }
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		factory:  factory,
		log:      logging.New(),
		in:       os.Stdin,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	quiet     bool
	debug     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configDir, "config", "", "")
	fs.BoolVar(&c.quiet, "quiet", false, "")
	fs.BoolVar(&c.debug, "debug", false, "")
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	if cmdName == shellName {
		return d.runShell(ctx, args[1:], out, errOut)
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	var common commonFlags
	fs := newFlagSet(cmd.Name(), &common, cmd)
	positional, code, ok := parseFlags(fs, args, cmd.Usage(), out, errOut)
	if !ok {
		return code
	}

	cfg, code, ok := d.loadConfig(common, cmd.NeedsStore(), errOut)
	if !ok {
		return code
	}

	var st *store.Store
	if cmd.NeedsStore() {
		var closeSession func()
		st, closeSession, code, ok = d.openStore(ctx, cfg, out, errOut)
		if !ok {
			return code
		}
		defer closeSession()
	}

	d.log.WithComponent("cli").Debug("run command", logging.Fields{"command": cmd.Name(), "args": len(positional)})
	return cmd.Run(ctx, cfg, st, positional, out, errOut)
}

// newFlagSet builds a flag set with the common flags (when common is non-nil)
// and the command's own flags.
func newFlagSet(name string, common *commonFlags, cmd commands.Command) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves
	if common != nil {
		common.register(fs)
	}
	if cmd != nil {
		cmd.RegisterFlags(fs)
	}
	return fs
}

// parseFlags parses args and reports flag errors the way every command does.
func parseFlags(fs *flag.FlagSet, args []string, usage string, out, errOut io.Writer) ([]string, int, bool) {
	positional, err := parseInterspersed(fs, args)
	if err == nil {
		return positional, exitcode.Success, true
	}

	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(out, "Usage:\n  %s\n", usage)
		return nil, exitcode.Success, false
	}

	errStr := err.Error()
	switch {
	case strings.HasPrefix(errStr, "flag needs an argument:"):
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
	case strings.HasPrefix(errStr, "flag provided but not defined:"):
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag provided but not defined:"))
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
	default:
		fmt.Fprintf(errOut, "error: %s\n", errStr)
	}
	return nil, exitcode.UserError, false
}

// parseInterspersed lets flags follow positional arguments, so
// `edit 3 --title x` works like `edit --title x 3`. Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	positional := []string{}
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		consumed := len(args) - len(rest)
		if consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// loadConfig builds the configuration and sets the log level.
// Config errors are fatal only for commands that reach the backend.
func (d *Dispatcher) loadConfig(common commonFlags, strict bool, errOut io.Writer) (*config.Config, int, bool) {
	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return nil, exitcode.UserError, false
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	switch {
	case cfg.Debug:
		d.log.SetLevel(logging.LevelDebug)
	case cfg.Quiet:
		d.log.SetLevel(logging.LevelWarn)
	default:
		d.log.SetLevel(logging.LevelInfo)
	}

	if err := cfg.Load(); err != nil {
		if strict {
			fmt.Fprintf(errOut, "error: config: %s\n", err)
			return nil, exitcode.AuthError, false
		}
		d.log.WithComponent("cli").Warn("ignoring unreadable config", logging.Fields{"path": cfg.ConfigPath(), "error": err})
	}
	return cfg, exitcode.Success, true
}

// openStore creates the backend, the notifier chain and the store.
// The returned func releases the notifier's resources.
func (d *Dispatcher) openStore(ctx context.Context, cfg *config.Config, out, errOut io.Writer) (*store.Store, func(), int, bool) {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: config: %s\n", err)
		return nil, nil, exitcode.AuthError, false
	}

	if d.factory == nil {
		fmt.Fprintln(errOut, "error: no backend configured")
		return nil, nil, exitcode.AuthError, false
	}
	svc, err := d.factory(ctx, cfg, d.log)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return nil, nil, exitcode.AuthError, false
	}

	var notifier notify.Notifier = notify.NewWriter(out, errOut, cfg.Quiet)
	closeSession := func() {}
	if cfg.NATS.URL != "" {
		pub, err := notify.NewNATS(notify.NATSConfig{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Name:    config.AppName,
		}, d.log.WithComponent("notify"))
		if err != nil {
			d.log.WithComponent("cli").Warn("notifications will not be published", logging.Fields{"url": cfg.NATS.URL, "error": err})
		} else {
			notifier = notify.Multi{notifier, pub}
			closeSession = func() {
				if err := pub.Close(); err != nil {
					d.log.WithComponent("cli").Warn("close nats connection", logging.Fields{"error": err})
				}
			}
		}
	}

	d.log.WithComponent("cli").Debug("store ready", logging.Fields{"backend": cfg.Backend, "timeout": cfg.Timeout})
	return store.New(svc, notifier, store.WithLogger(d.log)), closeSession, exitcode.Success, true
}
