package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/shlex"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/logging"
	"tasksync/internal/store"
)

const (
	shellName   = "shell"
	shellPrompt = "tasksync> "
	shellUsage  = "tasksync shell [common flags]"
)

// runShell reads commands line by line and runs them against a single store,
// so the task cache survives from one line to the next.
// exit, quit or end of input leave the shell.
func (d *Dispatcher) runShell(ctx context.Context, args []string, out, errOut io.Writer) int {
	var common commonFlags
	fs := newFlagSet(shellName, &common, nil)
	positional, code, ok := parseFlags(fs, args, shellUsage, out, errOut)
	if !ok {
		return code
	}
	if len(positional) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", positional[0])
		return exitcode.UserError
	}

	cfg, code, ok := d.loadConfig(common, true, errOut)
	if !ok {
		return code
	}
	st, closeSession, code, ok := d.openStore(ctx, cfg, out, errOut)
	if !ok {
		return code
	}
	defer closeSession()

	log := d.log.WithComponent("cli")
	scanner := bufio.NewScanner(d.in)
	for {
		if !cfg.Quiet {
			fmt.Fprint(out, shellPrompt)
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return exitcode.Success
		}

		fields, err := splitLine(scanner.Text())
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return exitcode.Success
		case shellName:
			fmt.Fprintln(errOut, "error: already in a shell")
			continue
		}

		code := d.runLine(ctx, cfg, st, fields, out, errOut)
		log.Debug("shell command finished", logging.Fields{"command": fields[0], "exit_code": code})
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: read input: %v\n", err)
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintln(out)
	}
	return exitcode.Success
}

// runLine runs one shell command. Only command flags are accepted; the
// session's common flags stay in effect.
func (d *Dispatcher) runLine(ctx context.Context, cfg *config.Config, st *store.Store, fields []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(fields[0])
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", fields[0])
		return exitcode.UserError
	}

	fs := newFlagSet(cmd.Name(), nil, cmd)
	positional, code, ok := parseFlags(fs, fields[1:], cmd.Usage(), out, errOut)
	if !ok {
		return code
	}

	var session *store.Store
	if cmd.NeedsStore() {
		session = st
	}
	return cmd.Run(ctx, cfg, session, positional, out, errOut)
}

// splitLine splits a shell line into words with POSIX-like quoting.
// A word starting with # begins a comment.
func splitLine(line string) ([]string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, nil
	}
	return words, nil
}
