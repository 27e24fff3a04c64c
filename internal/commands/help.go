package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/store"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsStore() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                           List all tasks
  tasksync list [common flags] [--completed|--pending]
  tasksync add [common flags] [-d <description>] <title...>
  tasksync edit [common flags] <id> [--title <t>] [--description <d>] [--done|--undone]
  tasksync toggle [common flags] <id>
  tasksync rm [common flags] <id>
  tasksync export [common flags] [--format json|csv|pdf] [--output <file>] [--completed|--pending]
  tasksync shell [common flags]                      Run commands against one session cache
  tasksync login [common flags]                      Authorize the google backend
  tasksync logout [common flags]
  tasksync help
  tasksync version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Configuration is read from <config dir>/config.toml; TASKSYNC_BACKEND,
TASKSYNC_BASE_URL, TASKSYNC_TOKEN and TASKSYNC_NATS_URL override it.
`
