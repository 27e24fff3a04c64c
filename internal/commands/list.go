package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// statusFilter selects completed or pending tasks from the cache.
type statusFilter struct {
	completed bool
	pending   bool
}

func (f *statusFilter) register(fs *flag.FlagSet) {
	*f = statusFilter{}
	fs.BoolVar(&f.completed, "completed", false, "")
	fs.BoolVar(&f.pending, "pending", false, "")
}

func (f statusFilter) validate() error {
	if f.completed && f.pending {
		return errors.New("cannot use both --completed and --pending")
	}
	return nil
}

func (f statusFilter) tasks(st *store.Store) []service.Task {
	switch {
	case f.completed:
		return st.CompletedTasks()
	case f.pending:
		return st.PendingTasks()
	default:
		return st.Tasks()
	}
}

// ListCmd implements the list command.
// Handles both `tasksync` (no args) and `tasksync list`.
type ListCmd struct {
	filter statusFilter
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "tasksync list [--completed|--pending]" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	c.filter.register(fs)
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	if err := c.filter.validate(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if !st.FetchTasks(ctx) {
		return exitcode.BackendError
	}

	tasks := c.filter.tasks(st)
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, output.EmptyList)
		}
		return exitcode.Success
	}
	output.FormatTasks(out, tasks)
	return exitcode.Success
}
