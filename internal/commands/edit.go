package commands

import (
	"context"
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
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optionalString
	description optionalString
	done        bool
	undone      bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change a task's fields" }
func (c *EditCmd) Usage() string {
	return "tasksync edit <id> [--title <t>] [--description <d>] [--done|--undone]"
}
func (c *EditCmd) NeedsStore() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title = optionalString{}
	c.description = optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.BoolVar(&c.done, "done", false, "")
	fs.BoolVar(&c.undone, "undone", false, "")
}

// updates collects the fields given on the command line.
func (c *EditCmd) updates() (service.Updates, error) {
	if c.done && c.undone {
		return nil, fmt.Errorf("cannot use both --done and --undone")
	}
	updates := service.Updates{}
	if c.title.set {
		updates[service.FieldTitle] = c.title.value
	}
	if c.description.set {
		updates[service.FieldDescription] = c.description.value
	}
	if c.done || c.undone {
		updates[service.FieldIsCompleted] = c.done
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update (use --title, --description, --done or --undone)")
	}
	return updates, nil
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	updates, err := c.updates()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	task := st.UpdateTask(ctx, id, updates)
	if task == nil {
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		output.FormatTask(out, *task)
	}
	return exitcode.Success
}
