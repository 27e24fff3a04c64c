package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/notify"
	"tasksync/internal/service"
	"tasksync/internal/store"
	"tasksync/internal/testutil"
)

// runCommand runs a command against a store backed by svc. flags are parsed
// with the command's own flag set, as the dispatcher would.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, flags, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(flags); err != nil {
		t.Fatalf("parse flags %v: %v", flags, err)
	}

	cfg := &config.Config{
		Dir:     t.TempDir(),
		Quiet:   quiet,
		Backend: config.BackendREST,
		Timeout: config.DefaultTimeout,
	}

	var st *store.Store
	if svc != nil {
		st = store.New(svc, notify.NewWriter(&outBuf, &errBuf, quiet))
	}

	code = cmd.Run(context.Background(), cfg, st, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func checkCode(t *testing.T, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

func checkOutput(t *testing.T, name, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", name, want, got)
	}
}

func seeded() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", "", false)
	svc.AddTask("Call mom", "at 5", true)
	return svc
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, nil, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "tasksync 0.1.0\n", stdout)
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, nil, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	for _, want := range []string{"Usage:", "tasksync export", "tasksync shell", "--config <dir>"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for list command
func TestListCommand_AllTasks(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, seeded(), nil, nil, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "     1  [ ] Buy milk\n     2  [x] Call mom\n        at 5\n", stdout)
}

func TestListCommand_Filters(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.ListCmd{}, seeded(), []string{"--completed"}, nil, false)
	checkCode(t, exitcode.Success, code)
	checkOutput(t, "completed", "     2  [x] Call mom\n        at 5\n", stdout)

	stdout, _, code = runCommand(t, &commands.ListCmd{}, seeded(), []string{"--pending"}, nil, false)
	checkCode(t, exitcode.Success, code)
	checkOutput(t, "pending", "     1  [ ] Buy milk\n", stdout)
}

func TestListCommand_BothFilters(t *testing.T) {
	svc := seeded()
	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, []string{"--completed", "--pending"}, nil, false)

	checkCode(t, exitcode.UserError, code)
	checkOutput(t, "stderr", "error: cannot use both --completed and --pending\n", stderr)
	if len(svc.Calls) != 0 {
		t.Errorf("expected no backend calls, got %v", svc.Calls)
	}
}

func TestListCommand_Empty(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, nil, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "no tasks found\n", stdout)
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, nil, true)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	// Quiet mode should suppress "no tasks found"
	checkOutput(t, "stdout", "", stdout)
}

func TestListCommand_TransportFailure(t *testing.T) {
	svc := seeded()
	svc.ListErr = errors.New("connection refused")

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, nil, false)

	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "stdout", "", stdout)
	checkOutput(t, "stderr", "error: connection refused\n", stderr)
}

func TestListCommand_DeclaredFailure(t *testing.T) {
	svc := seeded()
	svc.ListDecline = testutil.Declined("")

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, nil, false)

	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "stderr", "error: Failed to fetch tasks\n", stderr)
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"-d", "whole wheat"}, []string{"Buy", "bread"}, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "Task created successfully!\n     1  [ ] Buy bread\n        whole wheat\n", stdout)

	want := service.NewTask{Title: "Buy bread", Description: "whole wheat"}
	if svc.LastCreate != want {
		t.Errorf("expected create body %+v, got %+v", want, svc.LastCreate)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, testutil.NewFakeService(), nil, []string{"Buy", "milk"}, true)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "", stdout)
}

func TestAddCommand_NoTitle(t *testing.T) {
	for _, args := range [][]string{nil, {"  "}} {
		svc := testutil.NewFakeService()
		stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, nil, args, false)

		checkCode(t, exitcode.UserError, code)
		checkOutput(t, "stdout", "", stdout)
		checkOutput(t, "stderr", "error: title required\n", stderr)
		if len(svc.Calls) != 0 {
			t.Errorf("expected no backend calls, got %v", svc.Calls)
		}
	}
}

func TestAddCommand_Declined(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateDecline = testutil.Declined("title too long")

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, nil, []string{"x"}, false)

	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "stdout", "", stdout)
	checkOutput(t, "stderr", "error: title too long\n", stderr)
}

// Tests for edit command
func TestEditCommand_Success(t *testing.T) {
	svc := seeded()
	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--title", "Buy oat milk", "--done"}, []string{"1"}, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "Task updated successfully!\n     1  [x] Buy oat milk\n", stdout)

	want := service.Updates{"title": "Buy oat milk", "is_completed": true}
	if !reflect.DeepEqual(svc.LastUpdates, want) {
		t.Errorf("expected updates %v, got %v", want, svc.LastUpdates)
	}
}

func TestEditCommand_ExplicitEmptyDescription(t *testing.T) {
	svc := seeded()
	_, _, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--description", ""}, []string{"2"}, true)

	checkCode(t, exitcode.Success, code)
	want := service.Updates{"description": ""}
	if !reflect.DeepEqual(svc.LastUpdates, want) {
		t.Errorf("expected updates %v, got %v", want, svc.LastUpdates)
	}
}

func TestEditCommand_Undone(t *testing.T) {
	svc := seeded()
	stdout, _, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--undone"}, []string{"2"}, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stdout", "Task updated successfully!\n     2  [ ] Call mom\n        at 5\n", stdout)
}

func TestEditCommand_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		args  []string
		want  string
	}{
		{"no id", []string{"--done"}, nil, "error: task id required\n"},
		{"extra arg", []string{"--done"}, []string{"1", "2"}, "error: unexpected argument: 2\n"},
		{"no fields", nil, []string{"1"}, "error: nothing to update (use --title, --description, --done or --undone)\n"},
		{"done and undone", []string{"--done", "--undone"}, []string{"1"}, "error: cannot use both --done and --undone\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := seeded()
			_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, tt.flags, tt.args, false)

			checkCode(t, exitcode.UserError, code)
			checkOutput(t, "stderr", tt.want, stderr)
			if len(svc.Calls) != 0 {
				t.Errorf("expected no backend calls, got %v", svc.Calls)
			}
		})
	}
}

func TestEditCommand_UnknownTask(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.EditCmd{}, seeded(), []string{"--done"}, []string{"99"}, false)

	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "stderr", "error: "+testutil.NotFoundMessage+"\n", stderr)
}

// Tests for toggle command
func TestToggleCommand_Success(t *testing.T) {
	svc := seeded()
	stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, svc, nil, []string{"1"}, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	// Toggle sends no notification; the task line is the only output.
	checkOutput(t, "stdout", "     1  [x] Buy milk\n", stdout)
	if !svc.ServerTasks()[0].IsCompleted {
		t.Error("expected task 1 to be completed on the server")
	}
}

func TestToggleCommand_Failures(t *testing.T) {
	svc := seeded()
	svc.ToggleErr = &service.RequestError{StatusCode: 500, Message: "database is locked"}
	_, stderr, code := runCommand(t, &commands.ToggleCmd{}, svc, nil, []string{"1"}, false)
	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "transport", "error: database is locked\n", stderr)

	svc = seeded()
	svc.ToggleDecline = testutil.Declined("")
	_, stderr, code = runCommand(t, &commands.ToggleCmd{}, svc, nil, []string{"1"}, false)
	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "declared", "error: Failed to update task\n", stderr)
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	svc := seeded()
	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, nil, []string{"2"}, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "Task deleted successfully!\n", stdout)

	remaining := svc.ServerTasks()
	if len(remaining) != 1 || remaining[0].ID != "1" {
		t.Errorf("expected only task 1 to remain, got %+v", remaining)
	}
}

func TestRmCommand_NoID(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.RmCmd{}, seeded(), nil, nil, false)

	checkCode(t, exitcode.UserError, code)
	checkOutput(t, "stderr", "error: task id required\n", stderr)
}

func TestRmCommand_Declined(t *testing.T) {
	svc := seeded()
	svc.DeleteDecline = testutil.Declined("task is locked")

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, nil, []string{"1"}, false)

	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "stdout", "", stdout)
	checkOutput(t, "stderr", "error: task is locked\n", stderr)
	if len(svc.ServerTasks()) != 2 {
		t.Error("expected no task to be deleted")
	}
}

// Tests for export command
func TestExportCommand_CSVToStdout(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, seeded(), []string{"--format", "csv", "--pending"}, nil, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "entity_id,title,description,is_completed\n1,Buy milk,,false\n", stdout)
}

func TestExportCommand_PDFToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.pdf")
	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, seeded(), []string{"-f", "pdf", "-o", path}, nil, false)

	checkCode(t, exitcode.Success, code)
	checkOutput(t, "stderr", "", stderr)
	checkOutput(t, "stdout", "exported 2 tasks to "+path+"\n", stdout)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("expected a PDF file")
	}
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	svc := seeded()
	_, stderr, code := runCommand(t, &commands.ExportCmd{}, svc, []string{"--format", "xml"}, nil, false)

	checkCode(t, exitcode.UserError, code)
	checkOutput(t, "stderr", "error: unknown format: xml (want json, csv, pdf)\n", stderr)
	if len(svc.Calls) != 0 {
		t.Errorf("expected no backend calls, got %v", svc.Calls)
	}
}

func TestExportCommand_FetchFailure(t *testing.T) {
	svc := seeded()
	svc.ListErr = errors.New("no route to host")

	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, svc, nil, nil, false)

	checkCode(t, exitcode.BackendError, code)
	checkOutput(t, "stdout", "", stdout)
	checkOutput(t, "stderr", "error: no route to host\n", stderr)
}

func TestParseTaskID(t *testing.T) {
	id, err := commands.ParseTaskID([]string{" 42 "})
	if err != nil || id != "42" {
		t.Errorf("expected 42, got %q (%v)", id, err)
	}
	if _, err := commands.ParseTaskID(nil); !errors.Is(err, commands.ErrTaskIDRequired) {
		t.Errorf("expected ErrTaskIDRequired, got %v", err)
	}
}

// Tests for the registry
func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.RmCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(&commands.RmCmd{}); err == nil {
		t.Error("expected duplicate name to fail")
	}

	cmd, ok := r.Find("delete")
	if !ok || cmd.Name() != "rm" {
		t.Error("expected delete to resolve to rm")
	}
	if got := len(r.All()); got != 1 {
		t.Errorf("expected 1 unique command, got %d", got)
	}
}

func TestDefaultRegistry_Commands(t *testing.T) {
	var names []string
	for _, cmd := range commands.DefaultRegistry.All() {
		names = append(names, cmd.Name())
	}
	want := []string{"add", "edit", "export", "help", "list", "login", "logout", "rm", "toggle", "version"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected commands %v, got %v", want, names)
	}
}
