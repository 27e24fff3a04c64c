// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasksync/internal/service"
)

const (
	// EmptyList is printed by list when there is nothing to show.
	EmptyList = "no tasks found"

	descriptionIndent = "        "
)

// FormatTask formats a task line.
// Format: "{ID:>6}  [x] {TITLE}\n", then the description indented by 8 spaces when set.
func FormatTask(w io.Writer, task service.Task) {
	mark := " "
	if task.IsCompleted {
		mark = "x"
	}
	fmt.Fprintf(w, "%6s  [%s] %s\n", task.ID, mark, normalizeTitle(task.Title))
	if desc := normalizeDescription(task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", descriptionIndent, desc)
	}
}

// FormatTasks formats every task in order.
func FormatTasks(w io.Writer, tasks []service.Task) {
	for _, task := range tasks {
		FormatTask(w, task)
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = flatten(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func normalizeDescription(desc string) string {
	return strings.TrimSpace(flatten(desc))
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
