package commands

import (
	"errors"
	"fmt"
	"strings"

	"tasksync/internal/service"
)

// ErrTaskIDRequired is returned when no task ID is given.
var ErrTaskIDRequired = errors.New("task id required")

// ParseTaskID reads the single task ID argument.
// IDs are opaque; whatever the server listed is accepted.
func ParseTaskID(args []string) (service.ID, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", ErrTaskIDRequired
	}
	if len(args) > 1 {
		return "", fmt.Errorf("unexpected argument: %s", args[1])
	}
	return service.ID(strings.TrimSpace(args[0])), nil
}

// optionalString is a string flag that remembers whether it was given,
// so an explicit empty value can be told apart from an absent flag.
type optionalString struct {
	value string
	set   bool
}

func (s *optionalString) String() string { return s.value }

func (s *optionalString) Set(v string) error {
	s.value = v
	s.set = true
	return nil
}
