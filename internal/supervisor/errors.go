package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLaunched is returned by Launch on a supervisor that left idle.
	ErrAlreadyLaunched = errors.New("supervisor already launched")

	// ErrTerminated is returned by Launch after teardown, and to a pending
	// Launch when Kill interrupts it.
	ErrTerminated = errors.New("supervisor terminated")

	// ErrRestartExhausted means the browser died and no installation
	// candidate was left to respawn it. It wraps the cause.
	ErrRestartExhausted = errors.New("restart exhausted")
)

// SpawnError is returned when the OS refused to start a candidate executable.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
