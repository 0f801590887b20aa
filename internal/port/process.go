package port

import "github.com/bnema/mediagrab/internal/domain"

// ProcessHandle is a supervised external process.
type ProcessHandle interface {
	Pid() int
	// Wait blocks until the process has exited and its output is drained.
	Wait() error
	// KillTree terminates the process and all of its descendants. It is
	// safe to call more than once and after the process has exited.
	KillTree() error
}

// EventHandler receives raw progress from an adapter. Returning an error
// aborts the running process; Wait then reports that error.
type EventHandler func(ev domain.ProgressEvent) error
