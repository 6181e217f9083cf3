// Package inspector abstracts the host facts the monitor acts on:
// running processes, visible window titles, and the two enforcement
// primitives.
package inspector

import "context"

// Process is a running process as seen by the monitor.
type Process struct {
	PID  int32
	Name string
}

// Inspector reads host state and performs enforcement. Implementations
// must tolerate processes disappearing between listing and acting.
type Inspector interface {
	Processes(ctx context.Context) ([]Process, error)
	WindowTitles(ctx context.Context) ([]string, error)
	Terminate(ctx context.Context, pid int32) error
	LockScreen(ctx context.Context) error
}
