// Package container runs commands inside tenant workload containers. The
// rest of the system depends only on the Executor interface so remediation
// logic can be tested against a fake.
package container

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors callers check with errors.Is. A workload that is not
// running fails fast without attempting the command; a timeout means the
// command was started but did not finish in time.
var (
	ErrWorkloadNotRunning = errors.New("workload container is not running")
	ErrCommandTimeout     = errors.New("command timed out")
)

// Command is one command to run inside a workload.
type Command struct {
	Argv    []string
	WorkDir string
	// Timeout bounds execution. Zero falls back to the executor default.
	Timeout time.Duration
}

// ExecResult is the outcome of a completed command. A non-zero ExitCode is
// not an error at this layer; callers decide what failure means.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r *ExecResult) Success() bool {
	return r.ExitCode == 0
}

// Executor runs commands and database queries inside workload containers.
type Executor interface {
	// Run executes a command in the named workload container.
	Run(ctx context.Context, workloadID string, cmd Command) (*ExecResult, error)
	// RunQuery executes SQL through the database client inside the
	// workload's database container.
	RunQuery(ctx context.Context, workloadID string, query string, timeout time.Duration) (*ExecResult, error)
}
