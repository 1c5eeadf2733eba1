// Package tactile is the process layer of minimap-render: it locates and
// runs the external programs that do the actual image work.
//
// Design Principles:
//   - Minimal logic: deciding what a failure means is the caller's job
//   - Structured output: every run yields an ExecutionResult
//   - Cross-platform: executable lookup follows the host's own rules
//   - Audit trail: start/complete/kill events for logging
package tactile

import (
	"strings"
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "tmxrasterizer", "convert").
	Binary string

	// Arguments are the command-line arguments.
	Arguments []string

	// Environment variables to set (in KEY=VALUE format).
	// They are appended to the environment the executor passes through.
	Environment []string

	// Timeout bounds the run. Zero means use the executor's default.
	Timeout time.Duration

	// RequestID correlates this execution with the job that issued it.
	RequestID string
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult is the comprehensive output of command execution.
type ExecutionResult struct {
	// Success indicates whether the command completed without error.
	// Note: A command that runs but returns non-zero exit code has Success=true.
	// Success=false means the execution infrastructure failed.
	Success bool

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int

	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string

	// Duration is how long the command ran.
	Duration time.Duration

	// StartedAt is when execution began.
	StartedAt time.Time

	// FinishedAt is when execution completed.
	FinishedAt time.Time

	// Killed indicates the command was forcibly terminated.
	Killed bool

	// KillReason explains why the command was killed.
	KillReason string

	// Truncated indicates output was truncated due to size limits.
	Truncated bool

	// TruncatedBytes is how many bytes were discarded.
	TruncatedBytes int64

	// ResourceUsage contains CPU time consumed (nil if the process never started).
	ResourceUsage *ResourceUsage

	// Error contains any infrastructure-level error message.
	Error string

	// Command is a copy of the command that was executed (for audit).
	Command *Command
}

// IsError returns true if the execution failed (infrastructure error).
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit returns true if the command ran but returned non-zero.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.Success && !r.Killed && r.ExitCode != 0
}

// Output returns Stdout and Stderr joined by a newline when both are set.
func (r *ExecutionResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// ResourceUsage contains metrics about resource consumption.
type ResourceUsage struct {
	// UserTimeMs is user-mode CPU time in milliseconds.
	UserTimeMs int64

	// SystemTimeMs is kernel-mode CPU time in milliseconds.
	SystemTimeMs int64
}

// TotalCPUTimeMs returns total CPU time (user + system).
func (r *ResourceUsage) TotalCPUTimeMs() int64 {
	return r.UserTimeMs + r.SystemTimeMs
}

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent represents one execution event.
type AuditEvent struct {
	// Type is the event category.
	Type AuditEventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Command is the command being executed.
	Command Command

	// Result is the execution result (for complete/killed/error events).
	Result *ExecutionResult

	// ExecutorName is which executor handled this.
	ExecutorName string
}

// ExecutorConfig is the configuration for creating executors.
type ExecutorConfig struct {
	// DefaultTimeout is used when Command.Timeout is zero.
	// Zero means commands run until they exit or the context ends.
	DefaultTimeout time.Duration

	// AllowedEnvironment restricts the variables passed through to the
	// child. Empty means the child inherits the whole environment.
	AllowedEnvironment []string

	// MaxOutputBytes caps stdout and stderr capture each (default 1MB).
	MaxOutputBytes int64
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxOutputBytes: 1024 * 1024,
	}
}

// Merge combines this config with command-specific settings.
// Command settings override config defaults.
func (c ExecutorConfig) Merge(cmd Command) Command {
	result := cmd
	if result.Timeout == 0 {
		result.Timeout = c.DefaultTimeout
	}
	return result
}
