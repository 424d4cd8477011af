// Package daemon hosts the long-running process: it enforces single-instance
// execution with a file lock and owns the orchestrator's lifetime.
package daemon
