package analyzers

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ExecRunner abstracts command execution for testability.
type ExecRunner interface {
	// LookPath checks if a binary exists in PATH.
	LookPath(name string) (string, error)

	// Run executes a command and returns its output. A non-zero exit is
	// reported as an error implementing ExitCode() int.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// RealRunner implements ExecRunner using os/exec.
type RealRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the
	// process is killed on context expiry.
	WaitDelay time.Duration
}

// NewRealRunner creates a runner.
func NewRealRunner() *RealRunner {
	return &RealRunner{WaitDelay: 2 * time.Second}
}

// LookPath checks if a binary exists in PATH.
func (r *RealRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes a command and returns its output.
func (r *RealRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

// ExitStatus is a non-zero exit reported by MockRunner.
type ExitStatus int

func (e ExitStatus) Error() string { return "exit status " + strconv.Itoa(int(e)) }

// ExitCode returns the process exit code.
func (e ExitStatus) ExitCode() int { return int(e) }

// MockRunner implements ExecRunner for testing.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	commands map[string]mockResult
	calls    []string
}

type mockResult struct {
	stdout string
	stderr string
	err    error
	delay  time.Duration
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		commands: make(map[string]mockResult),
	}
}

// SetLookPath configures the mock to return a path for the given name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetCommand configures the mock result for a command.
func (m *MockRunner) SetCommand(name string, stdout, stderr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[name] = mockResult{stdout: stdout, stderr: stderr, err: err}
}

// SetSlowCommand configures a command that blocks for delay or until ctx ends.
func (m *MockRunner) SetSlowCommand(name string, delay time.Duration, stdout string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[name] = mockResult{stdout: stdout, delay: delay}
}

// Calls returns the command lines run so far.
func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// LookPath implements ExecRunner.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

// Run implements ExecRunner.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	m.mu.Lock()
	full := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, full)

	// Try exact match first
	result, ok := m.commands[name]
	if !ok {
		result, ok = m.commands[full]
	}
	m.mu.Unlock()

	if !ok {
		return "", "", exec.ErrNotFound
	}

	if result.delay > 0 {
		select {
		case <-time.After(result.delay):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return result.stdout, result.stderr, result.err
}
