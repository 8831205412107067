package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of the remote program.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
)

// ChunkHandler receives raw stdout chunks in the order they were read.
// Chunks are not aligned to lines.
type ChunkHandler func(chunk string)

// Config holds configuration for the remote program.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Command is the executable that runs the board program, usually an
	// ssh or serial bridge.
	Command string

	// Args are command-line arguments to pass to Command.
	Args []string

	// Env are additional environment variables (key=value format).
	Env []string

	// WorkDir is the working directory for the process.
	WorkDir string

	// RestartOnFailure restarts the program when it exits unexpectedly.
	RestartOnFailure bool

	// RestartDelay is the time to wait before restarting after a failure.
	RestartDelay time.Duration

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner starts the program on the remote board and streams its stdout
// to a ChunkHandler. Stderr is logged.
type Runner struct {
	config  Config
	logger  Logger
	handler ChunkHandler

	mu            sync.RWMutex
	cmd           *exec.Cmd
	status        Status
	restartCount  int
	lastError     error
	startTime     time.Time
	stopRequested bool
	chunks        int

	done chan struct{}
	stop chan struct{}
}

// NewRunner creates a runner for cfg that feeds handler.
func NewRunner(cfg Config, handler ChunkHandler) *Runner {
	if cfg.Name == "" {
		cfg.Name = "remote"
	}
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if handler == nil {
		handler = func(string) {}
	}

	return &Runner{
		config:  cfg,
		logger:  noopLogger{},
		handler: handler,
		status:  StatusStopped,
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the program and begins monitoring it.
func (r *Runner) Start(ctx context.Context) error {
	if r.config.Command == "" {
		return ErrNoCommand
	}

	r.mu.Lock()
	if r.status == StatusRunning || r.status == StatusStarting {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, r.config.Name)
	}
	r.status = StatusStarting
	r.stopRequested = false
	r.done = make(chan struct{})
	r.stop = make(chan struct{})
	r.mu.Unlock()

	if err := r.startProcess(ctx); err != nil {
		r.mu.Lock()
		r.status = StatusFailed
		r.lastError = err
		done := r.done
		r.mu.Unlock()
		close(done)
		return err
	}

	go r.monitor(ctx)

	return nil
}

func (r *Runner) startProcess(ctx context.Context) error {
	r.logger.Info("starting remote program",
		"name", r.config.Name,
		"command", r.config.Command,
		"args", r.config.Args,
	)

	cmd := exec.CommandContext(ctx, r.config.Command, r.config.Args...) //nolint:gosec // command comes from operator config

	// Own process group so Stop reaches the whole bridge
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if r.config.Env != nil {
		cmd.Env = append(os.Environ(), r.config.Env...)
	}
	if r.config.WorkDir != "" {
		cmd.Dir = r.config.WorkDir
	}

	// exec drains both writers before Wait returns, so no output is lost
	cmd.Stdout = chunkWriter{r}
	cmd.Stderr = stderrWriter{r}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", r.config.Name, err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.status = StatusRunning
	r.startTime = time.Now()
	r.mu.Unlock()

	r.logger.Info("remote program started",
		"name", r.config.Name,
		"pid", cmd.Process.Pid,
	)

	return nil
}

// chunkWriter hands every stdout write to the handler.
type chunkWriter struct{ r *Runner }

func (w chunkWriter) Write(p []byte) (int, error) {
	w.r.mu.Lock()
	w.r.chunks++
	w.r.mu.Unlock()
	w.r.handler(string(p))
	return len(p), nil
}

type stderrWriter struct{ r *Runner }

func (w stderrWriter) Write(p []byte) (int, error) {
	w.r.logger.Warn("remote program stderr",
		"name", w.r.config.Name,
		"output", string(p),
	)
	return len(p), nil
}

// monitor waits for exits and handles restarts.
func (r *Runner) monitor(ctx context.Context) {
	r.mu.RLock()
	done, stop := r.done, r.stop
	r.mu.RUnlock()
	defer close(done)

	for {
		r.mu.RLock()
		cmd := r.cmd
		r.mu.RUnlock()

		err := cmd.Wait()

		r.mu.Lock()
		stopRequested := r.stopRequested
		r.mu.Unlock()

		if stopRequested {
			r.logger.Info("remote program stopped as requested", "name", r.config.Name)
			r.setStatus(StatusStopped, nil)
			return
		}

		if err == nil {
			r.logger.Info("remote program finished", "name", r.config.Name)
			r.setStatus(StatusStopped, nil)
			return
		}

		r.logger.Warn("remote program exited unexpectedly",
			"name", r.config.Name,
			"error", err,
		)
		r.setStatus(StatusFailed, err)

		if !r.config.RestartOnFailure {
			return
		}

		r.mu.Lock()
		r.restartCount++
		attempt := r.restartCount
		r.mu.Unlock()

		if r.config.MaxRestartAttempts > 0 && attempt > r.config.MaxRestartAttempts {
			r.logger.Error("max restart attempts reached",
				"name", r.config.Name,
				"attempts", attempt,
			)
			return
		}

		r.logger.Info("restarting remote program",
			"name", r.config.Name,
			"attempt", attempt,
			"delay", r.config.RestartDelay,
		)

		select {
		case <-ctx.Done():
			return
		case <-stop:
			r.logger.Info("restart cancelled by stop", "name", r.config.Name)
			r.setStatus(StatusStopped, nil)
			return
		case <-time.After(r.config.RestartDelay):
		}

		if err := r.startProcess(ctx); err != nil {
			r.logger.Error("failed to restart remote program",
				"name", r.config.Name,
				"error", err,
			)
			r.setStatus(StatusFailed, err)
			return
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (r *Runner) setStatus(s Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
	if err != nil {
		r.lastError = err
	}
}

// Stop sends SIGTERM to the program's process group, then SIGKILL after
// GracefulTimeout. A runner waiting to restart is stopped without another
// attempt.
func (r *Runner) Stop() error {
	r.mu.Lock()
	done := r.done
	if done == nil || r.stopRequested || isClosed(done) {
		r.mu.Unlock()
		return nil
	}
	r.stopRequested = true
	close(r.stop)
	cmd := r.cmd
	running := r.status == StatusRunning || r.status == StatusStarting
	r.mu.Unlock()

	if !running {
		<-done
		return nil
	}
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	r.logger.Info("stopping remote program", "name", r.config.Name, "pid", pid)

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Warn("failed to send SIGTERM", "name", r.config.Name, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(r.config.GracefulTimeout):
		r.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", r.config.Name,
			"timeout", r.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %s: %w", r.config.Name, err)
	}

	<-done
	return nil
}

// Done is closed when monitoring ends. It is nil before the first Start.
func (r *Runner) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.done
}

// Status returns the current status.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Stats summarises the runner for the status endpoint.
type Stats struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	Chunks       int           `json:"chunks"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics.
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Name:         r.config.Name,
		Status:       r.status,
		RestartCount: r.restartCount,
		Chunks:       r.chunks,
	}
	if r.cmd != nil && r.cmd.Process != nil && r.status == StatusRunning {
		stats.PID = r.cmd.Process.Pid
		stats.Uptime = time.Since(r.startTime)
	}
	if r.lastError != nil {
		stats.LastError = r.lastError.Error()
	}
	return stats
}
