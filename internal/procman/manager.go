// Package procman manages the bot daemon lifecycle through its PID file:
// starting it detached, stopping it gracefully, and reporting status. It is
// the library behind the botctl command.
package procman

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// Manager starts and stops the bot process identified by a PID file.
type Manager struct {
	pidFile string
	logFile string
	logger  *slog.Logger

	// stopTimeout bounds the SIGTERM grace period before SIGKILL;
	// confirmTimeout bounds the post-spawn liveness check in Start.
	stopTimeout    time.Duration
	confirmTimeout time.Duration
}

// New creates a Manager over the given PID and log file paths.
func New(pidFile, logFile string, logger *slog.Logger) *Manager {
	return &Manager{
		pidFile:        pidFile,
		logFile:        logFile,
		logger:         logger.With(slog.String("component", "procman")),
		stopTimeout:    10 * time.Second,
		confirmTimeout: 2 * time.Second,
	}
}

// ReadPID returns the PID recorded in the PID file. It returns
// domain.ErrNotRunning when the file is missing.
func (m *Manager) ReadPID() (int, error) {
	data, err := os.ReadFile(m.pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, domain.ErrNotRunning
		}
		return 0, fmt.Errorf("procman: read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("procman: malformed pid file %s: %w", m.pidFile, err)
	}
	return pid, nil
}

// Running reports whether the recorded process is alive. A stale PID file
// whose process has exited counts as not running.
func (m *Manager) Running() (int, bool) {
	pid, err := m.ReadPID()
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}

// processAlive probes a PID with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Start launches the bot binary detached from the controlling terminal, with
// stdout and stderr appended to the log file, then confirms it survived
// startup. The bot writes its own PID file once config validation passes and
// its instance lock is acquired; Start succeeds when that file names the new
// process, or when the process is still alive at the end of the confirmation
// window. A child that exits during the window (bad config, lock held) is an
// error.
func (m *Manager) Start(binary string, args ...string) error {
	if pid, alive := m.Running(); alive {
		return fmt.Errorf("procman: already running with pid %d", pid)
	}
	// A stale PID file from a dead run must not satisfy the confirmation
	// check below.
	_ = os.Remove(m.pidFile)

	logOut, err := os.OpenFile(m.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("procman: open log file %s: %w", m.logFile, err)
	}
	defer logOut.Close()

	cmd := exec.Command(binary, args...)
	cmd.Stdout = logOut
	cmd.Stderr = logOut
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("procman: start %s: %w", binary, err)
	}
	pid := cmd.Process.Pid
	m.logger.Info("bot started",
		slog.Int("pid", pid),
		slog.String("binary", binary),
	)

	// Reap the child if it dies during confirmation. On the success paths the
	// goroutine outlives Start; the daemon is reparented when botctl exits.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	deadline := time.NewTimer(m.confirmTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case werr := <-exited:
			if werr != nil {
				return fmt.Errorf("procman: bot exited during startup: %v (check %s)", werr, m.logFile)
			}
			return fmt.Errorf("procman: bot exited during startup (check %s)", m.logFile)
		case <-deadline.C:
			// Still alive but no PID file yet; config and key loading can
			// delay the write past the window, so alive counts as started.
			m.logger.Warn("bot running, pid file not yet written", slog.Int("pid", pid))
			return nil
		case <-tick.C:
			if p, err := m.ReadPID(); err == nil && p == pid {
				m.logger.Info("bot confirmed running", slog.Int("pid", pid))
				return nil
			}
		}
	}
}

// Stop terminates the recorded process: SIGTERM, a bounded wait for exit, then
// SIGKILL. It removes the PID file once the process is gone.
func (m *Manager) Stop(ctx context.Context) error {
	pid, err := m.ReadPID()
	if err != nil {
		return err
	}
	if !processAlive(pid) {
		m.logger.Warn("removing stale pid file", slog.Int("pid", pid))
		_ = os.Remove(m.pidFile)
		return domain.ErrNotRunning
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("procman: find process %d: %w", pid, err)
	}

	m.logger.Info("sending SIGTERM", slog.Int("pid", pid))
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("procman: signal %d: %w", pid, err)
	}

	deadline := time.NewTimer(m.stopTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			m.logger.Warn("graceful stop timed out, sending SIGKILL", slog.Int("pid", pid))
			if err := proc.Signal(syscall.SIGKILL); err != nil {
				return fmt.Errorf("procman: kill %d: %w", pid, err)
			}
			_ = os.Remove(m.pidFile)
			return nil
		case <-tick.C:
			if !processAlive(pid) {
				m.logger.Info("bot stopped", slog.Int("pid", pid))
				_ = os.Remove(m.pidFile)
				return nil
			}
		}
	}
}

// Restart stops the running instance, waits briefly for its lock to clear,
// and starts a new one.
func (m *Manager) Restart(ctx context.Context, binary string, args ...string) error {
	if err := m.Stop(ctx); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return err
	}
	time.Sleep(time.Second)
	return m.Start(binary, args...)
}

// Status writes a one-line status report to w.
func (m *Manager) Status(w io.Writer) error {
	pid, alive := m.Running()
	if !alive {
		_, err := fmt.Fprintln(w, "not running")
		return err
	}
	_, err := fmt.Fprintf(w, "running (pid %d)\n", pid)
	return err
}
