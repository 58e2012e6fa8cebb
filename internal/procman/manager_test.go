package procman

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

func testManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m := New(filepath.Join(dir, "bot.pid"), filepath.Join(dir, "bot.log"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return m, dir
}

func TestReadPIDMissingFile(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.ReadPID(); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
}

func TestReadPIDMalformed(t *testing.T) {
	m, _ := testManager(t)
	if err := os.WriteFile(m.pidFile, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ReadPID(); err == nil {
		t.Fatal("malformed pid file accepted")
	}
}

func TestRunningDetectsLiveProcess(t *testing.T) {
	m, _ := testManager(t)
	// Our own PID is guaranteed alive.
	writePID(t, m.pidFile, os.Getpid())

	pid, alive := m.Running()
	if !alive || pid != os.Getpid() {
		t.Fatalf("Running() = (%d, %v), want (%d, true)", pid, alive, os.Getpid())
	}
}

func TestRunningStalePID(t *testing.T) {
	m, _ := testManager(t)
	// PIDs wrap well below this on Linux.
	writePID(t, m.pidFile, 1<<22-1)

	if _, alive := m.Running(); alive {
		t.Fatal("stale pid reported as running")
	}
}

func TestStopNotRunning(t *testing.T) {
	m, _ := testManager(t)
	writePID(t, m.pidFile, 1<<22-1)

	err := m.Stop(context.Background())
	if !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
	if _, err := os.Stat(m.pidFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("stale pid file not removed")
	}
}

func TestStatus(t *testing.T) {
	m, _ := testManager(t)

	var buf strings.Builder
	if err := m.Status(&buf); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got := buf.String(); got != "not running\n" {
		t.Fatalf("status = %q, want not running", got)
	}

	writePID(t, m.pidFile, os.Getpid())
	buf.Reset()
	if err := m.Status(&buf); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "running (pid ") {
		t.Fatalf("status = %q, want running", buf.String())
	}
}

func TestStartRefusesWhenRunning(t *testing.T) {
	m, _ := testManager(t)
	writePID(t, m.pidFile, os.Getpid())

	if err := m.Start("/bin/true"); err == nil {
		t.Fatal("Start succeeded while an instance is running")
	}
}

func TestStartDetectsImmediateExit(t *testing.T) {
	m, _ := testManager(t)
	m.confirmTimeout = 2 * time.Second

	err := m.Start("/bin/false")
	if err == nil {
		t.Fatal("Start returned nil for a child that exited immediately")
	}
	if !strings.Contains(err.Error(), m.logFile) {
		t.Fatalf("error %v does not point at the log file", err)
	}
	if _, alive := m.Running(); alive {
		t.Fatal("dead child reported as running")
	}
}

func TestStartDetectsCleanExitAsFailure(t *testing.T) {
	m, _ := testManager(t)
	m.confirmTimeout = 2 * time.Second

	// A daemon exiting zero during the window is still a failed start.
	if err := m.Start("/bin/true"); err == nil {
		t.Fatal("Start returned nil for a child that exited cleanly")
	}
}

func TestStartConfirmsViaPIDFile(t *testing.T) {
	m, _ := testManager(t)
	m.confirmTimeout = 5 * time.Second

	// The child writes its own PID the way the bot does after acquiring its
	// lock, then lingers so confirmation can observe it alive.
	script := "echo $$ > " + m.pidFile + "; sleep 3"
	start := time.Now()
	if err := m.Start("/bin/sh", "-c", script); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= m.confirmTimeout {
		t.Fatalf("confirmation took %v, want early return on pid file", elapsed)
	}
	if _, alive := m.Running(); !alive {
		t.Fatal("confirmed child not reported as running")
	}
}

func TestStartClearsStalePIDFile(t *testing.T) {
	m, _ := testManager(t)
	m.confirmTimeout = 200 * time.Millisecond
	writePID(t, m.pidFile, 1<<22-1)

	// The stale file must not satisfy confirmation; with no fresh PID file
	// the alive-at-deadline path applies.
	if err := m.Start("/bin/sleep", "2"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.ReadPID(); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatal("stale pid file survived Start")
	}
}

func writePID(t *testing.T, path string, pid int) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}
