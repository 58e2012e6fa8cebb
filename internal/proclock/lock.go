// Package proclock guards against concurrent bot instances with an advisory
// file lock. Two bots sharing one account would race each other's positions,
// so acquisition failure is fatal at startup.
package proclock

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// Lock is a held single-instance lock. The lock file also records the holder's
// PID for the process manager and for operators diagnosing a stuck instance.
type Lock struct {
	fl      *flock.Flock
	pidFile string
}

// Acquire takes the advisory lock at lockPath without blocking and writes the
// current PID to pidPath. It returns domain.ErrLockHeld when another instance
// already holds the lock.
func Acquire(lockPath, pidPath string) (*Lock, error) {
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("proclock: acquire %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("proclock: %s: %w", lockPath, domain.ErrLockHeld)
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(pidPath, []byte(pid+"\n"), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("proclock: write pid file %s: %w", pidPath, err)
	}

	return &Lock{fl: fl, pidFile: pidPath}, nil
}

// Release drops the lock and removes the PID file. Safe to call once at
// shutdown; errors removing the PID file are ignored because the lock itself
// is what prevents a second instance.
func (l *Lock) Release() error {
	_ = os.Remove(l.pidFile)
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("proclock: release: %w", err)
	}
	return nil
}
