// Package instance keeps a single viewer running per user.
//
// The lock is a small file holding "pid|addr": the owner's process id and the
// address of its local window server, so a second launch can reopen the
// existing window instead of starting another tray icon.
package instance

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// FileName is the lock file name inside the app cache directory.
const FileName = "instance.lock"

var findProcessFunc = ps.FindProcess

// RunningError reports a live owner of the lock.
type RunningError struct {
	Addr string
	PID  int
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("already running (pid %d)", e.PID)
}

// Lock is a held instance lock.
type Lock struct {
	path string
	pid  int
}

// Acquire takes the lock in dir for the executable named exe. A lock left by a dead
// process, or by a process that is not exe, is replaced. A live owner yields *RunningError.
func Acquire(dir, exe string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	l := &Lock{path: filepath.Join(dir, FileName), pid: os.Getpid()}

	for range 2 {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(l.pid))
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(l.path) //nolint:errcheck // best effort cleanup
				return nil, fmt.Errorf("write lock: %w", werr)
			}
			slog.Debug("[INSTANCE] Lock acquired", "path", l.path, "pid", l.pid)
			return l, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		owner, rerr := read(l.path)
		if rerr == nil && owner.PID != l.pid && alive(owner.PID, exe) {
			return nil, owner
		}
		slog.Info("[INSTANCE] Removing stale lock", "path", l.path, "error", rerr)
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}
	return nil, errors.New("lock contended")
}

// Publish records the window server address so later launches can find it.
func (l *Lock) Publish(addr string) error {
	if l == nil {
		return nil
	}
	data := strconv.Itoa(l.pid) + "|" + addr
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace lock: %w", err)
	}
	return nil
}

// Release removes the lock if this process still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	owner, err := read(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if owner.PID != l.pid {
		slog.Warn("[INSTANCE] Lock taken over, leaving it", "owner", owner.PID)
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}

func read(path string) (*RunningError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pidText, addr, _ := strings.Cut(strings.TrimSpace(string(data)), "|")
	pid, err := strconv.Atoi(pidText)
	if err != nil || pid <= 0 {
		return nil, fmt.Errorf("malformed lock %q", data)
	}
	return &RunningError{PID: pid, Addr: addr}, nil
}

func alive(pid int, exe string) bool {
	p, err := findProcessFunc(pid)
	if err != nil || p == nil {
		return false
	}
	// Recycled pids belong to unrelated programs.
	return exe == "" || strings.HasPrefix(p.Executable(), exe)
}
