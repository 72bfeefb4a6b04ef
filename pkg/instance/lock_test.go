package instance

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mitchellh/go-ps"
)

type mockProcess struct {
	executable string
	pid        int
}

func (m *mockProcess) Pid() int           { return m.pid }
func (*mockProcess) PPid() int            { return 1 }
func (m *mockProcess) Executable() string { return m.executable }

func stubProcesses(t *testing.T, running map[int]string) {
	t.Helper()
	old := findProcessFunc
	t.Cleanup(func() { findProcessFunc = old })
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := running[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
}

func TestAcquireAndRelease(t *testing.T) {
	stubProcesses(t, nil)
	dir := filepath.Join(t.TempDir(), "cache")

	l, err := Acquire(dir, "lifelog-viewer")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock contents = %q", data)
	}

	if err := l.Publish("127.0.0.1:4567"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	owner, err := read(filepath.Join(dir, FileName))
	if err != nil || owner.Addr != "127.0.0.1:4567" || owner.PID != os.Getpid() {
		t.Errorf("read() = %+v, %v", owner, err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock still present after Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestAcquireLiveOwner(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("4242|127.0.0.1:9000"), 0o600); err != nil {
		t.Fatal(err)
	}
	stubProcesses(t, map[int]string{4242: "lifelog-viewer"})

	_, err := Acquire(dir, "lifelog-viewer")
	var running *RunningError
	if !errors.As(err, &running) {
		t.Fatalf("Acquire() error = %v, want *RunningError", err)
	}
	if running.PID != 4242 || running.Addr != "127.0.0.1:9000" {
		t.Errorf("RunningError = %+v", running)
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		running  map[int]string
	}{
		{"dead process", "4242|127.0.0.1:9000", nil},
		{"recycled pid", "4242", map[int]string{4242: "firefox"}},
		{"malformed", "not-a-pid", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tt.contents), 0o600); err != nil {
				t.Fatal(err)
			}
			stubProcesses(t, tt.running)

			l, err := Acquire(dir, "lifelog-viewer")
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			defer l.Release() //nolint:errcheck // test cleanup
			owner, err := read(filepath.Join(dir, FileName))
			if err != nil || owner.PID != os.Getpid() {
				t.Errorf("lock owner = %+v, %v", owner, err)
			}
		})
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	stubProcesses(t, nil)
	dir := t.TempDir()
	l, err := Acquire(dir, "lifelog-viewer")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("4242"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("foreign lock removed: %v", err)
	}
}
