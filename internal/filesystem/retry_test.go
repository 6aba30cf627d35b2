package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: fmt.Errorf("open: %w", syscall.ESTALE), want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isNFSStaleError(tt.err)
			if got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestWithRetryRecoversFromStaleHandle(t *testing.T) {
	calls := 0
	err := withRetry("read", "/nfs/x", fastConfig(), func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry returned %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	err := withRetry("stat", "/nfs/x", fastConfig(), func() error {
		calls++
		return syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("withRetry returned %v, want ESTALE", err)
	}
	if calls != 4 {
		t.Errorf("fn called %d times, want MaxRetries+1 = 4", calls)
	}
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	err := withRetry("stat", "/nfs/x", fastConfig(), func() error {
		calls++
		return os.ErrPermission
	})
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("withRetry returned %v, want ErrPermission", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	ops      []string
	attempts int
	failures int
}

func (r *recordingObserver) ObserveOperation(operation string, _ float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "err"
	}
	r.ops = append(r.ops, operation+":"+status)
}

func (r *recordingObserver) ObserveRetryAttempt(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
}

func (r *recordingObserver) ObserveRetryFailure(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func TestObserverReceivesOperations(t *testing.T) {
	rec := &recordingObserver{}
	SetObserver(rec)
	defer SetObserver(nil)

	_ = withRetry("write", "/nfs/x", fastConfig(), func() error { return syscall.ESTALE })
	_ = withRetry("read", "/nfs/y", fastConfig(), func() error { return nil })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ops) != 2 || rec.ops[0] != "write:err" || rec.ops[1] != "read:ok" {
		t.Errorf("observed ops = %v", rec.ops)
	}
	if rec.attempts != 3 {
		t.Errorf("retry attempts = %d, want 3", rec.attempts)
	}
	if rec.failures != 1 {
		t.Errorf("retry failures = %d, want 1", rec.failures)
	}
}

func TestReadFileWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mix.m3u")
	if err := os.WriteFile(path, []byte("#EXTM3U\na.mp3\n"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	data, err := ReadFileWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("ReadFileWithRetry error: %v", err)
	}
	if string(data) != "#EXTM3U\na.mp3\n" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := ReadFileWithRetry(filepath.Join(dir, "missing.m3u"), DefaultRetryConfig()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pls")

	if err := WriteFileAtomic(path, []byte("first"), 0o644, DefaultRetryConfig()); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o600, DefaultRetryConfig()); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.m3u")
	if err := WriteFileAtomic(path, []byte("x"), 0o644, DefaultRetryConfig()); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}

func TestIsRegularFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(file, []byte("id3"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "existing file", path: file, want: true},
		{name: "directory", path: dir, want: false},
		{name: "missing", path: filepath.Join(dir, "nope.mp3"), want: false},
		{name: "empty", path: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRegularFile(tt.path); got != tt.want {
				t.Errorf("IsRegularFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
