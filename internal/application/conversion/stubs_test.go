package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	domain "fileconv/internal/domain/conversion"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

type stubSessions struct {
	mu       sync.Mutex
	messages []string
	begun    []string
	released []string
}

func (s *stubSessions) Publish(_ string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *stubSessions) Begin(_ string, batchID string, _ []*domain.FileJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begun = append(s.begun, batchID)
}

func (s *stubSessions) Release(_ string, batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, batchID)
}

func (s *stubSessions) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *stubSessions) count(message string) int {
	n := 0
	for _, m := range s.snapshot() {
		if m == message {
			n++
		}
	}
	return n
}

// stubStore keeps scratch files under a test directory.
type stubStore struct {
	uploads   string
	converted string
	seq       atomic.Int64
	saved     atomic.Int64
}

func newStubStore(t *testing.T) *stubStore {
	t.Helper()
	root := t.TempDir()
	s := &stubStore{uploads: filepath.Join(root, "uploads"), converted: filepath.Join(root, "converted")}
	for _, dir := range []string{s.uploads, s.converted} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return s
}

func (s *stubStore) next() int64 { return s.seq.Add(1) }

func (s *stubStore) SaveUpload(originalName string, r io.Reader) (string, error) {
	s.saved.Add(1)
	path := filepath.Join(s.uploads, fmt.Sprintf("up%d.%s", s.next(), domain.SourceFormat(originalName)))
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *stubStore) ConvertedPath(format string) string {
	return filepath.Join(s.converted, fmt.Sprintf("out%d.%s", s.next(), format))
}

func (s *stubStore) ArchivePath() (string, string) {
	name := fmt.Sprintf("converted_%016d.zip", s.next())
	return filepath.Join(s.converted, name), name
}

func (s *stubStore) Remove(path string) error { return os.Remove(path) }

func (s *stubStore) assertEmpty(t *testing.T) {
	t.Helper()
	for _, dir := range []string{s.uploads, s.converted} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		if len(entries) != 0 {
			t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
		}
	}
}

// stubConverter derives its behaviour from the uploaded content: "boom"
// fails after leaving partial output, "slow" blocks until cancelled.
type stubConverter struct {
	progress  []int
	cancelled atomic.Bool
	calls     atomic.Int64
}

func (c *stubConverter) Convert(ctx context.Context, req ConvertRequest) error {
	c.calls.Add(1)
	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		return err
	}
	switch string(data) {
	case "boom":
		_ = os.WriteFile(req.OutputPath, []byte("partial"), 0o644)
		return errors.New("exit status 1: corrupt input")
	case "slow":
		<-ctx.Done()
		c.cancelled.Store(true)
		return ctx.Err()
	}
	for _, p := range c.progress {
		if req.OnProgress != nil {
			req.OnProgress(p)
		}
	}
	return os.WriteFile(req.OutputPath, []byte("converted:"+string(data)), 0o644)
}

type stubArchive struct {
	mu      sync.Mutex
	members []ArchiveMember
	calls   int
	err     error
}

func (a *stubArchive) Write(_ context.Context, path string, members []ArchiveMember) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.members = append([]ArchiveMember(nil), members...)
	if a.err != nil {
		_ = os.WriteFile(path, []byte("partial"), 0o644)
		return a.err
	}
	var b strings.Builder
	for _, m := range members {
		b.WriteString(m.Name + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func upload(name, contentType, content string) Upload {
	return Upload{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
