package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	c := New(url, log.New(io.Discard, "", 0))
	c.ReconnectDelay = 10 * time.Millisecond
	return c
}

func TestWatchProgress_ReconnectsAfterDrop(t *testing.T) {
	var connections atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/s1" {
			http.NotFound(w, r)
			return
		}
		n := connections.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprintf(w, "data: {\"message\":\"event %d\"}\n\n", n)
		w.(http.Flusher).Flush()
		if n > 1 {
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		done <- newTestClient(srv.URL).WatchProgress(ctx, "s1", ready, func(message string) {
			mu.Lock()
			got = append(got, message)
			n := len(got)
			mu.Unlock()
			if n == 2 {
				cancel()
			}
		})
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatalf("never connected")
	}

	err := <-done
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "event 1" || got[1] != "event 2" {
		t.Fatalf("unexpected messages %q", got)
	}
	if connections.Load() != 2 {
		t.Fatalf("expected 2 connections, got %d", connections.Load())
	}
}

func TestWatchProgress_ThrottlesReconnects(t *testing.T) {
	var connections atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connections.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.ReconnectDelay = 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_ = c.WatchProgress(ctx, "s1", nil, func(string) {})

	if n := connections.Load(); n < 1 || n > 3 {
		t.Fatalf("expected reconnects to be throttled, got %d connections", n)
	}
}

func TestSubmit_SavesDownloadUnderOfferedName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("sessionId") != "s1" || r.FormValue("category") != "images" || r.FormValue("format") != "webp" {
			http.Error(w, "bad fields", http.StatusBadRequest)
			return
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 1 || files[0].Filename != "photo.png" || files[0].Header.Get("Content-Type") != "image/png" {
			http.Error(w, "bad files", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="photo.webp"`)
		_, _ = io.WriteString(w, "webp-bytes")
	}))
	defer srv.Close()

	src := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(src, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	outDir := t.TempDir()

	path, err := newTestClient(srv.URL).Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Category:  "images",
		Format:    "webp",
		Files:     []string{src},
	}, outDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != filepath.Join(outDir, "photo.webp") {
		t.Fatalf("unexpected path %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "webp-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSubmit_ReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, `Unsupported file type for "notes.txt".`, http.StatusUnsupportedMediaType)
	}))
	defer srv.Close()

	src := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := newTestClient(srv.URL).Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Category:  "images",
		Format:    "png",
		Files:     []string{src},
	}, t.TempDir())
	if !IsStatus(err, http.StatusUnsupportedMediaType) {
		t.Fatalf("expected 415 status error, got %v", err)
	}
	if err.(*StatusError).Message != `Unsupported file type for "notes.txt".` {
		t.Fatalf("unexpected message %q", err.(*StatusError).Message)
	}
}
