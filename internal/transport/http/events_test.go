package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fileconv/internal/application/session"
)

func waitSubscribed(t *testing.T, m *session.Manager, sessionID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !m.Subscribed(sessionID) {
		if time.Now().After(deadline) {
			t.Fatalf("session %s never subscribed", sessionID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func openStream(t *testing.T, url string, header http.Header) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		cancel()
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		cancel()
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
	return bufio.NewReader(resp.Body), func() {
		cancel()
		_ = resp.Body.Close()
	}
}

// readUntil returns the first non-empty line accepted by match.
func readUntil(t *testing.T, r *bufio.Reader, match func(string) bool) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line != "" && match(line) {
			return line
		}
	}
}

func TestEvents_StreamsPublishedMessages(t *testing.T) {
	srv := newTestServer(t, 0)
	httpSrv := httptest.NewServer(srv.router)
	t.Cleanup(httpSrv.Close)

	r, closeStream := openStream(t, httpSrv.URL+"/events/s1", nil)
	defer closeStream()
	waitSubscribed(t, srv.sessions, "s1")

	srv.sessions.Publish("s1", `Converting "a.png" to webp...`)
	srv.sessions.Publish("s2", "not for s1")
	srv.sessions.Publish("s1", "Cleanup complete.")

	first := readUntil(t, r, func(l string) bool { return strings.HasPrefix(l, "data: ") })
	if first != `data: {"message":"Converting \"a.png\" to webp..."}` {
		t.Fatalf("unexpected first event %q", first)
	}
	second := readUntil(t, r, func(l string) bool { return strings.HasPrefix(l, "data: ") })
	if second != `data: {"message":"Cleanup complete."}` {
		t.Fatalf("unexpected second event %q", second)
	}
}

func TestEvents_SendsHeartbeat(t *testing.T) {
	srv := newTestServer(t, 0, session.WithHeartbeat(20*time.Millisecond))
	httpSrv := httptest.NewServer(srv.router)
	t.Cleanup(httpSrv.Close)

	r, closeStream := openStream(t, httpSrv.URL+"/events/s1", nil)
	defer closeStream()

	line := readUntil(t, r, func(string) bool { return true })
	if line != ": keep-alive" {
		t.Fatalf("expected keep-alive comment, got %q", line)
	}
}

func TestEvents_WithoutIDUsesClientAddress(t *testing.T) {
	srv := newTestServer(t, 0)
	httpSrv := httptest.NewServer(srv.router)
	t.Cleanup(httpSrv.Close)

	_, closeStream := openStream(t, httpSrv.URL+"/events", http.Header{"X-Forwarded-For": {"203.0.113.7"}})
	defer closeStream()

	waitSubscribed(t, srv.sessions, "203.0.113.7")
}

func TestEvents_EndsWhenManagerCloses(t *testing.T) {
	srv := newTestServer(t, 0)
	httpSrv := httptest.NewServer(srv.router)
	t.Cleanup(httpSrv.Close)

	r, closeStream := openStream(t, httpSrv.URL+"/events/s1", nil)
	defer closeStream()
	waitSubscribed(t, srv.sessions, "s1")

	srv.sessions.Close()

	for {
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
	}
}
