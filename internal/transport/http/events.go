package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fileconv/internal/application/session"
	"github.com/gorilla/mux"
)

// Events handles GET /events/{sessionId} and GET /events. The stream stays
// open until the client goes away or the subscription is replaced.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := strings.TrimSpace(mux.Vars(r)["sessionId"])
	if sessionID == "" {
		sessionID = h.clientIP(r)
	}

	sub, err := h.sessions.Subscribe(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				return
			}
		case <-sub.Heartbeat():
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w io.Writer, event session.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
