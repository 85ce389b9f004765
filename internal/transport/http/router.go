package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter configures HTTP routes and, when staticDir is set, serves the
// web client from it.
func NewRouter(handler *Handler, staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/convert", handler.Convert).Methods("POST")
	r.HandleFunc("/events/{sessionId}", handler.Events).Methods("GET")
	r.HandleFunc("/events", handler.Events).Methods("GET")
	r.HandleFunc("/health", handler.Health).Methods("GET")
	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
	return r
}
