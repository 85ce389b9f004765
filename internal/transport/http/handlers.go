package http

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"

	"fileconv/internal/application/conversion"
	"fileconv/internal/application/session"
	domain "fileconv/internal/domain/conversion"
	"github.com/gabriel-vasile/mimetype"
)

const (
	genericError = "An error occurred during file conversion."
	octetStream  = "application/octet-stream"
)

type conversionUseCases interface {
	Convert(ctx context.Context, batch conversion.Batch) (*conversion.Download, error)
}

type progressSource interface {
	Subscribe(sessionID string) (*session.Subscription, error)
}

type Handler struct {
	conversions    conversionUseCases
	sessions       progressSource
	maxRequestSize int64
	maxFileSize    int64
	intakeDir      string
	trustProxy     bool
	logger         *log.Logger
}

// NewHandler wires HTTP handlers with application use cases. maxRequestSize
// caps the whole multipart body and maxFileSize each file part while it is
// received; zero disables a cap. Received files are spooled under intakeDir,
// or the system temp dir when it is empty.
func NewHandler(conversions conversionUseCases, sessions progressSource, maxRequestSize, maxFileSize int64, intakeDir string, trustProxy bool, logger *log.Logger) *Handler {
	return &Handler{
		conversions:    conversions,
		sessions:       sessions,
		maxRequestSize: maxRequestSize,
		maxFileSize:    maxFileSize,
		intakeDir:      intakeDir,
		trustProxy:     trustProxy,
		logger:         logger,
	}
}

// Convert handles POST /convert. On success the response body is the
// converted file or the archive of converted files.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if h.maxRequestSize > 0 {
		if r.ContentLength > h.maxRequestSize {
			http.Error(w, "Request exceeds the maximum upload size.", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	}

	form, err := readIntake(r, h.intakeDir, h.maxFileSize)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeConversionError(w, err)
		case isBodyTooLarge(err):
			http.Error(w, "Request exceeds the maximum upload size.", http.StatusRequestEntityTooLarge)
		default:
			http.Error(w, "Invalid multipart request.", http.StatusBadRequest)
		}
		return
	}
	defer form.RemoveAll()

	sessionID := strings.TrimSpace(form.value("sessionId"))
	if sessionID == "" {
		sessionID = h.clientIP(r)
	}

	batch := conversion.Batch{
		SessionID: sessionID,
		Category:  form.value("category"),
		Format:    form.value("format"),
	}
	for _, sf := range form.files {
		batch.Files = append(batch.Files, uploadFromSpool(sf))
	}

	download, err := h.conversions.Convert(r.Context(), batch)
	if err != nil {
		writeConversionError(w, err)
		return
	}

	sendErr := sendDownload(w, download)
	if sendErr != nil {
		h.logger.Printf("send %s: %v", download.Name, sendErr)
	}
	download.Finish(sendErr)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

// uploadFromSpool describes one received file. A missing or generic content
// type is replaced by the sniffed one, and a name without extension gets the
// extension of its detected type.
func uploadFromSpool(sf *spooledFile) conversion.Upload {
	name := sf.name
	contentType := sf.contentType

	var detected *mimetype.MIME
	if contentType == "" || strings.EqualFold(contentType, octetStream) {
		if m, err := mimetype.DetectFile(sf.path); err == nil {
			detected = m
			contentType = m.String()
		}
	} else {
		detected = mimetype.Lookup(contentType)
	}

	if domain.SourceFormat(domain.SanitizeName(name)) == "" && detected != nil && detected.Extension() != "" {
		name = domain.SanitizeName(name) + detected.Extension()
	}

	path := sf.path
	return conversion.Upload{
		Name:        name,
		Size:        sf.size,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

func writeConversionError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		status := http.StatusBadRequest
		switch validationErr.Kind {
		case domain.ValidationTooLarge:
			status = http.StatusRequestEntityTooLarge
		case domain.ValidationUnsupported:
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, validationErr.UserMessage(), status)
		return
	}

	var conversionErr *domain.ConversionError
	var archiveErr *domain.ArchiveError
	if errors.As(err, &conversionErr) || errors.As(err, &archiveErr) {
		http.Error(w, domain.UserMessage(err), http.StatusInternalServerError)
		return
	}
	http.Error(w, genericError, http.StatusInternalServerError)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// clientIP identifies a caller that sent no session id.
func (h *Handler) clientIP(r *http.Request) string {
	if h.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
