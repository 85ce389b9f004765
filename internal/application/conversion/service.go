package conversion

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	domain "fileconv/internal/domain/conversion"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Limits are the admission caps checked before anything is written.
type Limits struct {
	MaxFileSize  int64
	MaxBatchSize int64
}

// Upload is one file of a submitted batch as delivered by intake.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Batch is a conversion submission.
type Batch struct {
	SessionID string
	Category  string
	Format    string
	Files     []Upload
}

// Download is the artifact produced for a batch. Finish must be called once
// the response has been sent (or failed); it runs batch cleanup.
type Download struct {
	Path    string
	Name    string
	Archive bool

	once   sync.Once
	finish func(sendErr error)
}

// Finish reports the outcome of sending the download and releases every
// batch artifact. Only the first call has any effect.
func (d *Download) Finish(sendErr error) {
	d.once.Do(func() {
		if d.finish != nil {
			d.finish(sendErr)
		}
	})
}

// Service orchestrates batch conversions.
type Service struct {
	sessions   Sessions
	store      ScratchStore
	archive    ArchiveWriter
	dispatcher *Dispatcher
	limits     Limits
	logger     *log.Logger
}

// NewService creates the conversion orchestrator with injected ports.
func NewService(sessions Sessions, store ScratchStore, archive ArchiveWriter, dispatcher *Dispatcher, limits Limits, logger *log.Logger) *Service {
	return &Service{
		sessions:   sessions,
		store:      store,
		archive:    archive,
		dispatcher: dispatcher,
		limits:     limits,
		logger:     logger,
	}
}

// Validate checks a batch against admission rules. It has no side effects.
func (s *Service) Validate(batch Batch) (domain.Category, string, error) {
	if strings.TrimSpace(batch.SessionID) == "" {
		return "", "", domain.Invalid(domain.ErrMissingSession, "Missing session id.")
	}
	if len(batch.Files) == 0 {
		return "", "", domain.Invalid(domain.ErrNoFiles, "No files uploaded.")
	}

	category, err := domain.ParseCategory(batch.Category)
	if err != nil || !s.dispatcher.Supports(category) {
		return "", "", domain.Invalid(domain.ErrUnsupportedCategory, "Invalid category.")
	}

	if strings.TrimSpace(batch.Format) == "" {
		return "", "", domain.Invalid(domain.ErrMissingFormat, "No format specified.")
	}
	format := domain.NormalizeFormat(batch.Format)
	if format == "" || !domain.IsSupportedTarget(category, format) {
		return "", "", domain.Invalid(domain.ErrUnsupportedFormat, "Unsupported target format.")
	}

	var total int64
	for _, f := range batch.Files {
		name := domain.SanitizeName(f.Name)
		if s.limits.MaxFileSize > 0 && f.Size > s.limits.MaxFileSize {
			return "", "", &domain.ValidationError{
				Kind:    domain.ValidationTooLarge,
				Message: fmt.Sprintf(`File "%s" exceeds the maximum size.`, name),
				Err:     domain.ErrFileTooLarge,
			}
		}
		total += f.Size
		if !domain.IsAllowedMIME(category, f.ContentType) {
			return "", "", &domain.ValidationError{
				Kind:    domain.ValidationUnsupported,
				Message: fmt.Sprintf(`Unsupported file type for "%s".`, name),
				Err:     domain.ErrUnsupportedType,
			}
		}
	}
	if s.limits.MaxBatchSize > 0 && total > s.limits.MaxBatchSize {
		return "", "", &domain.ValidationError{
			Kind:    domain.ValidationTooLarge,
			Message: "Batch exceeds the maximum total size.",
			Err:     domain.ErrBatchTooLarge,
		}
	}

	return category, format, nil
}

// Convert validates, stores and converts a batch, then assembles the output.
// On success the caller owns the returned Download and must call Finish.
// On failure every artifact has already been removed.
func (s *Service) Convert(ctx context.Context, batch Batch) (*Download, error) {
	category, format, err := s.Validate(batch)
	if err != nil {
		s.logger.Printf("batch rejected: %v", err)
		if batch.SessionID != "" {
			s.sessions.Publish(batch.SessionID, "Error: "+domain.UserMessage(err))
		}
		return nil, err
	}

	sessionID := batch.SessionID
	batchID := uuid.NewString()
	cleanup := NewCleanup(s.store, s.logger)

	s.sessions.Publish(sessionID, "Files uploaded successfully.")
	s.sessions.Publish(sessionID, "Processing files...")

	jobs, err := s.storeUploads(batch.Files, category, format, cleanup)
	s.sessions.Begin(sessionID, batchID, jobs)
	if err != nil {
		return nil, s.fail(sessionID, batchID, cleanup, err)
	}

	// Conversions outlive the request; only a failing sibling cancels them.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, job := range jobs {
		g.Go(func() error {
			return s.convertOne(gctx, sessionID, job, cleanup)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(sessionID, batchID, cleanup, err)
	}

	download, err := s.assemble(context.WithoutCancel(ctx), sessionID, jobs, format, cleanup)
	if err != nil {
		return nil, s.fail(sessionID, batchID, cleanup, err)
	}

	s.sessions.Publish(sessionID, "Conversion completed. Preparing for download.")
	download.finish = func(sendErr error) {
		if sendErr != nil {
			streamErr := &domain.DownloadStreamError{Name: download.Name, Err: sendErr}
			s.logger.Printf("download failed: %v", streamErr)
			s.sessions.Publish(sessionID, "Error: "+streamErr.UserMessage())
		} else {
			s.sessions.Publish(sessionID, fmt.Sprintf(`File "%s" sent for download.`, download.Name))
		}
		s.release(sessionID, batchID, cleanup)
	}
	return download, nil
}

func (s *Service) storeUploads(files []Upload, category domain.Category, format string, cleanup *Cleanup) ([]*domain.FileJob, error) {
	jobs := make([]*domain.FileJob, 0, len(files))
	for _, f := range files {
		name := domain.SanitizeName(f.Name)
		path, err := s.saveUpload(name, f)
		cleanup.Track(path)
		if err != nil {
			return jobs, fmt.Errorf("store upload %s: %w", name, err)
		}
		jobs = append(jobs, domain.NewFileJob(name, path, domain.SourceFormat(name), format, category))
	}
	return jobs, nil
}

func (s *Service) saveUpload(name string, f Upload) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("upload %s has no content", name)
	}
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return s.store.SaveUpload(name, r)
}

func (s *Service) fail(sessionID, batchID string, cleanup *Cleanup, err error) error {
	s.logger.Printf("batch %s failed: %v", batchID, err)
	s.sessions.Publish(sessionID, "Error: "+domain.UserMessage(err))
	s.release(sessionID, batchID, cleanup)
	return err
}

func (s *Service) release(sessionID, batchID string, cleanup *Cleanup) {
	removed := cleanup.Run()
	s.logger.Printf("batch %s cleanup: removed %d files", batchID, removed)
	s.sessions.Publish(sessionID, "Cleanup complete.")
	s.sessions.Release(sessionID, batchID)
}
