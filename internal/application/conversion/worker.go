package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "fileconv/internal/domain/conversion"
)

const progressStep = 25

// convertOne runs a single job through its backend. The output path is
// tracked before the backend starts so partial output is always removed.
func (s *Service) convertOne(ctx context.Context, sessionID string, job *domain.FileJob, cleanup *Cleanup) error {
	name, backend, err := s.dispatcher.Select(job.Category, job.SourceFormat, job.TargetFormat)
	if err != nil {
		_ = job.Advance(domain.StatusFailed)
		return &domain.ConversionError{File: job.OriginalName, Err: err}
	}

	outputPath := s.store.ConvertedPath(job.TargetFormat)
	cleanup.Track(outputPath)

	if err := job.Advance(domain.StatusConverting); err != nil {
		return &domain.ConversionError{File: job.OriginalName, Err: err}
	}
	s.sessions.Publish(sessionID, fmt.Sprintf(`Converting "%s" to %s...`, job.OriginalName, job.TargetFormat))
	s.logger.Printf("conversion started: %s -> %s (%s)", job.OriginalName, job.TargetFormat, name)

	err = backend.Convert(ctx, ConvertRequest{
		InputPath:    job.ScratchPath,
		OutputPath:   outputPath,
		SourceFormat: job.SourceFormat,
		TargetFormat: job.TargetFormat,
		OnProgress:   s.progressReporter(sessionID, job),
	})
	if err != nil {
		_ = job.Advance(domain.StatusFailed)
		if errors.Is(ctx.Err(), context.Canceled) {
			s.logger.Printf("conversion cancelled: %s", job.OriginalName)
		} else {
			s.logger.Printf("conversion failed: %s: %v", job.OriginalName, err)
		}
		return &domain.ConversionError{File: job.OriginalName, Err: err}
	}

	if err := job.Converted(outputPath); err != nil {
		return &domain.ConversionError{File: job.OriginalName, Err: err}
	}
	s.sessions.Publish(sessionID, fmt.Sprintf(`File "%s" converted to %s.`, job.OriginalName, job.TargetFormat))
	s.logger.Printf("conversion finished: %s", job.OriginalName)
	return nil
}

// progressReporter publishes backend percentages in coarse steps.
func (s *Service) progressReporter(sessionID string, job *domain.FileJob) func(int) {
	var mu sync.Mutex
	next := progressStep
	return func(percent int) {
		mu.Lock()
		defer mu.Unlock()
		if percent < next || percent >= 100 {
			return
		}
		for next <= percent {
			next += progressStep
		}
		s.sessions.Publish(sessionID, fmt.Sprintf(`Converting "%s": %d%%`, job.OriginalName, percent))
	}
}
