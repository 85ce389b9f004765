package conversion

import (
	"context"
	"fmt"

	domain "fileconv/internal/domain/conversion"
)

// assemble turns converted jobs into the artifact offered for download: the
// converted file itself for a single job, a finalized archive otherwise.
func (s *Service) assemble(ctx context.Context, sessionID string, jobs []*domain.FileJob, format string, cleanup *Cleanup) (*Download, error) {
	if len(jobs) == 1 {
		return &Download{Path: jobs[0].ConvertedPath, Name: jobs[0].DownloadName()}, nil
	}

	archivePath, downloadName := s.store.ArchivePath()
	cleanup.Track(archivePath)

	originals := make([]string, len(jobs))
	for i, job := range jobs {
		originals[i] = job.OriginalName
	}
	names := domain.ArchiveEntryNames(originals, format)

	members := make([]ArchiveMember, len(jobs))
	for i, job := range jobs {
		members[i] = ArchiveMember{Name: names[i], Path: job.ConvertedPath}
	}

	if err := s.archive.Write(ctx, archivePath, members); err != nil {
		return nil, &domain.ArchiveError{Err: err}
	}

	s.sessions.Publish(sessionID, fmt.Sprintf(`Created archive "%s".`, downloadName))
	return &Download{Path: archivePath, Name: downloadName, Archive: true}, nil
}
