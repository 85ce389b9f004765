package conversion

import (
	"context"
	"io"

	domain "fileconv/internal/domain/conversion"
)

// ConvertRequest is one backend invocation.
type ConvertRequest struct {
	InputPath    string
	OutputPath   string
	SourceFormat string
	TargetFormat string
	// OnProgress, when set, receives completion percentages from backends
	// that can report them.
	OnProgress func(percent int)
}

// Converter is an application port for a codec backend.
type Converter interface {
	Convert(ctx context.Context, req ConvertRequest) error
}

// ScratchStore is an application port for batch-scoped temporary files.
type ScratchStore interface {
	SaveUpload(originalName string, r io.Reader) (string, error)
	ConvertedPath(format string) string
	ArchivePath() (path string, downloadName string)
	Remove(path string) error
}

// ArchiveMember is one file appended to an output archive.
type ArchiveMember struct {
	Name string
	Path string
}

// ArchiveWriter is an application port for the compressed bundle writer.
// Write must return only after the archive is fully finalized on disk.
type ArchiveWriter interface {
	Write(ctx context.Context, path string, members []ArchiveMember) error
}

// Sessions is the slice of the session registry the orchestrator uses.
type Sessions interface {
	Publish(sessionID, message string)
	Begin(sessionID, batchID string, jobs []*domain.FileJob)
	Release(sessionID, batchID string)
}
