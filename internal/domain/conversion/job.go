package conversion

import (
	"errors"
	"fmt"
)

// Category selects the backend family applied to a batch.
type Category string

const (
	CategoryImages Category = "images"
	CategorySounds Category = "sounds"
	CategoryVideos Category = "videos"
)

// Categories lists every category accepted at intake.
var Categories = []Category{CategoryImages, CategorySounds, CategoryVideos}

// ParseCategory validates a raw category value.
func ParseCategory(raw string) (Category, error) {
	for _, c := range Categories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", ErrUnsupportedCategory
}

// Status describes where a FileJob is in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusConverted  Status = "converted"
	StatusFailed     Status = "failed"
)

var ErrInvalidTransition = errors.New("invalid job status transition")

var transitions = map[Status][]Status{
	StatusPending:    {StatusConverting, StatusFailed},
	StatusConverting: {StatusConverted, StatusFailed},
}

// FileJob is one member file of a batch.
type FileJob struct {
	OriginalName  string
	ScratchPath   string
	SourceFormat  string
	TargetFormat  string
	Category      Category
	Status        Status
	ConvertedPath string
}

// NewFileJob creates a pending job for an uploaded file.
func NewFileJob(originalName, scratchPath, sourceFormat, targetFormat string, category Category) *FileJob {
	return &FileJob{
		OriginalName: originalName,
		ScratchPath:  scratchPath,
		SourceFormat: sourceFormat,
		TargetFormat: targetFormat,
		Category:     category,
		Status:       StatusPending,
	}
}

// Advance moves the job forward. Statuses never go backwards and terminal
// statuses never change.
func (j *FileJob) Advance(next Status) error {
	for _, allowed := range transitions[j.Status] {
		if allowed == next {
			j.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
}

// Converted records a successful conversion output.
func (j *FileJob) Converted(outputPath string) error {
	if err := j.Advance(StatusConverted); err != nil {
		return err
	}
	j.ConvertedPath = outputPath
	return nil
}

// DownloadName is the name a converted job is offered under.
func (j *FileJob) DownloadName() string {
	return OutputName(j.OriginalName, j.TargetFormat)
}
