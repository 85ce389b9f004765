package conversion

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCategory = errors.New("invalid category")
	ErrMissingFormat       = errors.New("no format specified")
	ErrNoFiles             = errors.New("no files uploaded")
	ErrMissingSession      = errors.New("missing session id")
	ErrUnsupportedFormat   = errors.New("unsupported target format")
	ErrUnsupportedType     = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
	ErrBatchTooLarge       = errors.New("batch exceeds size limit")
)

// ValidationKind classifies admission failures.
type ValidationKind string

const (
	ValidationInvalid     ValidationKind = "invalid"
	ValidationTooLarge    ValidationKind = "too_large"
	ValidationUnsupported ValidationKind = "unsupported_type"
)

// ValidationError rejects a batch before anything is written.
type ValidationError struct {
	Kind    ValidationKind
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %v", e.Message, e.Err)
	}
	return "validation: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UserMessage is safe to show to the client.
func (e *ValidationError) UserMessage() string { return e.Message }

// Invalid builds a ValidationError of kind ValidationInvalid.
func Invalid(err error, message string) *ValidationError {
	return &ValidationError{Kind: ValidationInvalid, Message: message, Err: err}
}

// ConversionError wraps a backend failure for one file.
type ConversionError struct {
	File string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %q: %v", e.File, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) UserMessage() string {
	return fmt.Sprintf("Failed to convert %q.", e.File)
}

// ArchiveError is a failure while writing or finalizing the output archive.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string { return fmt.Sprintf("archive: %v", e.Err) }

func (e *ArchiveError) Unwrap() error { return e.Err }

func (e *ArchiveError) UserMessage() string { return "Failed to create archive." }

// DownloadStreamError is a failure while sending the result to the client.
type DownloadStreamError struct {
	Name string
	Err  error
}

func (e *DownloadStreamError) Error() string {
	return fmt.Sprintf("send %q: %v", e.Name, e.Err)
}

func (e *DownloadStreamError) Unwrap() error { return e.Err }

func (e *DownloadStreamError) UserMessage() string {
	return "Error while sending file for download."
}

// UserMessage returns the sanitized text for err. Errors without a user
// facing form get a generic message so raw internal text never leaks.
func UserMessage(err error) string {
	var u interface{ UserMessage() string }
	if errors.As(err, &u) {
		return u.UserMessage()
	}
	return "An error occurred during file conversion."
}
