package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	domain "fileconv/internal/domain/conversion"
)

const maxFieldBytes = 64 << 10

// intakeForm is a parsed submission. File parts are spooled to request-scoped
// temp files that RemoveAll deletes.
type intakeForm struct {
	values map[string]string
	files  []*spooledFile
}

type spooledFile struct {
	name        string
	contentType string
	size        int64
	path        string
}

func (f *intakeForm) value(key string) string {
	return f.values[key]
}

// RemoveAll deletes every spooled file.
func (f *intakeForm) RemoveAll() {
	for _, sf := range f.files {
		_ = os.Remove(sf.path)
	}
}

// readIntake streams the multipart body. A file part larger than
// maxFileSize is rejected as soon as the limit is crossed; zero disables the
// limit.
func readIntake(r *http.Request, dir string, maxFileSize int64) (*intakeForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	form := &intakeForm{values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			form.RemoveAll()
			return nil, err
		}

		name := part.FormName()
		switch {
		case name == "":
		case part.FileName() == "":
			data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				form.RemoveAll()
				return nil, err
			}
			form.values[name] = string(data)
		case name == "files":
			sf, err := spool(part.FileName(), part.Header.Get("Content-Type"), part, dir, maxFileSize)
			if err != nil {
				form.RemoveAll()
				return nil, err
			}
			form.files = append(form.files, sf)
		}
		_ = part.Close()
	}
}

func spool(name, contentType string, src io.Reader, dir string, maxFileSize int64) (*spooledFile, error) {
	tmp, err := os.CreateTemp(dir, "fileconv-intake-*")
	if err != nil {
		return nil, err
	}
	sf := &spooledFile{name: name, contentType: strings.TrimSpace(contentType), path: tmp.Name()}

	if maxFileSize > 0 {
		src = io.LimitReader(src, maxFileSize+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && maxFileSize > 0 && n > maxFileSize {
		err = &domain.ValidationError{
			Kind:    domain.ValidationTooLarge,
			Message: fmt.Sprintf(`File "%s" exceeds the maximum size.`, domain.SanitizeName(name)),
			Err:     domain.ErrFileTooLarge,
		}
	}
	if err != nil {
		_ = os.Remove(sf.path)
		return nil, err
	}
	sf.size = n
	return sf, nil
}
