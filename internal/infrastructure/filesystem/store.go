package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	domain "fileconv/internal/domain/conversion"
	"github.com/google/uuid"
)

// Store manages scratch storage for uploads and converted outputs. Every
// generated name is random; client names never reach the filesystem.
type Store struct {
	UploadDir    string
	ConvertedDir string
}

// NewStore creates filesystem adapter with configured roots.
func NewStore(uploadDir, convertedDir string) *Store {
	return &Store{UploadDir: uploadDir, ConvertedDir: convertedDir}
}

// EnsureDirs creates filesystem roots used by service.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(s.ConvertedDir, 0o755); err != nil {
		return err
	}
	return nil
}

// SaveUpload copies r into a fresh scratch file that keeps the extension of
// originalName. On failure nothing is left behind.
func (s *Store) SaveUpload(originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return "", err
	}
	ext := domain.SourceFormat(originalName)
	target := filepath.Join(s.UploadDir, randomName(ext))

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

// ConvertedPath returns a fresh output path with the given extension.
func (s *Store) ConvertedPath(format string) string {
	return filepath.Join(s.ConvertedDir, randomName(format))
}

// ArchivePath returns a fresh archive path and the name it is offered under.
func (s *Store) ArchivePath() (string, string) {
	name := "converted_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16] + ".zip"
	return filepath.Join(s.ConvertedDir, name), name
}

// Remove deletes a scratch file. Paths outside the scratch roots are
// refused.
func (s *Store) Remove(target string) error {
	if !isWithinDir(s.UploadDir, target) && !isWithinDir(s.ConvertedDir, target) {
		return errors.New("path outside scratch storage")
	}
	return os.Remove(target)
}

func randomName(ext string) string {
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return name
}

func isWithinDir(basePath, targetPath string) bool {
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	sep := string(os.PathSeparator)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+sep) {
		return false
	}
	return true
}
