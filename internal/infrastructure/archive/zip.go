package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"fileconv/internal/application/conversion"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Writer builds zip archives at maximum deflate compression.
type Writer struct {
	Level int
}

// NewWriter creates a zip writer using flate.BestCompression.
func NewWriter() *Writer {
	return &Writer{Level: flate.BestCompression}
}

// Write creates path and appends every member under its entry name. The
// archive is closed and synced before Write returns; a partial archive is
// removed on failure.
func (w *Writer) Write(ctx context.Context, path string, members []conversion.ArchiveMember) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if err := w.write(ctx, out, members); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func (w *Writer) write(ctx context.Context, out io.Writer, members []conversion.ArchiveMember) error {
	zw := zip.NewWriter(out)
	level := w.Level
	zw.RegisterCompressor(zip.Deflate, func(dst io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(dst, level)
	})

	for _, m := range members {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}
		if err := addMember(zw, m); err != nil {
			_ = zw.Close()
			return err
		}
	}

	// Close writes the central directory.
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addMember(zw *zip.Writer, m conversion.ArchiveMember) error {
	src, err := os.Open(m.Path)
	if err != nil {
		return fmt.Errorf("open member %s: %w", m.Name, err)
	}
	defer src.Close()

	modified := time.Now()
	if info, err := src.Stat(); err == nil {
		modified = info.ModTime()
	}

	header := &zip.FileHeader{Name: m.Name, Method: zip.Deflate, Modified: modified}
	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add member %s: %w", m.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write member %s: %w", m.Name, err)
	}
	return nil
}
