package vips

import (
	"context"
	"os"
	"path/filepath"

	"fileconv/internal/application/conversion"
	"fileconv/internal/infrastructure/process"
)

// Converter wraps the libvips command line, the fast raster backend.
type Converter struct {
	Binary string
}

// NewConverter creates a libvips adapter.
func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = "vips"
	}
	return &Converter{Binary: binary}
}

// Available reports whether the vips binary can be found.
func (c *Converter) Available() bool {
	return process.Available(c.Binary)
}

// Convert re-encodes req.InputPath; vips picks the saver from the output
// extension.
func (c *Converter) Convert(ctx context.Context, req conversion.ConvertRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return err
	}
	return process.Run(ctx, c.Binary, "copy", req.InputPath, req.OutputPath)
}
