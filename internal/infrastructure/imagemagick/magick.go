package imagemagick

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"fileconv/internal/application/conversion"
	"fileconv/internal/infrastructure/process"
)

// Converter wraps the ImageMagick command line for formats the raster
// backend does not handle (bmp, heic, heif).
type Converter struct {
	Binary string
}

// NewConverter creates an ImageMagick adapter. Without an explicit binary
// it prefers "magick" (v7) and falls back to "convert" (v6).
func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = "magick"
		if !process.Available(binary) && process.Available("convert") {
			binary = "convert"
		}
	}
	return &Converter{Binary: binary}
}

// Available reports whether the ImageMagick binary can be found.
func (c *Converter) Available() bool {
	return process.Available(c.Binary)
}

// Convert writes req.InputPath as req.TargetFormat to req.OutputPath.
func (c *Converter) Convert(ctx context.Context, req conversion.ConvertRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return err
	}
	// Explicit "FORMAT:path" so the encoder never depends on the extension.
	output := strings.ToUpper(req.TargetFormat) + ":" + req.OutputPath
	return process.Run(ctx, c.Binary, req.InputPath, output)
}
