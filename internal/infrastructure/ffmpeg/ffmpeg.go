package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"fileconv/internal/application/conversion"
	"fileconv/internal/infrastructure/process"
)

// Converter wraps ffmpeg/ffprobe calls for audio and video transcoding.
type Converter struct {
	FFmpegPath  string
	FFprobePath string
}

// NewConverter creates ffmpeg adapter. Empty paths fall back to $PATH lookup.
func NewConverter(ffmpegPath, ffprobePath string) *Converter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Converter{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Available reports whether the ffmpeg binary can be found.
func (c *Converter) Available() bool {
	return process.Available(c.FFmpegPath)
}

// Convert transcodes req.InputPath into req.OutputPath. The container is
// chosen by ffmpeg from the output extension. When the input duration is
// known, completion percentages are reported through req.OnProgress.
func (c *Converter) Convert(ctx context.Context, req conversion.ConvertRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return err
	}

	duration, _ := c.probeDuration(ctx, req.InputPath)
	totalMs := int64(duration * 1000)
	if totalMs <= 0 || req.OnProgress == nil {
		return process.Run(ctx, c.FFmpegPath, "-y", "-i", req.InputPath, req.OutputPath)
	}

	args := []string{"-y", "-i", req.InputPath, "-progress", "pipe:1", "-nostats", req.OutputPath}
	cmd := exec.CommandContext(ctx, c.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	lastProgress := 0
	for scanner.Scan() {
		percent, ok := parseProgress(scanner.Text(), totalMs)
		if !ok || percent <= lastProgress {
			continue
		}
		lastProgress = percent
		req.OnProgress(percent)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, process.Tail(stderr.String()))
	}
	req.OnProgress(100)
	return nil
}

// parseProgress reads one "key=value" line of ffmpeg -progress output and
// returns the completion percentage, capped at 99 until ffmpeg exits.
func parseProgress(line string, totalMs int64) (int, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	// out_time_ms is reported in microseconds despite its name.
	if !ok || key != "out_time_ms" {
		return 0, false
	}
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	percent := int(float64(us) / 1000 / float64(totalMs) * 100)
	if percent > 99 {
		percent = 99
	}
	return percent, true
}

func (c *Converter) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		inputPath,
	}
	cmd := exec.CommandContext(ctx, c.FFprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(out))
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("duration missing")
	}
	return strconv.ParseFloat(value, 64)
}
