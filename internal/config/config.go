package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the server.
type Config struct {
	ServerAddr         string
	UploadDir          string
	ConvertedDir       string
	StaticDir          string
	IntakeDir          string
	MaxFileSizeMB      int
	MaxBatchSizeMB     int
	HeartbeatSeconds   int
	ProgressBuffer     int
	LegacyImageFormats []string
	FFmpegBin          string
	FFprobeBin         string
	ImageMagickBin     string
	VipsBin            string
	AllowedOrigins     []string
	TrustProxy         bool
}

// Load reads an optional .env file, then environment variables, and returns
// normalized runtime config. Variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() Config {
	return Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":3000"),
		UploadDir:          getEnv("UPLOAD_DIR", "/tmp/uploads"),
		ConvertedDir:       getEnv("CONVERTED_DIR", "/tmp/converted"),
		StaticDir:          strings.TrimSpace(os.Getenv("STATIC_DIR")),
		IntakeDir:          strings.TrimSpace(os.Getenv("INTAKE_DIR")),
		MaxFileSizeMB:      getEnvInt("MAX_FILE_SIZE_MB", 256),
		MaxBatchSizeMB:     getEnvInt("MAX_BATCH_SIZE_MB", 1024),
		HeartbeatSeconds:   getEnvInt("HEARTBEAT_SECONDS", 15),
		ProgressBuffer:     getEnvInt("PROGRESS_BUFFER", 256),
		LegacyImageFormats: getEnvList("LEGACY_IMAGE_FORMATS", []string{"bmp", "heic", "heif"}),
		FFmpegBin:          getEnv("FFMPEG_BIN", "ffmpeg"),
		FFprobeBin:         getEnv("FFPROBE_BIN", "ffprobe"),
		ImageMagickBin:     strings.TrimSpace(os.Getenv("IMAGEMAGICK_BIN")),
		VipsBin:            getEnv("VIPS_BIN", "vips"),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		TrustProxy:         getEnvBool("TRUST_PROXY", true),
	}
}

// MaxFileSize is the per-file limit in bytes.
func (c Config) MaxFileSize() int64 { return int64(c.MaxFileSizeMB) << 20 }

// MaxBatchSize is the per-request limit in bytes.
func (c Config) MaxBatchSize() int64 { return int64(c.MaxBatchSizeMB) << 20 }

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
