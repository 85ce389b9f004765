package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fileconv/internal/application/conversion"
	"fileconv/internal/application/session"
	"fileconv/internal/config"
	"fileconv/internal/infrastructure/archive"
	"fileconv/internal/infrastructure/ffmpeg"
	"fileconv/internal/infrastructure/filesystem"
	"fileconv/internal/infrastructure/imagemagick"
	"fileconv/internal/infrastructure/vips"
	httptransport "fileconv/internal/transport/http"
	"github.com/rs/cors"
)

// multipart framing allowance on top of the batch limit
const formOverhead = 1 << 20

func main() {
	cfg := config.Load()
	logger := log.Default()

	store := filesystem.NewStore(cfg.UploadDir, cfg.ConvertedDir)
	if err := store.EnsureDirs(); err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	magick := imagemagick.NewConverter(cfg.ImageMagickBin)
	vipsConverter := vips.NewConverter(cfg.VipsBin)
	ffmpegConverter := ffmpeg.NewConverter(cfg.FFmpegBin, cfg.FFprobeBin)
	backends := map[conversion.BackendName]conversion.Converter{
		conversion.BackendImageMagick: magick,
		conversion.BackendVips:        vipsConverter,
		conversion.BackendFFmpeg:      ffmpegConverter,
	}
	for name, available := range map[conversion.BackendName]bool{
		conversion.BackendImageMagick: magick.Available(),
		conversion.BackendVips:        vipsConverter.Available(),
		conversion.BackendFFmpeg:      ffmpegConverter.Available(),
	} {
		if !available {
			logger.Printf("warning: %s binary not found, conversions routed to it will fail", name)
		}
	}
	dispatcher := conversion.NewDispatcher(conversion.DefaultRoutes(), conversion.LegacyClasses(cfg.LegacyImageFormats), backends)

	sessions := session.NewManager(logger,
		session.WithBuffer(cfg.ProgressBuffer),
		session.WithHeartbeat(time.Duration(cfg.HeartbeatSeconds)*time.Second),
	)

	limits := conversion.Limits{MaxFileSize: cfg.MaxFileSize(), MaxBatchSize: cfg.MaxBatchSize()}
	service := conversion.NewService(sessions, store, archive.NewWriter(), dispatcher, limits, logger)

	if cfg.IntakeDir != "" {
		if err := os.MkdirAll(cfg.IntakeDir, 0o755); err != nil {
			log.Fatalf("intake dir init failed: %v", err)
		}
	}
	handler := httptransport.NewHandler(service, sessions, cfg.MaxBatchSize()+formOverhead, cfg.MaxFileSize(), cfg.IntakeDir, cfg.TrustProxy, logger)
	router := httptransport.NewRouter(handler, cfg.StaticDir)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		ExposedHeaders: []string{"Content-Disposition"},
	})

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(sessions.Close)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Server shutdown error: %v", err)
		}
	}()

	logger.Printf("Server started on %s", cfg.ServerAddr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("ListenAndServe error: %v", err)
	}
}
