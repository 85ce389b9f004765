package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fileconv/internal/client"
	"github.com/google/uuid"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "conversion server base URL")
	category := flag.String("category", "images", "file category: images, sounds or videos")
	format := flag.String("format", "", "target format, e.g. webp, mp3, mp4")
	sessionID := flag.String("session", "", "session id (random when empty)")
	outDir := flag.String("out", ".", "directory for the downloaded result")
	flag.Parse()

	logger := log.New(os.Stderr, "convertctl: ", 0)
	if *format == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: convertctl -format <fmt> [-category images] [-server url] file...")
		os.Exit(2)
	}
	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(*server, logger)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	ready := make(chan struct{})
	finished := make(chan struct{}, 1)
	go func() {
		_ = c.WatchProgress(watchCtx, *sessionID, ready, func(message string) {
			fmt.Println(message)
			if message == "Cleanup complete." {
				select {
				case finished <- struct{}{}:
				default:
				}
			}
		})
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		logger.Printf("progress stream unavailable, continuing without it")
	case <-ctx.Done():
		os.Exit(1)
	}

	path, err := c.Submit(ctx, client.SubmitRequest{
		SessionID: *sessionID,
		Category:  strings.ToLower(*category),
		Format:    *format,
		Files:     flag.Args(),
	}, *outDir)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
	}
	stopWatch()

	if err != nil {
		logger.Printf("conversion failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("saved %s\n", path)
}
