// Command programme-mockapi serves an in-memory programme API for local
// development and demos of programme-studio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"programme-studio/internal/logging"
	"programme-studio/internal/mockapi"
	"programme-studio/internal/programme"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("programme-mockapi", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:8787", "listen address")
	token := fs.String("token", os.Getenv("STUDIO_API_TOKEN"), "bearer token required on every request (empty disables auth)")
	uploadDelay := fs.Duration("upload-delay", 3*time.Second, "how long draft creation is held open")
	failUploads := fs.String("fail-uploads", "", "answer draft creation with 502 and this message")
	seed := fs.Bool("seed", true, "start with a few sample programmes")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.New(logging.Config{Level: *logLevel, Console: true})
	srv := mockapi.New(mockapi.Options{
		Token:       *token,
		UploadDelay: *uploadDelay,
		FailUploads: *failUploads,
		Logger:      log,
	})
	if *seed {
		for _, p := range sampleProgrammes() {
			srv.Seed(p)
		}
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *addr).Bool("auth", *token != "").Msg("mock programme API listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

func sampleProgrammes() []programme.Programme {
	return []programme.Programme{
		{ID: "prog-sample-1", ProductID: "prod-sample-1", Title: "Morning Breathwork", Description: "Ten minutes to start the day", Categories: []string{"Breathwork"}, IsPublished: true, IsFeatured: true, MuxPlaybackID: "play-sample-1"},
		{ID: "prog-sample-2", ProductID: "prod-sample-2", Title: "Evening Wind Down", Description: "Stretches before sleep", Categories: []string{"Sleep", "Yoga"}, IsPublished: true, MuxPlaybackID: "play-sample-2"},
		{ID: "prog-sample-3", ProductID: "prod-sample-3", Title: "Desk Reset", Categories: []string{"Mindfulness"}},
	}
}
