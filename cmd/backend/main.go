package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"share-drop/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		log.Printf("service=backend msg=%q usage=%q", "must pass data dir as first argument", os.Args[0]+" <data-dir>")
		os.Exit(1)
	}

	if err := server.ValidateAllConfiguration(); err != nil {
		log.Printf("service=backend msg=%q err=%v", "invalid_configuration", err)
		os.Exit(1)
	}
	server.WarnOnOptionalMissingConfig()

	cfg, err := server.LoadConfig(os.Args[1])
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "config_load_failed", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "server_init_failed", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s upload_dir=%s url=%s version=%s commit=%s",
			"starting", cfg.Addr, cfg.UploadDir, cfg.SiteURL, cfg.Build.Version, cfg.Build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		// In-flight uploads get 30 seconds to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}
