package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/planforge/internal/audit"
	"github.com/fentz26/planforge/internal/backend"
	"github.com/fentz26/planforge/internal/store"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Start the collaboration backend",
	Long:    `Starts the HTTP backend that stores projects, activity and invitations in SQLite.`,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, closer, err := newLogger("planforge-backend", cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	addr := cfg.Listen
	if listenAddr != "" {
		addr = listenAddr
	}
	path := cfg.DBPath
	if dbPath != "" {
		path = dbPath
	}

	s, err := store.New(path)
	if err != nil {
		return err
	}
	log.WithField("db", path).Info("store opened")

	service := backend.NewService(s, audit.NewRecorder(s), log)
	server := backend.NewServer(service, s, addr, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server error")
			s.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := s.Close(); err != nil {
		log.WithError(err).Warn("database close")
	}
	log.Info("shutdown complete")
	return nil
}
