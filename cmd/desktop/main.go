// Package main provides the local HTTP and WebSocket server for desktop clients.
// Desktop clients communicate via REST/WebSocket on localhost:8090.
package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kimhsiao/memonotes/cmd/desktop/handlers"
	"github.com/kimhsiao/memonotes/internal/config"
	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/logging"
	"github.com/kimhsiao/memonotes/internal/notes"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	cfg, err := config.Load(os.Getenv("MEMONOTES_CONFIG"))
	if err != nil {
		logging.Error("failed to load config", err)
		os.Exit(1)
	}
	logging.Init(os.Stderr, logging.ParseLevel(cfg.Log.Level), logging.Format(cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("desktop server stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	database, err := db.Open(db.Options{
		DataDir:      cfg.DataDir,
		FileName:     cfg.DBFile,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		BusyTimeout:  cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}

	store := db.NewStore(database)
	defer store.Close()
	repo := notes.NewRepository(store, notes.WithMaxConcurrentQueries(cfg.Live.MaxConcurrentQueries))

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := NewWSHub(hubCtx, repo, cfg.Session.MaxWorkers)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newRouter(repo, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("desktop server starting", map[string]interface{}{"addr": srv.Addr, "version": Version, "db": database.Path})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("desktop server shutting down")
	stopHub()
	<-hub.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter registers every route.
func newRouter(repo *notes.Repository, hub *WSHub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"memonotes-desktop"}`))
	})

	handlers.NewNoteHandler(repo).Register(mux)
	handlers.NewTagHandler(repo).Register(mux)
	mux.HandleFunc("GET /ws", HandleWebSocket(hub))

	return mux
}
