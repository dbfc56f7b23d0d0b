package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/simfleet/fleetview/handlers"
	"github.com/simfleet/fleetview/internal/backend"
	"github.com/simfleet/fleetview/internal/config"
	"github.com/simfleet/fleetview/internal/control"
	"github.com/simfleet/fleetview/internal/db"
	"github.com/simfleet/fleetview/internal/hub"
	"github.com/simfleet/fleetview/internal/realtime"
	"github.com/simfleet/fleetview/internal/store"
	"github.com/simfleet/fleetview/models"
	"github.com/simfleet/fleetview/repository"
)

// historyStore is what both history backends provide
type historyStore interface {
	realtime.Recorder
	handlers.HistoryRepository
}

func main() {
	config.LoadDotEnv(".")
	cfg := config.Load()
	cfg.ConfigureLogging()

	log.Println("Starting fleetview dashboard service...")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Config loaded: backend=%s, poll_interval=%v, history_every=%d polls",
		cfg.BackendURL, cfg.PollInterval, cfg.HistoryEvery)

	// ═══════════════════════════════════════════════════════
	// PHASE 1: History store (optional)
	// ═══════════════════════════════════════════════════════
	history, closeHistory := openHistory(cfg)
	defer closeHistory()

	// ═══════════════════════════════════════════════════════
	// PHASE 2: State, backend client and control relay
	// ═══════════════════════════════════════════════════════
	st := store.New(store.Options{
		Map: models.MapSettings{
			Coords: models.LatLng{cfg.MapCenterLat, cfg.MapCenterLon},
			Zoom:   cfg.MapZoom,
		},
	})
	client := backend.NewClient(cfg.BackendURL)
	relay := control.NewRelay(client, cfg.ActionTimeout)

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Poller
	// ═══════════════════════════════════════════════════════
	var recorder realtime.Recorder
	if history != nil {
		recorder = history
	}
	poller := realtime.NewPoller(client, st, recorder, realtime.Options{
		Interval:        cfg.PollInterval,
		RecordEvery:     cfg.HistoryEvery,
		Retention:       cfg.RetentionDuration,
		CleanupInterval: cfg.CleanupInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 5*time.Second)
	poller.LoadInit(initCtx)
	initCancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 4: WebSocket hub and HTTP API
	// ═══════════════════════════════════════════════════════
	stream := hub.New(st, relay, cfg.AllowedOrigins)
	unsubscribe := st.Subscribe(stream.Broadcast)

	routerOpts := handlers.RouterOptions{
		Store:          st,
		Poller:         poller,
		Control:        relay,
		Stream:         stream,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		CacheControl:   handlers.LiveCacheControl(int(cfg.PollInterval.Seconds())),
	}
	if history != nil {
		routerOpts.History = history
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Start loops
	// ═══════════════════════════════════════════════════════
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()
	go poller.RunCleanup(ctx)

	go func() {
		log.Printf("API server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 6: Graceful shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	cancel()
	<-done
	unsubscribe()
	relay.Wait()
	stream.Close()

	log.Println("Goodbye!")
}

// openHistory picks Postgres when HISTORY_DATABASE_URL is set, otherwise
// SQLite unless it is disabled. A nil store means history is off.
func openHistory(cfg *config.Config) (historyStore, func()) {
	noop := func() {}

	if cfg.HistoryDatabaseURL != "" {
		repo, err := repository.NewHistoryRepository(cfg.HistoryDatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to history database: %v", err)
		}
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure history schema: %v", err)
		}
		log.Println("History: recording to PostgreSQL")
		return repo, repo.Close
	}

	if !cfg.SQLiteEnabled() {
		log.Println("History: disabled")
		return nil, noop
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}
	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	log.Println("History: recording to SQLite")
	return database, func() {
		if err := database.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}
