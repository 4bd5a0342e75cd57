package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"arena-server/arena"
	"arena-server/config"
	"arena-server/game"
	"arena-server/store"
	"arena-server/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config overlay")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	telemetryDir := flag.String("telemetry", "", "Directory for telemetry CSV output (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if *telemetryDir != "" {
		cfg.Server.TelemetryDir = *telemetryDir
	}

	var db *store.DB
	var events *store.Events
	if cfg.Server.DBPath != "" {
		db, err = store.OpenDB(cfg.Server.DBPath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		events = store.NewEvents(db)
	}

	stats, err := telemetry.NewRecorder(cfg.Server.TelemetryDir)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	auth, err := NewAuth(db, events, cfg.Admin)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	if cfg.Admin.Password == config.DefaultAdminPassword {
		log.Printf("warning: admin password is the default, set ARENA_ADMIN_PASS")
	}

	world := game.NewWorld(cfg)
	a := arena.New(world, arena.WithRecorder(events), arena.WithTelemetry(stats))
	hub := NewHub(a, cfg, db, auth, events)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.Run(ctx)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: SetupRoutes(hub, cfg.Server.ClientDir)}
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if cfg.Server.ClientDir != "" {
			log.Printf("Serving client files from %s", cfg.Server.ClientDir)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	<-a.Done()
	server.Close()
	events.Stop()
	if err := stats.Close(); err != nil {
		log.Printf("telemetry close: %v", err)
	}
	if db != nil {
		db.Close()
	}
}
