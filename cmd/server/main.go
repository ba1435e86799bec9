/*
main.go - Application entry point

PURPOSE:
  Starts the school onboarding server: allocation panel sessions over HTTP,
  with submitted schools persisted to SQLite.

STARTUP SEQUENCE:
  1. Load configuration (defaults, .env, SCHOOLS_* environment)
  2. Apply command-line flag overrides
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start server with graceful shutdown

CONFIGURATION:
  SCHOOLS_PORT             HTTP server port (default: 8080)
  SCHOOLS_DB               SQLite database path (default: schools.db)
  SCHOOLS_ALLOWED_ORIGINS  Comma-separated CORS origins

COMMAND-LINE FLAGS (override configuration):
  -env     Path to a .env file (default: .env, ignored if missing)
  -port    HTTP server port
  -db      SQLite database path; ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

EXAMPLES:
  ./server -db="./data/schools.db"
  SCHOOLS_PORT=3000 ./server -db=":memory:"
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/school-onboarding/api"
	"github.com/warp/school-onboarding/config"
	"github.com/warp/school-onboarding/store/sqlite"
)

func main() {
	envFile := flag.String("env", ".env", "Path to .env file")
	port := flag.Int("port", 0, "HTTP server port (overrides SCHOOLS_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides SCHOOLS_DB)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}

	store, err := sqlite.New(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d (db %s)", cfg.Port, cfg.DB)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
