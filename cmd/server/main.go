/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the revenue recognition server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Optionally seed demo data
  4. Create API handler and router
  5. Start background recognition scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: revrec.db)
              Use ":memory:" for in-memory database
  -seed       Seed N demo invoices on startup (default: 0, disabled)
  -scheduler  Run the background recognition scheduler (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/revrec.db"

  # Run with demo data
  ./server -db=":memory:" -seed=50

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  No environment variables currently. All config via flags.
  Future: DATABASE_URL, PORT, LOG_LEVEL

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/clearledger/revrec-engine/api"
	"github.com/clearledger/revrec-engine/seed"
	"github.com/clearledger/revrec-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "revrec.db", "SQLite database path")
	seedCount := flag.Int("seed", 0, "seed N demo invoices on startup (0 = disabled)")
	runScheduler := flag.Bool("scheduler", true, "run the background recognition scheduler")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Optionally seed demo data
	if *seedCount > 0 {
		cfg := seed.DefaultConfig()
		cfg.Invoices = *seedCount
		summary, err := seed.Load(context.Background(), store, cfg)
		if err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		log.Printf("Seeded %d invoices (%d payments, %d refunds, %d extensions)",
			summary.Invoices, summary.Payments, summary.Refunds, summary.Extensions)
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	// Background recognition runs
	scheduler := api.NewRecognitionScheduler(store, handler)
	scheduler.Enabled = *runScheduler
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
