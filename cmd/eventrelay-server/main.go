// Package main provides the event relay server executable with HTTP API,
// subscriber loop, and webhook endpoints.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coregx/eventrelay"
	redisadapter "github.com/coregx/eventrelay/adapters/redis"
	relicaadapter "github.com/coregx/eventrelay/adapters/relica"
	"github.com/coregx/eventrelay/cmd/eventrelay-server/internal/api"
	"github.com/coregx/eventrelay/cmd/eventrelay-server/internal/config"
	"github.com/coregx/eventrelay/model"
	"github.com/coregx/eventrelay/retry"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements eventrelay.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	log.Println("🚀 Starting Event Relay Server v0.1.0...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("   Bus driver: %s (channel %q)", cfg.Bus.Driver, cfg.Bus.Channel)
	log.Printf("   Dedup driver: %s", cfg.Receiver.DedupDriver)
	log.Printf("   Max delivery attempts: %d", cfg.Delivery.MaxAttempts)
	log.Printf("   Simulated failure rate: %.0f%%", cfg.Receiver.FailureRate*100)

	logger := &SimpleLogger{}

	// Redis client is shared between the bus and key store when either uses it.
	var redisClient *goredis.Client
	if cfg.Bus.Driver == "redis" || cfg.Receiver.DedupDriver == "redis" {
		redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.Bus.RedisAddr})
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				log.Printf("Failed to close Redis client: %v", closeErr)
			}
		}()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Bus.RedisAddr, err)
		}
		log.Println("✅ Redis connection established")
	}

	// Create the event bus
	var bus eventrelay.Bus
	switch cfg.Bus.Driver {
	case "redis":
		bus, err = redisadapter.NewBus(redisClient, logger)
		if err != nil {
			log.Fatalf("Failed to create Redis bus: %v", err)
		}
	default:
		bus, err = eventrelay.NewMemoryBus(eventrelay.WithBusLogger(logger))
		if err != nil {
			log.Fatalf("Failed to create memory bus: %v", err)
		}
	}
	log.Printf("✅ Event bus created (%s)", cfg.Bus.Driver)

	// Create the processed-key store for inbound dedup
	var store eventrelay.ProcessedKeyStore
	switch cfg.Receiver.DedupDriver {
	case "redis":
		store, err = redisadapter.NewKeyStore(redisClient)
		if err != nil {
			log.Fatalf("Failed to create Redis key store: %v", err)
		}
	case "mysql", "postgres", "sqlite3":
		db, openErr := sql.Open(cfg.Receiver.DedupDriver, cfg.Receiver.DedupDSN)
		if openErr != nil {
			log.Fatalf("Failed to open dedup database: %v", openErr)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Printf("Failed to close dedup database: %v", closeErr)
			}
		}()
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to connect to dedup database: %v", err)
		}
		store = relicaadapter.NewKeyStore(db, cfg.Receiver.DedupDriver)
		log.Println("✅ Dedup database connection established")
	default:
		store = eventrelay.NewMemoryKeyStore(cfg.Receiver.DedupCapacity)
	}
	log.Printf("✅ Processed-key store created (%s)", cfg.Receiver.DedupDriver)

	// Create the webhook receiver with an order-update business effect
	receiver, err := eventrelay.NewWebhookReceiver(
		eventrelay.WithReceiverStore(store),
		eventrelay.WithReceiverLogger(logger),
		eventrelay.WithFailureRate(cfg.Receiver.FailureRate),
		eventrelay.WithDeliveryHandler(applyOrderUpdate(logger)),
	)
	if err != nil {
		log.Fatalf("Failed to create webhook receiver: %v", err)
	}
	log.Println("✅ WebhookReceiver created")

	// Create the webhook sender
	strategy := retry.DefaultStrategy()
	strategy.MaxAttempts = cfg.Delivery.MaxAttempts
	sender, err := eventrelay.NewWebhookSender(
		eventrelay.WithSenderLogger(logger),
		eventrelay.WithRetryStrategy(strategy),
		eventrelay.WithSenderNotifications(eventrelay.NewLoggingNotificationService(logger)),
	)
	if err != nil {
		log.Fatalf("Failed to create webhook sender: %v", err)
	}
	log.Println("✅ WebhookSender created")
	log.Printf("   Retry schedule:\n%s", sender.Schedule())

	// Create the subscriber loop
	listener, err := eventrelay.NewListener(
		eventrelay.WithListenerBus(bus),
		eventrelay.WithListenerChannel(cfg.Bus.Channel),
		eventrelay.WithListenerLogger(logger),
		eventrelay.WithEventHandler("BookBorrowed", notifyBorrower(logger)),
	)
	if err != nil {
		log.Fatalf("Failed to create listener: %v", err)
	}
	log.Println("✅ Listener created")

	// Start listener in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Printf("🔄 Starting subscriber loop on channel %q...", cfg.Bus.Channel)
		if err := listener.Run(ctx); err != nil {
			log.Printf("[ERROR] Listener stopped with error: %v", err)
		}
	}()

	// Create API handler
	handler := api.NewHandler(bus, receiver, sender, listener, logger, cfg.Bus.Channel, cfg.Delivery.WebhookURL)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/publish", handler.HandlePublish)
	mux.HandleFunc("/api/v1/orders/ship", handler.HandleShipOrder)
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)
	mux.HandleFunc("/webhook/order", handler.HandleWebhookOrder)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // ship requests block through retries
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🌐 HTTP server listening on %s", addr)
		log.Println("📡 API Endpoints:")
		log.Println("   POST /api/v1/publish")
		log.Println("   POST /api/v1/orders/ship")
		log.Println("   GET  /api/v1/health")
		log.Println("   POST /webhook/order")
		log.Println()
		log.Println("✅ Event Relay Server is ready!")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cancel() // Stop listener
	log.Println("✅ Server stopped gracefully")
}

// notifyBorrower handles BookBorrowed events by sending a (simulated)
// notification email to the borrower.
func notifyBorrower(logger eventrelay.Logger) eventrelay.Handler {
	return func(_ context.Context, event model.Event) error {
		logger.Infof("📩 EVENT RECEIVED: %s at %s", event.Type, event.Timestamp.Format(time.RFC3339))
		logger.Infof("📚 Sending email: User %s borrowed %q", event.Get("user"), event.Get("book"))
		return nil
	}
}

// applyOrderUpdate applies the business effect of an accepted order webhook.
func applyOrderUpdate(logger eventrelay.Logger) eventrelay.DeliveryHandler {
	return func(_ context.Context, idempotencyKey string, payload []byte) error {
		var order struct {
			OrderID string `json:"order_id"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(payload, &order); err != nil {
			return fmt.Errorf("invalid order payload for key %s: %w", idempotencyKey, err)
		}
		logger.Infof("📦 Order %s updated to %q", order.OrderID, order.Status)
		return nil
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger eventrelay.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
