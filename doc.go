// Package eventrelay provides a reliable event delivery core for Go:
// an in-process Pub/Sub bus with a supervised subscriber loop, and a webhook
// delivery pipeline with bounded retries, exponential backoff, and
// idempotency-key deduplication.
//
// Works both as a library for embedding in your application AND as a
// standalone receiver service with REST API.
//
// # Features
//
//   - Publish/Subscribe EventBus decoupling publishers from subscribers
//     (in-memory or Redis-backed, non-durable by design)
//   - Supervised Listener loop with per-event-type handlers and a safe
//     default branch for unknown types
//   - Webhook delivery with deterministic exponential backoff: 1s → 2s → 4s → 8s
//     across a fixed budget of 5 attempts (no jitter, no delay cap)
//   - One idempotency key per logical delivery, reused across all retries
//   - Receiver-side deduplication via an atomic insert-if-absent key store
//     (in-memory, Redis SETNX, or SQL via Relica adapters)
//   - Dead-letter notifications when a delivery exhausts its retries
//   - Options Pattern for modern Go API design
//   - Pluggable architecture: bring your own Logger, Notification system
//   - Embedded migrations for the SQL key store
//
// # Quick Start
//
// # Option 1: As Embedded Library
//
// Publish and consume events:
//
//	bus, _ := eventrelay.NewMemoryBus(eventrelay.WithBusLogger(logger))
//
//	listener, _ := eventrelay.NewListener(
//	    eventrelay.WithListenerBus(bus),
//	    eventrelay.WithListenerChannel("library_events"),
//	    eventrelay.WithListenerLogger(logger),
//	    eventrelay.WithEventHandler("BookBorrowed", func(ctx context.Context, e model.Event) error {
//	        fmt.Printf("Sending email: user %s borrowed %q\n", e.Get("userId"), e.Get("title"))
//	        return nil
//	    }),
//	)
//	go listener.Run(ctx)
//
//	event := model.NewEvent("BookBorrowed", map[string]string{
//	    "userId": "u1", "bookId": "b1", "title": "T", "borrowDate": "2024-01-01",
//	})
//	bus.Publish(ctx, "library_events", event)
//
// Deliver a webhook with retries:
//
//	sender, _ := eventrelay.NewWebhookSender(
//	    eventrelay.WithSenderLogger(logger),
//	    eventrelay.WithSenderNotifications(eventrelay.NewLoggingNotificationService(logger)),
//	)
//	delivery, _ := sender.Send(ctx, "http://localhost:8080/webhook/order", payload)
//	fmt.Println(delivery.Outcome, delivery.AttemptCount())
//
// Accept deliveries with deduplication:
//
//	receiver, _ := eventrelay.NewWebhookReceiver(
//	    eventrelay.WithReceiverStore(eventrelay.NewMemoryKeyStore(10000)),
//	    eventrelay.WithReceiverLogger(logger),
//	    eventrelay.WithDeliveryHandler(applyOrderUpdate),
//	)
//	status, _ := receiver.HandleDelivery(ctx, idempotencyKey, body)
//
// # Option 2: As Standalone Service
//
// Run the standalone relay server:
//
//	cd cmd/eventrelay-server
//	go run .
//
// Access the REST API at http://localhost:8080:
//
//	# Publish event
//	curl -X POST http://localhost:8080/api/v1/publish \
//	  -H "Content-Type: application/json" \
//	  -d '{"eventType":"BookBorrowed","data":{"userId":"u1","title":"Dune"}}'
//
//	# Deliver webhook
//	curl -X POST http://localhost:8080/webhook/order \
//	  -H "Idempotency-Key: 4f3c..." \
//	  -d '{"order_id":"1","status":"SHIPPED"}'
//
// # Delivery Flow
//
//  1. PUBLISH
//     Publisher → Bus.Publish(channel, event)
//     → every attached subscription receives the event (FIFO per subscription)
//     → no subscriber attached: the event is dropped (non-durable channel)
//
//  2. LISTEN (Background)
//     Listener → pull next event → dispatch by eventType
//     → handler errors are logged, never redelivered, never stop the loop
//
//  3. WEBHOOK (Sender → Receiver)
//     Sender → POST payload with Idempotency-Key header
//     → 2xx: delivered / 4xx: permanent failure, no retry
//     → otherwise: retry after 1s, 2s, 4s, 8s
//     → budget spent: dead-letter notification
//     Receiver → duplicate key: 200 "Already processed"
//     → simulated fault: 500, key not committed
//     → otherwise: atomic key commit, business effect, 200 "Webhook OK"
//
// # Retry Strategy
//
// Failed webhook deliveries are retried with deterministic exponential backoff:
//
//	Attempt 1: immediate
//	Attempt 2: +1 second
//	Attempt 3: +2 seconds
//	Attempt 4: +4 seconds
//	Attempt 5: +8 seconds (dead-letter after this)
//
// Client errors (4xx) are never retried: they indicate a malformed or
// rejected request that retrying cannot fix. Only the final outcome is
// surfaced to the caller; intermediate attempts are internal but fully
// observable on the returned Delivery.
//
// # Guarantees and Non-Guarantees
//
// The relay is at-least-once end to end and at-most-once per dispatch:
//
//   - The bus never buffers for absent subscribers (no durability)
//   - No ordering is guaranteed across subscribers
//   - The receiver produces exactly one Accepted per idempotency key, so
//     business effects run at most once per logical event regardless of
//     sender retries
//
// For detailed documentation, see README.md and pkg.go.dev.
package eventrelay
