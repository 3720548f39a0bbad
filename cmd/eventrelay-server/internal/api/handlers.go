// Package api provides HTTP handlers for the event relay server REST API.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/coregx/eventrelay"
	"github.com/coregx/eventrelay/model"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	bus      eventrelay.Bus
	receiver *eventrelay.WebhookReceiver
	sender   *eventrelay.WebhookSender
	listener *eventrelay.Listener
	logger   eventrelay.Logger

	channel    string // default publish channel
	webhookURL string // destination for outbound demo deliveries
}

// NewHandler creates a new API handler.
func NewHandler(
	bus eventrelay.Bus,
	receiver *eventrelay.WebhookReceiver,
	sender *eventrelay.WebhookSender,
	listener *eventrelay.Listener,
	logger eventrelay.Logger,
	channel string,
	webhookURL string,
) *Handler {
	return &Handler{
		bus:        bus,
		receiver:   receiver,
		sender:     sender,
		listener:   listener,
		logger:     logger,
		channel:    channel,
		webhookURL: webhookURL,
	}
}

// PublishRequest represents a publish event request.
type PublishRequest struct {
	Channel   string            `json:"channel"` // optional, defaults to the configured channel
	EventType string            `json:"eventType"`
	Data      map[string]string `json:"data"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandlePublish handles POST /api/v1/publish
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if req.EventType == "" {
		h.respondError(w, http.StatusBadRequest, "eventType is required", "VALIDATION_ERROR")
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = h.channel
	}

	event := model.NewEvent(req.EventType, req.Data)
	if err := h.bus.Publish(r.Context(), channel, event); err != nil {
		h.logger.Errorf("Failed to publish event: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to publish event", "PUBLISH_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusCreated, event, "Event published successfully")
}

// HandleWebhookOrder handles POST /webhook/order
//
// This endpoint follows the receiver wire contract exactly:
//   - 200 {"message": "Webhook OK"} on first acceptance
//   - 200 {"message": "Already processed"} on duplicates
//   - 500 {"error": "Server busy"} on a simulated transient fault
func (h *Handler) HandleWebhookOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	key := r.Header.Get(eventrelay.IdempotencyKeyHeader)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read body", "INVALID_BODY")
		return
	}

	status, err := h.receiver.HandleDelivery(r.Context(), key, payload)
	if err != nil {
		h.logger.Errorf("Failed to handle delivery: %v", err)
		h.respondError(w, http.StatusBadRequest, "Idempotency-Key header is required", "VALIDATION_ERROR")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch status {
	case model.ReceiptAccepted:
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Webhook OK"})
	case model.ReceiptDuplicate:
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Already processed"})
	case model.ReceiptTransientFailure:
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Server busy"})
	}
}

// ShipOrderResult summarizes an outbound delivery for the API response.
type ShipOrderResult struct {
	Outcome        model.Outcome `json:"outcome"`
	IdempotencyKey string        `json:"idempotencyKey"`
	Attempts       int           `json:"attempts"`
}

// HandleShipOrder handles POST /api/v1/orders/ship
//
// Fires an order payload at the configured webhook URL through the sender's
// retry pipeline and reports the terminal outcome. The call blocks through
// retries; with the default strategy that is up to ~15s of backoff.
func (h *Handler) HandleShipOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	if h.webhookURL == "" {
		h.respondError(w, http.StatusServiceUnavailable, "WEBHOOK_URL is not configured", "NOT_CONFIGURED")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil || len(payload) == 0 {
		h.respondError(w, http.StatusBadRequest, "Order payload is required", "VALIDATION_ERROR")
		return
	}

	delivery, err := h.sender.Send(r.Context(), h.webhookURL, payload)
	if err != nil {
		h.logger.Errorf("Delivery canceled: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Delivery canceled", "DELIVERY_ERROR")
		return
	}

	result := ShipOrderResult{
		Outcome:        delivery.Outcome,
		IdempotencyKey: delivery.IdempotencyKey,
		Attempts:       delivery.AttemptCount(),
	}

	if delivery.Outcome == model.OutcomeDelivered {
		h.respondSuccess(w, http.StatusOK, result, "Order webhook delivered")
		return
	}
	h.respondSuccess(w, http.StatusOK, result, "Order webhook failed")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"listener":  h.listener.State(),
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
