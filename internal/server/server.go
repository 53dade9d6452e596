package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huruftech/assabil-sync/internal/httpx"
	"github.com/huruftech/assabil-sync/internal/telemetry"
	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

// maxWebhookBody bounds inbound webhook bodies.
const maxWebhookBody = 1 << 20

// Server is the HTTP surface of the bridge: the provider webhook
// receiver plus the operator endpoints the host UI calls.
type Server struct {
	port      int
	sigHeader string
	svc       *shipsync.Service
	retry     *shipsync.RetryCoordinator
	logger    *otelzap.Logger
	metrics   *telemetry.Metrics
	validate  *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Port                   int
	WebhookSignatureHeader string
}

// New creates a new server instance.
func New(cfg Config, svc *shipsync.Service, retry *shipsync.RetryCoordinator, logger *otelzap.Logger) *Server {
	sigHeader := cfg.WebhookSignatureHeader
	if sigHeader == "" {
		sigHeader = "X-Payload-Signature"
	}
	return &Server{
		port:      cfg.Port,
		sigHeader: sigHeader,
		svc:       svc,
		retry:     retry,
		logger:    logger,
		metrics:   telemetry.NewMetrics(),
		validate:  validator.New(),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Post("/webhook", s.handleWebhook)

	r.Post("/orders", s.handleOrderCreated)
	r.Get("/orders/{orderID}", s.handleGetOrder)
	r.Post("/orders/{orderID}/retry", s.handleRetrySingle)
	r.Post("/orders/retry", s.handleRetryBulk)
	r.Put("/orders/{orderID}/payload", s.handleSavePayload)

	r.Post("/rates", s.handleRates)
	r.Post("/tracking", s.handleTracking)
	r.Get("/branches", s.handleBranches)
	r.Get("/audit", s.handleAudit)

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleWebhook receives one provider callback. The raw body goes to
// the service untouched; signature verification happens there, on
// those exact bytes.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get(s.sigHeader)

	receipt, err := s.svc.OnWebhookReceived(r.Context(), body, signature)
	if err != nil {
		event := "unknown"
		if receipt != nil && receipt.Event != "" {
			event = receipt.Event
		}
		s.metrics.RecordWebhook(event, "error")

		switch {
		case errors.Is(err, shipsync.ErrInvalidSignature):
			httpx.WriteError(w, "Invalid signature", http.StatusForbidden)
		case errors.Is(err, shipsync.ErrMalformedEvent):
			httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.Error("Webhook processing failed", zap.Error(err))
			httpx.WriteError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordWebhook(receipt.Event, "success")
	httpx.WriteJSON(w, map[string]string{
		"message": receipt.Message,
		"event":   receipt.Event,
	}, http.StatusOK)
}

type orderCreatedResponse struct {
	OrderID    string              `json:"orderId"`
	SyncStatus shipsync.SyncStatus `json:"syncStatus"`
	Skipped    bool                `json:"skipped,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// handleOrderCreated is the host adapter's entry point for a freshly
// created order. Submission failures are reported in the body, not as
// an HTTP error: they are recorded on the order and retryable.
func (s *Server) handleOrderCreated(w http.ResponseWriter, r *http.Request) {
	var order shipsync.ShipmentOrder
	if err := httpx.DecodeBody(r, &order); err != nil {
		httpx.WriteError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Var(order.OrderID, "required"); err != nil {
		httpx.WriteValidationError(w, err)
		return
	}

	start := time.Now()
	res, err := s.svc.OnOrderCreated(r.Context(), &order)

	resp := orderCreatedResponse{OrderID: order.OrderID}
	switch {
	case errors.Is(err, shipsync.ErrNotEligible):
		resp.Skipped = true
		resp.Error = err.Error()
		httpx.WriteJSON(w, resp, http.StatusOK)
		return
	case err != nil:
		s.metrics.RecordSubmission("order-created", "failure", time.Since(start).Seconds())
		resp.Error = err.Error()
	case res == nil:
		// Already processed earlier; nothing was submitted.
		resp.Skipped = true
	default:
		s.metrics.RecordSubmission("order-created", "success", time.Since(start).Seconds())
	}

	if current, getErr := s.svc.GetOrder(r.Context(), order.OrderID); getErr == nil {
		resp.SyncStatus = current.SyncStatus
	}
	httpx.WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := s.svc.GetOrder(r.Context(), orderID)
	if errors.Is(err, shipsync.ErrOrderNotFound) {
		httpx.WriteError(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to load order", zap.String("order_id", orderID), zap.Error(err))
		httpx.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, order, http.StatusOK)
}

type retryResponse struct {
	OrderID   string `json:"orderId"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// handleRetrySingle re-submits one order. A failed resubmission is a
// per-order outcome, reported with 200; only an unknown order is an
// HTTP error.
func (s *Server) handleRetrySingle(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	start := time.Now()
	err := s.retry.RetrySingle(r.Context(), orderID)
	if errors.Is(err, shipsync.ErrOrderNotFound) {
		httpx.WriteError(w, "order not found", http.StatusNotFound)
		return
	}

	resp := retryResponse{OrderID: orderID, Succeeded: err == nil}
	if err != nil {
		resp.Error = err.Error()
		s.metrics.RecordRetry("failure")
		s.metrics.RecordSubmission("retry", "failure", time.Since(start).Seconds())
	} else {
		s.metrics.RecordRetry("success")
		s.metrics.RecordSubmission("retry", "success", time.Since(start).Seconds())
	}
	httpx.WriteJSON(w, resp, http.StatusOK)
}

type bulkRetryRequest struct {
	OrderIDs []string `json:"orderIds" validate:"required,min=1"`
}

func (s *Server) handleRetryBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRetryRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		httpx.WriteValidationError(w, err)
		return
	}

	result, err := s.retry.RetryBulk(r.Context(), req.OrderIDs, func(done, total int) {
		s.logger.Info("Bulk retry progress", zap.Int("done", done), zap.Int("total", total))
	})
	s.metrics.RetryItems.WithLabelValues("success").Add(float64(result.Succeeded))
	s.metrics.RetryItems.WithLabelValues("failure").Add(float64(result.Failed))

	if err != nil {
		// Cooperative cancellation mid-batch; report what completed.
		s.logger.Warn("Bulk retry interrupted", zap.Error(err))
	}
	httpx.WriteJSON(w, result, http.StatusOK)
}

// handleSavePayload overwrites an order's replay payload after the
// service validates the JSON.
func (s *Server) handleSavePayload(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	err = s.svc.SavePayload(r.Context(), orderID, payload)
	switch {
	case errors.Is(err, shipsync.ErrInvalidPayloadJSON):
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, shipsync.ErrOrderNotFound):
		httpx.WriteError(w, "order not found", http.StatusNotFound)
	case err != nil:
		s.logger.Error("Failed to save payload", zap.String("order_id", orderID), zap.Error(err))
		httpx.WriteError(w, "internal server error", http.StatusInternalServerError)
	default:
		httpx.WriteJSON(w, map[string]string{"message": "payload saved"}, http.StatusOK)
	}
}

type rateRequest struct {
	City    string              `json:"city" validate:"required"`
	Address string              `json:"address"`
	Items   []shipsync.LineItem `json:"items"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		httpx.WriteValidationError(w, err)
		return
	}

	quote, err := s.svc.Rate(r.Context(), req.City, req.Address, req.Items)
	if err != nil {
		s.logger.Error("Rate lookup failed", zap.Error(err))
		httpx.WriteError(w, err.Error(), http.StatusBadGateway)
		return
	}
	httpx.WriteJSON(w, quote, http.StatusOK)
}

type trackingRequest struct {
	Reference string `json:"reference" validate:"required"`
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		httpx.WriteValidationError(w, err)
		return
	}

	timeline, err := s.svc.Timeline(r.Context(), req.Reference)
	if err != nil {
		s.logger.Error("Timeline lookup failed", zap.String("reference", req.Reference), zap.Error(err))
		httpx.WriteError(w, err.Error(), http.StatusBadGateway)
		return
	}
	httpx.WriteJSON(w, map[string]any{"reference": req.Reference, "timeline": timeline}, http.StatusOK)
}

type cityOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// handleBranches returns the provider branches as "<city>::<area>"
// composite options for the host checkout.
func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.svc.Branches(r.Context())
	if err != nil {
		s.logger.Error("Branch lookup failed", zap.Error(err))
		httpx.WriteError(w, err.Error(), http.StatusBadGateway)
		return
	}

	options := make([]cityOption, 0, len(branches))
	for _, b := range branches {
		for _, area := range b.Areas {
			if b.City == "" || area == "" {
				continue
			}
			options = append(options, cityOption{
				Value: b.City + "::" + area,
				Label: b.City + " - " + area,
			})
		}
	}
	httpx.WriteJSON(w, options, http.StatusOK)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, s.svc.Audit().List(), http.StatusOK)
}
