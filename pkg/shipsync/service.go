// Package shipsync synchronizes commerce orders with the Darb Assabil
// shipment API: it builds and submits shipment-creation requests,
// ingests signed status webhooks, projects them onto local order state,
// and supports operator-triggered resubmission.
package shipsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SubmissionClient is the provider-facing side of the bridge.
type SubmissionClient interface {
	// Submit posts pre-marshalled shipment-creation bytes. Transport
	// failures are errors; provider verdicts live in the result.
	Submit(ctx context.Context, payload []byte) (*SubmissionResult, error)

	// Rate fetches the delivery cost for a prospective shipment.
	Rate(ctx context.Context, req *RateRequest) (*RateQuote, error)

	// Timeline fetches the shipment history for a tracking reference.
	Timeline(ctx context.Context, reference, token string) ([]TimelineEvent, error)

	// Branches fetches the provider branches and served areas.
	Branches(ctx context.Context, token string) ([]Branch, error)
}

// ServiceConfig carries the deployment-fixed settings of the bridge.
type ServiceConfig struct {
	// ServedCountry is the ISO alpha-2 country orders must ship to.
	ServedCountry string
	// CountryCode is the provider wire code for ServedCountry.
	CountryCode string
	// WebhookSecret is the shared secret webhook signatures are
	// verified against.
	WebhookSecret string
	// ProcessedBy identifies this bridge in persisted order metadata.
	ProcessedBy string
}

// Service orchestrates the sync flows: order-created submission,
// webhook ingestion, and operator actions. The host's adapter layer
// calls these methods directly.
type Service struct {
	cfg       ServiceConfig
	options   ConfigStore
	store     OrderStore
	client    SubmissionClient
	projector *Projector
	auditLog  *AuditLog
	validate  *validator.Validate
	logger    *otelzap.Logger
}

// WebhookReceipt reports how an inbound webhook delivery was handled.
type WebhookReceipt struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	Applied bool   `json:"applied"`
}

// NewService wires the sync service from its collaborators.
func NewService(cfg ServiceConfig, options ConfigStore, store OrderStore, client SubmissionClient, projector *Projector, auditLog *AuditLog, logger *otelzap.Logger) *Service {
	if cfg.ProcessedBy == "" {
		cfg.ProcessedBy = "assabil-sync"
	}
	return &Service{
		cfg:       cfg,
		options:   options,
		store:     store,
		client:    client,
		projector: projector,
		auditLog:  auditLog,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Audit exposes the webhook audit log for the diagnostics surface.
func (s *Service) Audit() *AuditLog {
	return s.auditLog
}

// Options exposes the host option storage.
func (s *Service) Options() ConfigStore {
	return s.options
}

// GetOrder returns the current order record.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*ShipmentOrder, error) {
	return s.store.Get(ctx, orderID)
}

func (s *Service) policy() Policy {
	return PolicyFromStore(s.options, s.cfg.ServedCountry, s.cfg.CountryCode)
}

// OnOrderCreated is called by the host when a new order appears. The
// order is submitted once: anything other than a never-submitted record
// is skipped, and only an explicit retry resubmits it.
func (s *Service) OnOrderCreated(ctx context.Context, order *ShipmentOrder) (*SubmissionResult, error) {
	if order.DestinationCountry != s.cfg.ServedCountry {
		return nil, fmt.Errorf("%w: destination %s", ErrNotEligible, order.DestinationCountry)
	}

	existing, err := s.store.Get(ctx, order.OrderID)
	switch {
	case err == nil:
		if existing.SyncStatus != SyncNotSubmitted {
			s.logger.Info("Order already processed, skipping submission",
				zap.String("order_id", order.OrderID),
				zap.String("sync_status", string(existing.SyncStatus)),
			)
			return nil, nil
		}
	case errors.Is(err, ErrOrderNotFound):
		order.SyncStatus = SyncNotSubmitted
		if err := s.store.Save(ctx, order); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.submit(ctx, order, nil, "order-created")
}

// submit sends the payload (building it from current order state when
// nil) and persists the outcome before surfacing any provider error,
// so failures stay observable on the order record.
func (s *Service) submit(ctx context.Context, order *ShipmentOrder, payload []byte, trigger string) (*SubmissionResult, error) {
	if len(payload) == 0 {
		req := BuildShipmentRequest(order, s.policy())
		var err error
		payload, err = json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshaling shipment request: %w", err)
		}
	}

	processedBy := s.cfg.ProcessedBy + "/" + trigger

	if err := s.projector.MarkSubmitted(ctx, order.OrderID); err != nil {
		return nil, err
	}

	res, err := s.client.Submit(ctx, payload)
	if err != nil {
		if recErr := s.projector.RecordFailure(ctx, order.OrderID, payload, err.Error(), processedBy); recErr != nil {
			s.logger.Error("Failed to record submission failure",
				zap.String("order_id", order.OrderID), zap.Error(recErr))
		}
		return nil, err
	}

	if err := s.projector.RecordSubmission(ctx, order.OrderID, payload, res, processedBy); err != nil {
		return res, err
	}

	if res.HTTPStatus < 200 || res.HTTPStatus >= 300 {
		return res, NewProviderError(res.HTTPStatus, res.Message)
	}
	if !res.Succeeded() {
		return res, NewProviderError(res.HTTPStatus, res.Message)
	}
	if res.Reference == "" && order.ProviderReference == "" {
		return res, NewProviderError(res.HTTPStatus, "provider accepted the shipment without a reference")
	}
	return res, nil
}

// OnWebhookReceived authenticates and applies one inbound provider
// callback. Verification runs on the untouched raw bytes before any
// parsing; unverified events cause no side effect. Every delivery,
// accepted or rejected, lands in the audit log exactly once. Once the
// envelope parses, failures still return a receipt carrying the event
// type so callers can attribute them.
func (s *Service) OnWebhookReceived(ctx context.Context, rawBody []byte, signature string) (*WebhookReceipt, error) {
	if !VerifySignature(rawBody, signature, s.cfg.WebhookSecret) {
		s.recordAudit("", signature, AuditError, "invalid signature", rawBody)
		return nil, ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		s.recordAudit("", signature, AuditError, "undecodable body", rawBody)
		return nil, fmt.Errorf("%w: invalid JSON body", ErrMalformedEvent)
	}
	event.RawBody = rawBody
	event.ReceivedSignature = signature

	if err := s.validate.Struct(&event); err != nil {
		s.recordAudit(event.Event, signature, AuditError, "missing envelope fields", rawBody)
		return &WebhookReceipt{Event: event.Event}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	tr, err := RouteEvent(&event)
	if err != nil {
		s.recordAudit(event.Event, signature, AuditError, err.Error(), rawBody)
		return &WebhookReceipt{Event: event.Event}, err
	}

	if !tr.Known {
		s.logger.Info("Ignoring unknown webhook event type", zap.String("event", event.Event))
		s.recordAudit(event.Event, signature, AuditSuccess, "ignored unknown event type", rawBody)
		return &WebhookReceipt{Event: event.Event, Message: "event ignored"}, nil
	}

	orderID := event.Payload.Metadata.OrderID
	if orderID == "" {
		s.recordAudit(event.Event, signature, AuditError, "missing payload.metadata.orderId", rawBody)
		return &WebhookReceipt{Event: event.Event}, fmt.Errorf("%w: missing payload.metadata.orderId", ErrMalformedEvent)
	}

	if err := s.projector.Apply(ctx, orderID, tr, &event); err != nil {
		s.recordAudit(event.Event, signature, AuditError, err.Error(), rawBody)
		return &WebhookReceipt{Event: event.Event}, err
	}

	s.recordAudit(event.Event, signature, AuditSuccess,
		fmt.Sprintf("order %s -> %s", orderID, tr.Shipment), rawBody)
	return &WebhookReceipt{Event: event.Event, Message: "event processed", Applied: true}, nil
}

func (s *Service) recordAudit(eventType, signature string, outcome AuditOutcome, message string, rawBody []byte) {
	s.auditLog.Record(AuditEntry{
		EventType:       eventType,
		SignaturePrefix: signaturePrefix(signature),
		Outcome:         outcome,
		Message:         message,
		RawEvent:        append([]byte(nil), rawBody...),
	})
}

// SavePayload replaces an order's replay payload after validating the
// bytes are well-formed JSON. Invalid JSON is rejected without mutation.
func (s *Service) SavePayload(ctx context.Context, orderID string, payload []byte) error {
	if !json.Valid(payload) {
		return ErrInvalidPayloadJSON
	}
	return s.projector.ReplacePayload(ctx, orderID, payload)
}

// Rate quotes the delivery cost for a destination and set of items
// using the configured service.
func (s *Service) Rate(ctx context.Context, destinationCity, address string, items []LineItem) (*RateQuote, error) {
	policy := s.policy()
	city, area := SplitCityArea(destinationCity)

	products := make([]RequestProduct, len(items))
	for i, item := range items {
		products[i] = RequestProduct{
			Quantity:     item.Quantity,
			WidthCM:      item.WidthCM,
			HeightCM:     item.HeightCM,
			LengthCM:     item.LengthCM,
			Currency:     strings.ToLower(item.Currency),
			IsChargeable: true,
		}
	}

	return s.client.Rate(ctx, &RateRequest{
		Service:   policy.ServiceID,
		Products:  products,
		PaymentBy: policy.PaymentBy(),
		To: RequestDestination{
			CountryCode: policy.CountryCode,
			City:        city,
			Area:        area,
			Address:     address,
		},
		IsPickup: true,
		Token:    policy.AccessToken,
	})
}

// Timeline returns the provider history for a tracking reference.
func (s *Service) Timeline(ctx context.Context, reference string) ([]TimelineEvent, error) {
	return s.client.Timeline(ctx, reference, s.policy().AccessToken)
}

// Branches returns the provider branches for the host's checkout city
// options, as "<city>::<area>" composites.
func (s *Service) Branches(ctx context.Context) ([]Branch, error) {
	return s.client.Branches(ctx, s.policy().AccessToken)
}
