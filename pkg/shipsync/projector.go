package shipsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Projector applies computed transitions and submission outcomes to the
// local order record. Updates to the same order are serialized by a
// per-order lock; re-applying the same webhook event is idempotent.
//
// Event ordering is best effort: the provider protocol carries no
// sequence numbers, so a late delivery of an older event overwrites a
// newer status.
type Projector struct {
	store  OrderStore
	logger *otelzap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProjector creates a projector over the given order store.
func NewProjector(store OrderStore, logger *otelzap.Logger) *Projector {
	return &Projector{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockOrder acquires the per-order mutex and returns its release func.
func (p *Projector) lockOrder(orderID string) func() {
	p.mu.Lock()
	l, ok := p.locks[orderID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[orderID] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Apply updates the order with the transition computed for a verified
// webhook event: lifecycle status, shipment status, provider metadata
// and, when present, the tracking number. A no-op transition leaves the
// order untouched. Fails with ErrOrderNotFound for unknown orders.
func (p *Projector) Apply(ctx context.Context, orderID string, tr Transition, event *WebhookEvent) error {
	if !tr.Known {
		return nil
	}

	unlock := p.lockOrder(orderID)
	defer unlock()

	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	order.Status = tr.Order
	order.ShipmentStatus = tr.Shipment
	order.RequestID = event.RequestID
	order.WebhookID = event.WebhookID
	order.Account = event.Account
	if event.Payload.TrackingNumber != "" {
		order.ProviderReference = event.Payload.TrackingNumber
	}

	note := fmt.Sprintf("shipment %s (request %s)", tr.Shipment, event.RequestID)
	if n := len(order.StatusNotes); n == 0 || order.StatusNotes[n-1] != note {
		order.StatusNotes = append(order.StatusNotes, note)
	}

	if err := p.store.Save(ctx, order); err != nil {
		return fmt.Errorf("saving order %s: %w", orderID, err)
	}

	p.logger.Info("Applied webhook transition",
		zap.String("order_id", orderID),
		zap.String("shipment_status", string(tr.Shipment)),
		zap.String("order_status", string(tr.Order)),
		zap.String("request_id", event.RequestID),
	)
	return nil
}

// MarkSubmitted flags the order as in flight before the provider call,
// so concurrent readers see that a submission has started. The verdict
// recorded afterwards overwrites it.
func (p *Projector) MarkSubmitted(ctx context.Context, orderID string) error {
	unlock := p.lockOrder(orderID)
	defer unlock()

	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	order.SyncStatus = SyncSubmitted
	return p.store.Save(ctx, order)
}

// RecordSubmission persists the outcome of one shipment-creation call:
// the exact payload bytes sent, the raw response body, the derived sync
// status, and the provider reference or error message. It runs for
// failures too, so the failure path stays observable.
func (p *Projector) RecordSubmission(ctx context.Context, orderID string, payload []byte, res *SubmissionResult, processedBy string) error {
	unlock := p.lockOrder(orderID)
	defer unlock()

	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	order.LastPayload = payload
	order.ProcessedAt = time.Now().UTC()
	order.ProcessedBy = processedBy

	order.LastResponseBody = res.RawBody
	switch {
	case res.Succeeded() && (res.Reference != "" || order.ProviderReference != ""):
		order.SyncStatus = SyncSuccess
		order.LastError = ""
	case res.Succeeded():
		// Accepted but untrackable; recorded as a failure so the order
		// never reports success without a reference and stays retryable.
		order.SyncStatus = SyncFailed
		order.LastError = "provider accepted the shipment without a reference"
	default:
		order.SyncStatus = SyncFailed
		order.LastError = res.Message
	}
	if res.Reference != "" {
		order.ProviderReference = res.Reference
	}
	return p.saveSubmission(ctx, order)
}

// RecordFailure persists a submission failure message without a
// provider response, keeping the payload available for replay.
func (p *Projector) RecordFailure(ctx context.Context, orderID string, payload []byte, message, processedBy string) error {
	unlock := p.lockOrder(orderID)
	defer unlock()

	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	order.LastPayload = payload
	order.SyncStatus = SyncFailed
	order.LastError = message
	order.ProcessedAt = time.Now().UTC()
	order.ProcessedBy = processedBy
	return p.saveSubmission(ctx, order)
}

// ReplacePayload overwrites the stored replay payload. The bytes must
// already be validated as JSON by the caller.
func (p *Projector) ReplacePayload(ctx context.Context, orderID string, payload []byte) error {
	unlock := p.lockOrder(orderID)
	defer unlock()

	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	order.LastPayload = payload
	return p.store.Save(ctx, order)
}

// ClearError removes previous failure markers before a retry attempt.
func (p *Projector) ClearError(ctx context.Context, orderID string) error {
	unlock := p.lockOrder(orderID)
	defer unlock()

	order, err := p.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	order.LastError = ""
	return p.store.Save(ctx, order)
}

func (p *Projector) saveSubmission(ctx context.Context, order *ShipmentOrder) error {
	if err := p.store.Save(ctx, order); err != nil {
		return fmt.Errorf("saving order %s: %w", order.OrderID, err)
	}
	p.logger.Info("Recorded submission outcome",
		zap.String("order_id", order.OrderID),
		zap.String("sync_status", string(order.SyncStatus)),
		zap.String("provider_reference", order.ProviderReference),
	)
	return nil
}
