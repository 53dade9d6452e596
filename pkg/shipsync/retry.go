package shipsync

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// BulkResult counts the independent outcomes of a bulk retry.
type BulkResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ProgressFunc is called after each bulk item completes.
type ProgressFunc func(done, total int)

// RetryCoordinator re-submits orders whose synchronization failed.
// Bulk retries run strictly sequentially: one item completes before
// the next starts, bounding load on the provider and keeping progress
// reporting deterministic.
type RetryCoordinator struct {
	store  OrderStore
	svc    *Service
	logger *otelzap.Logger
}

// NewRetryCoordinator creates a coordinator over the given service.
func NewRetryCoordinator(store OrderStore, svc *Service, logger *otelzap.Logger) *RetryCoordinator {
	return &RetryCoordinator{store: store, svc: svc, logger: logger}
}

// RetrySingle re-submits one order. A captured payload is replayed
// byte for byte; otherwise the request is rebuilt from current order
// state. Previous error markers are cleared first. Retrying an order
// that is not in a retryable state is the caller's mistake but safe:
// it simply resubmits.
func (c *RetryCoordinator) RetrySingle(ctx context.Context, orderID string) error {
	order, err := c.store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.Retryable() {
		c.logger.Warn("Retrying order not in a retryable state",
			zap.String("order_id", orderID),
			zap.String("sync_status", string(order.SyncStatus)),
		)
	}

	if err := c.svc.projector.ClearError(ctx, orderID); err != nil {
		return err
	}

	_, err = c.svc.submit(ctx, order, order.LastPayload, "retry")
	if err != nil {
		c.logger.Warn("Retry failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("Retry succeeded", zap.String("order_id", orderID))
	return nil
}

// RetryBulk re-submits the orders one at a time, in the given order.
// Each item's outcome is independent; a failure never aborts the
// batch. Cancellation is cooperative: the context is checked between
// items only, so a started item always runs to completion. The counts
// cover the items actually attempted.
func (c *RetryCoordinator) RetryBulk(ctx context.Context, orderIDs []string, progress ProgressFunc) (BulkResult, error) {
	var result BulkResult
	total := len(orderIDs)

	for i, orderID := range orderIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := c.RetrySingle(ctx, orderID); err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	c.logger.Info("Bulk retry finished",
		zap.Int("total", total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
