package shipsync_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

func noopLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

func seedStore(t *testing.T, order *shipsync.ShipmentOrder) *shipsync.MemoryOrderStore {
	t.Helper()
	store := shipsync.NewMemoryOrderStore()
	require.NoError(t, store.Save(context.Background(), order))
	return store
}

func TestProjectorApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	event := validEvent("localShipments.completed")
	event.Payload.TrackingNumber = "DA-TRACK-9"
	tr, err := shipsync.RouteEvent(event)
	require.NoError(t, err)

	require.NoError(t, projector.Apply(ctx, "123", tr, event))
	first, err := store.Get(ctx, "123")
	require.NoError(t, err)

	require.NoError(t, projector.Apply(ctx, "123", tr, event))
	second, err := store.Get(ctx, "123")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, shipsync.OrderCompleted, second.Status)
	assert.Equal(t, shipsync.ShipmentCompleted, second.ShipmentStatus)
	assert.Equal(t, "DA-TRACK-9", second.ProviderReference)
	assert.Equal(t, "req-1", second.RequestID)
	assert.Equal(t, "wh-1", second.WebhookID)
	assert.Equal(t, "acct-1", second.Account)
	assert.Len(t, second.StatusNotes, 1)
}

func TestProjectorApply_KeepsReferenceWithoutTrackingNumber(t *testing.T) {
	ctx := context.Background()
	order := testOrder()
	order.ProviderReference = "DA-EXISTING"
	store := seedStore(t, order)
	projector := shipsync.NewProjector(store, noopLogger())

	event := validEvent("localShipments.booked")
	tr, err := shipsync.RouteEvent(event)
	require.NoError(t, err)
	require.NoError(t, projector.Apply(ctx, "123", tr, event))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "DA-EXISTING", got.ProviderReference)
	assert.Equal(t, shipsync.ShipmentBooked, got.ShipmentStatus)
}

func TestProjectorApply_UnknownOrder(t *testing.T) {
	projector := shipsync.NewProjector(shipsync.NewMemoryOrderStore(), noopLogger())

	event := validEvent("localShipments.completed")
	tr, err := shipsync.RouteEvent(event)
	require.NoError(t, err)

	err = projector.Apply(context.Background(), "missing", tr, event)
	assert.ErrorIs(t, err, shipsync.ErrOrderNotFound)
}

func TestProjectorApply_NoOpTransition(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	event := validEvent("localShipments.weighed")
	tr, err := shipsync.RouteEvent(event)
	require.NoError(t, err)
	require.False(t, tr.Known)

	require.NoError(t, projector.Apply(ctx, "123", tr, event))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Empty(t, got.ShipmentStatus)
	assert.Empty(t, got.StatusNotes)
}

func TestProjectorApply_ConcurrentSameOrder(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	const deliveries = 50
	g := new(errgroup.Group)
	for i := 0; i < deliveries; i++ {
		i := i
		g.Go(func() error {
			event := validEvent("localShipments.completed")
			event.RequestID = fmt.Sprintf("req-%d", i)
			tr, err := shipsync.RouteEvent(event)
			if err != nil {
				return err
			}
			return projector.Apply(ctx, "123", tr, event)
		})
	}
	require.NoError(t, g.Wait())

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.OrderCompleted, got.Status)
	assert.Equal(t, shipsync.ShipmentCompleted, got.ShipmentStatus)
	// Distinct request ids each append a note; none may be torn or lost.
	assert.Len(t, got.StatusNotes, deliveries)
	assert.Contains(t, got.RequestID, "req-")
}

func TestProjectorApply_ConcurrentDistinctOrders(t *testing.T) {
	ctx := context.Background()
	store := shipsync.NewMemoryOrderStore()
	orderIDs := []string{"201", "202", "203", "204"}
	for _, id := range orderIDs {
		order := testOrder()
		order.OrderID = id
		require.NoError(t, store.Save(ctx, order))
	}
	projector := shipsync.NewProjector(store, noopLogger())

	g := new(errgroup.Group)
	for _, id := range orderIDs {
		id := id
		g.Go(func() error {
			event := validEvent("localShipments.booked")
			event.Payload.Metadata.OrderID = id
			tr, err := shipsync.RouteEvent(event)
			if err != nil {
				return err
			}
			return projector.Apply(ctx, id, tr, event)
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range orderIDs {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, shipsync.ShipmentBooked, got.ShipmentStatus)
		assert.Equal(t, shipsync.OrderProcessing, got.Status)
	}
}

func TestProjectorRecordSubmission_Success(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	ok := true
	payload := []byte(`{"order":{}}`)
	res := &shipsync.SubmissionResult{
		HTTPStatus:     200,
		ProviderStatus: &ok,
		Reference:      "DA-REF-1",
		RawBody:        []byte(`{"status":true}`),
	}
	require.NoError(t, projector.RecordSubmission(ctx, "123", payload, res, "assabil-sync/order-created"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncSuccess, got.SyncStatus)
	assert.Equal(t, payload, got.LastPayload)
	assert.Equal(t, res.RawBody, got.LastResponseBody)
	assert.Equal(t, "DA-REF-1", got.ProviderReference)
	assert.Empty(t, got.LastError)
	assert.Equal(t, "assabil-sync/order-created", got.ProcessedBy)
	assert.False(t, got.ProcessedAt.IsZero())
}

func TestProjectorRecordSubmission_ProviderRejection(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	rejected := false
	res := &shipsync.SubmissionResult{
		HTTPStatus:     422,
		ProviderStatus: &rejected,
		Message:        "service not available",
		RawBody:        []byte(`{"status":false,"message":"service not available"}`),
	}
	require.NoError(t, projector.RecordSubmission(ctx, "123", []byte(`{}`), res, "assabil-sync/retry"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncFailed, got.SyncStatus)
	assert.Equal(t, "service not available", got.LastError)
	assert.Empty(t, got.ProviderReference)
}

func TestProjectorRecordSubmission_SuccessWithoutReference(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	accepted := true
	res := &shipsync.SubmissionResult{
		HTTPStatus:     200,
		ProviderStatus: &accepted,
		RawBody:        []byte(`{"status":true}`),
	}
	require.NoError(t, projector.RecordSubmission(ctx, "123", []byte(`{}`), res, "assabil-sync/order-created"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncFailed, got.SyncStatus)
	assert.Contains(t, got.LastError, "without a reference")
	assert.Empty(t, got.ProviderReference)
}

func TestProjectorRecordSubmission_SuccessKeepsExistingReference(t *testing.T) {
	ctx := context.Background()
	order := testOrder()
	order.ProviderReference = "DA-EARLIER"
	store := seedStore(t, order)
	projector := shipsync.NewProjector(store, noopLogger())

	accepted := true
	res := &shipsync.SubmissionResult{
		HTTPStatus:     200,
		ProviderStatus: &accepted,
		RawBody:        []byte(`{"status":true}`),
	}
	require.NoError(t, projector.RecordSubmission(ctx, "123", []byte(`{}`), res, "assabil-sync/retry"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncSuccess, got.SyncStatus)
	assert.Equal(t, "DA-EARLIER", got.ProviderReference)
}

func TestProjectorMarkSubmitted(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	require.NoError(t, projector.MarkSubmitted(ctx, "123"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncSubmitted, got.SyncStatus)

	err = projector.MarkSubmitted(ctx, "missing")
	assert.ErrorIs(t, err, shipsync.ErrOrderNotFound)
}

func TestProjectorRecordFailure_KeepsPayloadForReplay(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, testOrder())
	projector := shipsync.NewProjector(store, noopLogger())

	payload := []byte(`{"order":{"service":"svc"}}`)
	require.NoError(t, projector.RecordFailure(ctx, "123", payload, "connection refused", "assabil-sync/order-created"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncFailed, got.SyncStatus)
	assert.Equal(t, "connection refused", got.LastError)
	assert.Equal(t, payload, got.LastPayload)
}

func TestProjectorReplacePayloadAndClearError(t *testing.T) {
	ctx := context.Background()
	order := testOrder()
	order.LastError = "previous failure"
	store := seedStore(t, order)
	projector := shipsync.NewProjector(store, noopLogger())

	payload := []byte(`{"edited":true}`)
	require.NoError(t, projector.ReplacePayload(ctx, "123", payload))
	require.NoError(t, projector.ClearError(ctx, "123"))

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, payload, got.LastPayload)
	assert.Empty(t, got.LastError)
}
