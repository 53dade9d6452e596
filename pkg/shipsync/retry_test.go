package shipsync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

func failedOrder(orderID string, payload []byte) *shipsync.ShipmentOrder {
	order := testOrder()
	order.OrderID = orderID
	order.SyncStatus = shipsync.SyncFailed
	order.LastError = "previous failure"
	order.LastPayload = payload
	return order
}

func TestRetrySingle_ReplaysCapturedPayload(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"order":{"service":"svc-express"},"token":"tok-abc"}`)

	store := shipsync.NewMemoryOrderStore()
	require.NoError(t, store.Save(ctx, failedOrder("123", payload)))

	client := &stubClient{}
	svc := newTestService(store, client)
	coordinator := shipsync.NewRetryCoordinator(store, svc, noopLogger())

	require.NoError(t, coordinator.RetrySingle(ctx, "123"))

	require.Len(t, client.submissions, 1)
	assert.Equal(t, payload, client.submissions[0], "retry must replay the captured bytes verbatim")

	got, err := store.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncSuccess, got.SyncStatus)
	assert.Empty(t, got.LastError)
}

func TestRetrySingle_RebuildsWhenNoPayloadCaptured(t *testing.T) {
	ctx := context.Background()
	store := shipsync.NewMemoryOrderStore()
	require.NoError(t, store.Save(ctx, failedOrder("123", nil)))

	client := &stubClient{}
	svc := newTestService(store, client)
	coordinator := shipsync.NewRetryCoordinator(store, svc, noopLogger())

	require.NoError(t, coordinator.RetrySingle(ctx, "123"))
	require.Len(t, client.submissions, 1)
	assert.Contains(t, string(client.submissions[0]), "svc-express")
}

func TestRetrySingle_UnknownOrder(t *testing.T) {
	store := shipsync.NewMemoryOrderStore()
	svc := newTestService(store, &stubClient{})
	coordinator := shipsync.NewRetryCoordinator(store, svc, noopLogger())

	err := coordinator.RetrySingle(context.Background(), "missing")
	assert.ErrorIs(t, err, shipsync.ErrOrderNotFound)
}

func TestRetryBulk_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	store := shipsync.NewMemoryOrderStore()
	require.NoError(t, store.Save(ctx, failedOrder("1", []byte(`{"a":1}`))))
	require.NoError(t, store.Save(ctx, failedOrder("2", []byte(`{"a":2}`))))
	require.NoError(t, store.Save(ctx, failedOrder("3", []byte(`{"a":3}`))))

	client := &stubClient{
		submitFn: func(_ context.Context, payload []byte) (*shipsync.SubmissionResult, error) {
			switch string(payload) {
			case `{"a":2}`:
				return rejectedResult("service not available"), nil
			case `{"a":3}`:
				return nil, shipsync.NewTransportError(errors.New("connection refused"))
			}
			return acceptedResult("DA-BULK-1"), nil
		},
	}
	svc := newTestService(store, client)
	coordinator := shipsync.NewRetryCoordinator(store, svc, noopLogger())

	var progress []int
	result, err := coordinator.RetryBulk(ctx, []string{"1", "2", "3"}, func(done, total int) {
		require.Equal(t, 3, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	assert.Equal(t, shipsync.BulkResult{Succeeded: 1, Failed: 2}, result)
	assert.Equal(t, []int{1, 2, 3}, progress)

	first, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncSuccess, first.SyncStatus)

	second, err := store.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncFailed, second.SyncStatus)
	assert.Equal(t, "service not available", second.LastError)

	third, err := store.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, shipsync.SyncFailed, third.SyncStatus)
}

func TestRetryBulk_CooperativeCancellation(t *testing.T) {
	store := shipsync.NewMemoryOrderStore()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, store.Save(ctx, failedOrder("1", []byte(`{"a":1}`))))
	require.NoError(t, store.Save(ctx, failedOrder("2", []byte(`{"a":2}`))))

	client := &stubClient{
		submitFn: func(context.Context, []byte) (*shipsync.SubmissionResult, error) {
			cancel()
			return acceptedResult("DA-CANCEL-1"), nil
		},
	}
	svc := newTestService(store, client)
	coordinator := shipsync.NewRetryCoordinator(store, svc, noopLogger())

	result, err := coordinator.RetryBulk(ctx, []string{"1", "2"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, shipsync.BulkResult{Succeeded: 1}, result, "the started item runs to completion")
	assert.Len(t, client.submissions, 1)
}
