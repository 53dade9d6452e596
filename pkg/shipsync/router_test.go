package shipsync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

func validEvent(eventType string) *shipsync.WebhookEvent {
	return &shipsync.WebhookEvent{
		Event:     eventType,
		RequestID: "req-1",
		WebhookID: "wh-1",
		Account:   "acct-1",
		Payload: shipsync.EventPayload{
			Metadata: shipsync.EventMetadata{OrderID: "123"},
		},
	}
}

func TestRouteEvent_Table(t *testing.T) {
	tests := []struct {
		suffix   string
		shipment shipsync.ShipmentStatus
		order    shipsync.OrderStatus
	}{
		{"pending", shipsync.ShipmentPending, shipsync.OrderOnHold},
		{"booked", shipsync.ShipmentBooked, shipsync.OrderProcessing},
		{"processing", shipsync.ShipmentProcessing, shipsync.OrderProcessing},
		{"on-branch", shipsync.ShipmentOnBranch, shipsync.OrderProcessing},
		{"completed", shipsync.ShipmentCompleted, shipsync.OrderCompleted},
		{"cancelled", shipsync.ShipmentCancelled, shipsync.OrderCancelled},
		{"resent", shipsync.ShipmentResent, shipsync.OrderProcessing},
		{"delayed", shipsync.ShipmentDelayed, shipsync.OrderOnHold},
		{"released", shipsync.ShipmentReleased, shipsync.OrderCancelled},
		{"returning", shipsync.ShipmentReturning, shipsync.OrderCancelled},
		{"returned", shipsync.ShipmentReturned, shipsync.OrderCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.suffix, func(t *testing.T) {
			tr, err := shipsync.RouteEvent(validEvent("localShipments." + tt.suffix))
			require.NoError(t, err)
			assert.True(t, tr.Known)
			assert.Equal(t, tt.shipment, tr.Shipment)
			assert.Equal(t, tt.order, tr.Order)
		})
	}
}

func TestRouteEvent_UnknownTypeIsNoOp(t *testing.T) {
	tr, err := shipsync.RouteEvent(validEvent("localShipments.weighed"))
	require.NoError(t, err)
	assert.False(t, tr.Known)
}

func TestRouteEvent_Malformed(t *testing.T) {
	missingRequest := validEvent("localShipments.completed")
	missingRequest.RequestID = ""

	missingWebhook := validEvent("localShipments.completed")
	missingWebhook.WebhookID = ""

	missingAccount := validEvent("localShipments.completed")
	missingAccount.Account = ""

	for name, event := range map[string]*shipsync.WebhookEvent{
		"requestId": missingRequest,
		"webhookId": missingWebhook,
		"account":   missingAccount,
	} {
		t.Run("missing "+name, func(t *testing.T) {
			_, err := shipsync.RouteEvent(event)
			assert.ErrorIs(t, err, shipsync.ErrMalformedEvent)
		})
	}
}

func TestEventSuffix(t *testing.T) {
	assert.Equal(t, "completed", shipsync.EventSuffix("localShipments.completed"))
	assert.Equal(t, "pending", shipsync.EventSuffix("pending"))
	assert.Equal(t, "booked", shipsync.EventSuffix("a.b.booked"))
	assert.Equal(t, "", shipsync.EventSuffix(""))
}
