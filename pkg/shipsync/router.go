package shipsync

import (
	"fmt"
	"strings"
)

// Transition is the local status pair computed for a webhook event.
// Known is false for event types the bridge does not track; those are
// accepted but produce no state change.
type Transition struct {
	Shipment ShipmentStatus
	Order    OrderStatus
	Known    bool
}

// Provider event type suffix -> local transition.
var transitions = map[string]Transition{
	"pending":    {ShipmentPending, OrderOnHold, true},
	"booked":     {ShipmentBooked, OrderProcessing, true},
	"processing": {ShipmentProcessing, OrderProcessing, true},
	"on-branch":  {ShipmentOnBranch, OrderProcessing, true},
	"completed":  {ShipmentCompleted, OrderCompleted, true},
	"cancelled":  {ShipmentCancelled, OrderCancelled, true},
	"resent":     {ShipmentResent, OrderProcessing, true},
	"delayed":    {ShipmentDelayed, OrderOnHold, true},
	"released":   {ShipmentReleased, OrderCancelled, true},
	"returning":  {ShipmentReturning, OrderCancelled, true},
	"returned":   {ShipmentReturned, OrderCancelled, true},
}

// EventSuffix returns the status part of a namespaced event type, e.g.
// "localShipments.completed" -> "completed".
func EventSuffix(eventType string) string {
	if i := strings.LastIndex(eventType, "."); i >= 0 {
		return eventType[i+1:]
	}
	return eventType
}

// RouteEvent classifies a verified webhook event and computes the local
// status transition. It fails with ErrMalformedEvent when the envelope
// is missing its identifying fields; unknown event types are not an
// error and yield a no-op transition.
func RouteEvent(e *WebhookEvent) (Transition, error) {
	if e.RequestID == "" {
		return Transition{}, fmt.Errorf("%w: missing requestId", ErrMalformedEvent)
	}
	if e.WebhookID == "" {
		return Transition{}, fmt.Errorf("%w: missing webhookId", ErrMalformedEvent)
	}
	if e.Account == "" {
		return Transition{}, fmt.Errorf("%w: missing account", ErrMalformedEvent)
	}

	tr, ok := transitions[EventSuffix(e.Event)]
	if !ok {
		return Transition{}, nil
	}
	return tr, nil
}
