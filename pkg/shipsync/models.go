package shipsync

import (
	"time"
)

// SyncStatus is the bridge's own record of whether an order has been
// handed to the provider.
type SyncStatus string

const (
	SyncNotSubmitted SyncStatus = "not_submitted"
	SyncSubmitted    SyncStatus = "submitted"
	SyncFailed       SyncStatus = "failed"
	SyncSuccess      SyncStatus = "success"
)

// ShipmentStatus is the provider-reported shipment state.
type ShipmentStatus string

const (
	ShipmentPending    ShipmentStatus = "pending"
	ShipmentBooked     ShipmentStatus = "booked"
	ShipmentProcessing ShipmentStatus = "processing"
	ShipmentOnBranch   ShipmentStatus = "on-branch"
	ShipmentCompleted  ShipmentStatus = "completed"
	ShipmentCancelled  ShipmentStatus = "cancelled"
	ShipmentResent     ShipmentStatus = "resent"
	ShipmentDelayed    ShipmentStatus = "delayed"
	ShipmentReleased   ShipmentStatus = "released"
	ShipmentReturning  ShipmentStatus = "returning"
	ShipmentReturned   ShipmentStatus = "returned"
)

// OrderStatus is the commerce-side order lifecycle status.
type OrderStatus string

const (
	OrderOnHold     OrderStatus = "on-hold"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// LineItem is one purchasable line of a commerce order.
type LineItem struct {
	SKU      string  `json:"sku"`
	Title    string  `json:"title"`
	Quantity int     `json:"quantity"`
	WidthCM  int     `json:"widthCM"`
	HeightCM int     `json:"heightCM"`
	LengthCM int     `json:"lengthCM"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// ShipmentOrder is one commerce order eligible for shipping synchronization.
// The destination city may encode "<city>::<area>"; see SplitCityArea.
type ShipmentOrder struct {
	OrderID            string     `json:"orderId"`
	CustomerID         string     `json:"customerId"`
	DestinationCountry string     `json:"destinationCountry"` // ISO 3166-1 alpha-2
	DestinationCity    string     `json:"destinationCity"`
	DestinationAddress string     `json:"destinationAddress"`
	ContactName        string     `json:"contactName"`
	ContactPhone       string     `json:"contactPhone"`
	Notes              string     `json:"notes"`
	LineItems          []LineItem `json:"lineItems"`

	Status            OrderStatus    `json:"status"`
	SyncStatus        SyncStatus     `json:"syncStatus"`
	ShipmentStatus    ShipmentStatus `json:"shipmentStatus,omitempty"`
	ProviderReference string         `json:"providerReference,omitempty"`
	RequestID         string         `json:"requestId,omitempty"`
	WebhookID         string         `json:"webhookId,omitempty"`
	Account           string         `json:"account,omitempty"`

	// LastPayload holds the exact bytes last sent to the provider so a
	// retry can replay them verbatim.
	LastPayload      []byte    `json:"lastPayload,omitempty"`
	LastResponseBody []byte    `json:"lastResponseBody,omitempty"`
	LastError        string    `json:"lastError,omitempty"`
	StatusNotes      []string  `json:"statusNotes,omitempty"`
	ProcessedAt      time.Time `json:"processedAt,omitempty"`
	ProcessedBy      string    `json:"processedBy,omitempty"`
}

// Clone returns a deep copy so callers never alias store-owned state.
func (o *ShipmentOrder) Clone() *ShipmentOrder {
	if o == nil {
		return nil
	}
	cp := *o
	cp.LineItems = append([]LineItem(nil), o.LineItems...)
	cp.LastPayload = append([]byte(nil), o.LastPayload...)
	cp.LastResponseBody = append([]byte(nil), o.LastResponseBody...)
	cp.StatusNotes = append([]string(nil), o.StatusNotes...)
	return &cp
}

// Retryable reports whether the order is in a state a retry should be
// offered for. Resubmitting anyway is safe, just not meaningful.
func (o *ShipmentOrder) Retryable() bool {
	return o.SyncStatus == SyncFailed || o.SyncStatus == SyncNotSubmitted
}

// WebhookEvent is one inbound provider callback. RawBody carries the
// untouched request bytes the signature was computed over and must not
// be mutated before verification.
type WebhookEvent struct {
	RawBody           []byte `json:"-"`
	ReceivedSignature string `json:"-"`

	Event     string       `json:"event" validate:"required"`
	RequestID string       `json:"requestId" validate:"required"`
	WebhookID string       `json:"webhookId" validate:"required"`
	Account   string       `json:"account" validate:"required"`
	Payload   EventPayload `json:"payload"`
}

// EventPayload is the provider-specific nested payload of a webhook event.
type EventPayload struct {
	Metadata       EventMetadata `json:"metadata"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	Status         string        `json:"status,omitempty"`
}

// EventMetadata echoes the metadata attached to the original submission.
type EventMetadata struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId,omitempty"`
}

// SubmissionResult is the parsed outcome of one shipment-creation call.
// ProviderStatus is nil when the response body was not valid JSON; the
// raw body is always retained.
type SubmissionResult struct {
	HTTPStatus     int
	ProviderStatus *bool
	Reference      string
	Message        string
	RawBody        []byte
}

// Succeeded reports whether the provider accepted the shipment.
func (r *SubmissionResult) Succeeded() bool {
	return r != nil && r.ProviderStatus != nil && *r.ProviderStatus
}

// RateQuote is the provider's cost estimate for a prospective shipment.
type RateQuote struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// TimelineEvent is one entry of a shipment's provider-side history.
type TimelineEvent struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	Remarks     string    `json:"remarks,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	Branch      string    `json:"branch,omitempty"`
}

// Branch is a provider branch and the areas it serves. The host checkout
// renders these as "<city>::<area>" composite city values.
type Branch struct {
	City  string   `json:"city"`
	Areas []string `json:"areas"`
}
