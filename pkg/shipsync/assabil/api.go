package assabil

import (
	"context"
	"encoding/json"

	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

// APIClient defines the raw Darb Assabil API operations. The
// abstraction allows mock implementations during testing and the real
// HTTP implementation in production.
type APIClient interface {
	// CreateOrder posts a shipment-creation payload. The payload is
	// taken as pre-marshalled bytes so a retry can replay the exact
	// bytes of an earlier submission.
	CreateOrder(ctx context.Context, payload []byte) (*APIResponse, error)

	// OrderCost fetches the delivery cost for a prospective shipment.
	OrderCost(ctx context.Context, req *shipsync.RateRequest) (*APIResponse, error)

	// ShipmentTimeline fetches the provider-side history of a shipment.
	ShipmentTimeline(ctx context.Context, req *TimelineRequest) (*APIResponse, error)

	// BranchList fetches the provider branches and their served areas.
	BranchList(ctx context.Context, req *BranchListRequest) (*APIResponse, error)
}

// APIResponse is a provider response with the raw body retained.
// Envelope is nil when the body was not valid JSON; RawBody is always
// populated.
type APIResponse struct {
	HTTPStatus int
	RawBody    []byte
	Envelope   *ResponseEnvelope
}

// OK reports whether the HTTP status was 2xx.
func (r *APIResponse) OK() bool {
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300
}

// ResponseEnvelope is the provider's standard response wrapper:
// {status: bool, data: {...}, message?: string}.
type ResponseEnvelope struct {
	Status  *bool           `json:"status"`
	Message string          `json:"message,omitempty"`
	Label   string          `json:"label,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CreateOrderData is the data object of a successful order/create call.
type CreateOrderData struct {
	Reference string `json:"reference"`
}

// CostData is the data object of an order/cost call.
type CostData struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// TimelineRequest is the outbound payload for order/shipment/timeline.
type TimelineRequest struct {
	Reference string `json:"reference"`
	Token     string `json:"token"`
}

// TimelineData is the data object of a timeline call.
type TimelineData struct {
	Timeline []TimelineEntry `json:"timeline"`
}

// TimelineEntry is one provider timeline record.
type TimelineEntry struct {
	Type        string          `json:"type"`
	Timestamp   string          `json:"timestamp"`
	Description LocalizedString `json:"description"`
	Remarks     string          `json:"remarks,omitempty"`
	CreatedBy   *TimelineActor  `json:"createdBy,omitempty"`
	Handler     *TimelineBranch `json:"handlerAccount,omitempty"`
}

// LocalizedString carries the provider's per-language description text.
type LocalizedString struct {
	En string `json:"en,omitempty"`
	Ar string `json:"ar,omitempty"`
}

// TimelineActor is the provider user who produced a timeline entry.
type TimelineActor struct {
	FirstName string `json:"fname,omitempty"`
	LastName  string `json:"lname,omitempty"`
}

// TimelineBranch is the branch that handled a timeline entry.
type TimelineBranch struct {
	Name string `json:"name,omitempty"`
}

// BranchListRequest is the outbound payload for order/branch/list.
type BranchListRequest struct {
	Token string `json:"token"`
}

// BranchData is one branch record in a branch-list response.
type BranchData struct {
	City  string   `json:"city"`
	Areas []string `json:"areas"`
}
