package assabil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateOrder      func(ctx context.Context, payload []byte) (*APIResponse, error)
	OnOrderCost        func(ctx context.Context, req *shipsync.RateRequest) (*APIResponse, error)
	OnShipmentTimeline func(ctx context.Context, req *TimelineRequest) (*APIResponse, error)
	OnBranchList       func(ctx context.Context, req *BranchListRequest) (*APIResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return errors.New("simulated transport error")
	}
	return nil
}

// CreateOrder returns a mock acceptance with a fresh tracking reference.
func (m *MockAPIClient) CreateOrder(ctx context.Context, payload []byte) (*APIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, payload)
	}

	reference := "DA-" + uuid.New().String()[:8]
	return envelopeResponse(http.StatusOK, true, "", fmt.Sprintf(`{"reference":%q}`, reference)), nil
}

// OrderCost returns a mock flat rate.
func (m *MockAPIClient) OrderCost(ctx context.Context, req *shipsync.RateRequest) (*APIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnOrderCost != nil {
		return m.OnOrderCost(ctx, req)
	}
	return envelopeResponse(http.StatusOK, true, "", `{"amount":25,"currency":"lyd"}`), nil
}

// ShipmentTimeline returns a short mock history.
func (m *MockAPIClient) ShipmentTimeline(ctx context.Context, req *TimelineRequest) (*APIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnShipmentTimeline != nil {
		return m.OnShipmentTimeline(ctx, req)
	}

	now := time.Now().UTC()
	data := TimelineData{Timeline: []TimelineEntry{
		{
			Type:        "booked",
			Timestamp:   now.Add(-48 * time.Hour).Format(time.RFC3339),
			Description: LocalizedString{En: "Shipment booked"},
		},
		{
			Type:        "completed",
			Timestamp:   now.Format(time.RFC3339),
			Description: LocalizedString{En: "Delivered to recipient"},
			Handler:     &TimelineBranch{Name: "Tripoli Central"},
		},
	}}
	raw, _ := json.Marshal(data)
	return envelopeResponse(http.StatusOK, true, "", string(raw)), nil
}

// BranchList returns a small set of mock branches.
func (m *MockAPIClient) BranchList(ctx context.Context, req *BranchListRequest) (*APIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnBranchList != nil {
		return m.OnBranchList(ctx, req)
	}

	branches := []BranchData{
		{City: "Tripoli", Areas: []string{"Hay Andalus", "Souq Al Jumaa"}},
		{City: "Benghazi", Areas: []string{"Al Berka"}},
	}
	raw, _ := json.Marshal(branches)
	return envelopeResponse(http.StatusOK, true, "", string(raw)), nil
}

// envelopeResponse builds an APIResponse whose raw body and parsed
// envelope agree, the way the HTTP client produces them.
func envelopeResponse(httpStatus int, status bool, message, dataJSON string) *APIResponse {
	envelope := ResponseEnvelope{Status: &status, Message: message}
	if dataJSON != "" {
		envelope.Data = json.RawMessage(dataJSON)
	}
	raw, _ := json.Marshal(envelope)
	return &APIResponse{
		HTTPStatus: httpStatus,
		RawBody:    raw,
		Envelope:   &envelope,
	}
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
