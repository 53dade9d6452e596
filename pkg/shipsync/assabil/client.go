// Package assabil provides the Darb Assabil shipment API client.
package assabil

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/huruftech/assabil-sync/pkg/shipsync"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds Darb Assabil client configuration.
type Config struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
	UseMock     bool // When true, uses the mock API client
}

// Client is the Darb Assabil submission client. It implements
// shipsync.SubmissionClient and delegates wire calls to the underlying
// APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Darb Assabil client. If cfg.UseMock is true, it
// uses a mock API client instead of the real HTTP one.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:     cfg.BaseURL,
			BearerToken: cfg.BearerToken,
			Timeout:     cfg.Timeout,
		})
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a client with a custom API client. This is
// useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Submit posts a shipment-creation payload and parses the outcome.
// The payload bytes go out exactly as given. Transport failures return
// a transport error; provider rejections are not an error here — the
// caller persists the result first and decides what to raise.
func (c *Client) Submit(ctx context.Context, payload []byte) (*shipsync.SubmissionResult, error) {
	c.logger.Info("Submitting shipment to Darb Assabil",
		zap.Int("payload_bytes", len(payload)),
	)

	resp, err := c.apiClient.CreateOrder(ctx, payload)
	if err != nil {
		c.logger.Error("Darb Assabil transport error", zap.Error(err))
		return nil, shipsync.NewTransportError(err)
	}

	result := &shipsync.SubmissionResult{
		HTTPStatus: resp.HTTPStatus,
		RawBody:    resp.RawBody,
	}
	if resp.Envelope != nil {
		result.ProviderStatus = resp.Envelope.Status
		result.Message = resp.Envelope.Message

		var data CreateOrderData
		if len(resp.Envelope.Data) > 0 {
			if err := json.Unmarshal(resp.Envelope.Data, &data); err == nil {
				result.Reference = data.Reference
			}
		}
	}

	c.logger.Info("Darb Assabil submission response",
		zap.Int("http_status", result.HTTPStatus),
		zap.Bool("provider_status", result.Succeeded()),
		zap.String("reference", result.Reference),
	)
	return result, nil
}

// Rate fetches the delivery cost for a prospective shipment.
func (c *Client) Rate(ctx context.Context, req *shipsync.RateRequest) (*shipsync.RateQuote, error) {
	c.logger.Info("Fetching Darb Assabil rate",
		zap.String("service", req.Service),
		zap.String("city", req.To.City),
	)

	resp, err := c.apiClient.OrderCost(ctx, req)
	if err != nil {
		return nil, shipsync.NewTransportError(err)
	}
	envelope, err := c.requireEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var data CostData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, shipsync.NewProviderError(resp.HTTPStatus, "unparseable cost data")
	}
	return &shipsync.RateQuote{
		Amount:   data.Amount,
		Currency: data.Currency,
		Label:    envelope.Label,
	}, nil
}

// Timeline fetches the provider-side history of a shipment by its
// tracking reference.
func (c *Client) Timeline(ctx context.Context, reference, token string) ([]shipsync.TimelineEvent, error) {
	c.logger.Info("Fetching Darb Assabil timeline", zap.String("reference", reference))

	resp, err := c.apiClient.ShipmentTimeline(ctx, &TimelineRequest{Reference: reference, Token: token})
	if err != nil {
		return nil, shipsync.NewTransportError(err)
	}
	envelope, err := c.requireEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var data TimelineData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, shipsync.NewProviderError(resp.HTTPStatus, "unparseable timeline data")
	}
	return timelineToEvents(data.Timeline), nil
}

// Branches fetches the provider branches and their served areas.
func (c *Client) Branches(ctx context.Context, token string) ([]shipsync.Branch, error) {
	resp, err := c.apiClient.BranchList(ctx, &BranchListRequest{Token: token})
	if err != nil {
		return nil, shipsync.NewTransportError(err)
	}
	envelope, err := c.requireEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var data []BranchData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, shipsync.NewProviderError(resp.HTTPStatus, "unparseable branch data")
	}

	branches := make([]shipsync.Branch, len(data))
	for i, b := range data {
		branches[i] = shipsync.Branch{City: b.City, Areas: b.Areas}
	}
	return branches, nil
}

// requireEnvelope maps a lookup response to the error taxonomy: a
// non-2xx status, unparseable body, or status=false all become
// provider errors.
func (c *Client) requireEnvelope(resp *APIResponse) (*ResponseEnvelope, error) {
	if !resp.OK() {
		return nil, shipsync.NewProviderError(resp.HTTPStatus, strings.TrimSpace(string(resp.RawBody)))
	}
	if resp.Envelope == nil {
		return nil, shipsync.NewProviderError(resp.HTTPStatus, "unparseable provider response")
	}
	if resp.Envelope.Status != nil && !*resp.Envelope.Status {
		return nil, shipsync.NewProviderError(resp.HTTPStatus, resp.Envelope.Message)
	}
	return resp.Envelope, nil
}

func timelineToEvents(entries []TimelineEntry) []shipsync.TimelineEvent {
	events := make([]shipsync.TimelineEvent, len(entries))
	for i, e := range entries {
		var ts time.Time
		if e.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
				ts = t
			}
		}

		createdBy := ""
		if e.CreatedBy != nil {
			createdBy = strings.TrimSpace(e.CreatedBy.FirstName + " " + e.CreatedBy.LastName)
		}
		branch := ""
		if e.Handler != nil {
			branch = e.Handler.Name
		}

		events[i] = shipsync.TimelineEvent{
			Type:        e.Type,
			Timestamp:   ts,
			Description: e.Description.En,
			Remarks:     e.Remarks,
			CreatedBy:   createdBy,
			Branch:      branch,
		}
	}
	return events
}

// Ensure Client satisfies the submission contract.
var _ shipsync.SubmissionClient = (*Client)(nil)
