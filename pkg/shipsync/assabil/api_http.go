package assabil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huruftech/assabil-sync/pkg/shipsync"
)

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:     cfg.BaseURL,
		bearerToken: cfg.BearerToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrder posts the shipment payload to POST {base}/order/create.
// The payload bytes are sent exactly as given.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, payload []byte) (*APIResponse, error) {
	return c.doRaw(ctx, "/order/create", payload)
}

// OrderCost posts a rate lookup to POST {base}/order/cost.
func (c *HTTPAPIClient) OrderCost(ctx context.Context, req *shipsync.RateRequest) (*APIResponse, error) {
	return c.doJSON(ctx, "/order/cost", req)
}

// ShipmentTimeline posts to POST {base}/order/shipment/timeline.
func (c *HTTPAPIClient) ShipmentTimeline(ctx context.Context, req *TimelineRequest) (*APIResponse, error) {
	return c.doJSON(ctx, "/order/shipment/timeline", req)
}

// BranchList posts to POST {base}/order/branch/list.
func (c *HTTPAPIClient) BranchList(ctx context.Context, req *BranchListRequest) (*APIResponse, error) {
	return c.doJSON(ctx, "/order/branch/list", req)
}

func (c *HTTPAPIClient) doJSON(ctx context.Context, path string, body interface{}) (*APIResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.doRaw(ctx, path, payload)
}

// doRaw performs a POST and captures the response body verbatim. The
// envelope parse is best effort: an unparseable body yields a nil
// Envelope, never an error, so the caller can still persist it.
func (c *HTTPAPIClient) doRaw(ctx context.Context, path string, payload []byte) (*APIResponse, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("User-Agent", "assabil-sync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &APIResponse{
		HTTPStatus: resp.StatusCode,
		RawBody:    rawBody,
	}

	var envelope ResponseEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err == nil {
		result.Envelope = &envelope
	}
	return result, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
