package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nniahq/portal-api/pkg/logging"
)

// Client fetches appointments from a remotely hosted appointments API. It
// speaks the same envelope the Handler serves, so the preview scheduler can
// run against either an in-process repository or a remote deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates an appointments API client.
func NewClient(baseURL string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient overrides the underlying HTTP client (for testing).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// ListByClient fetches all appointments for a client.
func (c *Client) ListByClient(ctx context.Context, clientID string) ([]Appointment, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("appointments: client id is required")
	}
	endpoint := fmt.Sprintf("%s/nnia/appointments?clientId=%s", c.baseURL, url.QueryEscape(clientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("appointments: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appointments: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("appointments: api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Appointments []Appointment `json:"appointments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("appointments: decode: %w", err)
	}
	return payload.Appointments, nil
}
