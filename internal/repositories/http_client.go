package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prepdeck/cbe-service/internal/models"
)

// HTTPClient fetches papers from a remote paper service. No caching: every
// call re-fetches, matching the load-on-view contract.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	var paper models.Paper
	if err := c.getJSON(ctx, "/papers/"+url.PathEscape(id), &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (c *HTTPClient) List(ctx context.Context) ([]models.PaperSummary, error) {
	var body struct {
		Papers []models.PaperSummary `json:"papers"`
	}
	if err := c.getJSON(ctx, "/papers", &body); err != nil {
		return nil, err
	}
	return body.Papers, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrFetch, err)
	}
	return nil
}
