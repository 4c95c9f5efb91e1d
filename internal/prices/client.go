package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bher20/cryptofolio/internal/metrics"
)

// ErrNotFound means the price source has no quote for the requested id.
// Ids unknown to CoinGecko are simply omitted from the response body.
var ErrNotFound = errors.New("prices: currency not found")

// Client talks to a CoinGecko-compatible /simple/price endpoint.
type Client struct {
	baseURL string
	cli     *http.Client
}

// NewClient returns a Client for the given API base URL
// (e.g. https://api.coingecko.com/api/v3). A zero timeout defaults to 8s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     &http.Client{Timeout: timeout},
	}
}

// FetchPrices performs one batched lookup for all ids and returns a map of
// id -> USD unit price. Ids unknown to the source are absent from the result.
func (c *Client) FetchPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	metrics.PriceFetchesTotal.WithLabelValues("batch").Inc()

	res, err := c.fetch(ctx, ids)
	if err != nil {
		metrics.PriceFetchErrorsTotal.WithLabelValues("batch").Inc()
		return nil, err
	}
	return res, nil
}

// FetchPrice looks up a single id. Returns ErrNotFound when the source
// omits the id from its response.
func (c *Client) FetchPrice(ctx context.Context, id string) (float64, error) {
	metrics.PriceFetchesTotal.WithLabelValues("single").Inc()

	id = strings.ToLower(strings.TrimSpace(id))
	res, err := c.fetch(ctx, []string{id})
	if err != nil {
		metrics.PriceFetchErrorsTotal.WithLabelValues("single").Inc()
		return 0, err
	}
	price, ok := res[id]
	if !ok {
		return 0, ErrNotFound
	}
	return price, nil
}

func (c *Client) fetch(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	// Sort for a stable query string; CoinGecko ids are lowercase.
	norm := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			norm = append(norm, id)
		}
	}
	sort.Strings(norm)

	q := url.Values{}
	q.Set("ids", strings.Join(norm, ","))
	q.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prices: http %d from price API", resp.StatusCode)
	}

	var raw map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("prices: decode response: %w", err)
	}

	out := make(map[string]float64, len(raw))
	for id, v := range raw {
		out[id] = v.USD
	}
	return out, nil
}
