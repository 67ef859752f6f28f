// Package orders fetches open Dutch orders from the order source API.
package orders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

const (
	// DefaultLimit is the number of newest orders fetched per cycle.
	DefaultLimit = 2

	sortKeyCreatedAt = "createdAt"
	sourceName       = "order-source"
)

// Query selects which orders the list endpoint returns.
type Query struct {
	ChainID   int64
	Limit     int
	Status    types.OrderStatus
	OrderType types.OrderType
}

// OpenOrdersQuery returns the query used by the agent: newest open Dutch orders on a chain.
func OpenOrdersQuery(chainID int64, limit int) Query {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return Query{
		ChainID:   chainID,
		Limit:     limit,
		Status:    types.OrderStatusOpen,
		OrderType: types.OrderTypeDutchV2,
	}
}

// Client is an HTTP client for the order source API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new order source client. Per-request deadlines come
// from the context; timeout is an upper bound for the underlying transport.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchOpenOrders returns the orders matching q, newest first.
// Transport and decoding failures are returned as *types.FetchError.
func (c *Client) FetchOpenOrders(ctx context.Context, q Query) ([]types.RawOrder, error) {
	start := time.Now()
	defer func() {
		FetchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	orders, err := c.fetch(ctx, q)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, &types.FetchError{Source: sourceName, Err: err}
	}

	OrdersFetchedTotal.Add(float64(len(orders)))

	return orders, nil
}

func (c *Client) fetch(ctx context.Context, q Query) ([]types.RawOrder, error) {
	params := url.Values{}
	params.Add("chainId", strconv.FormatInt(q.ChainID, 10))
	params.Add("limit", strconv.Itoa(q.Limit))
	params.Add("orderStatus", string(q.Status))
	params.Add("sortKey", sortKeyCreatedAt)
	params.Add("desc", "true")
	params.Add("orderType", string(q.OrderType))

	requestURL := fmt.Sprintf("%s/orders?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "dutch-filler/1.0")

	c.logger.Debug("fetching-orders",
		zap.String("url", requestURL),
		zap.Int("limit", q.Limit))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var ordersResp types.OrdersResponse
	err = json.Unmarshal(body, &ordersResp)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.Debug("fetched-orders",
		zap.Int("count", len(ordersResp.Orders)))

	return ordersResp.Orders, nil
}
