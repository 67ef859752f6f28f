// Package pricefeed reads reference prices from an exchange order book.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const sourceName = "price-feed"

// ErrNoBids is returned when the order book has no bid side.
var ErrNoBids = errors.New("order book has no bids")

// exchangeSymbols maps wrapped token symbols to the exchange's native asset names.
var exchangeSymbols = map[string]string{
	"WETH": "ETH",
	"WBTC": "BTC",
}

// ExchangeSymbol returns the exchange asset name for a token symbol.
func ExchangeSymbol(symbol string) string {
	if s, ok := exchangeSymbols[symbol]; ok {
		return s
	}
	return symbol
}

// PairSymbol returns the exchange pair quoting input in units of output, e.g. ETHUSDC.
func PairSymbol(input, output types.Token) string {
	return ExchangeSymbol(input.Symbol) + ExchangeSymbol(output.Symbol)
}

type depthResponse struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

// Client is an HTTP client for the exchange depth endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new price feed client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// TopBid returns the best bid price of pair. Failures are returned as *types.FetchError.
func (c *Client) TopBid(ctx context.Context, pair string) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		RequestDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	price, err := c.topBid(ctx, pair)
	if err != nil {
		RequestErrorsTotal.WithLabelValues(pair).Inc()
		return decimal.Zero, &types.FetchError{Source: sourceName, Err: err}
	}

	price64, _ := price.Float64()
	ReferencePrice.WithLabelValues(pair).Set(price64)

	return price, nil
}

func (c *Client) topBid(ctx context.Context, pair string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Add("symbol", pair)
	params.Add("limit", "1")

	requestURL := fmt.Sprintf("%s/depth?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var depth depthResponse
	err = json.Unmarshal(body, &depth)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(depth.Bids) == 0 {
		return decimal.Zero, ErrNoBids
	}

	price, err := decimal.NewFromString(depth.Bids[0][0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse bid price %q: %w", depth.Bids[0][0], err)
	}

	c.logger.Debug("reference-price",
		zap.String("pair", pair),
		zap.String("bid", price.String()))

	return price, nil
}
