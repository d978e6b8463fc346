package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"squeezebot/internal/model"
)

const (
	klineLimit   = 1000
	recvWindowMS = 5000
)

// Client is a minimal Binance spot REST client. Public endpoints (klines,
// ticker) need no credentials; order submission signs the request with
// HMAC-SHA256 over the query string.
type Client struct {
	baseURL   string
	apiKey    string
	secretKey string
	http      *http.Client
}

// NewClient builds a client against baseURL (e.g. https://api.binance.com).
func NewClient(baseURL, apiKey, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchCandles returns the klines for [start, end), oldest first, paging
// through the API's per-request limit as needed.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, start, end time.Time) (model.Series, error) {
	var series model.Series
	cursor := start.UnixMilli()
	endMS := end.UnixMilli()

	for cursor < endMS {
		q := url.Values{}
		q.Set("symbol", symbol)
		q.Set("interval", interval)
		q.Set("startTime", strconv.FormatInt(cursor, 10))
		q.Set("endTime", strconv.FormatInt(endMS, 10))
		q.Set("limit", strconv.Itoa(klineLimit))

		body, err := c.get(ctx, "/api/v3/klines", q)
		if err != nil {
			return nil, fmt.Errorf("fetch klines %s/%s: %w", symbol, interval, err)
		}
		page, err := parseKlines(body)
		if err != nil {
			return nil, fmt.Errorf("parse klines %s/%s: %w", symbol, interval, err)
		}
		if len(page) == 0 {
			break
		}
		for _, k := range page {
			series = append(series, model.Candle{
				OpenTime: time.UnixMilli(k.OpenTime).UTC(),
				Open:     k.Open,
				High:     k.High,
				Low:      k.Low,
				Close:    k.Close,
				Volume:   k.Volume,
			})
		}
		next := page[len(page)-1].CloseTime + 1
		if next <= cursor {
			break
		}
		cursor = next
		if len(page) < klineLimit {
			break
		}
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("klines %s/%s: %w", symbol, interval, err)
	}
	return series, nil
}

// FetchPrice returns the latest ticker price for symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	body, err := c.get(ctx, "/api/v3/ticker/price", q)
	if err != nil {
		return 0, fmt.Errorf("fetch ticker %s: %w", symbol, err)
	}
	var resp tickerPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse ticker %s: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", resp.Price, err)
	}
	return price, nil
}

// SubmitMarketOrder places a signed MARKET order and returns the fill.
func (c *Client) SubmitMarketOrder(ctx context.Context, symbol string, side model.Side, quantity float64) (OrderFill, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	q.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	q.Set("recvWindow", strconv.Itoa(recvWindowMS))
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	// The signature covers the encoded query and must be appended after it.
	encoded := q.Encode()
	query := encoded + "&signature=" + c.sign(encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/order?"+query, nil)
	if err != nil {
		return OrderFill{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	body, err := c.do(req)
	if err != nil {
		return OrderFill{}, fmt.Errorf("submit order %s %s: %w", side, symbol, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderFill{}, fmt.Errorf("parse order response: %w", err)
	}
	fill := OrderFill{
		OrderID: resp.OrderID,
		Symbol:  resp.Symbol,
		Status:  resp.Status,
	}
	if resp.ExecutedQty != "" {
		fill.Quantity, _ = strconv.ParseFloat(resp.ExecutedQty, 64)
	}
	if len(resp.Fills) > 0 {
		// Quantity-weighted average over partial fills.
		var notional, qty float64
		for _, f := range resp.Fills {
			p, err1 := strconv.ParseFloat(f.Price, 64)
			fq, err2 := strconv.ParseFloat(f.Qty, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			notional += p * fq
			qty += fq
		}
		if qty > 0 {
			fill.Price = notional / qty
		}
	}
	return fill, nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("http %d: %s (code %d)", resp.StatusCode, apiErr.Msg, apiErr.Code)
		}
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return body, nil
}

// parseKlines decodes the positional kline arrays Binance returns.
func parseKlines(body []byte) ([]kline, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := make([]kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			return nil, fmt.Errorf("kline row has %d fields, want at least 7", len(row))
		}
		var k kline
		if err := json.Unmarshal(row[0], &k.OpenTime); err != nil {
			return nil, fmt.Errorf("kline open time: %w", err)
		}
		if err := json.Unmarshal(row[6], &k.CloseTime); err != nil {
			return nil, fmt.Errorf("kline close time: %w", err)
		}
		fields := []struct {
			dst *float64
			idx int
		}{
			{&k.Open, 1}, {&k.High, 2}, {&k.Low, 3}, {&k.Close, 4}, {&k.Volume, 5},
		}
		for _, f := range fields {
			var s string
			if err := json.Unmarshal(row[f.idx], &s); err != nil {
				return nil, fmt.Errorf("kline field %d: %w", f.idx, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline field %d %q: %w", f.idx, s, err)
			}
			*f.dst = v
		}
		out = append(out, k)
	}
	return out, nil
}
