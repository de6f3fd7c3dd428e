package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/web3-frozen/tokenflow/internal/upstream"
)

const (
	binanceFuturesAPI     = "https://fapi.binance.com/fapi/v1"
	binanceFuturesDataAPI = "https://fapi.binance.com/futures/data"
)

// FuturesClient fetches derivatives market data from the Binance USD-M
// futures API.
type FuturesClient struct {
	client      *http.Client
	baseURL     string
	dataBaseURL string
}

func NewFuturesClient() *FuturesClient {
	return &FuturesClient{
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     binanceFuturesAPI,
		dataBaseURL: binanceFuturesDataAPI,
	}
}

// FuturesTicker is a 24h futures ticker snapshot.
type FuturesTicker struct {
	LastPrice      float64 `json:"last_price"`
	PriceChangePct float64 `json:"price_change_pct"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Volume         float64 `json:"volume"`
	QuoteVolume    float64 `json:"quote_volume"`
	TradeCount     int64   `json:"trade_count"`
	WeightedAvg    float64 `json:"weighted_avg_price"`
}

// FundingSummary holds the latest and average funding rate over the
// fetched history.
type FundingSummary struct {
	CurrentRate float64 `json:"current_rate"`
	AvgRate     float64 `json:"avg_rate"`
}

// OpenInterestPoint is one open-interest history sample.
type OpenInterestPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	OpenInterest float64   `json:"open_interest"`
}

// RatioSummary holds the latest value of a ratio series (long/short or
// taker buy/sell).
type RatioSummary struct {
	LatestRatio float64 `json:"latest_ratio"`
}

// binanceError is the error envelope Binance returns instead of data.
type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *FuturesClient) get(ctx context.Context, base, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build binance request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: binance %s: %v", upstream.ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read binance %s: %v", upstream.ErrUnavailable, endpoint, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: binance status %d", upstream.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: binance status %d: %s", upstream.ErrUnavailable, resp.StatusCode, body)
	}

	// Errors can also arrive as a 200 with a code/msg object.
	var be binanceError
	if err := json.Unmarshal(body, &be); err == nil && be.Code != 0 {
		return nil, fmt.Errorf("%w: binance: %s (code %d)", upstream.ErrUnavailable, be.Msg, be.Code)
	}
	return body, nil
}

// FetchTicker fetches the 24h ticker for a futures symbol (e.g. "RLSUSDT").
func (c *FuturesClient) FetchTicker(ctx context.Context, symbol string) (*FuturesTicker, error) {
	body, err := c.get(ctx, c.baseURL, "ticker/24hr", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}

	var raw struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
		Volume             string `json:"volume"`
		QuoteVolume        string `json:"quoteVolume"`
		Count              int64  `json:"count"`
		WeightedAvgPrice   string `json:"weightedAvgPrice"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: binance ticker: %v", upstream.ErrMalformed, err)
	}

	return &FuturesTicker{
		LastPrice:      parseF(raw.LastPrice),
		PriceChangePct: parseF(raw.PriceChangePercent),
		High:           parseF(raw.HighPrice),
		Low:            parseF(raw.LowPrice),
		Volume:         parseF(raw.Volume),
		QuoteVolume:    parseF(raw.QuoteVolume),
		TradeCount:     raw.Count,
		WeightedAvg:    parseF(raw.WeightedAvgPrice),
	}, nil
}

// FetchFundingRate fetches the funding rate history and summarizes it.
func (c *FuturesClient) FetchFundingRate(ctx context.Context, symbol string, limit int) (*FundingSummary, error) {
	body, err := c.get(ctx, c.baseURL, "fundingRate", url.Values{
		"symbol": {symbol},
		"limit":  {fmt.Sprint(limit)},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		FundingRate string `json:"fundingRate"`
		FundingTime int64  `json:"fundingTime"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: binance funding: %v", upstream.ErrMalformed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no funding rate data", upstream.ErrMalformed)
	}

	var sum float64
	for _, row := range rows {
		sum += parseF(row.FundingRate)
	}
	return &FundingSummary{
		CurrentRate: parseF(rows[len(rows)-1].FundingRate),
		AvgRate:     sum / float64(len(rows)),
	}, nil
}

// FetchOpenInterestHistory fetches historical open interest samples,
// oldest first.
func (c *FuturesClient) FetchOpenInterestHistory(ctx context.Context, symbol, period string, limit int) ([]OpenInterestPoint, error) {
	body, err := c.get(ctx, c.dataBaseURL, "openInterestHist", url.Values{
		"symbol": {symbol},
		"period": {period},
		"limit":  {fmt.Sprint(limit)},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		SumOpenInterest string `json:"sumOpenInterest"`
		Timestamp       int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: binance OI history: %v", upstream.ErrMalformed, err)
	}

	points := make([]OpenInterestPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, OpenInterestPoint{
			Timestamp:    time.UnixMilli(row.Timestamp).UTC(),
			OpenInterest: parseF(row.SumOpenInterest),
		})
	}
	return points, nil
}

// OIChangePct computes the fractional open-interest change from first to
// last sample. Returns false when fewer than two samples are available or
// the base is zero.
func OIChangePct(points []OpenInterestPoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	first := points[0].OpenInterest
	last := points[len(points)-1].OpenInterest
	if first <= 0 {
		return 0, false
	}
	return (last - first) / first, true
}

// FetchLongShortRatio fetches the top-trader long/short position ratio.
func (c *FuturesClient) FetchLongShortRatio(ctx context.Context, symbol, period string, limit int) (*RatioSummary, error) {
	return c.fetchRatio(ctx, "topLongShortPositionRatio", "longShortRatio", symbol, period, limit)
}

// FetchTakerRatio fetches the taker buy/sell volume ratio.
func (c *FuturesClient) FetchTakerRatio(ctx context.Context, symbol, period string, limit int) (*RatioSummary, error) {
	return c.fetchRatio(ctx, "takerlongshortRatio", "buySellRatio", symbol, period, limit)
}

func (c *FuturesClient) fetchRatio(ctx context.Context, endpoint, field, symbol, period string, limit int) (*RatioSummary, error) {
	body, err := c.get(ctx, c.dataBaseURL, endpoint, url.Values{
		"symbol": {symbol},
		"period": {period},
		"limit":  {fmt.Sprint(limit)},
	})
	if err != nil {
		return nil, err
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: binance %s: %v", upstream.ErrMalformed, endpoint, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data from %s", upstream.ErrMalformed, endpoint)
	}

	var latest string
	if err := json.Unmarshal(rows[len(rows)-1][field], &latest); err != nil {
		return nil, fmt.Errorf("%w: binance %s missing %s: %v", upstream.ErrMalformed, endpoint, field, err)
	}
	return &RatioSummary{LatestRatio: parseF(latest)}, nil
}
