// Package market holds the off-chain market snapshot boundary: typed
// clients for the Kraken public API (spot) and the Binance futures API.
// Dynamic upstream payloads are mapped to explicit structs at the boundary
// so the aggregation layers can rely on fixed shapes.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/web3-frozen/tokenflow/internal/upstream"
)

const krakenAPI = "https://api.kraken.com/0/public"

// KrakenClient fetches spot market data from the Kraken public API.
type KrakenClient struct {
	client  *http.Client
	baseURL string
}

func NewKrakenClient() *KrakenClient {
	return &KrakenClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: krakenAPI,
	}
}

// Ticker is a 24h spot ticker snapshot.
type Ticker struct {
	LastPrice      float64 `json:"last_price"`
	OpenPrice      float64 `json:"open_price"`
	PriceChangePct float64 `json:"price_change_pct"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Volume         float64 `json:"volume"`
	VWAP           float64 `json:"vwap"`
	TradeCount     int     `json:"trade_count"`
	Ask            float64 `json:"ask"`
	Bid            float64 `json:"bid"`
	Spread         float64 `json:"spread"`
}

// BookLevel is one price level of the order book.
type BookLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// OrderBook is an order-book depth snapshot with derived imbalance stats.
type OrderBook struct {
	Asks           []BookLevel `json:"asks"`
	Bids           []BookLevel `json:"bids"`
	TotalAskVolume float64     `json:"total_ask_volume"`
	TotalBidVolume float64     `json:"total_bid_volume"`
	BidPct         float64     `json:"bid_pct"`
	AskPct         float64     `json:"ask_pct"`
	BidAskRatio    float64     `json:"bid_ask_ratio"`
}

// Trade is a single executed spot trade.
type Trade struct {
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Side      string    `json:"side"` // "buy" or "sell"
	Timestamp time.Time `json:"timestamp"`
}

// TradeStats summarizes recent trades into buy/sell skew.
type TradeStats struct {
	Trades       []Trade `json:"-"`
	BuyVolume    float64 `json:"buy_volume"`
	SellVolume   float64 `json:"sell_volume"`
	TotalVolume  float64 `json:"total_volume"`
	BuyCount     int     `json:"buy_count"`
	SellCount    int     `json:"sell_count"`
	BuySellRatio float64 `json:"buy_sell_ratio"`
	BuyPct       float64 `json:"buy_pct"`
}

// SpreadStats summarizes recent spread observations in basis points.
type SpreadStats struct {
	AvgSpreadBps     float64 `json:"avg_spread_bps"`
	CurrentSpreadBps float64 `json:"current_spread_bps"`
}

// krakenEnvelope is Kraken's uniform response wrapper: an error list plus
// a result object keyed by the resolved pair name (and sometimes "last").
type krakenEnvelope struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (c *KrakenClient) get(ctx context.Context, endpoint string, params url.Values) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build kraken request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: kraken %s: %v", upstream.ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: kraken status %d", upstream.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: kraken status %d", upstream.ErrUnavailable, resp.StatusCode)
	}

	var env krakenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode kraken %s: %v", upstream.ErrMalformed, endpoint, err)
	}
	if len(env.Error) > 0 {
		msg := strings.Join(env.Error, ", ")
		if strings.Contains(msg, "Rate limit") {
			return nil, fmt.Errorf("%w: kraken: %s", upstream.ErrRateLimited, msg)
		}
		return nil, fmt.Errorf("%w: kraken: %s", upstream.ErrUnavailable, msg)
	}
	return env.Result, nil
}

// pairResult extracts the pair-keyed payload from a Kraken result map,
// ignoring the "last" cursor entry.
func pairResult(result map[string]json.RawMessage) (json.RawMessage, error) {
	for key, raw := range result {
		if key != "last" {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: no pair data in kraken result", upstream.ErrMalformed)
}

type krakenTicker struct {
	C []string `json:"c"` // last trade [price, lot volume]
	O string   `json:"o"` // today's open
	H []string `json:"h"` // [today, last 24h] high
	L []string `json:"l"` // [today, last 24h] low
	V []string `json:"v"` // [today, last 24h] volume
	P []string `json:"p"` // [today, last 24h] vwap
	T []int    `json:"t"` // [today, last 24h] trade count
	A []string `json:"a"` // ask [price, whole lot volume, lot volume]
	B []string `json:"b"` // bid [price, whole lot volume, lot volume]
}

// FetchTicker fetches the 24h ticker for a pair (e.g. "RLSUSD").
func (c *KrakenClient) FetchTicker(ctx context.Context, pair string) (*Ticker, error) {
	result, err := c.get(ctx, "Ticker", url.Values{"pair": {pair}})
	if err != nil {
		return nil, err
	}
	raw, err := pairResult(result)
	if err != nil {
		return nil, err
	}

	var kt krakenTicker
	if err := json.Unmarshal(raw, &kt); err != nil {
		return nil, fmt.Errorf("%w: kraken ticker: %v", upstream.ErrMalformed, err)
	}
	if len(kt.C) < 1 || len(kt.H) < 2 || len(kt.L) < 2 || len(kt.V) < 2 ||
		len(kt.P) < 2 || len(kt.T) < 2 || len(kt.A) < 1 || len(kt.B) < 1 {
		return nil, fmt.Errorf("%w: kraken ticker missing fields", upstream.ErrMalformed)
	}

	t := &Ticker{
		LastPrice:  parseF(kt.C[0]),
		OpenPrice:  parseF(kt.O),
		High:       parseF(kt.H[1]),
		Low:        parseF(kt.L[1]),
		Volume:     parseF(kt.V[1]),
		VWAP:       parseF(kt.P[1]),
		TradeCount: kt.T[1],
		Ask:        parseF(kt.A[0]),
		Bid:        parseF(kt.B[0]),
	}
	if t.OpenPrice != 0 {
		t.PriceChangePct = (t.LastPrice - t.OpenPrice) / t.OpenPrice * 100
	}
	t.Spread = t.Ask - t.Bid
	return t, nil
}

// FetchOrderBook fetches order-book depth and derives imbalance stats.
func (c *KrakenClient) FetchOrderBook(ctx context.Context, pair string, count int) (*OrderBook, error) {
	result, err := c.get(ctx, "Depth", url.Values{
		"pair":  {pair},
		"count": {strconv.Itoa(count)},
	})
	if err != nil {
		return nil, err
	}
	raw, err := pairResult(result)
	if err != nil {
		return nil, err
	}

	// Depth levels arrive as [price, volume, timestamp] mixed arrays.
	var book struct {
		Asks [][]json.RawMessage `json:"asks"`
		Bids [][]json.RawMessage `json:"bids"`
	}
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("%w: kraken depth: %v", upstream.ErrMalformed, err)
	}

	ob := &OrderBook{}
	for _, lvl := range book.Asks {
		if l, ok := parseLevel(lvl); ok {
			ob.Asks = append(ob.Asks, l)
			ob.TotalAskVolume += l.Volume
		}
	}
	for _, lvl := range book.Bids {
		if l, ok := parseLevel(lvl); ok {
			ob.Bids = append(ob.Bids, l)
			ob.TotalBidVolume += l.Volume
		}
	}

	total := ob.TotalAskVolume + ob.TotalBidVolume
	if total > 0 {
		ob.BidPct = ob.TotalBidVolume / total * 100
		ob.AskPct = ob.TotalAskVolume / total * 100
	} else {
		ob.BidPct, ob.AskPct = 50, 50
	}
	if ob.TotalAskVolume > 0 {
		ob.BidAskRatio = ob.TotalBidVolume / ob.TotalAskVolume
	}
	return ob, nil
}

// FetchRecentTrades fetches recent trades and computes the buy/sell skew.
func (c *KrakenClient) FetchRecentTrades(ctx context.Context, pair string) (*TradeStats, error) {
	result, err := c.get(ctx, "Trades", url.Values{"pair": {pair}})
	if err != nil {
		return nil, err
	}
	raw, err := pairResult(result)
	if err != nil {
		return nil, err
	}

	// Trades arrive as [price, volume, time, side, orderType, misc, id].
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: kraken trades: %v", upstream.ErrMalformed, err)
	}

	stats := &TradeStats{}
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		var price, volume string
		var ts float64
		var side string
		if json.Unmarshal(row[0], &price) != nil ||
			json.Unmarshal(row[1], &volume) != nil ||
			json.Unmarshal(row[2], &ts) != nil ||
			json.Unmarshal(row[3], &side) != nil {
			continue
		}
		tr := Trade{
			Price:     parseF(price),
			Volume:    parseF(volume),
			Timestamp: time.Unix(int64(ts), 0).UTC(),
		}
		if side == "b" {
			tr.Side = "buy"
			stats.BuyVolume += tr.Volume
			stats.BuyCount++
		} else {
			tr.Side = "sell"
			stats.SellVolume += tr.Volume
			stats.SellCount++
		}
		stats.Trades = append(stats.Trades, tr)
	}

	if len(stats.Trades) == 0 {
		return nil, fmt.Errorf("%w: no trade data", upstream.ErrMalformed)
	}

	stats.TotalVolume = stats.BuyVolume + stats.SellVolume
	if stats.SellVolume > 0 {
		stats.BuySellRatio = stats.BuyVolume / stats.SellVolume
	}
	if stats.TotalVolume > 0 {
		stats.BuyPct = stats.BuyVolume / stats.TotalVolume * 100
	} else {
		stats.BuyPct = 50
	}
	return stats, nil
}

// FetchSpread fetches recent spread observations and averages them in
// basis points of the mid price.
func (c *KrakenClient) FetchSpread(ctx context.Context, pair string) (*SpreadStats, error) {
	result, err := c.get(ctx, "Spread", url.Values{"pair": {pair}})
	if err != nil {
		return nil, err
	}
	raw, err := pairResult(result)
	if err != nil {
		return nil, err
	}

	// Spread rows arrive as [time, bid, ask].
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: kraken spread: %v", upstream.ErrMalformed, err)
	}

	var sum, last float64
	var n int
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		var bid, ask string
		if json.Unmarshal(row[1], &bid) != nil || json.Unmarshal(row[2], &ask) != nil {
			continue
		}
		b, a := parseF(bid), parseF(ask)
		mid := (b + a) / 2
		if mid == 0 {
			continue
		}
		bps := (a - b) / mid * 10000
		sum += bps
		last = bps
		n++
	}

	if n == 0 {
		return &SpreadStats{}, nil
	}
	return &SpreadStats{
		AvgSpreadBps:     sum / float64(n),
		CurrentSpreadBps: last,
	}, nil
}

func parseF(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseLevel(lvl []json.RawMessage) (BookLevel, bool) {
	if len(lvl) < 2 {
		return BookLevel{}, false
	}
	var price, volume string
	if json.Unmarshal(lvl[0], &price) != nil || json.Unmarshal(lvl[1], &volume) != nil {
		return BookLevel{}, false
	}
	return BookLevel{Price: parseF(price), Volume: parseF(volume)}, true
}
