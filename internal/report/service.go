// Package report composes the ledger, flow, market, and signal layers
// into cached analytics reports. Every report goes through the cache; a
// fresh entry is served without touching the upstreams.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/web3-frozen/tokenflow/internal/cache"
	"github.com/web3-frozen/tokenflow/internal/flow"
	"github.com/web3-frozen/tokenflow/internal/ledger"
	"github.com/web3-frozen/tokenflow/internal/market"
	"github.com/web3-frozen/tokenflow/internal/metrics"
	"github.com/web3-frozen/tokenflow/internal/signal"
	"github.com/web3-frozen/tokenflow/internal/token"
)

// Cache data types. The cache key pairs one of these with a token slug
// or market symbol.
const (
	dataTypeActivity      = "token_activity"
	dataTypeWhales        = "whale_flows"
	dataTypeExchangeFlows = "exchange_flows"
	dataTypeSpotSignal    = "spot_signal"
	dataTypeDerivSignal   = "derivatives_signal"
)

// Lookback windows per report.
const (
	activityWindow = 30 * 24 * time.Hour
	whaleWindow    = 7 * 24 * time.Hour
	flowWindow     = 7 * 24 * time.Hour

	activityMaxPages = 10
	whaleMaxPages    = 5
)

var (
	// ErrUnknownToken is returned for a slug missing from the registry.
	ErrUnknownToken = errors.New("unknown token")
	// ErrNotTracked is returned when the token has no identifier on the
	// upstream a report needs.
	ErrNotTracked = errors.New("token not tracked on this upstream")
)

// LedgerFetcher fetches on-chain transfer events.
type LedgerFetcher interface {
	FetchTransfers(ctx context.Context, contract, chain string, start, end time.Time, maxPages int) ([]ledger.TransferEvent, error)
}

// SpotFetcher fetches spot market data for a pair.
type SpotFetcher interface {
	FetchTicker(ctx context.Context, pair string) (*market.Ticker, error)
	FetchOrderBook(ctx context.Context, pair string, count int) (*market.OrderBook, error)
	FetchRecentTrades(ctx context.Context, pair string) (*market.TradeStats, error)
	FetchSpread(ctx context.Context, pair string) (*market.SpreadStats, error)
}

// DerivativesFetcher fetches futures market data for a symbol.
type DerivativesFetcher interface {
	FetchTicker(ctx context.Context, symbol string) (*market.FuturesTicker, error)
	FetchFundingRate(ctx context.Context, symbol string, limit int) (*market.FundingSummary, error)
	FetchOpenInterestHistory(ctx context.Context, symbol, period string, limit int) ([]market.OpenInterestPoint, error)
	FetchLongShortRatio(ctx context.Context, symbol, period string, limit int) (*market.RatioSummary, error)
	FetchTakerRatio(ctx context.Context, symbol, period string, limit int) (*market.RatioSummary, error)
}

// Snapshot is a report payload together with its cache provenance.
type Snapshot struct {
	Data      json.RawMessage `json:"data"`
	Cached    bool            `json:"cached"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Service produces cached analytics reports for registered tokens.
type Service struct {
	ledger  LedgerFetcher
	spot    SpotFetcher
	deriv   DerivativesFetcher
	cache   *cache.Cache
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewService(lf LedgerFetcher, sf SpotFetcher, df DerivativesFetcher, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		ledger:  lf,
		spot:    sf,
		deriv:   df,
		cache:   c,
		logger:  logger,
		nowFunc: time.Now,
	}
}

func (s *Service) snapshot(ctx context.Context, key cache.Key, fetch cache.FetchFunc) (*Snapshot, error) {
	res, err := s.cache.GetOrFetch(ctx, key, s.observed(key.DataType, fetch))
	if err != nil {
		return nil, err
	}
	return &Snapshot{Data: res.Payload, Cached: res.Hit, FetchedAt: res.FetchedAt}, nil
}

// observed wraps a fetch with upstream metrics.
func (s *Service) observed(dataType string, fetch cache.FetchFunc) cache.FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		start := time.Now()
		payload, err := fetch(ctx)
		metrics.FetchDuration.WithLabelValues(dataType).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.FetchTotal.WithLabelValues(dataType, "error").Inc()
			return nil, err
		}
		metrics.FetchTotal.WithLabelValues(dataType, "success").Inc()
		metrics.FetchLastSuccess.WithLabelValues(dataType).SetToCurrentTime()
		return payload, nil
	}
}

func (s *Service) ledgerToken(slug string) (token.Token, error) {
	tok, ok := token.Lookup(slug)
	if !ok {
		return token.Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, slug)
	}
	if !tok.HasLedger() {
		return token.Token{}, fmt.Errorf("%w: %s has no contract", ErrNotTracked, slug)
	}
	return tok, nil
}

// TokenActivityReport is the payload cached under token_activity.
type TokenActivityReport struct {
	Token      token.Token   `json:"token"`
	WindowDays int           `json:"window_days"`
	Activity   flow.Activity `json:"activity"`
}

// TokenActivity aggregates 30 days of transfers for a token.
func (s *Service) TokenActivity(ctx context.Context, slug string) (*Snapshot, error) {
	tok, err := s.ledgerToken(slug)
	if err != nil {
		return nil, err
	}

	key := cache.Key{DataType: dataTypeActivity, Entity: slug}
	return s.snapshot(ctx, key, func(ctx context.Context) ([]byte, error) {
		end := s.nowFunc()
		events, err := s.ledger.FetchTransfers(ctx, tok.Contract, tok.Chain, end.Add(-activityWindow), end, activityMaxPages)
		if err != nil {
			return nil, err
		}
		return json.Marshal(TokenActivityReport{
			Token:      tok,
			WindowDays: int(activityWindow.Hours() / 24),
			Activity:   flow.Aggregate(events),
		})
	})
}

// WhaleReport is the payload cached under whale_flows.
type WhaleReport struct {
	Token      token.Token                `json:"token"`
	WindowDays int                        `json:"window_days"`
	Whales     flow.AccumulationIndicator `json:"whales"`
}

// Whales classifies the top holders over a 7 day window.
func (s *Service) Whales(ctx context.Context, slug string) (*Snapshot, error) {
	tok, err := s.ledgerToken(slug)
	if err != nil {
		return nil, err
	}

	key := cache.Key{DataType: dataTypeWhales, Entity: slug}
	return s.snapshot(ctx, key, func(ctx context.Context) ([]byte, error) {
		end := s.nowFunc()
		events, err := s.ledger.FetchTransfers(ctx, tok.Contract, tok.Chain, end.Add(-whaleWindow), end, whaleMaxPages)
		if err != nil {
			return nil, err
		}
		return json.Marshal(WhaleReport{
			Token:      tok,
			WindowDays: int(whaleWindow.Hours() / 24),
			Whales:     flow.ClassifyWhales(events),
		})
	})
}

// ExchangeFlowsReport is the payload cached under exchange_flows.
type ExchangeFlowsReport struct {
	Token      token.Token             `json:"token"`
	WindowDays int                     `json:"window_days"`
	Flows      flow.ExchangeFlowReport `json:"flows"`
}

// ExchangeFlows nets transfers against known exchange hot wallets over a
// 7 day window.
func (s *Service) ExchangeFlows(ctx context.Context, slug string) (*Snapshot, error) {
	tok, err := s.ledgerToken(slug)
	if err != nil {
		return nil, err
	}

	key := cache.Key{DataType: dataTypeExchangeFlows, Entity: slug}
	return s.snapshot(ctx, key, func(ctx context.Context) ([]byte, error) {
		end := s.nowFunc()
		events, err := s.ledger.FetchTransfers(ctx, tok.Contract, tok.Chain, end.Add(-flowWindow), end, whaleMaxPages)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ExchangeFlowsReport{
			Token:      tok,
			WindowDays: int(flowWindow.Hours() / 24),
			Flows:      flow.AnalyzeExchangeFlows(events, flow.KnownExchanges()),
		})
	})
}

// SpotSignalReport is the payload cached under spot_signal.
type SpotSignalReport struct {
	Pair   string         `json:"pair"`
	Signal signal.Overall `json:"signal"`
}

// SpotSignal computes the weighted spot market signal for a Kraken pair.
// Individual upstream calls may fail; the score is computed from the
// factors that remain. All of them failing is an error.
func (s *Service) SpotSignal(ctx context.Context, pair string) (*Snapshot, error) {
	key := cache.Key{DataType: dataTypeSpotSignal, Entity: pair}
	return s.snapshot(ctx, key, func(ctx context.Context) ([]byte, error) {
		var obs signal.SpotObservations
		var got int

		if ticker, err := s.spot.FetchTicker(ctx, pair); err != nil {
			s.logger.Warn("spot ticker fetch failed", "pair", pair, "error", err)
		} else {
			obs.MomentumPct = &ticker.PriceChangePct
			got++
		}
		if book, err := s.spot.FetchOrderBook(ctx, pair, 25); err != nil {
			s.logger.Warn("order book fetch failed", "pair", pair, "error", err)
		} else {
			obs.BidAskRatio = &book.BidAskRatio
			got++
		}
		if trades, err := s.spot.FetchRecentTrades(ctx, pair); err != nil {
			s.logger.Warn("recent trades fetch failed", "pair", pair, "error", err)
		} else {
			obs.TradeRatio = &trades.BuySellRatio
			got++
		}
		if spread, err := s.spot.FetchSpread(ctx, pair); err != nil {
			s.logger.Warn("spread fetch failed", "pair", pair, "error", err)
		} else {
			obs.AvgSpreadBps = &spread.AvgSpreadBps
			got++
		}

		if got == 0 {
			return nil, fmt.Errorf("no spot market data for %s", pair)
		}
		return json.Marshal(SpotSignalReport{
			Pair:   pair,
			Signal: signal.Compute(signal.SpotFactors(obs)),
		})
	})
}

// DerivativesSignalReport is the payload cached under derivatives_signal.
type DerivativesSignalReport struct {
	Symbol string         `json:"symbol"`
	Signal signal.Overall `json:"signal"`
}

// DerivativesSignal computes the weighted futures market signal for a
// Binance symbol.
func (s *Service) DerivativesSignal(ctx context.Context, symbol string) (*Snapshot, error) {
	key := cache.Key{DataType: dataTypeDerivSignal, Entity: symbol}
	return s.snapshot(ctx, key, func(ctx context.Context) ([]byte, error) {
		var obs signal.DerivativesObservations
		var got int

		if funding, err := s.deriv.FetchFundingRate(ctx, symbol, 30); err != nil {
			s.logger.Warn("funding rate fetch failed", "symbol", symbol, "error", err)
		} else {
			obs.FundingRate = &funding.CurrentRate
			got++
		}
		if ratio, err := s.deriv.FetchLongShortRatio(ctx, symbol, "1h", 30); err != nil {
			s.logger.Warn("long/short ratio fetch failed", "symbol", symbol, "error", err)
		} else {
			obs.LongShortRatio = &ratio.LatestRatio
			got++
		}
		if ratio, err := s.deriv.FetchTakerRatio(ctx, symbol, "1h", 30); err != nil {
			s.logger.Warn("taker ratio fetch failed", "symbol", symbol, "error", err)
		} else {
			obs.TakerRatio = &ratio.LatestRatio
			got++
		}
		if points, err := s.deriv.FetchOpenInterestHistory(ctx, symbol, "1h", 48); err != nil {
			s.logger.Warn("open interest fetch failed", "symbol", symbol, "error", err)
		} else if change, ok := market.OIChangePct(points); ok {
			obs.OIChangePct = &change
			got++
		}
		if ticker, err := s.deriv.FetchTicker(ctx, symbol); err != nil {
			s.logger.Warn("futures ticker fetch failed", "symbol", symbol, "error", err)
		} else {
			obs.MomentumPct = &ticker.PriceChangePct
			got++
		}

		if got == 0 {
			return nil, fmt.Errorf("no derivatives market data for %s", symbol)
		}
		return json.Marshal(DerivativesSignalReport{
			Symbol: symbol,
			Signal: signal.Compute(signal.DerivativesFactors(obs)),
		})
	})
}

// RefreshLoop warms the cache for every registered token until ctx is
// canceled. Tokens refresh concurrently; a failed refresh is logged and
// retried on the next tick.
func (s *Service) RefreshLoop(ctx context.Context, interval time.Duration) {
	s.refreshAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *Service) refreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, tok := range token.All() {
		wg.Add(1)
		go func(tok token.Token) {
			defer wg.Done()
			s.refreshToken(ctx, tok)
		}(tok)
	}
	wg.Wait()
}

func (s *Service) refreshToken(ctx context.Context, tok token.Token) {
	if tok.HasLedger() {
		if _, err := s.TokenActivity(ctx, tok.Slug); err != nil {
			s.logger.Warn("activity refresh failed", "token", tok.Slug, "error", err)
		}
		if _, err := s.Whales(ctx, tok.Slug); err != nil {
			s.logger.Warn("whale refresh failed", "token", tok.Slug, "error", err)
		}
		if _, err := s.ExchangeFlows(ctx, tok.Slug); err != nil {
			s.logger.Warn("exchange flow refresh failed", "token", tok.Slug, "error", err)
		}
	}
	if tok.KrakenPair != "" {
		if _, err := s.SpotSignal(ctx, tok.KrakenPair); err != nil {
			s.logger.Warn("spot signal refresh failed", "token", tok.Slug, "error", err)
		}
	}
	if tok.FuturesSymbol != "" {
		if _, err := s.DerivativesSignal(ctx, tok.FuturesSymbol); err != nil {
			s.logger.Warn("derivatives signal refresh failed", "token", tok.Slug, "error", err)
		}
	}
}
