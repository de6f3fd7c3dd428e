package signal

import "fmt"

// Factor weights and normalization divisors. The divisors define how big
// an observation saturates its bounded score.
const (
	fundingWeight   = 0.20
	longShortWeight = 0.25
	takerWeight     = 0.25
	oiTrendWeight   = 0.15
	momentumWeight  = 0.15

	spotMomentumWeight  = 0.25
	tradeRatioWeight    = 0.30
	bookImbalanceWeight = 0.25
	spreadHealthWeight  = 0.20

	fundingNeutralZone = 0.0001
	fundingDivisor     = 0.001
	longShortDivisor   = 0.5
	takerDivisor       = 0.3
	oiTrendDivisor     = 0.3
	momentumDivisor    = 10.0
	tradeRatioDivisor  = 0.5
	bookDivisor        = 1.0
)

// DerivativesObservations carries the raw inputs for the futures-market
// signal. A nil field means the observation could not be fetched and its
// factor is omitted.
type DerivativesObservations struct {
	FundingRate    *float64 // latest funding rate (e.g. 0.0001 = 0.01%)
	LongShortRatio *float64 // top-trader long/short position ratio
	TakerRatio     *float64 // taker buy/sell volume ratio
	OIChangePct    *float64 // open-interest change over the window, as a fraction
	MomentumPct    *float64 // 24h price change, percent
}

// DerivativesFactors builds the weighted factor list for the futures
// signal: funding rate, long/short positioning, taker flow, open-interest
// trend, and price momentum.
func DerivativesFactors(obs DerivativesObservations) []Factor {
	var factors []Factor

	if obs.FundingRate != nil {
		rate := *obs.FundingRate
		score := 0.0
		if rate > fundingNeutralZone || rate < -fundingNeutralZone {
			score = clamp(rate / fundingDivisor)
		}
		factors = append(factors, newFactor("Funding Rate",
			fmt.Sprintf("%.6f", rate), score, fundingWeight))
	}

	if obs.LongShortRatio != nil {
		score := ratioScore(*obs.LongShortRatio, longShortDivisor)
		factors = append(factors, newFactor("Long/Short Ratio",
			fmtRatio(*obs.LongShortRatio), score, longShortWeight))
	}

	if obs.TakerRatio != nil {
		score := ratioScore(*obs.TakerRatio, takerDivisor)
		factors = append(factors, newFactor("Taker Buy/Sell",
			fmtRatio(*obs.TakerRatio), score, takerWeight))
	}

	if obs.OIChangePct != nil {
		score := pctScore(*obs.OIChangePct, oiTrendDivisor)
		factors = append(factors, newFactor("OI Trend",
			fmt.Sprintf("%.1f%%", *obs.OIChangePct*100), score, oiTrendWeight))
	}

	if obs.MomentumPct != nil {
		score := pctScore(*obs.MomentumPct, momentumDivisor)
		factors = append(factors, newFactor("Price Momentum (24h)",
			fmt.Sprintf("%+.2f%%", *obs.MomentumPct), score, momentumWeight))
	}

	return factors
}

// SpotObservations carries the raw inputs for the spot-market signal.
// A nil field omits the factor.
type SpotObservations struct {
	MomentumPct  *float64 // 24h price change, percent
	TradeRatio   *float64 // buy/sell volume ratio from recent trades
	BidAskRatio  *float64 // order-book bid/ask volume ratio
	AvgSpreadBps *float64 // average spread in basis points
}

// SpotFactors builds the weighted factor list for the spot signal:
// momentum, trade skew, book imbalance, and spread health.
func SpotFactors(obs SpotObservations) []Factor {
	var factors []Factor

	if obs.MomentumPct != nil {
		score := pctScore(*obs.MomentumPct, momentumDivisor)
		factors = append(factors, newFactor("Price Momentum (24h)",
			fmt.Sprintf("%+.2f%%", *obs.MomentumPct), score, spotMomentumWeight))
	}

	if obs.TradeRatio != nil {
		score := ratioScore(*obs.TradeRatio, tradeRatioDivisor)
		factors = append(factors, newFactor("Buy/Sell Volume Ratio",
			fmtRatio(*obs.TradeRatio), score, tradeRatioWeight))
	}

	if obs.BidAskRatio != nil {
		score := ratioScore(*obs.BidAskRatio, bookDivisor)
		factors = append(factors, newFactor("Order Book Imbalance",
			fmtRatio(*obs.BidAskRatio), score, bookImbalanceWeight))
	}

	if obs.AvgSpreadBps != nil {
		score := spreadHealthScore(*obs.AvgSpreadBps)
		factors = append(factors, newFactor("Spread Health",
			fmt.Sprintf("%.1f bps avg", *obs.AvgSpreadBps), score, spreadHealthWeight))
	}

	return factors
}

// spreadHealthScore rewards tight spreads: <=20bps is fully healthy,
// >=100bps fully unhealthy, linear in between.
func spreadHealthScore(avgBps float64) float64 {
	switch {
	case avgBps <= 20:
		return 1.0
	case avgBps >= 100:
		return -1.0
	default:
		return clamp(1.0 - (avgBps-20)/40)
	}
}
