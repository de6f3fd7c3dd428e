package signal

import (
	"math"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestComputeEmptyFactors(t *testing.T) {
	got := Compute(nil)
	if got.Signal != "Neutral" {
		t.Errorf("signal = %q, want Neutral", got.Signal)
	}
	if got.Score != 0.0 {
		t.Errorf("score = %v, want 0.0", got.Score)
	}
}

func TestComputeAllNeutralObservations(t *testing.T) {
	obs := DerivativesObservations{
		FundingRate:    fptr(0.0),
		LongShortRatio: fptr(1.0),
		TakerRatio:     fptr(1.0),
		OIChangePct:    fptr(0.0),
		MomentumPct:    fptr(0.0),
	}
	got := Compute(DerivativesFactors(obs))
	if got.Score != 0.0 {
		t.Errorf("score = %v, want 0.0", got.Score)
	}
	if got.Signal != "Neutral" {
		t.Errorf("signal = %q, want Neutral", got.Signal)
	}
	if len(got.Factors) != 5 {
		t.Errorf("got %d factors, want 5", len(got.Factors))
	}
}

func TestComputeBoundedWithOneFactor(t *testing.T) {
	// A single saturated factor must land at exactly +1, not weight*1.
	obs := DerivativesObservations{MomentumPct: fptr(100.0)}
	got := Compute(DerivativesFactors(obs))
	if got.Score != 1.0 {
		t.Errorf("score = %v, want 1.0 (weights renormalize over present factors)", got.Score)
	}
	if got.Signal != "Bullish" {
		t.Errorf("signal = %q, want Bullish", got.Signal)
	}
}

func TestComputeBoundedWithAllFactors(t *testing.T) {
	obs := DerivativesObservations{
		FundingRate:    fptr(0.01),   // saturates at +1
		LongShortRatio: fptr(10.0),   // saturates at +1
		TakerRatio:     fptr(10.0),   // saturates at +1
		OIChangePct:    fptr(5.0),    // saturates at +1
		MomentumPct:    fptr(100.0),  // saturates at +1
	}
	got := Compute(DerivativesFactors(obs))
	if got.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", got.Score)
	}

	obs = DerivativesObservations{
		FundingRate:    fptr(-0.01),
		LongShortRatio: fptr(0.01),
		TakerRatio:     fptr(0.01),
		OIChangePct:    fptr(-5.0),
		MomentumPct:    fptr(-100.0),
	}
	got = Compute(DerivativesFactors(obs))
	if got.Score != -1.0 {
		t.Errorf("score = %v, want -1.0", got.Score)
	}
	if got.Signal != "Bearish" {
		t.Errorf("signal = %q, want Bearish", got.Signal)
	}
}

func TestComputeMixedFactorsStayInRange(t *testing.T) {
	cases := []DerivativesObservations{
		{FundingRate: fptr(0.0005)},
		{FundingRate: fptr(0.0005), MomentumPct: fptr(-3.0)},
		{LongShortRatio: fptr(1.3), TakerRatio: fptr(0.8), MomentumPct: fptr(2.0)},
	}
	for i, obs := range cases {
		got := Compute(DerivativesFactors(obs))
		if got.Score < -1 || got.Score > 1 {
			t.Errorf("case %d: score %v outside [-1, 1]", i, got.Score)
		}
	}
}

func TestOverallLabelThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.0, "Neutral"},
		{0.15, "Neutral"},
		{0.151, "Bullish"},
		{-0.15, "Neutral"},
		{-0.151, "Bearish"},
		{1.0, "Bullish"},
		{-1.0, "Bearish"},
	}
	for _, tt := range tests {
		if got := overallLabel(tt.score); got != tt.want {
			t.Errorf("overallLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFundingRateNeutralZone(t *testing.T) {
	// Inside the dead zone the funding factor scores exactly zero.
	for _, rate := range []float64{0.00005, -0.00005, 0.0001, -0.0001, 0.0} {
		factors := DerivativesFactors(DerivativesObservations{FundingRate: fptr(rate)})
		if len(factors) != 1 {
			t.Fatalf("got %d factors, want 1", len(factors))
		}
		if factors[0].Score != 0.0 {
			t.Errorf("funding score for %v = %v, want 0", rate, factors[0].Score)
		}
	}

	factors := DerivativesFactors(DerivativesObservations{FundingRate: fptr(0.0005)})
	if factors[0].Score != 0.5 {
		t.Errorf("funding score for 0.0005 = %v, want 0.5", factors[0].Score)
	}
}

func TestDerivativesFactorWeights(t *testing.T) {
	obs := DerivativesObservations{
		FundingRate:    fptr(0.0002),
		LongShortRatio: fptr(1.2),
		TakerRatio:     fptr(1.1),
		OIChangePct:    fptr(0.1),
		MomentumPct:    fptr(5.0),
	}
	factors := DerivativesFactors(obs)
	want := map[string]float64{
		"Funding Rate":         0.20,
		"Long/Short Ratio":     0.25,
		"Taker Buy/Sell":       0.25,
		"OI Trend":             0.15,
		"Price Momentum (24h)": 0.15,
	}
	if len(factors) != len(want) {
		t.Fatalf("got %d factors, want %d", len(factors), len(want))
	}
	for _, f := range factors {
		if w, ok := want[f.Name]; !ok || f.Weight != w {
			t.Errorf("factor %q weight = %v, want %v", f.Name, f.Weight, w)
		}
	}
}

func TestSpotFactorsPartialInput(t *testing.T) {
	// Only two of four observations present: both contribute, weights
	// renormalize, score stays in range.
	obs := SpotObservations{
		TradeRatio:  fptr(1.5), // score +1 at weight 0.30
		BidAskRatio: fptr(2.0), // score +1 at weight 0.25
	}
	got := Compute(SpotFactors(obs))
	if len(got.Factors) != 2 {
		t.Fatalf("got %d factors, want 2", len(got.Factors))
	}
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1.0", got.Score)
	}
}

func TestSpreadHealthScore(t *testing.T) {
	tests := []struct {
		bps  float64
		want float64
	}{
		{0, 1.0},
		{20, 1.0},
		{40, 0.5},
		{60, 0.0},
		{80, -0.5},
		{100, -1.0},
		{500, -1.0},
	}
	for _, tt := range tests {
		got := spreadHealthScore(tt.bps)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("spreadHealthScore(%v) = %v, want %v", tt.bps, got, tt.want)
		}
	}
}

func TestRatioScoreClamping(t *testing.T) {
	tests := []struct {
		ratio, divisor, want float64
	}{
		{1.0, 0.5, 0},
		{1.25, 0.5, 0.5},
		{1.5, 0.5, 1},
		{3.0, 0.5, 1},
		{0.5, 0.5, -1},
		{0.0, 0.5, -1},
	}
	for _, tt := range tests {
		got := ratioScore(tt.ratio, tt.divisor)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ratioScore(%v, %v) = %v, want %v", tt.ratio, tt.divisor, got, tt.want)
		}
	}
}
