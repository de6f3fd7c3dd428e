// Package signal reduces heterogeneous market observations into a single
// directional signal. One weighted scorer serves both the derivatives and
// the spot factor sets; a factor absent from the input simply does not
// contribute and the remaining weights are renormalized.
package signal

import "fmt"

const (
	// overallThreshold separates Bullish/Bearish from Neutral on the
	// combined score. Empirically chosen; preserved as-is.
	overallThreshold = 0.15

	// factorThreshold is the per-factor label cutoff.
	factorThreshold = 0.1
)

// Factor is one scored market observation.
type Factor struct {
	Name   string  `json:"factor"`
	Value  string  `json:"value"`
	Signal string  `json:"signal"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"`
}

// Overall is the combined directional signal.
type Overall struct {
	Signal  string   `json:"overall_signal"`
	Score   float64  `json:"signal_score"`
	Factors []Factor `json:"factors"`
}

// Compute sums score*weight over the present factors and divides by the
// sum of their weights, so a 2-factor and a 5-factor evaluation both span
// the full [-1, +1] range. Zero factors yield a Neutral signal at 0.0.
func Compute(factors []Factor) Overall {
	var totalScore, totalWeight float64
	for _, f := range factors {
		totalScore += f.Score * f.Weight
		totalWeight += f.Weight
	}

	score := 0.0
	if totalWeight > 0 {
		score = clamp(totalScore / totalWeight)
	}

	return Overall{
		Signal:  overallLabel(score),
		Score:   score,
		Factors: factors,
	}
}

func overallLabel(score float64) string {
	switch {
	case score > overallThreshold:
		return "Bullish"
	case score < -overallThreshold:
		return "Bearish"
	default:
		return "Neutral"
	}
}

func factorLabel(score float64) string {
	switch {
	case score > factorThreshold:
		return "Bullish"
	case score < -factorThreshold:
		return "Bearish"
	default:
		return "Neutral"
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// ratioScore maps a ratio centered on 1.0 into [-1, +1]; divisor controls
// how far from parity saturates the score.
func ratioScore(ratio, divisor float64) float64 {
	return clamp((ratio - 1.0) / divisor)
}

// pctScore maps a percentage-style observation into [-1, +1].
func pctScore(pct, divisor float64) float64 {
	return clamp(pct / divisor)
}

func newFactor(name, value string, score, weight float64) Factor {
	return Factor{
		Name:   name,
		Value:  value,
		Signal: factorLabel(score),
		Weight: weight,
		Score:  score,
	}
}

func fmtRatio(r float64) string { return fmt.Sprintf("%.4f", r) }
