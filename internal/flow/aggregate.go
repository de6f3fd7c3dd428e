// Package flow turns raw transfer events into holder and flow aggregates:
// daily activity rollups, large-transfer subsets, whale accumulation
// indicators, and exchange inflow/outflow analysis. All aggregates are
// recomputed from the full event batch on every call; nothing is updated
// incrementally.
package flow

import (
	"math"
	"sort"

	"github.com/web3-frozen/tokenflow/internal/ledger"
)

const (
	// largeTransferPercentile marks a transfer as "large" when it is at
	// or above this percentile of the batch. The threshold is
	// sample-relative, recomputed per batch: it is not comparable
	// across different windows or tokens.
	largeTransferPercentile = 95

	maxLargeTransfers = 50
)

// DailyActivity is the rollup for one UTC calendar day.
type DailyActivity struct {
	Date            string  `json:"date"`
	TransferCount   int     `json:"transfer_count"`
	UniqueAddresses int     `json:"unique_addresses"`
	TotalVolume     float64 `json:"total_volume"`
	AvgTransferSize float64 `json:"avg_transfer_size"`
}

// Summary aggregates the whole window.
type Summary struct {
	TotalTransfers       int     `json:"total_transfers"`
	TotalUniqueAddresses int     `json:"total_unique_addresses"`
	TotalVolume          float64 `json:"total_volume"`
	AvgDailyTransfers    float64 `json:"avg_daily_transfers"`
}

// Activity is the full transfer-activity aggregate for one token window.
type Activity struct {
	Daily          []DailyActivity        `json:"daily_stats"`
	LargeTransfers []ledger.TransferEvent `json:"large_transfers"`
	Summary        Summary                `json:"summary"`
}

type dayBucket struct {
	count     int
	volume    float64
	addresses map[string]struct{}
}

// Aggregate buckets transfer events by UTC calendar day and extracts the
// large-transfer subset (>= 95th percentile of the batch, capped at 50).
// An empty batch yields a fully-formed zero-valued Activity.
func Aggregate(events []ledger.TransferEvent) Activity {
	if len(events) == 0 {
		return Activity{}
	}

	buckets := make(map[string]*dayBucket)
	all := make(map[string]struct{})
	amounts := make([]float64, 0, len(events))
	var totalVolume float64

	for _, ev := range events {
		day := ev.Time().Format("2006-01-02")
		b := buckets[day]
		if b == nil {
			b = &dayBucket{addresses: make(map[string]struct{})}
			buckets[day] = b
		}
		b.count++
		b.volume += ev.Amount
		b.addresses[ev.From] = struct{}{}
		b.addresses[ev.To] = struct{}{}
		all[ev.From] = struct{}{}
		all[ev.To] = struct{}{}
		totalVolume += ev.Amount
		amounts = append(amounts, ev.Amount)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	daily := make([]DailyActivity, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		avg := 0.0
		if b.count > 0 {
			avg = b.volume / float64(b.count)
		}
		daily = append(daily, DailyActivity{
			Date:            day,
			TransferCount:   b.count,
			UniqueAddresses: len(b.addresses),
			TotalVolume:     b.volume,
			AvgTransferSize: avg,
		})
	}

	threshold := percentile(amounts, largeTransferPercentile)
	var large []ledger.TransferEvent
	for _, ev := range events {
		if ev.Amount >= threshold {
			large = append(large, ev)
		}
	}
	sort.SliceStable(large, func(i, j int) bool {
		return large[i].Amount > large[j].Amount
	})
	if len(large) > maxLargeTransfers {
		large = large[:maxLargeTransfers]
	}

	return Activity{
		Daily:          daily,
		LargeTransfers: large,
		Summary: Summary{
			TotalTransfers:       len(events),
			TotalUniqueAddresses: len(all),
			TotalVolume:          totalVolume,
			AvgDailyTransfers:    float64(len(events)) / float64(len(days)),
		},
	}
}

// percentile computes the p-th percentile using linear interpolation
// between closest ranks, matching numpy's default method.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
