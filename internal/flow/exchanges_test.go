package flow

import (
	"testing"
	"time"

	"github.com/web3-frozen/tokenflow/internal/ledger"
)

const (
	binanceWallet  = "0x28c6c06298d514db089934071355e5743bf21d60"
	coinbaseWallet = "0x71660c4005ba85c37ccec55d0c4493e66fe775d3"
)

func TestKnownExchangesLowercaseKeys(t *testing.T) {
	reg := KnownExchanges()
	if len(reg) != 8 {
		t.Errorf("registry size = %d, want 8", len(reg))
	}
	if reg[binanceWallet] != "Binance" {
		t.Errorf("binance wallet maps to %q", reg[binanceWallet])
	}
	for addr := range reg {
		for _, c := range addr {
			if c >= 'A' && c <= 'Z' {
				t.Errorf("registry key %q not lowercase", addr)
			}
		}
	}
}

func TestAnalyzeExchangeFlowsMatching(t *testing.T) {
	reg := KnownExchanges()
	events := []ledger.TransferEvent{
		// 100 into Binance (inflow), 40 out of Binance (outflow).
		ev("0x1", "0xholder", binanceWallet, 100, day0),
		ev("0x2", binanceWallet, "0xholder", 40, day0),
		// 25 out of Coinbase.
		ev("0x3", coinbaseWallet, "0xother", 25, day0),
		// Unregistered counterparties contribute nothing.
		ev("0x4", "0xnobody", "0xnoone", 9999, day0),
	}
	got := AnalyzeExchangeFlows(events, reg)

	if len(got.Exchanges) != 2 {
		t.Fatalf("got %d exchanges, want 2", len(got.Exchanges))
	}
	// Sorted by name: Binance, Coinbase.
	b := got.Exchanges[0]
	if b.Exchange != "Binance" || b.Inflow != 100 || b.Outflow != 40 || b.NetFlow != -60 {
		t.Errorf("binance flow = %+v, want in=100 out=40 net=-60", b)
	}
	cb := got.Exchanges[1]
	if cb.Exchange != "Coinbase" || cb.Inflow != 0 || cb.Outflow != 25 {
		t.Errorf("coinbase flow = %+v, want in=0 out=25", cb)
	}

	if got.TotalInflow != 100 || got.TotalOutflow != 65 {
		t.Errorf("totals = in %v / out %v, want 100/65", got.TotalInflow, got.TotalOutflow)
	}
	if got.NetFlow != -35 || got.Signal != "Bearish" {
		t.Errorf("net = %v signal = %q, want -35 Bearish", got.NetFlow, got.Signal)
	}
}

func TestAnalyzeExchangeFlowsSignals(t *testing.T) {
	reg := ExchangeRegistry{"0xex": "TestEx"}
	tests := []struct {
		name   string
		events []ledger.TransferEvent
		want   string
	}{
		{"outflow dominates", []ledger.TransferEvent{ev("0x1", "0xex", "0xa", 100, day0)}, "Bullish"},
		{"inflow dominates", []ledger.TransferEvent{ev("0x1", "0xa", "0xex", 100, day0)}, "Bearish"},
		{"balanced", []ledger.TransferEvent{
			ev("0x1", "0xa", "0xex", 100, day0),
			ev("0x2", "0xex", "0xa", 100, day0),
		}, "Neutral"},
		{"no matches", []ledger.TransferEvent{ev("0x1", "0xa", "0xb", 100, day0)}, "Neutral"},
	}
	for _, tt := range tests {
		got := AnalyzeExchangeFlows(tt.events, reg)
		if got.Signal != tt.want {
			t.Errorf("%s: signal = %q, want %q", tt.name, got.Signal, tt.want)
		}
	}
}

func TestAnalyzeExchangeFlowsDaily(t *testing.T) {
	reg := ExchangeRegistry{"0xex": "TestEx"}
	day1 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	events := []ledger.TransferEvent{
		ev("0x1", "0xa", "0xex", 100, day0),
		ev("0x2", "0xex", "0xa", 30, day0),
		ev("0x3", "0xex", "0xa", 70, day1),
	}
	got := AnalyzeExchangeFlows(events, reg)
	if len(got.Daily) != 2 {
		t.Fatalf("got %d daily rows, want 2", len(got.Daily))
	}
	d0, d1 := got.Daily[0], got.Daily[1]
	if d0.Date != "2025-06-01" || d0.Inflow != 100 || d0.Outflow != 30 || d0.NetFlow != -70 {
		t.Errorf("day 0 = %+v, want in=100 out=30 net=-70", d0)
	}
	if d1.Date != "2025-06-02" || d1.Outflow != 70 || d1.NetFlow != 70 {
		t.Errorf("day 1 = %+v, want out=70 net=70", d1)
	}
}

func TestAnalyzeExchangeFlowsEmpty(t *testing.T) {
	got := AnalyzeExchangeFlows(nil, KnownExchanges())
	if got.Signal != "Neutral" {
		t.Errorf("signal = %q, want Neutral", got.Signal)
	}
	if got.TotalInflow != 0 || got.TotalOutflow != 0 || got.NetFlow != 0 {
		t.Errorf("empty input should net to zero, got %+v", got)
	}
}
