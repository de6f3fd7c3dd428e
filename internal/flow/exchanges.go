package flow

import (
	"sort"

	"github.com/web3-frozen/tokenflow/internal/ledger"
)

// ExchangeRegistry maps known hot-wallet addresses (lowercase) to the
// exchange that operates them. It is fixed configuration, injected rather
// than fetched.
type ExchangeRegistry map[string]string

// KnownExchanges returns the default registry of exchange hot wallets.
func KnownExchanges() ExchangeRegistry {
	wallets := map[string][]string{
		"Binance": {
			"0x28c6c06298d514db089934071355e5743bf21d60",
			"0x21a31ee1afc51d94c2efccaa2092ad1028285549",
			"0xdfd5293d8e347dfe59e90efd55b2956a1343963d",
		},
		"Coinbase": {
			"0x71660c4005ba85c37ccec55d0c4493e66fe775d3",
			"0x503828976d22510aad0201ac7ec88293211d23da",
			"0xa9d1e08c7793af67e9d92fe308d5697fb81d3e43",
		},
		"Kraken": {
			"0x2910543af39aba0cd09dbb2d50200b3e800a63d2",
			"0x267be1c1d684f78cb4f6a176c4911b741e4ffdc0",
		},
	}
	reg := make(ExchangeRegistry)
	for name, addrs := range wallets {
		for _, addr := range addrs {
			reg[addr] = name
		}
	}
	return reg
}

// ExchangeFlow nets a single exchange's activity. Inflow is tokens sent to
// the exchange (potential selling pressure), outflow tokens leaving it
// (potential accumulation); NetFlow = outflow - inflow.
type ExchangeFlow struct {
	Exchange string  `json:"exchange"`
	Inflow   float64 `json:"inflow"`
	Outflow  float64 `json:"outflow"`
	NetFlow  float64 `json:"net_flow"`
}

// DailyExchangeFlow is the same netting bucketed per UTC calendar day.
type DailyExchangeFlow struct {
	Date    string  `json:"date"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
	NetFlow float64 `json:"net_flow"`
}

// ExchangeFlowReport is the full exchange-flow aggregate for one window.
type ExchangeFlowReport struct {
	Exchanges    []ExchangeFlow      `json:"exchange_flows"`
	Daily        []DailyExchangeFlow `json:"daily_flows"`
	TotalInflow  float64             `json:"total_inflow"`
	TotalOutflow float64             `json:"total_outflow"`
	NetFlow      float64             `json:"net_flow"`
	Signal       string              `json:"signal"`
}

// AnalyzeExchangeFlows matches transfer counterparties against the registry
// and nets inflow vs outflow per exchange and per day. Addresses not in the
// registry contribute nothing. The derived signal is Bullish when tokens
// net out of exchanges, Bearish when they net in, Neutral when balanced.
func AnalyzeExchangeFlows(events []ledger.TransferEvent, registry ExchangeRegistry) ExchangeFlowReport {
	perExchange := make(map[string]*ExchangeFlow)
	perDay := make(map[string]*DailyExchangeFlow)

	exchange := func(name string) *ExchangeFlow {
		f := perExchange[name]
		if f == nil {
			f = &ExchangeFlow{Exchange: name}
			perExchange[name] = f
		}
		return f
	}
	day := func(date string) *DailyExchangeFlow {
		d := perDay[date]
		if d == nil {
			d = &DailyExchangeFlow{Date: date}
			perDay[date] = d
		}
		return d
	}

	for _, ev := range events {
		date := ev.Time().Format("2006-01-02")
		if name, ok := registry[ev.To]; ok {
			exchange(name).Inflow += ev.Amount
			day(date).Inflow += ev.Amount
		}
		if name, ok := registry[ev.From]; ok {
			exchange(name).Outflow += ev.Amount
			day(date).Outflow += ev.Amount
		}
	}

	report := ExchangeFlowReport{Signal: "Neutral"}
	for _, f := range perExchange {
		f.NetFlow = f.Outflow - f.Inflow
		report.TotalInflow += f.Inflow
		report.TotalOutflow += f.Outflow
		report.Exchanges = append(report.Exchanges, *f)
	}
	sort.Slice(report.Exchanges, func(i, j int) bool {
		return report.Exchanges[i].Exchange < report.Exchanges[j].Exchange
	})

	for _, d := range perDay {
		d.NetFlow = d.Outflow - d.Inflow
		report.Daily = append(report.Daily, *d)
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date < report.Daily[j].Date
	})

	report.NetFlow = report.TotalOutflow - report.TotalInflow
	switch {
	case report.NetFlow > 0:
		report.Signal = "Bullish"
	case report.NetFlow < 0:
		report.Signal = "Bearish"
	}
	return report
}
