// Package token holds the static registry of tracked tokens and the
// identifiers each one carries on the upstreams we query.
package token

import "sort"

// Token describes one tracked token. Fields are empty when the token is
// not listed on that upstream.
type Token struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Contract      string `json:"contract,omitempty"`
	Chain         string `json:"chain,omitempty"`
	KrakenPair    string `json:"kraken_pair,omitempty"`
	FuturesSymbol string `json:"futures_symbol,omitempty"`
}

// HasLedger reports whether on-chain transfer data can be fetched.
func (t Token) HasLedger() bool { return t.Contract != "" }

var registry = map[string]Token{
	"rayls": {
		Slug:          "rayls",
		Name:          "Rayls (RLS)",
		Contract:      "0xB5F7b021a78f470d31D762C1DDA05ea549904fbd",
		Chain:         "eth",
		KrakenPair:    "RLSUSD",
		FuturesSymbol: "RLSUSDT",
	},
	"ondo-finance": {
		Slug:       "ondo-finance",
		Name:       "Ondo Finance",
		Contract:   "0xfAbA6f8e4a5E8Ab82F62fe7C39859FA577269BE3",
		Chain:      "eth",
		KrakenPair: "ONDOUSD",
	},
	"ondo-yield-assets": {
		Slug:     "ondo-yield-assets",
		Name:     "Ondo Yield Assets",
		Contract: "0x96F6eF951840721AdBF46Ac996b59E0235CB985C",
		Chain:    "eth",
	},
	"polygon": {
		Slug:       "polygon",
		Name:       "Polygon",
		Contract:   "0x455e53CBB86018Ac2B8092FdCd39d8444aFFC3F6",
		Chain:      "eth",
		KrakenPair: "POLUSD",
	},
	"avalanche": {
		Slug:       "avalanche",
		Name:       "Avalanche",
		Contract:   "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7",
		Chain:      "avalanche",
		KrakenPair: "AVAXUSD",
	},
	"chainlink": {
		Slug:       "chainlink",
		Name:       "Chainlink",
		Contract:   "0x514910771AF9Ca656af840dff83E8264EcF986CA",
		Chain:      "eth",
		KrakenPair: "LINKUSD",
	},
	"zksync-era": {
		Slug:       "zksync-era",
		Name:       "zkSync Era",
		KrakenPair: "ZKUSD",
	},
	"plume": {
		Slug:       "plume",
		Name:       "Plume",
		KrakenPair: "PLUMEUSD",
	},
}

// Lookup returns the token registered under slug.
func Lookup(slug string) (Token, bool) {
	t, ok := registry[slug]
	return t, ok
}

// All returns every registered token sorted by slug.
func All() []Token {
	tokens := make([]Token, 0, len(registry))
	for _, t := range registry {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Slug < tokens[j].Slug })
	return tokens
}
