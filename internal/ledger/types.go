package ledger

import "time"

// TransferEvent is a single token transfer from the ledger boundary.
// Amount is decimal-normalized by the token's precision. Events only live
// for the duration of one aggregation call; they are never persisted.
type TransferEvent struct {
	TxHash    string  `json:"tx_hash"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

// Time returns the event timestamp as UTC time.
func (e TransferEvent) Time() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}

// ChainIDs maps chain names to Etherscan API V2 numeric chain ids.
var ChainIDs = map[string]int{
	"eth":       1,
	"polygon":   137,
	"bsc":       56,
	"avalanche": 43114,
	"arbitrum":  42161,
	"optimism":  10,
}

// ChainID resolves a chain name, defaulting to Ethereum mainnet for
// unknown names.
func ChainID(chain string) int {
	if id, ok := ChainIDs[chain]; ok {
		return id
	}
	return 1
}
