package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/web3-frozen/tokenflow/internal/upstream"
)

const (
	etherscanAPI = "https://api.etherscan.io/v2/api"

	// PageSize is the Etherscan tokentx page size. A page with fewer
	// rows means the result set is exhausted.
	PageSize = 10000

	// DefaultMaxPages bounds how deep one fetch paginates.
	DefaultMaxPages = 5
)

// Client fetches token transfer events from the Etherscan API V2.
type Client struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  etherscanAPI,
		apiKey:   apiKey,
		pageSize: PageSize,
		// Etherscan free tier allows 5 req/s; pace consecutive pages
		// at one request per ~220ms.
		limiter: rate.NewLimiter(rate.Every(220*time.Millisecond), 1),
		logger:  logger,
	}
}

type tokentxResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type tokentxRow struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TokenDecimal string `json:"tokenDecimal"`
	TimeStamp    string `json:"timeStamp"`
}

// FetchTransfers retrieves all transfer events for a contract within
// [start, end], newest first. Pages are requested in descending time order
// and fetching stops once a page reaches events older than start, the
// result set is exhausted, or maxPages is hit.
//
// A failure on the first page surfaces as an error; a failure on a later
// page truncates the result to what was already collected.
func (c *Client) FetchTransfers(ctx context.Context, contract, chain string, start, end time.Time, maxPages int) ([]TransferEvent, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	startTS := start.Unix()
	endTS := end.Unix()

	var events []TransferEvent
	for page := 1; page <= maxPages; page++ {
		// Pace every page request: page 1 drains the bucket so the
		// page 1 -> page 2 gap is throttled like all later gaps.
		if err := c.limiter.Wait(ctx); err != nil {
			if page == 1 {
				return nil, err
			}
			return events, nil
		}

		rows, err := c.fetchPage(ctx, contract, chain, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn("transfer page fetch failed, returning partial result",
				"contract", contract, "page", page, "error", err)
			return events, nil
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			ev, ok := parseRow(row)
			if !ok {
				continue
			}
			if ev.Timestamp < startTS {
				// Rows are sorted desc: nothing further back
				// can be in the window.
				return events, nil
			}
			if ev.Timestamp <= endTS {
				events = append(events, ev)
			}
		}

		if len(rows) < c.pageSize {
			break
		}
	}
	return events, nil
}

func (c *Client) fetchPage(ctx context.Context, contract, chain string, page int) ([]tokentxRow, error) {
	params := url.Values{}
	params.Set("chainid", strconv.Itoa(ChainID(chain)))
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("contractaddress", contract)
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(c.pageSize))
	params.Set("sort", "desc")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build etherscan request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: etherscan: %v", upstream.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: etherscan status %d", upstream.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: etherscan status %d", upstream.ErrUnavailable, resp.StatusCode)
	}

	var body tokentxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode etherscan: %v", upstream.ErrMalformed, err)
	}

	if body.Status != "1" {
		// "No transactions found" is a valid empty result, not an error.
		if body.Message == "No transactions found" {
			return nil, nil
		}
		// On failure the result field carries a message string.
		var detail string
		_ = json.Unmarshal(body.Result, &detail)
		if detail == "" {
			detail = body.Message
		}
		if strings.Contains(strings.ToLower(detail), "rate limit") {
			return nil, fmt.Errorf("%w: etherscan: %s", upstream.ErrRateLimited, detail)
		}
		return nil, fmt.Errorf("%w: etherscan: %s", upstream.ErrUnavailable, detail)
	}

	var rows []tokentxRow
	if err := json.Unmarshal(body.Result, &rows); err != nil {
		return nil, fmt.Errorf("%w: etherscan result: %v", upstream.ErrMalformed, err)
	}
	return rows, nil
}

// parseRow converts one raw ledger row, normalizing the raw integer value
// by the token precision. Malformed rows are skipped rather than failing
// the whole batch.
func parseRow(row tokentxRow) (TransferEvent, bool) {
	ts, err := strconv.ParseInt(row.TimeStamp, 10, 64)
	if err != nil {
		return TransferEvent{}, false
	}

	// Missing precision defaults to 18, but a present and unparsable one
	// would mis-scale the amount, so such rows are skipped.
	decimals := 18
	if row.TokenDecimal != "" {
		decimals, err = strconv.Atoi(row.TokenDecimal)
		if err != nil {
			return TransferEvent{}, false
		}
	}

	// Raw ERC-20 values exceed float64 integer precision, so scale with
	// decimals before converting.
	raw, err := decimal.NewFromString(row.Value)
	if err != nil {
		return TransferEvent{}, false
	}
	amount := raw.Shift(int32(-decimals)).InexactFloat64()

	return TransferEvent{
		TxHash:    row.Hash,
		From:      strings.ToLower(row.From),
		To:        strings.ToLower(row.To),
		Amount:    amount,
		Timestamp: ts,
	}, true
}

// FilterWhaleTransfers returns events with Amount >= minAmount, sorted by
// amount descending and capped at limit.
func FilterWhaleTransfers(events []TransferEvent, minAmount float64, limit int) []TransferEvent {
	var whales []TransferEvent
	for _, ev := range events {
		if ev.Amount >= minAmount {
			whales = append(whales, ev)
		}
	}
	sort.SliceStable(whales, func(i, j int) bool {
		return whales[i].Amount > whales[j].Amount
	})
	if limit > 0 && len(whales) > limit {
		whales = whales[:limit]
	}
	return whales
}
