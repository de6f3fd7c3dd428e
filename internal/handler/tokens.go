package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/web3-frozen/tokenflow/internal/report"
	"github.com/web3-frozen/tokenflow/internal/token"
)

// Reports is the slice of the report service the HTTP layer needs.
type Reports interface {
	TokenActivity(ctx context.Context, slug string) (*report.Snapshot, error)
	Whales(ctx context.Context, slug string) (*report.Snapshot, error)
	ExchangeFlows(ctx context.Context, slug string) (*report.Snapshot, error)
	SpotSignal(ctx context.Context, pair string) (*report.Snapshot, error)
	DerivativesSignal(ctx context.Context, symbol string) (*report.Snapshot, error)
}

func ListTokens() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(token.All())
	}
}

func TokenActivity(svc Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.TokenActivity(r.Context(), chi.URLParam(r, "slug"))
		writeSnapshot(w, snap, err)
	}
}

func TokenWhales(svc Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Whales(r.Context(), chi.URLParam(r, "slug"))
		writeSnapshot(w, snap, err)
	}
}

func TokenExchangeFlows(svc Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.ExchangeFlows(r.Context(), chi.URLParam(r, "slug"))
		writeSnapshot(w, snap, err)
	}
}

func writeSnapshot(w http.ResponseWriter, snap *report.Snapshot, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		switch {
		case errors.Is(err, report.ErrUnknownToken):
			http.Error(w, `{"error":"unknown token"}`, http.StatusNotFound)
		case errors.Is(err, report.ErrNotTracked):
			http.Error(w, `{"error":"token not tracked on this upstream"}`, http.StatusNotFound)
		default:
			http.Error(w, `{"error":"upstream data unavailable"}`, http.StatusBadGateway)
		}
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}
