package handler

import (
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

// Pairs and symbols are plain uppercase tickers; reject anything else
// before it reaches an upstream query string.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

func SpotSignal(svc Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair := chi.URLParam(r, "pair")
		if !symbolPattern.MatchString(pair) {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid pair"}`, http.StatusBadRequest)
			return
		}
		snap, err := svc.SpotSignal(r.Context(), pair)
		writeSnapshot(w, snap, err)
	}
}

func DerivativesSignal(svc Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := chi.URLParam(r, "symbol")
		if !symbolPattern.MatchString(symbol) {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid symbol"}`, http.StatusBadRequest)
			return
		}
		snap, err := svc.DerivativesSignal(r.Context(), symbol)
		writeSnapshot(w, snap, err)
	}
}
