package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/web3-frozen/tokenflow/internal/report"
)

type fakeReports struct {
	snap *report.Snapshot
	err  error
	slug string
}

func (f *fakeReports) TokenActivity(_ context.Context, slug string) (*report.Snapshot, error) {
	f.slug = slug
	return f.snap, f.err
}
func (f *fakeReports) Whales(_ context.Context, slug string) (*report.Snapshot, error) {
	f.slug = slug
	return f.snap, f.err
}
func (f *fakeReports) ExchangeFlows(_ context.Context, slug string) (*report.Snapshot, error) {
	f.slug = slug
	return f.snap, f.err
}
func (f *fakeReports) SpotSignal(_ context.Context, pair string) (*report.Snapshot, error) {
	f.slug = pair
	return f.snap, f.err
}
func (f *fakeReports) DerivativesSignal(_ context.Context, symbol string) (*report.Snapshot, error) {
	f.slug = symbol
	return f.snap, f.err
}

func testRouter(svc Reports) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/tokens", ListTokens())
	r.Get("/api/tokens/{slug}/activity", TokenActivity(svc))
	r.Get("/api/tokens/{slug}/whales", TokenWhales(svc))
	r.Get("/api/tokens/{slug}/exchange-flows", TokenExchangeFlows(svc))
	r.Get("/api/market/{pair}/signal", SpotSignal(svc))
	r.Get("/api/futures/{symbol}/signal", DerivativesSignal(svc))
	return r
}

func doRequest(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListTokens(t *testing.T) {
	rec := doRequest(t, testRouter(&fakeReports{}), "/api/tokens")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var tokens []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("expected at least one registered token")
	}
	if tokens[0]["slug"] == "" {
		t.Errorf("token missing slug: %+v", tokens[0])
	}
}

func TestTokenActivityOK(t *testing.T) {
	svc := &fakeReports{snap: &report.Snapshot{
		Data:      json.RawMessage(`{"total":1}`),
		Cached:    true,
		FetchedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	rec := doRequest(t, testRouter(svc), "/api/tokens/rayls/activity")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.slug != "rayls" {
		t.Errorf("slug passed = %q", svc.slug)
	}

	var body struct {
		Data   json.RawMessage `json:"data"`
		Cached bool            `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Cached || string(body.Data) != `{"total":1}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTokenActivityUnknownToken(t *testing.T) {
	svc := &fakeReports{err: report.ErrUnknownToken}
	rec := doRequest(t, testRouter(svc), "/api/tokens/dogecoin/activity")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTokenWhalesNotTracked(t *testing.T) {
	svc := &fakeReports{err: report.ErrNotTracked}
	rec := doRequest(t, testRouter(svc), "/api/tokens/plume/whales")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTokenExchangeFlowsUpstreamError(t *testing.T) {
	svc := &fakeReports{err: errors.New("etherscan down")}
	rec := doRequest(t, testRouter(svc), "/api/tokens/rayls/exchange-flows")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSpotSignalValidation(t *testing.T) {
	svc := &fakeReports{snap: &report.Snapshot{Data: json.RawMessage(`{}`)}}
	router := testRouter(svc)

	rec := doRequest(t, router, "/api/market/RLSUSD/signal")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, "/api/market/rls%20usd/signal")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid pair", rec.Code)
	}
}

func TestDerivativesSignal(t *testing.T) {
	svc := &fakeReports{snap: &report.Snapshot{Data: json.RawMessage(`{"symbol":"RLSUSDT"}`)}}
	rec := doRequest(t, testRouter(svc), "/api/futures/RLSUSDT/signal")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.slug != "RLSUSDT" {
		t.Errorf("symbol passed = %q", svc.slug)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

type failPinger struct{ err error }

func (p *failPinger) Ping(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	rec := httptest.NewRecorder()
	Ready(&failPinger{})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when backend pings", rec.Code)
	}

	rec = httptest.NewRecorder()
	Ready(&failPinger{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when backend is down", rec.Code)
	}

	rec = httptest.NewRecorder()
	Ready(nil)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with no backend", rec.Code)
	}
}
