package portfolio

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bher20/cryptofolio/internal/prices"
	"github.com/bher20/cryptofolio/internal/storage"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cache := prices.NewCache(prices.NewClient(srv.URL, 2*time.Second))
	return NewService(cache, storage.NewMemory())
}

func bitcoinAt70000(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"bitcoin":{"usd":70000}}`))
}

func TestAddHolding_ThenSummarize(t *testing.T) {
	svc := newTestService(t, bitcoinAt70000)
	ctx := context.Background()

	if err := svc.Register(1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.AddHolding(ctx, 1, "BITCOIN", 2.5, 65000); err != nil {
		t.Fatalf("add holding: %v", err)
	}

	sum := svc.Summarize(ctx, 1)
	if sum.Empty {
		t.Fatalf("expected non-empty summary")
	}
	if len(sum.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(sum.Items))
	}
	item := sum.Items[0]
	if item.Currency != "bitcoin" {
		t.Errorf("currency = %q", item.Currency)
	}
	if item.Amount != 2.5 || item.UnitPrice != 70000 || item.Value != 175000 {
		t.Errorf("item = %+v", item)
	}
	if math.Abs(sum.Total-175000) > 1e-9 {
		t.Errorf("total = %v, want 175000", sum.Total)
	}
}

func TestAddHolding_UnknownCurrencyLeavesPortfolioUnchanged(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`)) // source omits the id
	})
	ctx := context.Background()

	svc.Register(1)
	err := svc.AddHolding(ctx, 1, "notacoin", 1, 1)
	if !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
	if len(svc.Portfolio(1)) != 0 {
		t.Errorf("portfolio changed after failed add: %+v", svc.Portfolio(1))
	}
}

func TestAddHolding_CachedCurrencySkipsLookup(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"bitcoin":{"usd":70000}}`))
	}))
	t.Cleanup(srv.Close)

	cache := prices.NewCacheWithValues(prices.NewClient(srv.URL, 2*time.Second), map[string]float64{"bitcoin": 70000})
	svc := NewService(cache, storage.NewMemory())
	svc.Register(1)

	if err := svc.AddHolding(context.Background(), 1, "bitcoin", 1, 1); err != nil {
		t.Fatalf("add holding: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no upstream call for cached currency, got %d", calls)
	}
}

func TestSummarize_EmptyPortfolio(t *testing.T) {
	calls := 0
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		bitcoinAt70000(w, r)
	})

	svc.Register(1)
	sum := svc.Summarize(context.Background(), 1)
	if !sum.Empty || sum.Total != 0 {
		t.Errorf("expected empty summary, got %+v", sum)
	}
	if calls != 0 {
		t.Errorf("empty portfolio must not trigger a refresh")
	}
}

func TestSummarize_MissingPriceValuesAtZero(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		// Refresh fails entirely; valuation falls back to cached (none).
		http.Error(w, "down", http.StatusBadGateway)
	})
	svc.Register(1)
	// Bypass the price gate so a holding exists without a cached price.
	svc.store.SetHolding(1, "ghostcoin", 3)

	sum := svc.Summarize(context.Background(), 1)
	if sum.Empty {
		t.Fatalf("expected non-empty summary")
	}
	if sum.Items[0].UnitPrice != 0 || sum.Items[0].Value != 0 || sum.Total != 0 {
		t.Errorf("missing price must value at zero: %+v", sum)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	mem := storage.NewMemory()
	srv := httptest.NewServer(http.HandlerFunc(bitcoinAt70000))
	t.Cleanup(srv.Close)
	cache := prices.NewCache(prices.NewClient(srv.URL, 2*time.Second))

	svc := NewService(cache, mem)
	ctx := context.Background()
	svc.Register(42)
	svc.Register(43)
	if err := svc.AddHolding(ctx, 42, "bitcoin", 2.5, 65000); err != nil {
		t.Fatalf("add holding: %v", err)
	}
	if err := svc.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := NewService(cache, mem)
	if err := other.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !other.IsRegistered(42) || !other.IsRegistered(43) {
		t.Fatalf("registrations lost in round trip")
	}
	if other.Portfolio(42)["bitcoin"].Amount != 2.5 {
		t.Errorf("amount not preserved: %+v", other.Portfolio(42))
	}
	if len(other.Portfolio(43)) != 0 {
		t.Errorf("empty portfolio not preserved")
	}
}
