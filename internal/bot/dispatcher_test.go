package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bher20/cryptofolio/internal/portfolio"
	"github.com/bher20/cryptofolio/internal/prices"
	"github.com/bher20/cryptofolio/internal/storage"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) *Dispatcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cache := prices.NewCache(prices.NewClient(srv.URL, 2*time.Second))
	return NewDispatcher(portfolio.NewService(cache, storage.NewMemory()))
}

func bitcoinAt70000(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"bitcoin":{"usd":70000}}`))
}

func TestHandle_RegistrationGate(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()

	for _, cmd := range []string{"summary", "add bitcoin 1 1", "remove bitcoin", "price bitcoin", "unregister"} {
		reply := d.Handle(ctx, 1, cmd)
		if !strings.Contains(reply, "not registered") {
			t.Errorf("command %q bypassed the registration gate: %q", cmd, reply)
		}
	}
}

func TestHandle_RegisterTwice(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()

	first := d.Handle(ctx, 1, "register")
	if !strings.Contains(first, "registered") || strings.Contains(first, "already") {
		t.Errorf("unexpected first reply: %q", first)
	}
	second := d.Handle(ctx, 1, "register")
	if second != "You are already registered." {
		t.Errorf("unexpected second reply: %q", second)
	}
}

func TestHandle_AddAndSummary(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()

	d.Handle(ctx, 1, "register")
	reply := d.Handle(ctx, 1, "add bitcoin 2.5 65000")
	if reply != "Added 2.5000 **BITCOIN** to your portfolio." {
		t.Errorf("unexpected add reply: %q", reply)
	}

	sum := d.Handle(ctx, 1, "summary")
	for _, want := range []string{
		"**BITCOIN**:",
		"1 Amount: 2.5000",
		"2 Current Coin Value: $70000.0000",
		"3 Current Value: $175000.00",
		"**Total Portfolio Value: $175000.00**",
	} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestHandle_SummaryEmpty(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()

	d.Handle(ctx, 1, "register")
	if got := d.Handle(ctx, 1, "summary"); got != "Your portfolio is empty." {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestHandle_AddUnknownCurrency(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	d.Handle(ctx, 1, "register")
	reply := d.Handle(ctx, 1, "add notacoin 1 1")
	if !strings.Contains(reply, "Could not find price data for **NOTACOIN**") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if got := d.Handle(ctx, 1, "summary"); got != "Your portfolio is empty." {
		t.Errorf("portfolio changed after failed add: %q", got)
	}
}

func TestHandle_AddValidatesNumbers(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()
	d.Handle(ctx, 1, "register")

	if reply := d.Handle(ctx, 1, "add bitcoin lots 1"); !strings.Contains(reply, "Invalid amount") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if reply := d.Handle(ctx, 1, "add bitcoin 1 cheap"); !strings.Contains(reply, "Invalid buy price") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if reply := d.Handle(ctx, 1, "add bitcoin"); !strings.Contains(reply, "Usage:") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestHandle_RemoveIsIdempotent(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()
	d.Handle(ctx, 1, "register")

	reply := d.Handle(ctx, 1, "remove bitcoin")
	if !strings.Contains(reply, "Removed **BITCOIN**") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestHandle_PriceCommand(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()
	d.Handle(ctx, 1, "register")

	reply := d.Handle(ctx, 1, "price bitcoin")
	want := "The current price of **BITCOIN** is **$70000.00** USD."
	if reply != want {
		t.Errorf("reply = %q, want %q", reply, want)
	}
}

func TestHandle_UnknownCommandAndHelp(t *testing.T) {
	d := newTestDispatcher(t, bitcoinAt70000)
	ctx := context.Background()
	d.Handle(ctx, 1, "register")

	if reply := d.Handle(ctx, 1, "moon"); !strings.Contains(reply, "Unknown command `moon`") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if reply := d.Handle(ctx, 2, "help"); !strings.Contains(reply, "Commands:") {
		t.Errorf("help must work unregistered: %q", reply)
	}
	if reply := d.Handle(ctx, 2, "   "); !strings.Contains(reply, "Commands:") {
		t.Errorf("blank input should show help: %q", reply)
	}
}
