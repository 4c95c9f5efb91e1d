package portfolio

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"github.com/bher20/cryptofolio/internal/prices"
	"github.com/bher20/cryptofolio/internal/storage"
)

// ErrUnknownCurrency means the currency could not be resolved through the
// price source, so the holding was not recorded.
var ErrUnknownCurrency = errors.New("portfolio: unknown currency")

// Service is the composition root: it owns the in-memory store, the price
// cache, and the persistence backend, and answers the higher-level
// queries the command dispatcher needs.
type Service struct {
	store *Store
	cache *prices.Cache
	db    storage.Storage
}

func NewService(cache *prices.Cache, db storage.Storage) *Service {
	return &Service{
		store: NewStore(),
		cache: cache,
		db:    db,
	}
}

// Load reads the persisted snapshot into the store. Called once at
// startup, before any command is served.
func (s *Service) Load(ctx context.Context) error {
	snap, err := s.db.Load(ctx)
	if err != nil {
		return err
	}
	s.store.Restore(snap)
	return nil
}

// Save persists the full current snapshot. Failures are returned for
// logging; callers proceed with in-memory state as the source of truth.
func (s *Service) Save(ctx context.Context) error {
	return s.db.Save(ctx, s.store.Snapshot())
}

func (s *Service) Register(userID int64) error {
	return s.store.Register(userID)
}

func (s *Service) Unregister(userID int64) {
	s.store.Unregister(userID)
}

func (s *Service) IsRegistered(userID int64) bool {
	return s.store.IsRegistered(userID)
}

// AddHolding records {currency, amount} for the user, overwriting any
// prior holding of that currency. The currency must be resolvable through
// the price cache: cached ids are accepted immediately, unknown ids go
// through a single-id lookup. buyPrice is validated by the caller but not
// persisted; the snapshot schema has no cost-basis field.
func (s *Service) AddHolding(ctx context.Context, userID int64, currency string, amount, buyPrice float64) error {
	id := strings.ToLower(strings.TrimSpace(currency))
	if _, ok := s.cache.Price(id); !ok {
		if _, err := s.cache.LookupOrFetch(ctx, id); err != nil {
			return ErrUnknownCurrency
		}
	}
	s.store.SetHolding(userID, id, amount)
	return nil
}

func (s *Service) RemoveHolding(userID int64, currency string) {
	s.store.RemoveHolding(userID, currency)
}

func (s *Service) Portfolio(userID int64) storage.Portfolio {
	return s.store.Portfolio(userID)
}

// Item is one valued holding in a summary.
type Item struct {
	Currency  string  `json:"currency"`
	Amount    float64 `json:"amount"`
	UnitPrice float64 `json:"unit_price"`
	Value     float64 `json:"value"`
}

// Summary is a valuation of one user's portfolio in USD.
type Summary struct {
	Empty bool    `json:"empty"`
	Items []Item  `json:"items,omitempty"`
	Total float64 `json:"total"`
}

// Summarize values the user's portfolio. It first refreshes the price
// cache for every currency referenced by any portfolio (one batched
// lookup); a failed refresh is logged and the previous cached prices are
// used. A currency with no cached price values at 0.
func (s *Service) Summarize(ctx context.Context, userID int64) Summary {
	pf := s.store.Portfolio(userID)
	if len(pf) == 0 {
		return Summary{Empty: true}
	}

	if err := s.cache.Refresh(ctx, s.store.Currencies()); err != nil {
		log.Printf("portfolio: price refresh failed, using cached values: %v", err)
	}

	ids := make([]string, 0, len(pf))
	for currency := range pf {
		ids = append(ids, currency)
	}
	sort.Strings(ids)

	var sum Summary
	for _, currency := range ids {
		h := pf[currency]
		price, _ := s.cache.Price(currency)
		value := h.Amount * price
		sum.Items = append(sum.Items, Item{
			Currency:  currency,
			Amount:    h.Amount,
			UnitPrice: price,
			Value:     value,
		})
		sum.Total += value
	}
	return sum
}

// PriceOf resolves a one-shot price query for the `price` chat command.
func (s *Service) PriceOf(ctx context.Context, currency string) (float64, error) {
	return s.cache.LookupOrFetch(ctx, currency)
}

// Currencies exposes the union of held currency ids for the refresh worker.
func (s *Service) Currencies() []string {
	return s.store.Currencies()
}
