package portfolio

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bher20/cryptofolio/internal/storage"
)

// ErrAlreadyRegistered signals a second register call for the same user.
// Non-fatal; the dispatcher renders it as a reply.
var ErrAlreadyRegistered = errors.New("portfolio: user already registered")

// Store holds the registry and all portfolios in memory. A user is
// registered iff their key is present, even with an empty portfolio.
// All access goes through the mutex so the HTTP gateway and the refresh
// worker can share one Store.
type Store struct {
	mu    sync.RWMutex
	users storage.Snapshot
}

func NewStore() *Store {
	return &Store{users: storage.Snapshot{}}
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Register creates an empty portfolio for the user.
func (s *Store) Register(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(userID)
	if _, ok := s.users[key]; ok {
		return ErrAlreadyRegistered
	}
	s.users[key] = storage.Portfolio{}
	return nil
}

// Unregister removes the user and their portfolio; unknown users are a
// silent no-op.
func (s *Store) Unregister(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userKey(userID))
}

func (s *Store) IsRegistered(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userKey(userID)]
	return ok
}

// SetHolding stores {currency, amount} in the user's portfolio,
// overwriting any prior holding for that currency. The currency key is
// lowercased. Unregistered users are a no-op.
func (s *Store) SetHolding(userID int64, currency string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pf, ok := s.users[userKey(userID)]
	if !ok {
		return
	}
	pf[strings.ToLower(currency)] = storage.Holding{Amount: amount}
}

// RemoveHolding deletes the currency entry if present; absent entries are
// a silent no-op.
func (s *Store) RemoveHolding(userID int64, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pf, ok := s.users[userKey(userID)]; ok {
		delete(pf, strings.ToLower(currency))
	}
}

// Portfolio returns a copy of the user's holdings, or an empty map when
// unregistered.
func (s *Store) Portfolio(userID int64) storage.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pf, ok := s.users[userKey(userID)]
	if !ok {
		return storage.Portfolio{}
	}
	out := make(storage.Portfolio, len(pf))
	for currency, h := range pf {
		out[currency] = h
	}
	return out
}

// Currencies returns the sorted union of currency ids held across all
// portfolios, used for batched price refreshes.
func (s *Store) Currencies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, pf := range s.users {
		for currency := range pf {
			seen[currency] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for currency := range seen {
		out = append(out, currency)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a deep copy of the full registry+portfolio state.
func (s *Store) Snapshot() storage.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.Clone()
}

// Restore replaces the store contents with the given snapshot.
func (s *Store) Restore(snap storage.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil {
		snap = storage.Snapshot{}
	}
	s.users = snap.Clone().Normalize()
}
