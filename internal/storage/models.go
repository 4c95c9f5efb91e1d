package storage

import "strings"

// Holding is one recorded position: how much of a currency a user holds.
type Holding struct {
	Amount float64 `json:"amount"`
}

// Portfolio maps a lowercase currency id to the user's holding of it.
type Portfolio map[string]Holding

// Snapshot is the full persisted state: user id (decimal string) ->
// portfolio. A user is registered iff their key is present, even with an
// empty portfolio. This is the exact on-disk JSON shape.
type Snapshot map[string]Portfolio

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for user, pf := range s {
		cp := make(Portfolio, len(pf))
		for currency, h := range pf {
			cp[currency] = h
		}
		out[user] = cp
	}
	return out
}

// Normalize lowercases every currency key in place and returns s.
// Snapshots written by this process are already normalized; this guards
// against hand-edited files.
func (s Snapshot) Normalize() Snapshot {
	for user, pf := range s {
		for currency, h := range pf {
			if low := strings.ToLower(currency); low != currency {
				delete(pf, currency)
				pf[low] = h
			}
		}
		s[user] = pf
	}
	return s
}

// User is a registered user row for the SQL backends.
type User struct {
	ID string `gorm:"primaryKey;column:id"`
}

func (User) TableName() string { return "users" }

// HoldingRow is one persisted holding for the SQL backends.
type HoldingRow struct {
	UserID   string  `gorm:"primaryKey;column:user_id"`
	Currency string  `gorm:"primaryKey;column:currency"`
	Amount   float64 `gorm:"column:amount"`
}

func (HoldingRow) TableName() string { return "holdings" }
