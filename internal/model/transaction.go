package model

import (
	"fmt"
	"time"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

// Transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is a recognized transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Categories is the closed list the extraction prompt constrains the model to.
// Stored values are free text; this list only bounds what extraction produces.
var Categories = []string{
	"shopping", "dining", "bills", "transport", "health",
	"misc", "salary", "gift", "rewards",
}

// Transaction is one income or expense record. It belongs to a family, not a
// single user: any family member's message can match or mutate it.
type Transaction struct {
	ID          string
	FamilyID    string
	UserID      string
	Type        TransactionType
	Category    string
	Year        int
	Month       int
	Day         int
	Amount      float64
	Description string
	RecordType  string
	Version     int64 // optimistic-concurrency token, bumped on every write
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the invariants every persisted transaction must hold.
func (t *Transaction) Validate() error {
	if t.FamilyID == "" {
		return fmt.Errorf("transaction missing family id")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("invalid transaction type %q", t.Type)
	}
	if t.Amount < 0 {
		return fmt.Errorf("negative amount %.2f", t.Amount)
	}
	if t.Year != 0 || t.Month != 0 || t.Day != 0 {
		if d := time.Date(t.Year, time.Month(t.Month), t.Day, 0, 0, 0, 0, time.UTC); d.Year() != t.Year || int(d.Month()) != t.Month || d.Day() != t.Day {
			return fmt.Errorf("invalid calendar date %04d-%02d-%02d", t.Year, t.Month, t.Day)
		}
	}
	return nil
}

// DateTuple returns the (year, month, day) tuple used for recency ordering.
func (t *Transaction) DateTuple() [3]int {
	return [3]int{t.Year, t.Month, t.Day}
}
