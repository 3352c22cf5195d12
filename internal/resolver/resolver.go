// Package resolver narrows a family's transaction set to a single target
// record for update or delete. Matching is a deliberate O(n) filter+reduce
// over an in-memory snapshot so the semantics (truncated-integer amount
// equality, most-recent-date tie-breaking) stay reproducible and testable
// independent of the storage engine.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/model"
)

// maxWriteAttempts bounds the read-match-write retry loop on version
// conflicts between concurrent family members.
const maxWriteAttempts = 3

// Store is the slice of the persistence collaborator the resolver needs.
type Store interface {
	ListFamilyTransactions(ctx context.Context, familyID string) ([]model.Transaction, error)
	// UpdateTransaction persists txn if its version still matches the stored
	// row, returning common.ErrVersionConflict otherwise.
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// Resolver finds and mutates the transaction a partial search criterion
// refers to.
type Resolver struct {
	store  Store
	logger *slog.Logger

	// strictDates additionally enforces category/day/month/year as hard
	// filters. Off by default: the extraction prompt promises exact matching
	// on those fields, but the shipped matching policy only enforces type and
	// truncated-integer amount, and consumers of existing data depend on
	// that looseness. Flip with care.
	strictDates bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrictDates enforces category and date criteria as hard filters.
func WithStrictDates() Option {
	return func(r *Resolver) { r.strictDates = true }
}

// New creates a Resolver over the given store.
func New(store Store, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindCandidates returns every transaction satisfying the hard filters of
// the criteria, preserving input order. Hard filters are type (exact) and
// amount (integer-truncated equality); other supplied criteria are advisory
// under the default policy.
func (r *Resolver) FindCandidates(transactions []model.Transaction, criteria model.SearchCriteria) []model.Transaction {
	var candidates []model.Transaction
	for _, txn := range transactions {
		if criteria.Type != nil && txn.Type != *criteria.Type {
			continue
		}
		if criteria.Amount != nil && int64(txn.Amount) != int64(*criteria.Amount) {
			continue
		}
		if r.strictDates && !matchesDates(txn, criteria) {
			continue
		}
		candidates = append(candidates, txn)
	}
	return candidates
}

func matchesDates(txn model.Transaction, criteria model.SearchCriteria) bool {
	if criteria.Category != nil && !strings.EqualFold(txn.Category, *criteria.Category) {
		return false
	}
	if criteria.Day != nil && txn.Day != *criteria.Day {
		return false
	}
	if criteria.Month != nil && txn.Month != *criteria.Month {
		return false
	}
	if criteria.Year != nil && txn.Year != *criteria.Year {
		return false
	}
	return true
}

// PickTarget selects the most recent candidate by (year, month, day) tuple.
// Ties resolve to the first of the max set in input order, which keeps the
// choice stable for a fixed snapshot. Returns nil for an empty set.
func (r *Resolver) PickTarget(candidates []model.Transaction) *model.Transaction {
	if len(candidates) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if laterDate(candidates[i], candidates[best]) {
			best = i
		}
	}
	target := candidates[best]
	return &target
}

func laterDate(a, b model.Transaction) bool {
	at, bt := a.DateTuple(), b.DateTuple()
	for i := 0; i < 3; i++ {
		if at[i] != bt[i] {
			return at[i] > bt[i]
		}
	}
	return false
}

// Update resolves the criteria against the family's transactions, applies
// the patch to the picked record and persists it. The read-match-write cycle
// retries on version conflicts, re-reading the snapshot each time. Returns
// the record as it was before the patch alongside the updated one, so callers
// can adjust derived aggregates. Returns common.ErrResolutionNotFound when
// nothing matches; the store is untouched in that case.
func (r *Resolver) Update(ctx context.Context, familyID string, sp *model.SearchAndPatch) (before, after *model.Transaction, err error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		target, err := r.resolve(ctx, familyID, sp.Search)
		if err != nil {
			return nil, nil, err
		}

		original := *target
		if err := applyPatch(target, sp.Updates); err != nil {
			return nil, nil, err
		}

		err = r.store.UpdateTransaction(ctx, target)
		if errors.Is(err, common.ErrVersionConflict) {
			r.logger.Warn("version conflict on update, re-resolving",
				"family_id", familyID,
				"transaction_id", target.ID,
				"attempt", attempt)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("persisting update: %w", err)
		}
		return &original, target, nil
	}

	return nil, nil, fmt.Errorf("update: %w", common.ErrMaxRetries)
}

// Delete resolves the criteria and permanently removes the picked record.
// There is no tombstone.
func (r *Resolver) Delete(ctx context.Context, familyID string, criteria model.SearchCriteria) (*model.Transaction, error) {
	target, err := r.resolve(ctx, familyID, criteria)
	if err != nil {
		return nil, err
	}

	if err := r.store.DeleteTransaction(ctx, target.ID); err != nil {
		return nil, fmt.Errorf("deleting transaction: %w", err)
	}
	return target, nil
}

func (r *Resolver) resolve(ctx context.Context, familyID string, criteria model.SearchCriteria) (*model.Transaction, error) {
	transactions, err := r.store.ListFamilyTransactions(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("listing family transactions: %w", err)
	}

	candidates := r.FindCandidates(transactions, criteria)
	target := r.PickTarget(candidates)
	if target == nil {
		return nil, common.ErrResolutionNotFound
	}

	r.logger.Debug("resolved transaction",
		"family_id", familyID,
		"transaction_id", target.ID,
		"candidates", len(candidates))
	return target, nil
}

// applyPatch assigns each patch field onto the transaction, coercing by key:
// year/month/day to int, amount to float, everything else as given.
func applyPatch(txn *model.Transaction, patch model.UpdatePatch) error {
	for key, value := range patch {
		switch key {
		case "year", "month", "day":
			n, err := coerceInt(value)
			if err != nil {
				return fmt.Errorf("patch field %s: %w", key, err)
			}
			switch key {
			case "year":
				txn.Year = n
			case "month":
				txn.Month = n
			case "day":
				txn.Day = n
			}
		case "amount":
			f, err := coerceFloat(value)
			if err != nil {
				return fmt.Errorf("patch field amount: %w", err)
			}
			txn.Amount = f
		case "type":
			txn.Type = model.TransactionType(fmt.Sprintf("%v", value))
		case "category":
			txn.Category = fmt.Sprintf("%v", value)
		case "description":
			txn.Description = fmt.Sprintf("%v", value)
		default:
			return fmt.Errorf("unknown patch field %q", key)
		}
	}
	return txn.Validate()
}

func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}
