package storage

import (
	"context"
	"fmt"

	"github.com/ledgerpal/ledgerpal/internal/model"
)

// ApplySummaryDelta adjusts a family's monthly income or expense total by
// delta, creating the row on first touch. Totals are clamped at zero so a
// deletion can never drive a summary negative.
func (s *SQLiteStorage) ApplySummaryDelta(ctx context.Context, familyID string, year, month int, typ model.TransactionType, delta float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(familyID, "familyID"); err != nil {
		return err
	}
	if !typ.Valid() {
		return fmt.Errorf("invalid transaction type: %s", typ)
	}

	column := "expense"
	if typ == model.TypeIncome {
		column = "income"
	}

	query := fmt.Sprintf(`
		INSERT INTO summaries (family_id, year, month, %[1]s)
		VALUES (?, ?, ?, MAX(0, ?))
		ON CONFLICT(family_id, year, month)
		DO UPDATE SET %[1]s = MAX(0, %[1]s + excluded.%[1]s)
	`, column)

	if _, err := s.db.ExecContext(ctx, query, familyID, year, month, delta); err != nil {
		return fmt.Errorf("failed to apply summary delta: %w", err)
	}

	return nil
}

// GetYearlySummary returns a family's per-month totals for one year.
// Months with no activity are absent from the result.
func (s *SQLiteStorage) GetYearlySummary(ctx context.Context, familyID string, year int) (model.YearlySummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(familyID, "familyID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, income, expense
		FROM summaries
		WHERE family_id = ? AND year = ?
		ORDER BY month ASC
	`, familyID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := make(model.YearlySummary)
	for rows.Next() {
		var y, m int
		var monthly model.MonthlySummary
		if err := rows.Scan(&y, &m, &monthly.Income, &monthly.Expense); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if summary[y] == nil {
			summary[y] = make(map[int]model.MonthlySummary)
		}
		summary[y][m] = monthly
	}

	return summary, rows.Err()
}
