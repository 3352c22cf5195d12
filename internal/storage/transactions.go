package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/model"
)

// CreateTransaction inserts a new transaction with version 1.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	txn.Version = 1
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, family_id, user_id, type, category,
			year, month, day, amount, description, record_type, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID, txn.FamilyID, txn.UserID, string(txn.Type), txn.Category,
		txn.Year, txn.Month, txn.Day, txn.Amount, txn.Description, txn.RecordType, txn.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}

	return nil
}

// ListFamilyTransactions returns every transaction visible to a family,
// oldest first. The resolver takes this snapshot and narrows it in memory.
func (s *SQLiteStorage) ListFamilyTransactions(ctx context.Context, familyID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(familyID, "familyID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, user_id, type, category,
		       year, month, day, amount, description, record_type, version,
		       created_at, updated_at
		FROM transactions
		WHERE family_id = ?
		ORDER BY year ASC, month ASC, day ASC, created_at ASC
	`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, family_id, user_id, type, category,
		       year, month, day, amount, description, record_type, version,
		       created_at, updated_at
		FROM transactions
		WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// UpdateTransaction persists the transaction if its version token still
// matches the stored row, bumping the token on success. A stale token yields
// common.ErrVersionConflict so the caller can re-run its read-match-write
// cycle.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, category = ?, year = ?, month = ?, day = ?,
		    amount = ?, description = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		string(txn.Type), txn.Category, txn.Year, txn.Month, txn.Day,
		txn.Amount, txn.Description, time.Now().UTC(),
		txn.ID, txn.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		// Distinguish a stale version from a vanished row.
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ?)`, txn.ID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check transaction existence: %w", err)
		}
		if exists {
			return common.ErrVersionConflict
		}
		return common.ErrNotFound
	}

	txn.Version++
	return nil
}

// DeleteTransaction permanently removes a transaction. No tombstone.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return common.ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var typ string
	var category, userID, description, recordType sql.NullString

	err := row.Scan(
		&txn.ID, &txn.FamilyID, &userID, &typ, &category,
		&txn.Year, &txn.Month, &txn.Day, &txn.Amount, &description, &recordType, &txn.Version,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Type = model.TransactionType(typ)
	if userID.Valid {
		txn.UserID = userID.String
	}
	if category.Valid {
		txn.Category = category.String
	}
	if description.Valid {
		txn.Description = description.String
	}
	if recordType.Valid {
		txn.RecordType = recordType.String
	}

	return &txn, nil
}
