package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/ledgerpal/ledgerpal/internal/common"
	"github.com/ledgerpal/ledgerpal/internal/model"
)

// GetUserByNumber looks up a user by phone number.
// Returns common.ErrNotFound for unregistered numbers.
func (s *SQLiteStorage) GetUserByNumber(ctx context.Context, number string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(number, "number"); err != nil {
		return nil, err
	}

	var user model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, number, family_id
		FROM users
		WHERE number = ?
	`, number).Scan(&user.UserID, &user.Name, &user.Number, &user.FamilyID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// CreateUser inserts a new user.
func (s *SQLiteStorage) CreateUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, name, number, family_id)
		VALUES (?, ?, ?, ?)
	`, user.UserID, user.Name, user.Number, user.FamilyID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: number %s", common.ErrDuplicateEntry, user.Number)
		}
		return fmt.Errorf("failed to create user %s: %w", user.Number, err)
	}

	return nil
}

// UpdateUserName renames an existing user.
func (s *SQLiteStorage) UpdateUserName(ctx context.Context, userID, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ? WHERE user_id = ?
	`, name, userID)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return common.ErrNotFound
	}

	return nil
}
