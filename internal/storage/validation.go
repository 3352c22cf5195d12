package storage

import (
	"context"
	"fmt"

	"github.com/ledgerpal/ledgerpal/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context must not be nil")
	}
	return ctx.Err()
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	return nil
}

func validateUser(user *model.User) error {
	if user == nil {
		return fmt.Errorf("user must not be nil")
	}
	if user.UserID == "" || user.Number == "" {
		return fmt.Errorf("user must have an id and a phone number")
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("transaction must not be nil")
	}
	if txn.ID == "" {
		return fmt.Errorf("transaction must have an id")
	}
	return txn.Validate()
}
