package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type TransactionType string

const (
	TransactionTypeAdd        TransactionType = "ADD"
	TransactionTypeDistribute TransactionType = "DISTRIBUTE"
	TransactionTypeDeath      TransactionType = "DEATH"
	TransactionTypeDamaged    TransactionType = "DAMAGED"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeAdd, TransactionTypeDistribute, TransactionTypeDeath, TransactionTypeDamaged:
		return true
	}
	return false
}

// IsOutgoing reports whether the type depletes inventory.
func (t TransactionType) IsOutgoing() bool {
	switch t {
	case TransactionTypeDistribute, TransactionTypeDeath, TransactionTypeDamaged:
		return true
	}
	return false
}

func (t TransactionType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid transaction type %q", string(t))
	}
	return string(t), nil
}

func (t *TransactionType) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*t = TransactionType(v)
	case []byte:
		*t = TransactionType(v)
	default:
		return errors.New("transaction type must be string")
	}
	if !t.Valid() {
		return fmt.Errorf("invalid transaction type %q", string(*t))
	}
	return nil
}

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOperator UserRole = "O"
)
