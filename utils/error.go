package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// Sentinel errors for the manage-inventory procedure. Handlers branch on
// these (via errors.Is / ClassifyProcedureError), never on message text.
var (
	ErrQuantityInvalid      = errors.New("quantity must be a positive integer")
	ErrInventoryMissing     = errors.New("no inventory row for this lobster type and weight class")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrDestinationRequired  = errors.New("destination is required for this transaction type")
	ErrProcedureUnavailable = errors.New("inventory procedure is unavailable")
)

// InsufficientStockError carries the available quantity so callers can show
// the user exactly how many are on hand.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: only %d available (requested %d)", e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type ProcedureErrorKind string

const (
	ProcedureErrorQuantityInvalid      ProcedureErrorKind = "quantity-invalid"
	ProcedureErrorInventoryMissing     ProcedureErrorKind = "inventory-missing"
	ProcedureErrorInsufficientStock    ProcedureErrorKind = "insufficient-inventory"
	ProcedureErrorDestinationRequired  ProcedureErrorKind = "destination-required"
	ProcedureErrorProcedureUnavailable ProcedureErrorKind = "procedure-unavailable"
	ProcedureErrorOther                ProcedureErrorKind = "other"
)

// ClassifyProcedureError maps a manage-inventory error to its closed kind set.
func ClassifyProcedureError(err error) ProcedureErrorKind {
	switch {
	case errors.Is(err, ErrQuantityInvalid):
		return ProcedureErrorQuantityInvalid
	case errors.Is(err, ErrInventoryMissing):
		return ProcedureErrorInventoryMissing
	case errors.Is(err, ErrInsufficientStock):
		return ProcedureErrorInsufficientStock
	case errors.Is(err, ErrDestinationRequired):
		return ProcedureErrorDestinationRequired
	case errors.Is(err, ErrProcedureUnavailable):
		return ProcedureErrorProcedureUnavailable
	default:
		return ProcedureErrorOther
	}
}
