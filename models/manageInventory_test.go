package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/seaharvest/lobsterstock_backend/utils"
)

func strPtr(s string) *string { return &s }

func TestManageInventoryInputValidation(t *testing.T) {
	cases := []struct {
		name     string
		input    ManageInventoryInput
		wantKind utils.ProcedureErrorKind
	}{
		{
			name: "add without destination is fine",
			input: ManageInventoryInput{
				LobsterTypeId: 1, WeightClassId: 1,
				TransactionType: TransactionTypeAdd, Quantity: 10,
			},
			wantKind: "",
		},
		{
			name: "distribute needs a destination",
			input: ManageInventoryInput{
				LobsterTypeId: 1, WeightClassId: 1,
				TransactionType: TransactionTypeDistribute, Quantity: 3,
			},
			wantKind: utils.ProcedureErrorDestinationRequired,
		},
		{
			name: "death with blank destination fails",
			input: ManageInventoryInput{
				LobsterTypeId: 1, WeightClassId: 1,
				TransactionType: TransactionTypeDeath, Quantity: 1,
				Destination: strPtr(""),
			},
			wantKind: utils.ProcedureErrorDestinationRequired,
		},
		{
			name: "damaged with destination passes validation",
			input: ManageInventoryInput{
				LobsterTypeId: 1, WeightClassId: 1,
				TransactionType: TransactionTypeDamaged, Quantity: 2,
				Destination: strPtr("disposal"),
			},
			wantKind: "",
		},
		{
			name: "negative quantity",
			input: ManageInventoryInput{
				LobsterTypeId: 1, WeightClassId: 1,
				TransactionType: TransactionTypeAdd, Quantity: -5,
			},
			wantKind: utils.ProcedureErrorQuantityInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.validateSemantics()
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("expected valid input, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := utils.ClassifyProcedureError(err); got != tc.wantKind {
				t.Fatalf("kind = %s, want %s (err: %v)", got, tc.wantKind, err)
			}
		})
	}
}

func TestManageInventoryInputRejectsUnknownType(t *testing.T) {
	input := ManageInventoryInput{
		LobsterTypeId: 1, WeightClassId: 1,
		TransactionType: TransactionType("SALE"), Quantity: 1,
	}
	err := input.validateSemantics()
	if err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
	if utils.ClassifyProcedureError(err) != utils.ProcedureErrorOther {
		t.Fatalf("unknown type should classify as other, got %s", utils.ClassifyProcedureError(err))
	}
}

func TestInsufficientStockErrorNamesAvailable(t *testing.T) {
	err := &utils.InsufficientStockError{Available: 5, Requested: 9}

	if !errors.Is(err, utils.ErrInsufficientStock) {
		t.Fatal("InsufficientStockError must match the sentinel")
	}
	if !strings.Contains(err.Error(), "5") {
		t.Fatalf("message should name the available quantity: %q", err.Error())
	}
	if utils.ClassifyProcedureError(err) != utils.ProcedureErrorInsufficientStock {
		t.Fatalf("unexpected kind: %s", utils.ClassifyProcedureError(err))
	}
}
