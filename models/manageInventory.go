package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validate = validator.New()

// ManageInventoryInput is the single entry point for every stock mutation.
type ManageInventoryInput struct {
	LobsterTypeId   int             `json:"lobster_type_id" validate:"required,gt=0"`
	WeightClassId   int             `json:"weight_class_id" validate:"required,gt=0"`
	TransactionType TransactionType `json:"transaction_type" validate:"required"`
	Quantity        int             `json:"quantity" validate:"required"`
	TransactionDate *time.Time      `json:"transaction_date"`
	Destination     *string         `json:"destination"`
	Notes           *string         `json:"notes"`
}

func (input *ManageInventoryInput) validateSemantics() error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	if !input.TransactionType.Valid() {
		return fmt.Errorf("invalid transaction type %q", input.TransactionType)
	}
	if input.Quantity <= 0 {
		return utils.ErrQuantityInvalid
	}
	// Destination identifies where outgoing stock went (buyer, disposal site).
	// ADD has no destination.
	if input.TransactionType.IsOutgoing() &&
		(input.Destination == nil || *input.Destination == "") {
		return utils.ErrDestinationRequired
	}
	return nil
}

// PrecheckStock is the advisory availability check the transaction form runs
// before submitting a depleting entry. It reads without locking, so passing
// here does not guarantee the commit succeeds; ManageInventory re-validates
// under a row lock.
func PrecheckStock(ctx context.Context, typeId int, weightClassId int, quantity int) error {
	if quantity <= 0 {
		return utils.ErrQuantityInvalid
	}
	available, err := GetInventoryQuantity(ctx, typeId, weightClassId)
	if err != nil {
		return err
	}
	if available < quantity {
		return &utils.InsufficientStockError{Available: available, Requested: quantity}
	}
	return nil
}

// ManageInventory applies one stock mutation atomically: adjust the
// (type, weight class) inventory row, append the ledger entry, and enqueue
// the change-feed outbox events. All of it commits or none of it does.
//
// ADD creates the inventory row on first use; depleting types require an
// existing row with enough stock. The inventory row is locked FOR UPDATE so
// concurrent submissions for the same pair serialize and the insufficient
// check cannot race.
func ManageInventory(ctx context.Context, input ManageInventoryInput) (*Transaction, error) {
	if err := input.validateSemantics(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	transactionDate := time.Now().UTC()
	if input.TransactionDate != nil {
		transactionDate = input.TransactionDate.UTC()
	}

	var ledgerRow *Transaction
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row InventoryRow
		inventoryAction := config.ChangeActionUpdate

		if input.TransactionType == TransactionTypeAdd {
			res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where(InventoryRow{LobsterTypeId: input.LobsterTypeId, WeightClassId: input.WeightClassId}).
				FirstOrCreate(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				inventoryAction = config.ChangeActionInsert
			}
			if err := tx.Model(&InventoryRow{}).
				Where("id = ?", row.ID).
				Update("quantity", gorm.Expr("quantity + ?", input.Quantity)).Error; err != nil {
				return err
			}
		} else {
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("lobster_type_id = ? AND weight_class_id = ?", input.LobsterTypeId, input.WeightClassId).
				Take(&row).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.ErrInventoryMissing
				}
				return err
			}
			if row.Quantity < input.Quantity {
				return &utils.InsufficientStockError{Available: row.Quantity, Requested: input.Quantity}
			}
			if err := tx.Model(&InventoryRow{}).
				Where("id = ?", row.ID).
				Update("quantity", gorm.Expr("quantity - ?", input.Quantity)).Error; err != nil {
				return err
			}
		}

		ledgerRow = &Transaction{
			LobsterTypeId:   input.LobsterTypeId,
			WeightClassId:   input.WeightClassId,
			TransactionType: input.TransactionType,
			Quantity:        input.Quantity,
			TransactionDate: transactionDate,
			Destination:     utils.NilIfEmpty(utils.DereferencePtr(input.Destination, "")),
			Notes:           utils.NilIfEmpty(utils.DereferencePtr(input.Notes, "")),
		}
		if err := tx.Create(ledgerRow).Error; err != nil {
			return err
		}

		if err := EnqueueChangeEvent(ctx, tx, config.ChangeTableInventories, inventoryAction, row.ID, transactionDate); err != nil {
			return err
		}
		return EnqueueChangeEvent(ctx, tx, config.ChangeTableTransactions, config.ChangeActionInsert, ledgerRow.ID, transactionDate)
	})
	if err != nil {
		return nil, err
	}
	return ledgerRow, nil
}
