package models

import (
	"context"
	"errors"
	"time"

	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
	"gorm.io/gorm"
)

// InventoryRow is the current on-hand count per (lobster type, weight class)
// pair. It is written only by ManageInventory; quantity never goes below zero.
type InventoryRow struct {
	ID            int       `gorm:"primary_key" json:"id"`
	LobsterTypeId int       `gorm:"not null;uniqueIndex:idx_type_weight" json:"lobster_type_id"`
	WeightClassId int       `gorm:"not null;uniqueIndex:idx_type_weight" json:"weight_class_id"`
	Quantity      int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InventoryRow) TableName() string {
	return "inventories"
}

// WeightClassQuantity is one line of a per-type breakdown.
type WeightClassQuantity struct {
	WeightRange string `json:"weight_range"`
	Quantity    int    `json:"quantity"`
}

// GetInventorySnapshot returns every inventory row. Grouping and totals are
// the Aggregator's job, not the query's.
func GetInventorySnapshot(ctx context.Context) ([]*InventoryRow, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	var rows []*InventoryRow
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetWeightClassBreakdown returns (weight_range, quantity) rows for one
// lobster type. The two callers want different filters: the stock-detail view
// hides empty rows, the edit form needs all of them, so the mode is explicit.
func GetWeightClassBreakdown(ctx context.Context, typeId int, onlyInStock bool) ([]*WeightClassQuantity, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	dbCtx := db.WithContext(ctx).
		Model(&InventoryRow{}).
		Select("weight_classes.weight_range AS weight_range, inventories.quantity AS quantity").
		Joins("JOIN weight_classes ON weight_classes.id = inventories.weight_class_id").
		Where("inventories.lobster_type_id = ?", typeId).
		Order("weight_classes.weight_range ASC")
	if onlyInStock {
		dbCtx = dbCtx.Where("inventories.quantity > 0")
	}

	var rows []*WeightClassQuantity
	if err := dbCtx.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetInventoryQuantity returns the on-hand count for one pair; zero when no
// row exists yet.
func GetInventoryQuantity(ctx context.Context, typeId int, weightClassId int) (int, error) {
	db := config.GetDB()
	if db == nil {
		return 0, utils.ErrProcedureUnavailable
	}

	var row InventoryRow
	err := db.WithContext(ctx).
		Where("lobster_type_id = ? AND weight_class_id = ?", typeId, weightClassId).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Quantity, nil
}
