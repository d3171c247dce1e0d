package models

import (
	"context"
	"time"

	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
)

// WeightClass is reference data. WeightRange is a label like "100-200"
// (grams); ordering is lexical on the label, matching how the ranges are
// named in practice.
type WeightClass struct {
	ID          int       `gorm:"primary_key" json:"id"`
	WeightRange string    `gorm:"size:50;not null;unique" json:"weight_range"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetAllWeightClasses(ctx context.Context) ([]*WeightClass, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	var results []*WeightClass
	if err := db.WithContext(ctx).Order("weight_range ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetWeightClass(ctx context.Context, id int) (*WeightClass, error) {
	db := config.GetDB()
	var result WeightClass
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func MapAllWeightClasses(ctx context.Context) (map[int]*WeightClass, error) {
	rows, err := GetAllWeightClasses(ctx)
	if err != nil {
		return nil, err
	}
	resultMap := make(map[int]*WeightClass, len(rows))
	for _, r := range rows {
		resultMap[r.ID] = r
	}
	return resultMap, nil
}
