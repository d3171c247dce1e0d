package models

import (
	"context"
	"time"

	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
)

// LobsterType is reference data: created out-of-band (seed/admin), read-only
// to the rest of the system, cached for the life of the process.
type LobsterType struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;unique" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetAllLobsterTypes(ctx context.Context) ([]*LobsterType, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	var results []*LobsterType
	if err := db.WithContext(ctx).Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetLobsterType(ctx context.Context, id int) (*LobsterType, error) {
	db := config.GetDB()
	var result LobsterType
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func MapAllLobsterTypes(ctx context.Context) (map[int]*LobsterType, error) {
	rows, err := GetAllLobsterTypes(ctx)
	if err != nil {
		return nil, err
	}
	resultMap := make(map[int]*LobsterType, len(rows))
	for _, r := range rows {
		resultMap[r.ID] = r
	}
	return resultMap, nil
}
