package models

import (
	"context"
	"time"

	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
)

// Transaction is one inventory-affecting event. The ledger is append-only;
// corrections are made with compensating transactions, never in-place edits.
// Quantity stores the magnitude; the sign is implied by TransactionType.
type Transaction struct {
	ID              int             `gorm:"primary_key" json:"id"`
	LobsterTypeId   int             `gorm:"index;not null" json:"lobster_type_id"`
	WeightClassId   int             `gorm:"index;not null" json:"weight_class_id"`
	TransactionType TransactionType `gorm:"type:enum('ADD','DISTRIBUTE','DEATH','DAMAGED');not null" json:"transaction_type"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	TransactionDate time.Time       `gorm:"index;not null" json:"transaction_date"`
	Destination     *string         `gorm:"size:255" json:"destination"`
	Notes           *string         `gorm:"size:1000" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type TransactionFilter struct {
	LobsterTypeId   int
	TransactionType TransactionType
	// ForDisplay orders results descending by transaction_date. Aggregation
	// callers leave it off and take rows unordered.
	ForDisplay bool
}

// GetTransactionsInRange fetches ledger rows with transaction_date in
// [start, end], both bounds inclusive.
func GetTransactionsInRange(ctx context.Context, start time.Time, end time.Time, filter TransactionFilter) ([]*Transaction, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	dbCtx := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", start, end)
	if filter.LobsterTypeId > 0 {
		dbCtx = dbCtx.Where("lobster_type_id = ?", filter.LobsterTypeId)
	}
	if filter.TransactionType != "" {
		dbCtx = dbCtx.Where("transaction_type = ?", filter.TransactionType)
	}
	if filter.ForDisplay {
		dbCtx = dbCtx.Order("transaction_date DESC, id DESC")
	}

	var rows []*Transaction
	if err := dbCtx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetAllOutgoingTransactions fetches every DISTRIBUTE/DEATH/DAMAGED row ever
// recorded, for the distribution series.
func GetAllOutgoingTransactions(ctx context.Context) ([]*Transaction, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}

	var rows []*Transaction
	if err := db.WithContext(ctx).
		Where("transaction_type IN ?", []TransactionType{
			TransactionTypeDistribute, TransactionTypeDeath, TransactionTypeDamaged,
		}).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type TransactionConnection struct {
	Edges    []*TransactionEdge `json:"edges"`
	PageInfo *PageInfo          `json:"pageInfo"`
}

type TransactionEdge struct {
	Cursor string       `json:"cursor"`
	Node   *Transaction `json:"node"`
}

// PaginateTransactions serves the history table: newest first, composite
// cursor on (transaction_date, id) so rows sharing a date page correctly.
func PaginateTransactions(ctx context.Context, limit int, after *string, start time.Time, end time.Time, filter TransactionFilter) (*TransactionConnection, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrProcedureUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	dbCtx := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", start, end)
	if filter.LobsterTypeId > 0 {
		dbCtx = dbCtx.Where("lobster_type_id = ?", filter.LobsterTypeId)
	}
	if filter.TransactionType != "" {
		dbCtx = dbCtx.Where("transaction_type = ?", filter.TransactionType)
	}

	decodedDate, cursorId := DecodeCompositeCursor(after)
	if decodedDate != "" {
		dbCtx = dbCtx.Where("(transaction_date < ?) OR (transaction_date = ? AND id < ?)",
			decodedDate, decodedDate, cursorId)
	}

	var rows []*Transaction
	if err := dbCtx.
		Order("transaction_date DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	hasNextPage := false
	if len(rows) > limit {
		hasNextPage = true
		rows = rows[:limit]
	}

	edges := make([]*TransactionEdge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, &TransactionEdge{
			Cursor: EncodeCompositeCursor(row.TransactionDate.Format("2006-01-02 15:04:05"), row.ID),
			Node:   row,
		})
	}

	pageInfo := &PageInfo{HasNextPage: &hasNextPage}
	if len(edges) > 0 {
		pageInfo.StartCursor = edges[0].Cursor
		pageInfo.EndCursor = edges[len(edges)-1].Cursor
	}

	return &TransactionConnection{Edges: edges, PageInfo: pageInfo}, nil
}
