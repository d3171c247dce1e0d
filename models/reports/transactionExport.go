package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/seaharvest/lobsterstock_backend/models"
	"github.com/seaharvest/lobsterstock_backend/utils"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transactions"

// ExportTransactionsExcel writes the ledger rows for [start, end] as an xlsx
// workbook. Reference names are resolved through the cache so stale ids show
// their raw number rather than failing the export.
func ExportTransactionsExcel(ctx context.Context, w io.Writer, cache *models.ReferenceCache, start time.Time, end time.Time, filter models.TransactionFilter) error {
	started := time.Now()
	defer logSlowReport(ctx, "transaction_export", started)

	filter.ForDisplay = true
	rows, err := models.GetTransactionsInRange(ctx, start, end, filter)
	if err != nil {
		return err
	}

	typeNames, err := cache.LobsterTypeNames(ctx)
	if err != nil {
		return err
	}
	weightRanges, err := cache.WeightRanges(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{"Date", "Type", "Lobster Type", "Weight Class", "Quantity", "Destination", "Notes"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range rows {
		typeName, ok := typeNames[row.LobsterTypeId]
		if !ok {
			typeName = fmt.Sprintf("#%d", row.LobsterTypeId)
		}
		weightRange, ok := weightRanges[row.WeightClassId]
		if !ok {
			weightRange = fmt.Sprintf("#%d", row.WeightClassId)
		}

		values := []interface{}{
			row.TransactionDate.Format("2006-01-02 15:04:05"),
			string(row.TransactionType),
			typeName,
			weightRange,
			row.Quantity,
			utils.DereferencePtr(row.Destination, ""),
			utils.DereferencePtr(row.Notes, ""),
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
