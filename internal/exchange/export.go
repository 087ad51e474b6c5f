// Package exchange moves inventory in and out of the system as CSV and XLSX.
package exchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/lokator/internal/report"
)

// SheetName is the worksheet that holds the exported inventory.
const SheetName = "Inventory"

// ExportHeader is the first row of every export.
var ExportHeader = []string{"ID", "Name", "Serial Number", "Item Type", "Current Location", "Assigned At"}

func exportRecord(row report.InventoryRow) []string {
	assignedAt := ""
	if row.AssignedAt != nil {
		assignedAt = row.AssignedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(row.Item.ID, 10),
		row.Item.Name,
		row.Item.SerialNumber,
		row.Item.ItemTypeName,
		row.Location,
		assignedAt,
	}
}

// ExportCSV writes the inventory as CSV.
func ExportCSV(w io.Writer, rows []report.InventoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(exportRecord(row)); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the inventory as an Excel workbook with one sheet.
func ExportXLSX(w io.Writer, rows []report.InventoryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := setRow(f, 1, ExportHeader); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, exportRecord(row)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNo int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNo, err)
	}
	return nil
}
