package exchange

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// ImportColumns are the columns ImportCSV understands. Only name and
// item_type are required; the header may list columns in any order.
var ImportColumns = []string{
	"name", "serial_number", "inventory_number", "item_type",
	"description", "purchase_date", "cost", "is_active",
}

// RowError reports a CSV row that could not be imported. Rows are numbered
// from 1, not counting the header.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult lists the created items and the rejected rows.
type ImportResult struct {
	CreatedItems []int64    `json:"created_items"`
	Errors       []RowError `json:"errors"`
}

// ErrBadHeader means the CSV header lacks a required column.
var ErrBadHeader = errors.New("csv header must contain name and item_type")

// ImportCSV creates one item per CSV row. Rows fail independently; a row
// failure never undoes the rows before it.
func ImportCSV(ctx context.Context, s *store.Store, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrBadHeader
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv header: %v", model.ErrInvalidInput, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, ErrBadHeader
	}
	if _, ok := cols["item_type"]; !ok {
		return nil, ErrBadHeader
	}

	res := &ImportResult{CreatedItems: []int64{}, Errors: []RowError{}}
	types := make(map[string]int64)

	for rowNo := 1; ; rowNo++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNo, Error: err.Error()})
			continue
		}

		get := func(col string) string {
			if i, ok := cols[col]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		id, err := importRow(ctx, s, types, get)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNo, Error: err.Error()})
			continue
		}
		res.CreatedItems = append(res.CreatedItems, id)
	}

	slog.Info("inventory imported", "created", len(res.CreatedItems), "failed", len(res.Errors))
	return res, nil
}

func importRow(ctx context.Context, s *store.Store, types map[string]int64, get func(string) string) (int64, error) {
	typeName := get("item_type")
	if typeName == "" {
		return 0, errors.New("item_type is empty")
	}
	typeID, ok := types[typeName]
	if !ok {
		t, err := s.ItemTypeByName(ctx, typeName)
		if err != nil {
			if errors.Is(err, model.ErrItemTypeNotFound) {
				return 0, fmt.Errorf("item type %q not found", typeName)
			}
			return 0, err
		}
		typeID = t.ID
		types[typeName] = typeID
	}

	in := model.ItemInput{
		Name:            get("name"),
		ItemTypeID:      typeID,
		SerialNumber:    get("serial_number"),
		InventoryNumber: get("inventory_number"),
		Description:     get("description"),
		PurchaseDate:    get("purchase_date"),
	}

	if c := get("cost"); c != "" {
		cost, err := decimal.NewFromString(c)
		if err != nil {
			return 0, fmt.Errorf("invalid cost %q", c)
		}
		in.Cost = decimal.NewNullDecimal(cost)
	}

	if a := get("is_active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			return 0, fmt.Errorf("invalid is_active %q", a)
		}
		in.IsActive = &active
	}

	if err := model.Validate(in); err != nil {
		return 0, err
	}

	item, err := s.CreateItem(ctx, in)
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}
