package google

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = core.NewDate(1899, 12, 30)

// encodeRow lays a record out as ID, Category, Amount, Date.
func encodeRow(rec core.ExpenseRecord) []any {
	return []any{rec.ID, rec.Category, rec.Amount.InexactFloat64(), rec.Date.String()}
}

// parseRows converts a values matrix (as returned by Sheets API) into records.
// Blank rows and a leading header row are skipped; any other incomplete or
// invalid row fails the whole read.
func parseRows(values [][]interface{}) ([]sheetRow, error) {
	out := make([]sheetRow, 0, len(values))
	for i, row := range values {
		if isBlank(row) {
			continue
		}
		if i == 0 && strings.EqualFold(cellString(row[0]), "id") {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, sheetRow{number: i + 1, rec: rec})
	}
	return out, nil
}

func parseRow(row []interface{}) (core.ExpenseRecord, error) {
	if len(row) < 4 {
		return core.ExpenseRecord{}, fmt.Errorf("%w: expected 4 columns, got %d", core.ErrMalformedRecord, len(row))
	}
	id := cellString(row[0])
	if id == "" {
		return core.ExpenseRecord{}, fmt.Errorf("%w: missing id", core.ErrMalformedRecord)
	}
	category := cellString(row[1])
	if err := core.ValidateCategory(category); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}
	amount, err := cellAmount(row[2])
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: amount %v", core.ErrMalformedRecord, row[2])
	}
	date, err := cellDate(row[3])
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: date %v", core.ErrMalformedRecord, row[3])
	}
	return core.ExpenseRecord{ID: id, Category: category, Amount: amount, Date: date}, nil
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if cellString(v) != "" {
			return false
		}
	}
	return true
}

// cellAmount accepts numeric cells and text typed with either decimal separator.
func cellAmount(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return decimal.NewFromFloat(x), nil
	case json.Number:
		return core.ParseAmount(x.String())
	case string:
		return core.ParseAmount(x)
	default:
		return decimal.Zero, core.ErrInvalidAmount
	}
}

// cellDate accepts YYYY-MM-DD text and spreadsheet serial numbers.
func cellDate(v interface{}) (core.Date, error) {
	switch x := v.(type) {
	case float64:
		if x < 1 || x != math.Trunc(x) {
			return core.Date{}, core.ErrInvalidDate
		}
		return sheetsEpoch.AddDays(int(x)), nil
	case string:
		return core.ParseDate(x)
	default:
		return core.Date{}, core.ErrInvalidDate
	}
}
