package notion

import (
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

// decodePage maps the typed page properties onto a record. Any missing or
// invalid field is ErrMalformedRecord rather than a zero value.
func (c *Client) decodePage(p notionapi.Page) (core.ExpenseRecord, error) {
	id := string(p.ID)
	malformed := func(field string, detail any) error {
		return fmt.Errorf("%w: page %s: %s %v", core.ErrMalformedRecord, id, field, detail)
	}
	if id == "" {
		return core.ExpenseRecord{}, malformed("id", "missing")
	}

	title, ok := titleOf(p.Properties[c.catProp])
	if !ok {
		return core.ExpenseRecord{}, malformed(c.catProp, "missing")
	}
	var sb strings.Builder
	for _, t := range title {
		sb.WriteString(t.PlainText)
	}
	category := strings.TrimSpace(sb.String())
	if category == "" {
		return core.ExpenseRecord{}, malformed(c.catProp, "empty")
	}

	num, ok := numberOf(p.Properties[c.amtProp])
	if !ok {
		return core.ExpenseRecord{}, malformed(c.amtProp, "missing")
	}
	amount := decimal.NewFromFloat(num)
	if amount.IsNegative() {
		return core.ExpenseRecord{}, malformed(c.amtProp, amount.String())
	}

	start, ok := dateOf(p.Properties[c.dateProp])
	if !ok {
		return core.ExpenseRecord{}, malformed(c.dateProp, "empty")
	}

	return core.ExpenseRecord{ID: id, Category: category, Amount: amount, Date: core.DateOf(start)}, nil
}

// The client decodes properties as pointers; values are accepted too.

func titleOf(p notionapi.Property) ([]notionapi.RichText, bool) {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		if v == nil {
			return nil, false
		}
		return v.Title, true
	case notionapi.TitleProperty:
		return v.Title, true
	}
	return nil, false
}

func numberOf(p notionapi.Property) (float64, bool) {
	switch v := p.(type) {
	case *notionapi.NumberProperty:
		if v == nil {
			return 0, false
		}
		return v.Number, true
	case notionapi.NumberProperty:
		return v.Number, true
	}
	return 0, false
}

func dateOf(p notionapi.Property) (time.Time, bool) {
	var obj *notionapi.DateObject
	switch v := p.(type) {
	case *notionapi.DateProperty:
		if v != nil {
			obj = v.Date
		}
	case notionapi.DateProperty:
		obj = v.Date
	}
	if obj == nil || obj.Start == nil {
		return time.Time{}, false
	}
	return time.Time(*obj.Start), true
}
