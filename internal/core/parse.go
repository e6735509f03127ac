package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLine splits a chat line into a category and a non-negative amount.
// The line must hold exactly two whitespace separated tokens; categories
// with spaces are not supported.
func ParseLine(line string) (string, decimal.Decimal, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", decimal.Zero, &ParseError{Line: line, Reason: "expected: category amount"}
	}
	category := strings.TrimSpace(fields[0])
	if err := ValidateCategory(category); err != nil {
		return "", decimal.Zero, &ParseError{Line: line, Reason: err.Error()}
	}
	amount, err := ParseAmount(fields[1])
	if err != nil {
		return "", decimal.Zero, &ParseError{Line: line, Reason: "amount must be a non-negative number"}
	}
	return category, amount, nil
}
