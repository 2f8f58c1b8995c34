package ast

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NumberFormat describes the separators found in a written quantity.
type NumberFormat struct {
	DecimalMark  rune
	ThousandsSep string
	HasDecimal   bool
}

// InferNumberFormat guesses the decimal mark and digit grouping of a quantity
// the way hledger does without a commodity directive: when both '.' and ','
// occur, the last one is the decimal mark; a mark that occurs once is a
// decimal mark; a mark that repeats is digit grouping.
func InferNumberFormat(quantity string) NumberFormat {
	nf := NumberFormat{DecimalMark: '.'}

	digits := strings.TrimLeft(quantity, "+-")
	lastDot := strings.LastIndex(digits, ".")
	lastComma := strings.LastIndex(digits, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			nf.DecimalMark, nf.ThousandsSep = '.', ","
		} else {
			nf.DecimalMark, nf.ThousandsSep = ',', "."
		}
		nf.HasDecimal = true
	case lastDot >= 0:
		if strings.Count(digits, ".") > 1 {
			nf.ThousandsSep = "."
		} else {
			nf.HasDecimal = true
		}
	case lastComma >= 0:
		if strings.Count(digits, ",") > 1 {
			nf.ThousandsSep = ","
		} else {
			nf.DecimalMark = ','
			nf.HasDecimal = true
		}
	}

	if nf.ThousandsSep == "" && strings.Contains(digits, " ") {
		nf.ThousandsSep = " "
	}
	return nf
}

// ParseQuantity converts a written quantity such as "-1 000,50" or
// "1,234.5" into a decimal value.
func ParseQuantity(quantity string) (decimal.Decimal, error) {
	q := strings.TrimSpace(quantity)
	if q == "" {
		return decimal.Decimal{}, fmt.Errorf("empty quantity")
	}

	negative := false
	for len(q) > 0 && (q[0] == '-' || q[0] == '+') {
		if q[0] == '-' {
			negative = !negative
		}
		q = q[1:]
	}

	nf := InferNumberFormat(q)
	if nf.ThousandsSep != "" {
		q = strings.ReplaceAll(q, nf.ThousandsSep, "")
	}
	q = strings.ReplaceAll(q, " ", "")
	if nf.HasDecimal && nf.DecimalMark == ',' {
		q = strings.Replace(q, ",", ".", 1)
	}

	value, err := decimal.NewFromString(q)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

// Value returns the numeric value of the amount. Value expressions have no
// quantity and report an error.
func (a *Amount) Value() (decimal.Decimal, error) {
	if a.Quantity == "" {
		return decimal.Decimal{}, fmt.Errorf("amount %q has no plain quantity", a.Raw)
	}
	return ParseQuantity(a.Quantity)
}
