package core

// convert.go turns raw CSV cells into Go and PostgreSQL values.
//
// Amounts are parsed with shopspring/decimal so totals are summed
// exactly. ToPg* helpers return values with Valid=false for empty input
// so the database stores NULL.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// amountRegex matches a plain decimal after currency cleanup.
var amountRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// currencySymbols are stripped from amounts before parsing.
var currencySymbols = []string{"$", "€", "£", "EUR", "USD"}

// ParseAmount parses a monetary cell. It tolerates currency symbols,
// thousands separators and the accounting form "(12.50)" for negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q: empty", raw)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)

	if !amountRegex.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Amounts are stored as NUMERIC(12,2).
const (
	AmountScale  = 2
	amountDigits = 10 // integer digits
)

var maxAmount = decimal.New(1, amountDigits)

// CheckAmount reports an error when d cannot be stored in a NUMERIC(12,2)
// column without rounding or overflow.
func CheckAmount(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(AmountScale)) {
		return fmt.Errorf("invalid number %s: more than %d decimal places", d, AmountScale)
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("invalid number %s: must be less than %s", d, maxAmount)
	}
	return nil
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgNumeric converts a nullable decimal to pgtype.Numeric.
func ToPgNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{Valid: false}
	}
	var n pgtype.Numeric
	if err := n.Scan(d.Decimal.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// FromPgNumeric converts a pgtype.Numeric back to a nullable decimal.
// NaN and infinities come back as invalid.
func FromPgNumeric(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(n.Int, n.Exp))
}

// FormatAmount renders n with two decimals, or "" when NULL.
func FormatAmount(n pgtype.Numeric) string {
	d := FromPgNumeric(n)
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

// NewPgUUID returns a fresh random UUID for a new base record.
func NewPgUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. When a header
// repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// surrounding whitespace and the Excel formula wrapper ="...".
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
