package core

// validation.go provides row-level validation for CSV data before insertion.
//
// Validation happens at two levels:
//  1. Header validation: ensures required columns are present
//  2. Row validation: checks each cell against its FieldSpec
//
// Every problem in a row is returned, not just the first, so one run of
// the importer shows the operator everything that must be fixed.

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Column names of the import file.
const (
	ColClientEmail     = "client_email"
	ColClientShop      = "client_shop"
	ColClientFirstName = "client_first_name"
	ColClientLastName  = "client_last_name"
	ColUserEmail       = "user_email"
	ColUserName        = "user_name"
	ColUserLastName    = "user_last_name"
	ColUserLocation    = "user_location"
	ColOrderID         = "order_id"
	ColProductIDs      = "product_ids"
	ColOrderTotal      = "order_total"
)

// ImportFields describes every column of the import file. Columns that
// must exist in the header but may hold an empty cell have Required=false
// and are listed in headerColumns.
var ImportFields = []FieldSpec{
	{Name: ColClientEmail, Type: FieldEmail, Required: true, MaxLen: 254},
	{Name: ColClientShop, Type: FieldText, Required: true, MaxLen: 255},
	{Name: ColClientFirstName, Type: FieldText, MaxLen: 50},
	{Name: ColClientLastName, Type: FieldText, MaxLen: 50},
	{Name: ColUserEmail, Type: FieldEmail, Required: true, MaxLen: 254},
	{Name: ColUserName, Type: FieldText, MaxLen: 255},
	{Name: ColUserLastName, Type: FieldText, MaxLen: 255},
	{Name: ColUserLocation, Type: FieldText, MaxLen: 255},
	{Name: ColOrderID, Type: FieldText, Required: true, MaxLen: 255},
	{Name: ColProductIDs, Type: FieldJSONList, Required: true},
	{Name: ColOrderTotal, Type: FieldNumeric},
}

// headerColumns are the columns every import file must carry.
var headerColumns = []string{
	ColClientEmail, ColClientShop, ColClientFirstName, ColClientLastName,
	ColUserEmail, ColUserName, ColUserLastName, ColUserLocation,
	ColOrderID, ColProductIDs,
}

// RowValidator validates rows against a set of field specifications.
type RowValidator struct {
	specs     []FieldSpec
	headerIdx HeaderIndex
}

// NewRowValidator creates a validator for the given specs and header index.
func NewRowValidator(specs []FieldSpec, headerIdx HeaderIndex) *RowValidator {
	return &RowValidator{
		specs:     specs,
		headerIdx: headerIdx,
	}
}

// Cell returns the cleaned value of column name, or "" when the column
// is absent from the header or the row is short.
func (v *RowValidator) Cell(row []string, name string) string {
	pos, ok := v.headerIdx[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// ValidateRow validates a single CSV row and returns all errors found.
// line is the 1-based line number reported in each error.
func (v *RowValidator) ValidateRow(line int, row []string) []RowError {
	var errs []RowError

	for _, spec := range v.specs {
		raw := v.Cell(row, spec.Name)

		if raw == "" {
			if spec.Required {
				errs = append(errs, RowError{
					Line:    line,
					Field:   spec.Name,
					Message: "required field is empty",
				})
			}
			continue
		}

		if spec.MaxLen > 0 && utf8.RuneCountInString(raw) > spec.MaxLen {
			errs = append(errs, RowError{
				Line:    line,
				Field:   spec.Name,
				Value:   raw,
				Message: fmt.Sprintf("longer than %d characters", spec.MaxLen),
			})
			continue
		}

		if err := ValidateCell(raw, spec); err != nil {
			errs = append(errs, RowError{
				Line:    line,
				Field:   spec.Name,
				Value:   raw,
				Message: err.Error(),
			})
		}
	}

	return errs
}

// ValidateCell validates a single non-empty cell against its spec.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}

	switch spec.Type {
	case FieldEmail:
		if !IsValidEmail(value) {
			return fmt.Errorf("%q is not a valid email address", value)
		}
	case FieldNumeric:
		d, err := ParseAmount(value)
		if err != nil {
			return fmt.Errorf("invalid number format")
		}
		if d.IsNegative() {
			return fmt.Errorf("must not be negative")
		}
		if err := CheckAmount(d); err != nil {
			return err
		}
	case FieldJSONList:
		if _, err := ParseLineItems(value); err != nil {
			return err
		}
	}
	return nil
}

// IsValidEmail reports whether s is a single bare address such as
// jane@example.com, with a dotted domain and no display name.
func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// ValidateHeaders checks that every required column exists in the CSV
// header. It returns the header index, or an error listing every missing
// column.
func ValidateHeaders(headers []string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, name := range headerColumns {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s (required: %s)",
			strings.Join(missing, ", "), strings.Join(headerColumns, ", "))
	}

	return idx, nil
}
