package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/reviews/internal/database"
	"github.com/shopspring/decimal"
)

// Import outcomes matched with errors.Is.
var (
	// ErrValidation means at least one row failed validation; nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrImportAborted means the persistence step failed and was rolled back.
	ErrImportAborted = errors.New("import aborted")

	// ErrFile covers file-level problems: missing, unreadable, too large, no header.
	ErrFile = errors.New("file error")
)

// FieldType represents the expected data type for a CSV field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEmail
	FieldNumeric
	FieldJSONList
)

// FieldSpec defines validation rules for a single CSV column.
type FieldSpec struct {
	Name     string    // Column header name, matched case-insensitively
	Type     FieldType // Expected data type
	Required bool      // Column must exist and the cell must be non-empty
	MaxLen   int       // Maximum length in characters, 0 for unlimited
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// RowError is one problem found on one CSV line. Line 1 is the header.
type RowError struct {
	Line    int
	Field   string
	Value   string
	Message string
}

func (e RowError) Error() string {
	switch {
	case e.Line > 0 && e.Field != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

// LineItem is one element of the product_ids JSON list.
type LineItem struct {
	Reference  string
	Name       string              // Empty when the list only carried a reference
	Price      decimal.NullDecimal // Unit price, if given
	Quantity   int32
	Attributes json.RawMessage // JSON object, nil when absent
}

// ImportRecord is one validated CSV row.
type ImportRecord struct {
	Line int

	ClientEmail     string
	ClientShop      string
	ClientFirstName string
	ClientLastName  string

	UserEmail     string
	UserFirstName string
	UserLastName  string
	UserLocation  string

	OrderRef string
	Total    decimal.NullDecimal
	Items    []LineItem
}

// CustomerName is the display name stored on the order.
func (r ImportRecord) CustomerName() string {
	switch {
	case r.UserFirstName != "" && r.UserLastName != "":
		return r.UserFirstName + " " + r.UserLastName
	case r.UserFirstName != "":
		return r.UserFirstName
	default:
		return r.UserLastName
	}
}

// ImportOptions controls a single import run.
type ImportOptions struct {
	Path   string
	DryRun bool

	// MaxFileSize rejects larger files before reading. Zero disables the check.
	MaxFileSize int64

	// ProgressInterval is the number of rows between progress log entries.
	ProgressInterval int
}

// ImportReport summarises an import run.
type ImportReport struct {
	Path   string
	DryRun bool

	TotalRows     int // Data rows read, blank lines excluded
	ProcessedRows int // Rows persisted, or that would have been in dry-run
	FailedRows    int // Rows with at least one error

	Errors   []RowError
	Warnings []string

	// Committed is true only when a real run reached commit.
	Committed bool

	// Counts holds the table sizes after the run, when they could be read.
	Counts *database.CountRowsRow

	Duration time.Duration
}

// HasErrors reports whether the run found any row or database error.
func (r *ImportReport) HasErrors() bool {
	return len(r.Errors) > 0
}
