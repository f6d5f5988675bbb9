package core

import (
	"strings"
	"testing"
)

var testHeader = []string{
	"client_email", "client_shop", "client_first_name", "client_last_name",
	"user_email", "user_name", "user_last_name", "user_location",
	"order_id", "product_ids", "order_total",
}

func validRow() []string {
	return []string{
		"shop@example.com", "Boutique Lumière", "Anne", "Martin",
		"jane@example.org", "Jane", "Doe", "Lyon",
		"ORD-1", `["SKU-1"]`, "19.90",
	}
}

func newTestValidator(t *testing.T) *RowValidator {
	t.Helper()
	idx, err := ValidateHeaders(testHeader)
	if err != nil {
		t.Fatalf("ValidateHeaders() error = %v", err)
	}
	return NewRowValidator(ImportFields, idx)
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"jane@example.com", true},
		{"jane.doe+shop@mail.example.co.uk", true},
		{"", false},
		{"jane", false},
		{"jane@", false},
		{"@example.com", false},
		{"jane@localhost", false},
		{"jane@example.", false},
		{"Jane <jane@example.com>", false},
		{"jane@example.com, joe@example.com", false},
		{" jane@example.com", false},
		{"jane@@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidEmail(tt.input); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateHeaders(t *testing.T) {
	if _, err := ValidateHeaders(testHeader); err != nil {
		t.Errorf("full header rejected: %v", err)
	}

	// order_total is optional
	if _, err := ValidateHeaders(testHeader[:len(testHeader)-1]); err != nil {
		t.Errorf("header without order_total rejected: %v", err)
	}

	upper := make([]string, len(testHeader))
	for i, h := range testHeader {
		upper[i] = strings.ToUpper(h)
	}
	if _, err := ValidateHeaders(upper); err != nil {
		t.Errorf("upper-case header rejected: %v", err)
	}
}

func TestValidateHeaders_ListsEveryMissingColumn(t *testing.T) {
	_, err := ValidateHeaders([]string{"client_email", "client_shop", "order_id"})
	if err == nil {
		t.Fatal("ValidateHeaders() expected error")
	}
	for _, col := range []string{"product_ids", "user_email", "client_first_name", "user_location"} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error should mention %s: %v", col, err)
		}
	}
	if !strings.Contains(err.Error(), "missing required columns") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestValidateRow_Valid(t *testing.T) {
	v := newTestValidator(t)
	if errs := v.ValidateRow(2, validRow()); len(errs) != 0 {
		t.Errorf("ValidateRow() = %v, want no errors", errs)
	}
}

func TestValidateRow_OptionalCellsMayBeEmpty(t *testing.T) {
	v := newTestValidator(t)
	row := validRow()
	row[2], row[3], row[5], row[6], row[7], row[10] = "", "", "", "", "", ""

	if errs := v.ValidateRow(2, row); len(errs) != 0 {
		t.Errorf("ValidateRow() = %v, want no errors", errs)
	}
}

func TestValidateRow_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(row []string)
		wantField string
		wantSub   string
	}{
		{"empty client email", func(r []string) { r[0] = "" }, ColClientEmail, "required field is empty"},
		{"invalid client email", func(r []string) { r[0] = "not-an-email" }, ColClientEmail, "not a valid email address"},
		{"empty shop", func(r []string) { r[1] = "   " }, ColClientShop, "required field is empty"},
		{"long first name", func(r []string) { r[2] = strings.Repeat("é", 51) }, ColClientFirstName, "longer than 50"},
		{"invalid user email", func(r []string) { r[4] = "jane@" }, ColUserEmail, "not a valid email address"},
		{"long location", func(r []string) { r[7] = strings.Repeat("x", 256) }, ColUserLocation, "longer than 255"},
		{"empty order id", func(r []string) { r[8] = "" }, ColOrderID, "required field is empty"},
		{"empty product ids", func(r []string) { r[9] = "" }, ColProductIDs, "required field is empty"},
		{"product ids not a list", func(r []string) { r[9] = `{"id": 1}` }, ColProductIDs, "JSON list"},
		{"negative total", func(r []string) { r[10] = "-5" }, ColOrderTotal, "must not be negative"},
		{"bad total", func(r []string) { r[10] = "lots" }, ColOrderTotal, "invalid number"},
		{"total with three decimals", func(r []string) { r[10] = "19.999" }, ColOrderTotal, "more than 2 decimal places"},
		{"total too large", func(r []string) { r[10] = "10,000,000,000" }, ColOrderTotal, "must be less than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t)
			row := validRow()
			tt.mutate(row)

			errs := v.ValidateRow(7, row)
			if len(errs) != 1 {
				t.Fatalf("ValidateRow() = %v, want exactly 1 error", errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
			if errs[0].Line != 7 {
				t.Errorf("Line = %d, want 7", errs[0].Line)
			}
			if !strings.Contains(errs[0].Message, tt.wantSub) {
				t.Errorf("Message = %q, want it to contain %q", errs[0].Message, tt.wantSub)
			}
		})
	}
}

func TestValidateRow_CollectsAllErrors(t *testing.T) {
	v := newTestValidator(t)
	row := validRow()
	row[0] = "bad"
	row[4] = ""
	row[9] = "[]"

	errs := v.ValidateRow(3, row)
	if len(errs) != 3 {
		t.Fatalf("ValidateRow() returned %d errors, want 3: %v", len(errs), errs)
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, f := range []string{ColClientEmail, ColUserEmail, ColProductIDs} {
		if !fields[f] {
			t.Errorf("missing error for %s", f)
		}
	}
}

func TestRowError_Error(t *testing.T) {
	tests := []struct {
		err  RowError
		want string
	}{
		{RowError{Line: 4, Field: "order_id", Message: "required field is empty"}, "line 4: order_id: required field is empty"},
		{RowError{Line: 4, Message: "expected 11 columns, got 3"}, "line 4: expected 11 columns, got 3"},
		{RowError{Field: "order_id", Message: "bad"}, "order_id: bad"},
		{RowError{Message: "boom"}, "boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
