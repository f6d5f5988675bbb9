package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/reviews/internal/database"
	"github.com/JonMunkholm/reviews/internal/database/memdb"
	"github.com/JonMunkholm/reviews/internal/logging"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	clientEmail, shop, order, products, total string
	userEmail                                 string
}

func (r row) cells() []string {
	userEmail := r.userEmail
	if userEmail == "" {
		userEmail = "customer-" + r.order + "@example.org"
	}
	return []string{
		r.clientEmail, r.shop, "Anne", "Martin",
		userEmail, "Jane", "Doe", "Lyon",
		r.order, r.products, r.total,
	}
}

func writeCSV(t *testing.T, rows ...row) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(testHeader))
	for _, r := range rows {
		require.NoError(t, w.Write(r.cells()))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return writeFile(t, buf.String())
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleRows() []row {
	return []row{
		{clientEmail: "a@shop-a.com", shop: "Shop A", order: "A-1", products: `["SKU-1", "SKU-2"]`},
		{clientEmail: "a@shop-a.com", shop: "Shop A", order: "A-2", products: `[{"id": "SKU-1", "price": "10.00", "quantity": 2}]`},
		{clientEmail: "b@shop-b.com", shop: "Shop B", order: "B-1", products: `[42]`, total: "€15.50"},
	}
}

func countsOf(t *testing.T, db *memdb.DB) database.CountRowsRow {
	t.Helper()
	c, err := db.CountRows(context.Background())
	require.NoError(t, err)
	return c
}

func TestImport_PersistsEveryRow(t *testing.T) {
	db := memdb.New()
	path := writeCSV(t, sampleRows()...)

	report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: path})
	require.NoError(t, err)

	assert.True(t, report.Committed)
	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 3, report.ProcessedRows)
	assert.Zero(t, report.FailedRows)
	assert.Equal(t, 1, db.Commits)

	assert.Equal(t, database.CountRowsRow{
		Clients: 2, Customers: 3, Products: 3, Orders: 3, OrderItems: 4,
	}, countsOf(t, db))
	require.NotNil(t, report.Counts)
	assert.Equal(t, int64(3), report.Counts.Orders)
}

// Every order must reference a persisted customer of its own client.
func TestImport_OrdersReferencePersistedCustomers(t *testing.T) {
	db := memdb.New()
	_, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeCSV(t, sampleRows()...)})
	require.NoError(t, err)

	customers := map[int32]database.Customer{}
	for _, c := range db.Customers() {
		customers[c.ID] = c
	}
	for _, o := range db.Orders() {
		c, ok := customers[o.CustomerID]
		require.True(t, ok, "order %s references missing customer %d", o.OrderRef, o.CustomerID)
		assert.Equal(t, o.ClientID, c.ClientID, "order %s customer belongs to another client", o.OrderRef)
		assert.Equal(t, c.Email, o.CustomerEmail)
		assert.False(t, o.MailSent)
	}
}

func TestImport_OrderTotals(t *testing.T) {
	db := memdb.New()
	_, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeCSV(t, sampleRows()...)})
	require.NoError(t, err)

	totals := map[string]string{}
	for _, o := range db.Orders() {
		totals[o.OrderRef] = FormatAmount(o.Total)
	}
	assert.Equal(t, "", totals["A-1"], "unpriced items give a NULL total")
	assert.Equal(t, "20.00", totals["A-2"])
	assert.Equal(t, "15.50", totals["B-1"], "explicit order_total wins")
}

func TestImport_DryRunNeverChangesCounts(t *testing.T) {
	inputs := map[string][]row{
		"valid": sampleRows(),
		"invalid": {
			{clientEmail: "a@shop-a.com", shop: "Shop A", order: "A-1", products: `["SKU-1"]`},
			{clientEmail: "broken", shop: "Shop A", order: "A-2", products: `not json`},
		},
	}

	for name, rows := range inputs {
		t.Run(name, func(t *testing.T) {
			db := memdb.New()
			before := countsOf(t, db)

			report, _ := NewImporter(db).Import(context.Background(), ImportOptions{
				Path:   writeCSV(t, rows...),
				DryRun: true,
			})

			assert.Equal(t, before, countsOf(t, db))
			assert.Zero(t, db.Commits)
			assert.False(t, report.Committed)
		})
	}
}

func TestImport_DryRunReportsWhatWouldLoad(t *testing.T) {
	db := memdb.New()
	report, err := NewImporter(db).Import(context.Background(), ImportOptions{
		Path:   writeCSV(t, sampleRows()...),
		DryRun: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.ProcessedRows)
	assert.Empty(t, db.Orders())
}

func TestImport_DryRunSurfacesDatabaseConflicts(t *testing.T) {
	db := memdb.New()
	_, err := db.UpsertClient(context.Background(), database.UpsertClientParams{
		Uuid: NewPgUUID(), Email: "owner@shop-a.com", Shop: "Shop A",
	})
	require.NoError(t, err)
	before := countsOf(t, db)

	report, err := NewImporter(db).Import(context.Background(), ImportOptions{
		Path:   writeCSV(t, sampleRows()...),
		DryRun: true,
	})

	require.ErrorIs(t, err, ErrImportAborted)
	assert.Equal(t, before, countsOf(t, db))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Line)
	assert.Contains(t, report.Errors[0].Message, "DB001")
}

func TestImport_AnyInvalidRowPersistsNothing(t *testing.T) {
	rows := append(sampleRows(),
		row{clientEmail: "c@shop-c.com", shop: "Shop C", order: "", products: `[]`},
	)
	db := memdb.New()

	report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeCSV(t, rows...)})

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, database.CountRowsRow{}, countsOf(t, db))
	assert.Zero(t, db.Commits)
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 1, report.FailedRows)
	assert.Zero(t, report.ProcessedRows)

	require.Len(t, report.Errors, 2, "order_id and product_ids both reported")
	for _, e := range report.Errors {
		assert.Equal(t, 5, e.Line)
	}
}

func TestImport_DatabaseErrorRollsBack(t *testing.T) {
	db := memdb.New()
	calls := 0
	db.Fail = func(op string) error {
		if op != "InsertOrderItem" {
			return nil
		}
		calls++
		if calls == 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}

	report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeCSV(t, sampleRows()...)})

	require.ErrorIs(t, err, ErrImportAborted)
	assert.Contains(t, err.Error(), "line 3")
	assert.Zero(t, db.Commits)
	assert.False(t, report.Committed)
	assert.Zero(t, report.ProcessedRows)

	db.Fail = nil
	assert.Equal(t, database.CountRowsRow{}, countsOf(t, db))
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Message, "DB005")
}

func TestImport_ReimportKeepsMailFlagAndReplacesItems(t *testing.T) {
	ctx := context.Background()
	db := memdb.New()
	im := NewImporter(db)

	_, err := im.Import(ctx, ImportOptions{Path: writeCSV(t, sampleRows()...)})
	require.NoError(t, err)

	var target database.Order
	for _, o := range db.Orders() {
		if o.OrderRef == "A-1" {
			target = o
		}
	}
	n, err := db.MarkOrderMailSent(ctx, database.MarkOrderMailSentParams{
		ID:         target.ID,
		MailSentAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	rows := sampleRows()
	rows[0].products = `["SKU-3"]`
	_, err = im.Import(ctx, ImportOptions{Path: writeCSV(t, rows...)})
	require.NoError(t, err)

	assert.Len(t, db.Orders(), 3, "re-import updates orders in place")
	for _, o := range db.Orders() {
		if o.ID == target.ID {
			assert.True(t, o.MailSent, "re-import must not reset mail_sent")
		}
	}

	var refs []string
	for _, it := range db.OrderItems() {
		if it.OrderID == target.ID {
			for _, p := range db.Products() {
				if p.ID == it.ProductID {
					refs = append(refs, p.Reference)
				}
			}
		}
	}
	assert.Equal(t, []string{"SKU-3"}, refs)
}

func TestImport_HeaderOnlyIsAWarning(t *testing.T) {
	db := memdb.New()
	path := writeFile(t, strings.Join(testHeader, ",")+"\n")

	report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: path})

	require.NoError(t, err)
	assert.Zero(t, report.TotalRows)
	assert.Len(t, report.Warnings, 1)
	assert.Zero(t, db.Commits)
}

func TestImport_FileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		maxSize int64
		wantSub string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(dir, "nope.csv") },
			wantSub: "file not found",
		},
		{
			name:    "empty file",
			path:    func(t *testing.T) string { return writeFile(t, "") },
			wantSub: "empty file",
		},
		{
			name:    "missing columns",
			path:    func(t *testing.T) string { return writeFile(t, "client_email,order_id\na@b.com,1\n") },
			wantSub: "missing required columns",
		},
		{
			name:    "too large",
			path:    func(t *testing.T) string { return writeCSV(t, sampleRows()...) },
			maxSize: 10,
			wantSub: "file too large",
		},
		{
			name:    "directory",
			path:    func(t *testing.T) string { return dir },
			wantSub: "is a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := memdb.New()
			report, err := NewImporter(db).Import(context.Background(), ImportOptions{
				Path:        tt.path(t),
				MaxFileSize: tt.maxSize,
			})

			require.ErrorIs(t, err, ErrFile)
			assert.Contains(t, err.Error(), tt.wantSub)
			assert.NotNil(t, report)
			assert.Zero(t, db.Commits)
		})
	}
}

func TestImport_InFileConflicts(t *testing.T) {
	rows := []row{
		{clientEmail: "a@shop-a.com", shop: "Shop A", order: "1", products: `["X"]`},
		{clientEmail: "a@shop-a.com", shop: "Shop Z", order: "2", products: `["X"]`},
		{clientEmail: "other@shop-a.com", shop: "Shop A", order: "3", products: `["X"]`},
		{clientEmail: "a@shop-a.com", shop: "Shop A", order: "1", products: `["Y"]`},
	}
	db := memdb.New()

	report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeCSV(t, rows...)})

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 3, report.FailedRows)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, 3, report.Errors[0].Line)
	assert.Contains(t, report.Errors[0].Message, "conflicts with shop")
	assert.Equal(t, 4, report.Errors[1].Line)
	assert.Contains(t, report.Errors[1].Message, "conflicts with client")
	assert.Equal(t, 5, report.Errors[2].Line)
	assert.Contains(t, report.Errors[2].Message, "duplicate order, already on line 2")
}

func TestImport_LineNumbersFollowTheFile(t *testing.T) {
	header := strings.Join(testHeader, ",")
	content := "\xEF\xBB\xBF" + header + "\n" +
		`a@shop-a.com,Shop A,Anne,Martin,j@example.org,Jane,Doe,Lyon,1,"[` + "\n" + `""SKU-1""]",` + "\n" +
		"\n" +
		`a@shop-a.com,Shop A,Anne,Martin,bad-email,Jane,Doe,Lyon,2,"[""SKU-2""]",` + "\n"

	db := memdb.New()
	report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeFile(t, content)})

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 2, report.TotalRows)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 5, report.Errors[0].Line)
	assert.Equal(t, ColUserEmail, report.Errors[0].Field)
}

func TestImport_ShortRow(t *testing.T) {
	content := strings.Join(testHeader, ",") + "\n" + "a@shop-a.com,Shop A\n"
	report, err := NewImporter(memdb.New()).Import(context.Background(), ImportOptions{Path: writeFile(t, content)})

	require.ErrorIs(t, err, ErrValidation)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Message, "expected 11 columns, got 2")
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := memdb.New()
	_, err := NewImporter(db).Import(ctx, ImportOptions{Path: writeCSV(t, sampleRows()...)})

	require.ErrorIs(t, err, ErrImportAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, db.Commits)
}

// Amounts that NUMERIC(12,2) would round or reject are caught before any write.
func TestImport_AmountsMustFitStorage(t *testing.T) {
	tests := []struct {
		name      string
		products  string
		wantField string
		wantSub   string
	}{
		{"sub-cent price", `[{"id": "SKU-1", "price": "12.345", "quantity": 2}]`, ColProductIDs, "more than 2 decimal places"},
		{"price too large", `[{"id": "SKU-1", "price": "99999999999.99"}]`, ColProductIDs, "must be less than"},
		{"computed total too large", `[{"id": "SKU-1", "price": "9999999999.99", "quantity": 2}]`, ColOrderTotal, "order total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := memdb.New()
			path := writeCSV(t, row{clientEmail: "a@shop-a.com", shop: "Shop A", order: "A-1", products: tt.products})

			report, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: path})
			require.ErrorIs(t, err, ErrValidation)
			require.Len(t, report.Errors, 1)
			assert.Equal(t, 2, report.Errors[0].Line)
			assert.Equal(t, tt.wantField, report.Errors[0].Field)
			assert.Contains(t, report.Errors[0].Message, tt.wantSub)
			assert.Equal(t, database.CountRowsRow{}, countsOf(t, db))
		})
	}
}

func TestImport_LogsOrderUUID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	db := memdb.New()
	_, err := NewImporter(db).Import(context.Background(), ImportOptions{Path: writeCSV(t, sampleRows()...)})
	require.NoError(t, err)

	for _, o := range db.Orders() {
		assert.Contains(t, buf.String(), `"order_uuid":"`+PgUUIDToString(o.Uuid)+`"`, "order %s", o.OrderRef)
	}
}
