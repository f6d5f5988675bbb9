package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/JonMunkholm/reviews/internal/database"
	"github.com/JonMunkholm/reviews/internal/logging"
	"github.com/shopspring/decimal"
)

// ContextCheckInterval is how often to check for context cancellation.
var ContextCheckInterval = 100

// errDryRunRollback aborts the dry-run transaction after every statement succeeded.
var errDryRunRollback = errors.New("dry-run rollback")

// Store is the persistence the importer needs. *database.Store and
// *memdb.DB both satisfy it.
type Store interface {
	InTx(ctx context.Context, fn func(database.Querier) error) error
	CountRows(ctx context.Context) (database.CountRowsRow, error)
}

// Importer loads import files into the database.
type Importer struct {
	store Store
}

// NewImporter creates an Importer writing through store.
func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Import validates every row of the file at opts.Path and, when all rows
// are valid, persists them in one transaction. In dry-run mode the
// transaction is always rolled back.
//
// The returned report is never nil. The error wraps ErrFile, ErrValidation
// or ErrImportAborted.
func (im *Importer) Import(ctx context.Context, opts ImportOptions) (*ImportReport, error) {
	start := time.Now()
	report := &ImportReport{Path: opts.Path, DryRun: opts.DryRun}
	logger := logging.WithFields(ctx, "file", opts.Path, "dry_run", opts.DryRun)

	defer func() {
		im.attachCounts(ctx, report)
		report.Duration = time.Since(start)
	}()

	logger.Info("import started")

	records, err := im.readFile(ctx, opts, report)
	if err != nil {
		logger.Error("import failed", "error", err)
		return report, err
	}

	if report.TotalRows == 0 {
		report.Warnings = append(report.Warnings, "the file has a header but no data rows; nothing was imported")
		logger.Warn("no data rows")
		return report, nil
	}

	if report.HasErrors() {
		logger.Warn("validation failed", "rows", report.TotalRows, "failed", report.FailedRows, "errors", len(report.Errors))
		return report, fmt.Errorf("%w: %d of %d rows have errors", ErrValidation, report.FailedRows, report.TotalRows)
	}

	if err := im.persist(ctx, records, opts.DryRun); err != nil {
		var pe *persistError
		if errors.As(err, &pe) {
			report.FailedRows = 1
			report.Errors = append(report.Errors, RowError{
				Line:    pe.line,
				Message: fmt.Sprintf("%s: %v", FormatUserError(pe.err), pe.err),
			})
			logger.Error("import rolled back", "line", pe.line, "error", pe.err)
			return report, fmt.Errorf("%w: line %d: %w", ErrImportAborted, pe.line, pe.err)
		}
		report.Errors = append(report.Errors, RowError{
			Message: fmt.Sprintf("%s: %v", FormatUserError(err), err),
		})
		logger.Error("import rolled back", "error", err)
		return report, fmt.Errorf("%w: %w", ErrImportAborted, err)
	}

	report.ProcessedRows = len(records)
	report.Committed = !opts.DryRun
	logger.Info("import finished", "rows", report.ProcessedRows, "committed", report.Committed)
	return report, nil
}

// readFile opens, streams and validates the file. Returned records are
// only meaningful when the report has no errors.
func (im *Importer) readFile(ctx context.Context, opts ImportOptions, report *ImportReport) ([]ImportRecord, error) {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, fileError(opts.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFile, opts.Path)
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes exceeds limit of %d", ErrFile, info.Size(), opts.MaxFileSize)
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, fileError(opts.Path, err)
	}
	defer f.Close()

	return im.readRecords(ctx, WrapForStreaming(f, info.Size()), opts, report)
}

func fileError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: file not found: %s", ErrFile, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: permission denied: %s", ErrFile, path)
	default:
		return fmt.Errorf("%w: open %s: %w", ErrFile, path, err)
	}
}

// readRecords parses and validates every data row from r.
func (im *Importer) readRecords(ctx context.Context, r *ProgressReader, opts ImportOptions, report *ImportReport) ([]ImportRecord, error) {
	logger := logging.WithFields(ctx, "file", opts.Path)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file: no header row", ErrFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv header: %w", ErrFile, err)
	}

	headerIdx, err := ValidateHeaders(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFile, err)
	}
	logger.Info("columns validated", "columns", len(header))

	validator := NewRowValidator(ImportFields, headerIdx)
	checker := newConsistencyChecker()

	var records []ImportRecord
	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrImportAborted, ctx.Err())
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("%w: read csv: %w", ErrFile, err)
			}
			report.TotalRows++
			report.FailedRows++
			report.Errors = append(report.Errors, RowError{
				Line:    pe.StartLine,
				Message: fmt.Sprintf("parse error: %v", pe.Err),
			})
			continue
		}

		if isEmptyRow(row) {
			continue
		}

		line, _ := cr.FieldPos(0)
		report.TotalRows++

		rec, errs := parseRecord(validator, line, row, len(header))
		if len(errs) == 0 {
			errs = checker.check(rec)
		}
		if len(errs) > 0 {
			report.FailedRows++
			report.Errors = append(report.Errors, errs...)
			logger.Debug("row rejected", "line", line, "errors", len(errs))
		} else {
			records = append(records, rec)
		}

		if opts.ProgressInterval > 0 && report.TotalRows%opts.ProgressInterval == 0 {
			logger.Info("import progress",
				"rows", report.TotalRows,
				"failed", report.FailedRows,
				"bytes", r.BytesRead,
				"percent", r.Progress(),
			)
		}
	}

	logger.Info("file read", "rows", report.TotalRows, "failed", report.FailedRows)
	return records, nil
}

// isEmptyRow reports whether every cell of row is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRecord validates row and converts it into an ImportRecord.
func parseRecord(v *RowValidator, line int, row []string, width int) (ImportRecord, []RowError) {
	if len(row) != width {
		return ImportRecord{}, []RowError{{
			Line:    line,
			Message: fmt.Sprintf("expected %d columns, got %d", width, len(row)),
		}}
	}

	if errs := v.ValidateRow(line, row); len(errs) > 0 {
		return ImportRecord{}, errs
	}

	rec := ImportRecord{
		Line:            line,
		ClientEmail:     v.Cell(row, ColClientEmail),
		ClientShop:      v.Cell(row, ColClientShop),
		ClientFirstName: v.Cell(row, ColClientFirstName),
		ClientLastName:  v.Cell(row, ColClientLastName),
		UserEmail:       v.Cell(row, ColUserEmail),
		UserFirstName:   v.Cell(row, ColUserName),
		UserLastName:    v.Cell(row, ColUserLastName),
		UserLocation:    v.Cell(row, ColUserLocation),
		OrderRef:        v.Cell(row, ColOrderID),
	}

	items, err := ParseLineItems(v.Cell(row, ColProductIDs))
	if err != nil {
		return ImportRecord{}, []RowError{{Line: line, Field: ColProductIDs, Message: err.Error()}}
	}
	rec.Items = items

	if raw := v.Cell(row, ColOrderTotal); raw != "" {
		total, err := ParseAmount(raw)
		if err != nil {
			return ImportRecord{}, []RowError{{Line: line, Field: ColOrderTotal, Value: raw, Message: err.Error()}}
		}
		rec.Total = decimal.NewNullDecimal(total)
	}

	// A computed total can overflow even when every price fits.
	if total := OrderTotal(rec.Total, rec.Items); total.Valid {
		if err := CheckAmount(total.Decimal); err != nil {
			return ImportRecord{}, []RowError{{Line: line, Field: ColOrderTotal, Value: total.Decimal.String(), Message: "order total: " + err.Error()}}
		}
	}

	return rec, nil
}

// consistencyChecker finds rows that contradict earlier rows of the same
// file: one shop per client email, one client email per shop, and one
// row per (shop, order_id).
type consistencyChecker struct {
	shopByEmail map[string]string
	emailByShop map[string]string
	orders      map[[2]string]int
}

func newConsistencyChecker() *consistencyChecker {
	return &consistencyChecker{
		shopByEmail: make(map[string]string),
		emailByShop: make(map[string]string),
		orders:      make(map[[2]string]int),
	}
}

func (c *consistencyChecker) check(rec ImportRecord) []RowError {
	var errs []RowError

	if shop, ok := c.shopByEmail[rec.ClientEmail]; ok && shop != rec.ClientShop {
		errs = append(errs, RowError{
			Line:    rec.Line,
			Field:   ColClientShop,
			Value:   rec.ClientShop,
			Message: fmt.Sprintf("conflicts with shop %q used earlier for %s", shop, rec.ClientEmail),
		})
	}
	if email, ok := c.emailByShop[rec.ClientShop]; ok && email != rec.ClientEmail {
		errs = append(errs, RowError{
			Line:    rec.Line,
			Field:   ColClientEmail,
			Value:   rec.ClientEmail,
			Message: fmt.Sprintf("conflicts with client %s used earlier for shop %q", email, rec.ClientShop),
		})
	}

	key := [2]string{rec.ClientShop, rec.OrderRef}
	if first, ok := c.orders[key]; ok {
		errs = append(errs, RowError{
			Line:    rec.Line,
			Field:   ColOrderID,
			Value:   rec.OrderRef,
			Message: fmt.Sprintf("duplicate order, already on line %d", first),
		})
	}

	if len(errs) > 0 {
		return errs
	}

	c.shopByEmail[rec.ClientEmail] = rec.ClientShop
	c.emailByShop[rec.ClientShop] = rec.ClientEmail
	c.orders[key] = rec.Line
	return nil
}

// persistError ties a database failure to the CSV line that caused it.
type persistError struct {
	line int
	err  error
}

func (e *persistError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }
func (e *persistError) Unwrap() error { return e.err }

// persist writes every record in one transaction. In dry-run the
// transaction is rolled back after the last statement succeeds.
func (im *Importer) persist(ctx context.Context, records []ImportRecord, dryRun bool) error {
	err := im.store.InTx(ctx, func(q database.Querier) error {
		for i, rec := range records {
			if i%ContextCheckInterval == 0 && ctx.Err() != nil {
				return &persistError{line: rec.Line, err: ctx.Err()}
			}
			order, err := persistRecord(ctx, q, rec)
			if err != nil {
				return &persistError{line: rec.Line, err: err}
			}
			logging.FromContext(ctx).Debug("row persisted",
				"line", rec.Line,
				"order_ref", rec.OrderRef,
				"order_uuid", PgUUIDToString(order.Uuid),
				"client", rec.ClientEmail,
			)
		}
		if dryRun {
			return errDryRunRollback
		}
		return nil
	})
	if errors.Is(err, errDryRunRollback) {
		return nil
	}
	return err
}

// persistRecord writes one record and returns the stored order.
func persistRecord(ctx context.Context, q database.Querier, rec ImportRecord) (database.Order, error) {
	client, err := q.UpsertClient(ctx, database.UpsertClientParams{
		Uuid:      NewPgUUID(),
		Email:     rec.ClientEmail,
		Shop:      rec.ClientShop,
		FirstName: rec.ClientFirstName,
		LastName:  rec.ClientLastName,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("upsert client %s: %w", rec.ClientEmail, err)
	}

	customer, err := q.UpsertCustomer(ctx, database.UpsertCustomerParams{
		Uuid:      NewPgUUID(),
		ClientID:  client.ID,
		Email:     rec.UserEmail,
		FirstName: ToPgText(rec.UserFirstName),
		LastName:  ToPgText(rec.UserLastName),
		Location:  ToPgText(rec.UserLocation),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("upsert customer %s: %w", rec.UserEmail, err)
	}

	order, err := q.UpsertOrder(ctx, database.UpsertOrderParams{
		Uuid:          NewPgUUID(),
		ClientID:      client.ID,
		CustomerID:    customer.ID,
		OrderRef:      rec.OrderRef,
		CustomerEmail: rec.UserEmail,
		CustomerName:  ToPgText(rec.CustomerName()),
		Total:         ToPgNumeric(OrderTotal(rec.Total, rec.Items)),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("upsert order %s: %w", rec.OrderRef, err)
	}

	if err := q.DeleteOrderItems(ctx, order.ID); err != nil {
		return database.Order{}, fmt.Errorf("clear items of order %s: %w", rec.OrderRef, err)
	}

	for i, item := range rec.Items {
		product, err := q.UpsertProduct(ctx, database.UpsertProductParams{
			Uuid:       NewPgUUID(),
			ClientID:   client.ID,
			Reference:  item.Reference,
			Name:       ToPgText(item.Name),
			Price:      ToPgNumeric(item.Price),
			Attributes: item.Attributes,
		})
		if err != nil {
			return database.Order{}, fmt.Errorf("upsert product %s: %w", item.Reference, err)
		}

		err = q.InsertOrderItem(ctx, database.InsertOrderItemParams{
			OrderID:   order.ID,
			ProductID: product.ID,
			Position:  int32(i),
			Quantity:  item.Quantity,
			UnitPrice: ToPgNumeric(item.Price),
		})
		if err != nil {
			return database.Order{}, fmt.Errorf("add product %s to order %s: %w", item.Reference, rec.OrderRef, err)
		}
	}

	return order, nil
}

// attachCounts records table sizes after the run. Failure only logs.
func (im *Importer) attachCounts(ctx context.Context, report *ImportReport) {
	counts, err := im.store.CountRows(context.WithoutCancel(ctx))
	if err != nil {
		logging.FromContext(ctx).Warn("count rows", "error", err)
		return
	}
	report.Counts = &counts
}
