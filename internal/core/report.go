package core

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const reportRule = "============================================================"

// WriteReport prints a human-readable summary of an import run. At most
// maxErrors error lines are printed, followed by a count of the rest.
// runErr is the error returned by Import, nil on success.
func WriteReport(w io.Writer, r *ImportReport, runErr error, maxErrors int) error {
	var b strings.Builder

	title := "Import summary"
	if r.DryRun {
		title = "Dry-run summary"
	}

	fmt.Fprintln(&b, reportRule)
	fmt.Fprintf(&b, "%s: %s\n", title, r.Path)
	fmt.Fprintln(&b, reportRule)
	fmt.Fprintf(&b, "  Rows read:            %d\n", r.TotalRows)
	if r.DryRun {
		fmt.Fprintf(&b, "  Rows that would load: %d\n", r.ProcessedRows)
	} else {
		fmt.Fprintf(&b, "  Rows imported:        %d\n", r.ProcessedRows)
	}
	fmt.Fprintf(&b, "  Rows with errors:     %d\n", r.FailedRows)
	fmt.Fprintf(&b, "  Duration:             %s\n", r.Duration.Round(time.Millisecond))

	for _, warn := range r.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", warn)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(r.Errors))
		shown := r.Errors
		if maxErrors > 0 && len(shown) > maxErrors {
			shown = shown[:maxErrors]
		}
		for _, e := range shown {
			fmt.Fprintf(&b, "  - %s\n", e.Error())
		}
		if rest := len(r.Errors) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}

	if runErr != nil && len(r.Errors) == 0 {
		fmt.Fprintf(&b, "\nError: %v\n", runErr)
		if IsUserFacing(runErr) {
			fmt.Fprintf(&b, "  %s\n", FormatUserError(runErr))
		}
	}

	fmt.Fprintf(&b, "\n%s\n", outcome(r, runErr))

	if c := r.Counts; c != nil {
		fmt.Fprintf(&b, "\nDatabase now holds: %d clients, %d customers, %d products, %d orders, %d order items\n",
			c.Clients, c.Customers, c.Products, c.Orders, c.OrderItems)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func outcome(r *ImportReport, runErr error) string {
	switch {
	case runErr != nil && r.DryRun:
		return "Dry-run found problems. The database was not changed."
	case runErr != nil:
		return "Import aborted. No rows were saved."
	case r.DryRun:
		return "Dry-run complete. The database was not changed."
	case r.ProcessedRows == 0:
		return "Nothing to import."
	default:
		return "Import completed successfully."
	}
}
