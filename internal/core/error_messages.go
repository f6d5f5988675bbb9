package core

// # Error Codes Reference
//
// Operators quote these codes when an import or a mail run fails. Database
// errors are classified by SQLSTATE first; everything else by a
// case-insensitive substring of the error text.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key (SQLSTATE 23505, "duplicate key")
//	DB002 - Unique constraint ("unique constraint", "violates unique")
//	DB003 - Foreign key (SQLSTATE 23503, "foreign key constraint")
//	DB004 - Connection refused (SQLSTATE class 08, "connection refused")
//	DB005 - Connection reset ("connection reset")
//	DB006 - Timeout (SQLSTATE 57014, "timeout")
//	DB007 - Deadlock (SQLSTATE 40P01, "deadlock")
//	DB008 - Check constraint (SQLSTATE 23514)
//	DB009 - Not null (SQLSTATE 23502)
//	DB010 - Numeric overflow (SQLSTATE 22003, "numeric field overflow")
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid email ("not a valid email address")
//	VAL002 - Invalid number ("invalid number")
//	VAL003 - Required field ("required field")
//	VAL004 - Missing column ("missing required column")
//	VAL005 - Invalid product list ("invalid json", "json list")
//	VAL006 - Too long ("longer than")
//	VAL007 - Conflicting rows ("conflicts with", "duplicate order")
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large ("file too large")
//	FILE002 - Invalid CSV ("wrong number of fields", "parse error")
//	FILE003 - Encoding error ("encoding error")
//	FILE004 - File not found ("file not found")
//	FILE005 - Empty file ("empty file")
//	FILE006 - Permission denied ("permission denied")
//
// # Mail Errors (MAIL001-MAIL099)
//
//	MAIL001 - Authentication failed ("authentication")
//	MAIL002 - Delivery failed ("smtp")
//	MAIL003 - Missing recipient ("no customer email")
//	MAIL004 - Render failed ("render")
//
// # Run Errors
//
//	ERR001 - Cancelled ("context canceled")
//	ERR002 - Deadline exceeded ("context deadline exceeded")
//	ERR000 - Unknown error, check the logs for the technical error

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgDuplicateKey = UserMessage{
		Message: "A record with this key already exists",
		Action:  "Check that each shop and client email pair is consistent with the database",
		Code:    "DB001",
	}
	msgUnique = UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries in your CSV",
		Code:    "DB002",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Ensure the client and customer of every order are present",
		Code:    "DB003",
	}
	msgConnRefused = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check DATABASE_URL and try again in a few moments",
		Code:    "DB004",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB006",
	}
	msgDeadlock = UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}
	msgCheck = UserMessage{
		Message: "A value is outside the allowed range",
		Action:  "Check quantities and amounts in your CSV",
		Code:    "DB008",
	}
	msgNotNull = UserMessage{
		Message: "A required value is missing",
		Action:  "Ensure all required columns have values",
		Code:    "DB009",
	}
	msgNumericOverflow = UserMessage{
		Message: "An amount is too large to store",
		Action:  "Amounts must be below 10000000000 with at most 2 decimals",
		Code:    "DB010",
	}
)

// sqlStateMessages maps exact PostgreSQL SQLSTATE codes to user messages.
var sqlStateMessages = map[string]UserMessage{
	"23505": msgDuplicateKey,
	"23503": msgForeignKey,
	"23514": msgCheck,
	"23502": msgNotNull,
	"22003": msgNumericOverflow,
	"40P01": msgDeadlock,
	"57014": msgTimeout,
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// Database constraints
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "unique constraint", msg: msgUnique},
	{pattern: "violates unique", msg: UserMessage{
		Message: "A duplicate value was found",
		Action:  "Review your data for duplicate key values",
		Code:    "DB002",
	}},
	{pattern: "foreign key constraint", msg: msgForeignKey},
	{pattern: "violates foreign key", msg: msgForeignKey},

	// Mail, before the generic connection patterns
	{pattern: "authentication", msg: UserMessage{
		Message: "The mail server rejected the credentials",
		Action:  "Check MAIL_USERNAME and MAIL_PASSWORD",
		Code:    "MAIL001",
	}},
	{pattern: "smtp", msg: UserMessage{
		Message: "The email could not be delivered",
		Action:  "Check MAIL_HOST, MAIL_PORT and MAIL_TLS_POLICY, then rerun the command",
		Code:    "MAIL002",
	}},
	{pattern: "no customer email", msg: UserMessage{
		Message: "The order has no customer email",
		Action:  "Fix the customer email and re-import the order",
		Code:    "MAIL003",
	}},
	{pattern: "render", msg: UserMessage{
		Message: "The review email could not be rendered",
		Action:  "Check the logs for the order reference",
		Code:    "MAIL004",
	}},

	// Run control, before "timeout"
	{pattern: "context canceled", msg: UserMessage{
		Message: "The run was cancelled",
		Action:  "Rerun the command when ready",
		Code:    "ERR001",
	}},
	{pattern: "context deadline exceeded", msg: UserMessage{
		Message: "The run took too long",
		Action:  "Raise IMPORT_TIMEOUT or split the file",
		Code:    "ERR002",
	}},

	// Database connectivity
	{pattern: "connection refused", msg: msgConnRefused},
	{pattern: "connection reset", msg: UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "deadlock", msg: msgDeadlock},
	{pattern: "numeric field overflow", msg: msgNumericOverflow},

	// Validation
	{pattern: "not a valid email address", msg: UserMessage{
		Message: "Invalid email address",
		Action:  "Use a plain address such as jane@example.com",
		Code:    "VAL001",
	}},
	{pattern: "invalid number", msg: UserMessage{
		Message: "Invalid number format detected",
		Action:  "Use a standard decimal format such as 12.50",
		Code:    "VAL002",
	}},
	{pattern: "required field", msg: UserMessage{
		Message: "Required field is empty",
		Action:  "Ensure all required columns have values",
		Code:    "VAL003",
	}},
	{pattern: "missing required column", msg: UserMessage{
		Message: "Required column is missing from CSV",
		Action:  "Check that all required columns are present in your file",
		Code:    "VAL004",
	}},
	{pattern: "invalid json", msg: UserMessage{
		Message: "The product list is not valid JSON",
		Action:  `Use a JSON list such as ["SKU-1", "SKU-2"]`,
		Code:    "VAL005",
	}},
	{pattern: "json list", msg: UserMessage{
		Message: "The product list must be a JSON list",
		Action:  `Use a JSON list such as ["SKU-1", "SKU-2"]`,
		Code:    "VAL005",
	}},
	{pattern: "longer than", msg: UserMessage{
		Message: "A value is too long",
		Action:  "Shorten the value to the column limit",
		Code:    "VAL006",
	}},
	{pattern: "conflicts with", msg: UserMessage{
		Message: "Rows of the file contradict each other",
		Action:  "Use one shop per client email and one client email per shop",
		Code:    "VAL007",
	}},
	{pattern: "duplicate order", msg: UserMessage{
		Message: "The same order appears twice",
		Action:  "Keep a single row per shop and order_id",
		Code:    "VAL007",
	}},

	// Files
	{pattern: "file too large", msg: UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file or raise IMPORT_MAX_FILE_SIZE",
		Code:    "FILE001",
	}},
	{pattern: "wrong number of fields", msg: UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent columns",
		Code:    "FILE002",
	}},
	{pattern: "parse error", msg: UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Check quoting around cells that contain commas or JSON",
		Code:    "FILE002",
	}},
	{pattern: "encoding error", msg: UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save file as UTF-8 encoding",
		Code:    "FILE003",
	}},
	{pattern: "file not found", msg: UserMessage{
		Message: "The file does not exist",
		Action:  "Check the path passed to import_csv",
		Code:    "FILE004",
	}},
	{pattern: "empty file", msg: UserMessage{
		Message: "The file is empty",
		Action:  "Provide a CSV file with a header row",
		Code:    "FILE005",
	}},
	{pattern: "permission denied", msg: UserMessage{
		Message: "The file cannot be read",
		Action:  "Check the file permissions",
		Code:    "FILE006",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A *pgconn.PgError anywhere in the chain is classified by its SQLSTATE;
// otherwise the error text is matched against known patterns. If nothing
// matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := sqlStateMessages[pgErr.Code]; ok {
			return msg
		}
		if strings.HasPrefix(pgErr.Code, "08") {
			return msgConnRefused
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known code rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
