// Package core provides the training-progress domain logic.
//
// # Error Codes Reference
//
// Staff see a short message, a suggested action and a code they can quote
// to support. Codes are grouped by category:
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate entry: a record with this key already exists
//	DB002 - Connection refused: unable to reach the database
//	DB003 - Connection reset: the database connection dropped
//	DB004 - Timeout: the operation took too long
//	DB005 - Deadlock: conflicting concurrent writes
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - No header row: the sheet has no header on the expected row
//	IMP002 - Code column missing: no column looks like a registration code
//	IMP003 - No valid rows: every row was dropped during filtering
//	IMP004 - Unreadable workbook: the file is not an XLSX or CSV sheet
//	IMP005 - Busy: too many imports in progress
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Missing upstream token: log in to the task API and LMS first
//	SRC002 - Upstream rejected the request
//	SRC003 - Upstream unreachable or timed out
//
// # Standards Errors (STD001-STD099)
//
//	STD001 - No standards for this category
//	STD002 - Invalid standards document
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - No file provided
//	FILE003 - Unsupported file type
//	FILE004 - Empty file
//
// # Auth Errors (AUTH001-AUTH099)
//
//	AUTH001 - Invalid credentials
//	AUTH002 - Session missing or expired
//	AUTH003 - Insufficient role
//
// # Other
//
//	RATE001 - Too many requests
//	ERR000  - Unexpected error; check the server log for the request id
//
// Typed errors are checked first, then patterns are matched
// case-insensitively in order, so specific patterns come before general
// ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgNoHeader     = UserMessage{"The sheet has no header row", "Put the column titles in the first row (row 5 for LMS reports)", "IMP001"}
	msgNoCodeColumn = UserMessage{"No registration code column was found", "Add a column titled \"Mã học viên\" or download the template", "IMP002"}
	msgNoValidRows  = UserMessage{"No usable rows were found", "Check that rows have a registration code and at least one score", "IMP003"}
	msgUnreadable   = UserMessage{"The file could not be read as a spreadsheet", "Save the file as .xlsx or .csv and try again", "IMP004"}
	msgBusy         = UserMessage{"Too many imports are running", "Please wait a moment and try again", "IMP005"}
	msgNoStandards  = UserMessage{"No standards exist for this category", "Create the category in the standards admin page", "STD001"}
	msgBadStandards = UserMessage{"The standards document is invalid", "Use non-negative minimums and the known field names", "STD002"}
	msgNotFound     = UserMessage{"The requested item was not found", "Check the identifier and try again", "NF001"}
)

var errorPatterns = []errorPattern{
	// Database
	{"duplicate key", UserMessage{"A record with this key already exists", "Edit the existing record instead", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB003"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB005"}},

	// Upstream sources
	{"missing auth token", UserMessage{"Not logged in to the training systems", "Log in to the task API and LMS from the admin page", "SRC001"}},
	{"upstream status", UserMessage{"A training system rejected the request", "Log in again; the stored token may have expired", "SRC002"}},
	{"no such host", UserMessage{"A training system could not be reached", "Check the network and try again", "SRC003"}},

	// Timeouts after upstream so the more specific messages win
	{"deadline exceeded", UserMessage{"The operation timed out", "Try again or use a smaller file", "DB004"}},
	{"timeout", UserMessage{"The operation timed out", "Try again or use a smaller file", "DB004"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the sheet or remove unused tabs", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Choose a spreadsheet to upload", "FILE002"}},
	{"unsupported file type", UserMessage{"This file type is not supported", "Upload an .xlsx, .xlsm or .csv file", "FILE003"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a sheet with a header and data rows", "FILE004"}},
	{"invalid csv", msgUnreadable},

	// Auth
	{"invalid credentials", UserMessage{"Username or password is incorrect", "Check your credentials and try again", "AUTH001"}},
	{"token", UserMessage{"Your session is missing or expired", "Log in again", "AUTH002"}},
	{"forbidden", UserMessage{"You do not have permission for this action", "Ask an administrator for access", "AUTH003"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ee *ExtractionError
	if errors.As(err, &ee) {
		switch {
		case ee.Err != nil:
			if m := matchPattern(ee.Err); m != nil {
				return *m
			}
			return msgUnreadable
		case strings.Contains(ee.Reason, "header"):
			return msgNoHeader
		case strings.Contains(ee.Reason, "column"):
			return msgNoCodeColumn
		default:
			return msgNoValidRows
		}
	}
	switch {
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, ErrInvalidRuleset):
		return msgBadStandards
	case errors.Is(err, ErrNotFound):
		if strings.Contains(strings.ToLower(err.Error()), "standards") {
			return msgNoStandards
		}
		return msgNotFound
	}

	if m := matchPattern(err); m != nil {
		return *m
	}
	return defaultMessage
}

func matchPattern(err error) *UserMessage {
	errStr := strings.ToLower(err.Error())
	for i := range errorPatterns {
		if strings.Contains(errStr, errorPatterns[i].pattern) {
			return &errorPatterns[i].msg
		}
	}
	return nil
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
