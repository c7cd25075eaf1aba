// Package store persists directory records, the loan ledger and
// notifications in SQLite. Functions take a sqlx handle so that they run
// either directly on the database or inside a caller's transaction.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/izposoja/internal/model"
)

// expectRow turns an update or delete that touched nothing into ErrNotFound.
func expectRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}

// isConstraintViolation reports whether err is a SQLite constraint failure.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// normalizeKeyword prepares a search keyword for the column expression used
// by field. Text columns are lowered; phone numbers and ISBNs lose dashes.
func normalizeKeyword(field, keyword string) string {
	switch field {
	case model.BookFieldISBN, model.MemberFieldPhone:
		return strings.ReplaceAll(strings.TrimSpace(keyword), "-", "")
	default:
		return strings.ToLower(strings.TrimSpace(keyword))
	}
}
