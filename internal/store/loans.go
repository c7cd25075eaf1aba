package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const loanSelect = `SELECT l.id, l.book_id, l.member_id, l.borrow_date, l.return_due_date,
	       l.returned_date, l.status, l.created_at,
	       b.title AS book_title, m.name AS member_name
	FROM loans l
	JOIN books b ON b.id = l.book_id
	JOIN members m ON m.id = l.member_id`

// InsertLoan records a new loan. A second open loan for the same book
// violates idx_loans_open_book and is reported as ErrConflict.
func InsertLoan(ctx context.Context, q sqlx.ExtContext, l model.Loan) (*model.Loan, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO loans (book_id, member_id, borrow_date, return_due_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.BookID, l.MemberID, l.BorrowDate, l.ReturnDueDate, l.Status, l.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("book %d already has an open loan: %w", l.BookID, model.ErrConflict)
		}
		return nil, fmt.Errorf("recording loan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting loan id: %w", err)
	}

	return GetLoan(ctx, q, id)
}

// GetLoan returns a loan by ID, or nil if it does not exist.
func GetLoan(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Loan, error) {
	var l model.Loan
	err := sqlx.GetContext(ctx, q, &l, loanSelect+` WHERE l.id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return &l, nil
}

// GetOpenLoanByBook returns the loan currently holding a book, or nil.
func GetOpenLoanByBook(ctx context.Context, q sqlx.QueryerContext, bookID int64) (*model.Loan, error) {
	var l model.Loan
	err := sqlx.GetContext(ctx, q, &l, loanSelect+` WHERE l.book_id = ? AND `+openLoanPredicate, bookID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting open loan: %w", err)
	}
	return &l, nil
}

// TransitionLoan moves a loan from one status to another, optionally
// resetting its dates. It only applies if the loan is still in from and
// reports whether it did.
func TransitionLoan(ctx context.Context, q sqlx.ExecerContext, id int64, from, to model.LoanStatus, set LoanDates) (bool, error) {
	query := `UPDATE loans SET status = ?`
	args := []any{to}

	if set.BorrowDate != nil {
		query += `, borrow_date = ?`
		args = append(args, *set.BorrowDate)
	}
	if set.ReturnDueDate != nil {
		query += `, return_due_date = ?`
		args = append(args, *set.ReturnDueDate)
	}
	if set.ReturnedDate != nil {
		query += `, returned_date = ?`
		args = append(args, *set.ReturnedDate)
	}

	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, from)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating loan status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}
	return n == 1, nil
}

// LoanDates holds optional date columns written by TransitionLoan.
type LoanDates struct {
	BorrowDate    *time.Time
	ReturnDueDate *time.Time
	ReturnedDate  *time.Time
}

// DeleteLoan removes a loan if it is still in status and reports whether it did.
func DeleteLoan(ctx context.Context, q sqlx.ExecerContext, id int64, status model.LoanStatus) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM loans WHERE id = ? AND status = ?`, id, status)
	if err != nil {
		return false, fmt.Errorf("deleting loan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}
	return n == 1, nil
}

// ListLoans returns every loan, newest first.
func ListLoans(ctx context.Context, q sqlx.QueryerContext) ([]model.Loan, error) {
	return selectLoans(ctx, q, "listing loans", loanSelect+` ORDER BY l.created_at DESC, l.id DESC`)
}

// ListLoansByStatus returns loans in status, newest first.
func ListLoansByStatus(ctx context.Context, q sqlx.QueryerContext, status model.LoanStatus) ([]model.Loan, error) {
	return selectLoans(ctx, q, "listing loans by status",
		loanSelect+` WHERE l.status = ? ORDER BY l.created_at DESC, l.id DESC`, status)
}

// ListOpenLoans returns every loan that still holds its book.
func ListOpenLoans(ctx context.Context, q sqlx.QueryerContext) ([]model.Loan, error) {
	return selectLoans(ctx, q, "listing open loans",
		loanSelect+` WHERE `+openLoanPredicate+` ORDER BY l.created_at DESC, l.id DESC`)
}

// ListLoansByMember returns a member's loans, newest first.
func ListLoansByMember(ctx context.Context, q sqlx.QueryerContext, memberID int64) ([]model.Loan, error) {
	return selectLoans(ctx, q, "listing member loans",
		loanSelect+` WHERE l.member_id = ? ORDER BY l.created_at DESC, l.id DESC`, memberID)
}

// ListLoansByBook returns a book's loan history, newest first.
func ListLoansByBook(ctx context.Context, q sqlx.QueryerContext, bookID int64) ([]model.Loan, error) {
	return selectLoans(ctx, q, "listing book loans",
		loanSelect+` WHERE l.book_id = ? ORDER BY l.created_at DESC, l.id DESC`, bookID)
}

func selectLoans(ctx context.Context, q sqlx.QueryerContext, what, query string, args ...any) ([]model.Loan, error) {
	var loans []model.Loan
	if err := sqlx.SelectContext(ctx, q, &loans, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return loans, nil
}

// CountLoansByStatus returns the number of loans in status.
func CountLoansByStatus(ctx context.Context, q sqlx.QueryerContext, status model.LoanStatus) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM loans WHERE status = ?`, status); err != nil {
		return 0, fmt.Errorf("counting loans: %w", err)
	}
	return n, nil
}

// CountOpenLoansByMember returns how many books a member holds or has requested.
func CountOpenLoansByMember(ctx context.Context, q sqlx.QueryerContext, memberID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		`SELECT COUNT(*) FROM loans WHERE member_id = ? AND `+openLoanPredicate, memberID)
	if err != nil {
		return 0, fmt.Errorf("counting open loans: %w", err)
	}
	return n, nil
}

// BookHasOpenLoan reports whether a book is held by an open loan.
func BookHasOpenLoan(ctx context.Context, q sqlx.QueryerContext, bookID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND `+openLoanPredicate, bookID)
	if err != nil {
		return false, fmt.Errorf("checking book availability: %w", err)
	}
	return n > 0, nil
}

// ListBorrowedBookIDs returns the IDs of books held by an open loan.
func ListBorrowedBookIDs(ctx context.Context, q sqlx.QueryerContext) ([]int64, error) {
	var ids []int64
	err := sqlx.SelectContext(ctx, q, &ids,
		`SELECT book_id FROM loans WHERE `+openLoanPredicate+` ORDER BY book_id`)
	if err != nil {
		return nil, fmt.Errorf("listing borrowed books: %w", err)
	}
	return ids, nil
}

// openLoanPredicate is the single definition of "book is unavailable".
const openLoanPredicate = `returned_date IS NULL`
