// Package circulation runs the loan lifecycle:
//
//	REQUESTED -> APPROVED -> RETURN_REQUESTED -> RETURNED
//
// A rejected request is deleted. Administrators may also lend a book
// directly (created APPROVED) and take it back directly from any open status.
//
// Every operation runs in one write transaction that re-reads the ledger,
// checks the transition, writes, and fans out notifications before commit.
// The database is opened with BEGIN IMMEDIATE, so concurrent transitions
// queue on the write lock, and the partial unique index on open loans turns
// any remaining race into ErrConflict.
package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

// DefaultLoanPeriod is the number of days between borrow and due date.
const DefaultLoanPeriod = 14

// Service executes loan transitions against the ledger.
type Service struct {
	DB       *sqlx.DB
	Notifier *notify.Dispatcher

	// LoanPeriod is the loan length in days.
	LoanPeriod int

	// Now is the clock. Dates are taken from its calendar day.
	Now func() time.Time

	Logger *slog.Logger
}

// New returns a Service with the default loan period and the wall clock.
func New(db *sqlx.DB, notifier *notify.Dispatcher) *Service {
	return &Service{
		DB:         db,
		Notifier:   notifier,
		LoanPeriod: DefaultLoanPeriod,
		Now:        time.Now,
		Logger:     slog.Default(),
	}
}

func (s *Service) today() time.Time {
	return model.Date(s.Now())
}

func (s *Service) dueDate(from time.Time) time.Time {
	return from.AddDate(0, 0, s.LoanPeriod)
}

// inTx runs fn in a write transaction and commits if it succeeds.
func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func loadLoan(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Loan, error) {
	loan, err := store.GetLoan(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, fmt.Errorf("loan %d: %w", id, model.ErrNotFound)
	}
	return loan, nil
}

func loadBook(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Book, error) {
	book, err := store.GetBook(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("book %d: %w", id, model.ErrNotFound)
	}
	return book, nil
}

func loadMember(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Member, error) {
	member, err := store.GetMember(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("member %d: %w", id, model.ErrNotFound)
	}
	return member, nil
}

func invalid(loan *model.Loan, op string) error {
	return fmt.Errorf("cannot %s loan %d in status %s: %w", op, loan.ID, loan.Status, model.ErrInvalidTransition)
}

func (s *Service) logTransition(msg string, loan *model.Loan) {
	s.Logger.Info(msg,
		"loan", loan.ID,
		"book", loan.BookID,
		"member", loan.MemberID,
		"status", loan.Status,
	)
}
