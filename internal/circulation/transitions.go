package circulation

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

// RequestLoan records a member's request for a book and tells every admin.
func (s *Service) RequestLoan(ctx context.Context, bookID, memberID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		book, member, err := s.checkAvailable(ctx, tx, bookID, memberID)
		if err != nil {
			return err
		}

		today := s.today()
		loan, err = store.InsertLoan(ctx, tx, model.Loan{
			BookID:        book.ID,
			MemberID:      member.ID,
			BorrowDate:    today,
			ReturnDueDate: s.dueDate(today),
			Status:        model.LoanRequested,
			CreatedAt:     s.Now(),
		})
		if err != nil {
			return err
		}

		_, err = s.Notifier.NotifyAllAdmins(ctx, tx, notify.Message{
			Type:    model.NotifyLoanRequested,
			Title:   "New loan request",
			Message: fmt.Sprintf("%s requested to borrow '%s'.", member.Name, book.Title),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("loan requested", loan)
	return loan, nil
}

// BorrowDirect lends a book immediately on an admin's behalf. No one is
// notified.
func (s *Service) BorrowDirect(ctx context.Context, bookID, memberID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		book, member, err := s.checkAvailable(ctx, tx, bookID, memberID)
		if err != nil {
			return err
		}

		today := s.today()
		loan, err = store.InsertLoan(ctx, tx, model.Loan{
			BookID:        book.ID,
			MemberID:      member.ID,
			BorrowDate:    today,
			ReturnDueDate: s.dueDate(today),
			Status:        model.LoanApproved,
			CreatedAt:     s.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("book lent directly", loan)
	return loan, nil
}

// checkAvailable loads the book and member and fails with ErrConflict if the
// book already has an open loan in any status.
func (s *Service) checkAvailable(ctx context.Context, tx *sqlx.Tx, bookID, memberID int64) (*model.Book, *model.Member, error) {
	book, err := loadBook(ctx, tx, bookID)
	if err != nil {
		return nil, nil, err
	}
	member, err := loadMember(ctx, tx, memberID)
	if err != nil {
		return nil, nil, err
	}

	open, err := store.GetOpenLoanByBook(ctx, tx, book.ID)
	if err != nil {
		return nil, nil, err
	}
	if open != nil {
		return nil, nil, fmt.Errorf("'%s' is already %s under loan %d: %w",
			book.Title, open.Status, open.ID, model.ErrConflict)
	}
	return book, member, nil
}

// ApproveLoan approves a pending request. The loan clock restarts today.
func (s *Service) ApproveLoan(ctx context.Context, loanID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		today := s.today()
		due := s.dueDate(today)

		var err error
		loan, err = s.transition(ctx, tx, loanID, "approve", model.LoanRequested, model.LoanApproved,
			store.LoanDates{BorrowDate: &today, ReturnDueDate: &due})
		if err != nil {
			return err
		}

		return s.Notifier.NotifyUser(ctx, tx, loan.MemberID, notify.Message{
			Type:  model.NotifyLoanApproved,
			Title: "Loan approved",
			Message: fmt.Sprintf("Your loan of '%s' has been approved. Return by %s.",
				loan.BookTitle, loan.ReturnDueDate.Format("2006-01-02")),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("loan approved", loan)
	return loan, nil
}

// RejectLoan refuses a pending request. The member is told and the request
// is deleted from the ledger.
func (s *Service) RejectLoan(ctx context.Context, loanID int64) error {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = loadLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != model.LoanRequested {
			return invalid(loan, "reject")
		}

		err = s.Notifier.NotifyUser(ctx, tx, loan.MemberID, notify.Message{
			Type:    model.NotifyLoanRejected,
			Title:   "Loan rejected",
			Message: fmt.Sprintf("Your request to borrow '%s' was rejected.", loan.BookTitle),
		})
		if err != nil {
			return err
		}

		deleted, err := store.DeleteLoan(ctx, tx, loan.ID, model.LoanRequested)
		if err != nil {
			return err
		}
		if !deleted {
			return invalid(loan, "reject")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logTransition("loan rejected", loan)
	return nil
}

// RequestReturn marks an approved loan as waiting for return and tells
// every admin.
func (s *Service) RequestReturn(ctx context.Context, loanID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.transition(ctx, tx, loanID, "request return of", model.LoanApproved, model.LoanReturnRequested, store.LoanDates{})
		if err != nil {
			return err
		}

		_, err = s.Notifier.NotifyAllAdmins(ctx, tx, notify.Message{
			Type:    model.NotifyReturnRequested,
			Title:   "Return requested",
			Message: fmt.Sprintf("%s asked to return '%s'.", loan.MemberName, loan.BookTitle),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("return requested", loan)
	return loan, nil
}

// ConfirmReturn closes a loan whose return was requested and tells the member.
func (s *Service) ConfirmReturn(ctx context.Context, loanID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		today := s.today()

		var err error
		loan, err = s.transition(ctx, tx, loanID, "confirm return of", model.LoanReturnRequested, model.LoanReturned,
			store.LoanDates{ReturnedDate: &today})
		if err != nil {
			return err
		}

		return s.Notifier.NotifyUser(ctx, tx, loan.MemberID, notify.Message{
			Type:    model.NotifyReturnConfirmed,
			Title:   "Return confirmed",
			Message: fmt.Sprintf("The return of '%s' has been confirmed.", loan.BookTitle),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("return confirmed", loan)
	return loan, nil
}

// ReturnDirect closes an open loan on an admin's behalf, whatever its open
// status. Unlike ConfirmReturn, the member is not notified.
func (s *Service) ReturnDirect(ctx context.Context, loanID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		current, err := loadLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return invalid(current, "return")
		}

		today := s.today()
		loan, err = s.transition(ctx, tx, loanID, "return", current.Status, model.LoanReturned,
			store.LoanDates{ReturnedDate: &today})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("book returned directly", loan)
	return loan, nil
}

// transition moves a loan from one status to another inside tx and returns
// the updated row.
func (s *Service) transition(ctx context.Context, tx *sqlx.Tx, loanID int64, op string, from, to model.LoanStatus, set store.LoanDates) (*model.Loan, error) {
	loan, err := loadLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != from {
		return nil, invalid(loan, op)
	}

	ok, err := store.TransitionLoan(ctx, tx, loanID, from, to, set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid(loan, op)
	}

	return loadLoan(ctx, tx, loanID)
}
