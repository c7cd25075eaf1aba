package circulation

import (
	"context"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// IsBookBorrowed reports whether a book has an open loan in any status.
func (s *Service) IsBookBorrowed(ctx context.Context, bookID int64) (bool, error) {
	return store.BookHasOpenLoan(ctx, s.DB, bookID)
}

// BorrowedBookIDs returns the set of books that have an open loan. It is
// derived from the same predicate as IsBookBorrowed.
func (s *Service) BorrowedBookIDs(ctx context.Context) (map[int64]struct{}, error) {
	ids, err := store.ListBorrowedBookIDs(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Loan returns a loan by ID.
func (s *Service) Loan(ctx context.Context, id int64) (*model.Loan, error) {
	loan, err := store.GetLoan(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, fmt.Errorf("loan %d: %w", id, model.ErrNotFound)
	}
	return loan, nil
}

// OpenLoanForBook returns the loan currently holding a book, or nil if the
// book is available.
func (s *Service) OpenLoanForBook(ctx context.Context, bookID int64) (*model.Loan, error) {
	return store.GetOpenLoanByBook(ctx, s.DB, bookID)
}

// AllLoans returns the whole ledger, newest first.
func (s *Service) AllLoans(ctx context.Context) ([]model.Loan, error) {
	return store.ListLoans(ctx, s.DB)
}

// ActiveLoans returns loans that are currently lent out.
func (s *Service) ActiveLoans(ctx context.Context) ([]model.Loan, error) {
	return store.ListLoansByStatus(ctx, s.DB, model.LoanApproved)
}

// OpenLoans returns every loan that still holds its book.
func (s *Service) OpenLoans(ctx context.Context) ([]model.Loan, error) {
	return store.ListOpenLoans(ctx, s.DB)
}

// FindByStatus returns loans in status.
func (s *Service) FindByStatus(ctx context.Context, status model.LoanStatus) ([]model.Loan, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown loan status %q", status)
	}
	return store.ListLoansByStatus(ctx, s.DB, status)
}

// FindByMember returns a member's loans, newest first.
func (s *Service) FindByMember(ctx context.Context, memberID int64) ([]model.Loan, error) {
	return store.ListLoansByMember(ctx, s.DB, memberID)
}

// FindByBook returns a book's loan history, newest first.
func (s *Service) FindByBook(ctx context.Context, bookID int64) ([]model.Loan, error) {
	return store.ListLoansByBook(ctx, s.DB, bookID)
}

// CountByStatus returns the number of loans in status.
func (s *Service) CountByStatus(ctx context.Context, status model.LoanStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("unknown loan status %q", status)
	}
	return store.CountLoansByStatus(ctx, s.DB, status)
}

// StatusCounts returns the number of loans in every status.
func (s *Service) StatusCounts(ctx context.Context) (map[model.LoanStatus]int, error) {
	counts := make(map[model.LoanStatus]int, len(model.LoanStatuses))
	for _, status := range model.LoanStatuses {
		n, err := s.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

// CountOpenByMember returns how many books a member holds or has requested.
func (s *Service) CountOpenByMember(ctx context.Context, memberID int64) (int, error) {
	return store.CountOpenLoansByMember(ctx, s.DB, memberID)
}

// Overdue returns approved loans past their due date as of now.
func (s *Service) Overdue(ctx context.Context) ([]model.Loan, error) {
	active, err := s.ActiveLoans(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	var overdue []model.Loan
	for _, l := range active {
		if l.IsOverdue(now) {
			overdue = append(overdue, l)
		}
	}
	return overdue, nil
}
