package circulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

var (
	now   = time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)
	today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc    *Service
	book   *model.Book
	member *model.Member
	other  *model.Member
	admins []*model.Admin
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupOn(t, db.NewTestDB(t))
}

// setupFile seeds a database file with a full connection pool, so that
// concurrent transactions compete for the SQLite write lock.
func setupFile(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "loans.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))
	return setupOn(t, database)
}

func setupOn(t *testing.T, database *sqlx.DB) *fixture {
	t.Helper()
	ctx := context.Background()

	clock := func() time.Time { return now }
	n := notify.New(database)
	n.Now = clock

	svc := New(database, n)
	svc.Now = clock
	svc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{svc: svc}
	var err error
	f.book, err = store.CreateBook(ctx, database, model.Book{
		Title: "Alamut", Author: "Vladimir Bartol", Publisher: "Sanje", ISBN: "978-961-274-000-1",
	})
	require.NoError(t, err)
	f.member, err = store.CreateMember(ctx, database, model.Member{Name: "Maja Novak", Phone: "040-111-222"})
	require.NoError(t, err)
	f.other, err = store.CreateMember(ctx, database, model.Member{Name: "Nik Kranjc", Phone: "041-333-444"})
	require.NoError(t, err)
	for _, name := range []string{"ana", "bor"} {
		a, err := store.CreateAdmin(ctx, database, name, "hash", name)
		require.NoError(t, err)
		f.admins = append(f.admins, a)
	}
	return f
}

func (f *fixture) borrowed(t *testing.T) bool {
	t.Helper()
	ids, err := f.svc.BorrowedBookIDs(context.Background())
	require.NoError(t, err)
	_, ok := ids[f.book.ID]
	return ok
}

func (f *fixture) notifications(t *testing.T, rtype model.RecipientType, id int64) []model.Notification {
	t.Helper()
	list, err := f.svc.Notifier.Notifications(context.Background(), rtype, id)
	require.NoError(t, err)
	return list
}

func TestLoanLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loan, err := f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanRequested, loan.Status)
	assert.True(t, f.borrowed(t))

	_, err = f.svc.RequestLoan(ctx, f.book.ID, f.other.ID)
	assert.ErrorIs(t, err, model.ErrConflict)

	loan, err = f.svc.ApproveLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanApproved, loan.Status)
	assert.True(t, today.AddDate(0, 0, 14).Equal(loan.ReturnDueDate))

	_, err = f.svc.ConfirmReturn(ctx, loan.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	loan, err = f.svc.RequestReturn(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturnRequested, loan.Status)

	loan, err = f.svc.ConfirmReturn(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturned, loan.Status)
	require.NotNil(t, loan.ReturnedDate)
	assert.True(t, today.Equal(*loan.ReturnedDate))
	assert.False(t, f.borrowed(t))

	borrowed, err := f.svc.IsBookBorrowed(ctx, f.book.ID)
	require.NoError(t, err)
	assert.False(t, borrowed)

	// Member hears about approval and confirmed return.
	got := f.notifications(t, model.RecipientUser, f.member.ID)
	require.Len(t, got, 2)
	types := []model.NotificationType{got[0].Type, got[1].Type}
	assert.ElementsMatch(t, []model.NotificationType{model.NotifyLoanApproved, model.NotifyReturnConfirmed}, types)

	// Each admin hears about the request and the return request.
	for _, a := range f.admins {
		got := f.notifications(t, model.RecipientAdmin, a.ID)
		require.Len(t, got, 2)
	}

	// The book can be requested again.
	_, err = f.svc.RequestLoan(ctx, f.book.ID, f.other.ID)
	assert.NoError(t, err)
}

func TestRequestLoanFansOutToAdmins(t *testing.T) {
	f := setup(t)

	_, err := f.svc.RequestLoan(context.Background(), f.book.ID, f.member.ID)
	require.NoError(t, err)

	for _, a := range f.admins {
		got := f.notifications(t, model.RecipientAdmin, a.ID)
		require.Len(t, got, 1)
		assert.Equal(t, model.NotifyLoanRequested, got[0].Type)
		assert.Contains(t, got[0].Message, "Alamut")
		assert.Contains(t, got[0].Message, "Maja Novak")
	}
	assert.Empty(t, f.notifications(t, model.RecipientUser, f.member.ID))
}

func TestRequestLoanMissingEntities(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.RequestLoan(ctx, 999, f.member.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.svc.RequestLoan(ctx, f.book.ID, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.False(t, f.borrowed(t))
}

func TestRejectLoanDeletesRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loan, err := f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RejectLoan(ctx, loan.ID))

	_, err = f.svc.Loan(ctx, loan.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.False(t, f.borrowed(t))

	got := f.notifications(t, model.RecipientUser, f.member.ID)
	require.Len(t, got, 1)
	assert.Equal(t, model.NotifyLoanRejected, got[0].Type)

	assert.ErrorIs(t, f.svc.RejectLoan(ctx, loan.ID), model.ErrNotFound)
}

func TestRejectApprovedLoan(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loan, err := f.svc.BorrowDirect(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RejectLoan(ctx, loan.ID), model.ErrInvalidTransition)
}

func TestInvalidTransitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	requested, err := f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(ctx, requested.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.svc.ConfirmReturn(ctx, requested.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	approved, err := f.svc.ApproveLoan(ctx, requested.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveLoan(ctx, approved.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.svc.ApproveLoan(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// A failed transition leaves the loan untouched.
	got, err := f.svc.Loan(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanApproved, got.Status)
}

func TestBorrowDirect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loan, err := f.svc.BorrowDirect(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanApproved, loan.Status)
	assert.True(t, today.Equal(loan.BorrowDate))
	assert.True(t, today.AddDate(0, 0, 14).Equal(loan.ReturnDueDate))

	_, err = f.svc.BorrowDirect(ctx, f.book.ID, f.other.ID)
	assert.ErrorIs(t, err, model.ErrConflict)

	assert.Empty(t, f.notifications(t, model.RecipientUser, f.member.ID))
	for _, a := range f.admins {
		assert.Empty(t, f.notifications(t, model.RecipientAdmin, a.ID))
	}
}

func TestReturnDirect(t *testing.T) {
	for _, status := range []model.LoanStatus{model.LoanRequested, model.LoanApproved, model.LoanReturnRequested} {
		t.Run(string(status), func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			loan, err := f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
			require.NoError(t, err)
			if status != model.LoanRequested {
				_, err = f.svc.ApproveLoan(ctx, loan.ID)
				require.NoError(t, err)
			}
			if status == model.LoanReturnRequested {
				_, err = f.svc.RequestReturn(ctx, loan.ID)
				require.NoError(t, err)
			}
			before := len(f.notifications(t, model.RecipientUser, f.member.ID))

			loan, err = f.svc.ReturnDirect(ctx, loan.ID)
			require.NoError(t, err)
			assert.Equal(t, model.LoanReturned, loan.Status)
			require.NotNil(t, loan.ReturnedDate)
			assert.False(t, f.borrowed(t))

			_, err = f.svc.ReturnDirect(ctx, loan.ID)
			assert.ErrorIs(t, err, model.ErrInvalidTransition)

			assert.Len(t, f.notifications(t, model.RecipientUser, f.member.ID), before,
				"direct return does not notify the member")
		})
	}
}

func TestConcurrentRequestsForSameBook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	errs := make([]error, 2)
	var g errgroup.Group
	for i, m := range []*model.Member{f.member, f.other} {
		g.Go(func() error {
			_, errs[i] = f.svc.RequestLoan(ctx, f.book.ID, m.ID)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	open, err := f.svc.OpenLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestConcurrentBorrowersOnFileDatabase(t *testing.T) {
	f := setupFile(t)
	ctx := context.Background()

	members := []*model.Member{f.member, f.other}
	for i := range 8 {
		m, err := store.CreateMember(ctx, f.svc.DB, model.Member{Name: fmt.Sprintf("Bralec %d", i), Phone: "031-000"})
		require.NoError(t, err)
		members = append(members, m)
	}

	const attempts = 30
	var ok, conflicts atomic.Int32
	var g errgroup.Group
	for i := range attempts {
		m := members[i%len(members)]
		g.Go(func() error {
			var err error
			if i%2 == 0 {
				_, err = f.svc.RequestLoan(ctx, f.book.ID, m.ID)
			} else {
				_, err = f.svc.BorrowDirect(ctx, f.book.ID, m.ID)
			}
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, attempts-1, conflicts.Load())

	open, err := f.svc.OpenLoans(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	// A request leaves one LOAN_REQUESTED per admin; a direct loan none.
	var requested int
	for _, a := range f.admins {
		requested += len(f.notifications(t, model.RecipientAdmin, a.ID))
	}
	if open[0].Status == model.LoanRequested {
		assert.Equal(t, len(f.admins), requested)
	} else {
		assert.Zero(t, requested)
	}
}

func TestConcurrentApproveAndReject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	loan, err := f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)

	var approveErr, rejectErr error
	var g errgroup.Group
	g.Go(func() error {
		_, approveErr = f.svc.ApproveLoan(ctx, loan.ID)
		return nil
	})
	g.Go(func() error {
		rejectErr = f.svc.RejectLoan(ctx, loan.ID)
		return nil
	})
	require.NoError(t, g.Wait())

	if approveErr == nil {
		assert.Error(t, rejectErr, "reject must lose to approve")
		assert.ErrorIs(t, rejectErr, model.ErrInvalidTransition)
	} else {
		assert.NoError(t, rejectErr)
		assert.ErrorIs(t, approveErr, model.ErrNotFound)
	}
}

func TestFailedNotificationRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.DB.Exec(`DROP TABLE notifications`)
	require.NoError(t, err)

	_, err = f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
	require.Error(t, err)

	assert.False(t, f.borrowed(t), "loan must not survive a failed notification")
	loans, err := f.svc.AllLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestLedgerQueries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	second, err := store.CreateBook(ctx, f.svc.DB, model.Book{
		Title: "Kekec", Author: "Josip Vandot", Publisher: "MK", ISBN: "978-86-11-00000-2",
	})
	require.NoError(t, err)

	_, err = f.svc.RequestLoan(ctx, f.book.ID, f.member.ID)
	require.NoError(t, err)
	active, err := f.svc.BorrowDirect(ctx, second.ID, f.member.ID)
	require.NoError(t, err)

	counts, err := f.svc.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.LoanRequested])
	assert.Equal(t, 1, counts[model.LoanApproved])
	assert.Equal(t, 0, counts[model.LoanReturned])

	approved, err := f.svc.CountByStatus(ctx, model.LoanApproved)
	require.NoError(t, err)
	assert.Equal(t, 1, approved)
	returned, err := f.svc.CountByStatus(ctx, model.LoanReturned)
	require.NoError(t, err)
	assert.Zero(t, returned)
	_, err = f.svc.CountByStatus(ctx, model.LoanStatus("LOST"))
	assert.ErrorContains(t, err, "unknown loan status")

	n, err := f.svc.CountOpenByMember(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	byMember, err := f.svc.FindByMember(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Len(t, byMember, 2)

	actives, err := f.svc.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, active.ID, actives[0].ID)
	assert.Equal(t, "Kekec", actives[0].BookTitle)

	open, err := f.svc.OpenLoanForBook(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, active.ID, open.ID)

	_, err = f.svc.FindByStatus(ctx, model.LoanStatus("LOST"))
	assert.Error(t, err)

	overdue, err := f.svc.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	f.svc.Now = func() time.Time { return now.AddDate(0, 0, 15) }
	overdue, err = f.svc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, active.ID, overdue[0].ID)
}
