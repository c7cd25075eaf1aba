package store

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/model"
)

var testDay = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func mustBook(t *testing.T, db *sqlx.DB, title, author, publisher, isbn string) *model.Book {
	t.Helper()
	b, err := CreateBook(context.Background(), db, model.Book{
		Title: title, Author: author, Publisher: publisher, ISBN: isbn,
	})
	require.NoError(t, err)
	return b
}

func mustMember(t *testing.T, db *sqlx.DB, name, phone string) *model.Member {
	t.Helper()
	m, err := CreateMember(context.Background(), db, model.Member{Name: name, Phone: phone})
	require.NoError(t, err)
	return m
}

func mustLoan(t *testing.T, db *sqlx.DB, bookID, memberID int64, status model.LoanStatus) *model.Loan {
	t.Helper()
	l := model.Loan{
		BookID:        bookID,
		MemberID:      memberID,
		BorrowDate:    testDay,
		ReturnDueDate: testDay.AddDate(0, 0, 14),
		Status:        status,
		CreatedAt:     time.Now(),
	}
	loan, err := InsertLoan(context.Background(), db, l)
	require.NoError(t, err)
	return loan
}
