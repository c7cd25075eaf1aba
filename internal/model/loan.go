package model

import "time"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

// Loan statuses. A rejected request is deleted, so there is no rejected state.
const (
	LoanRequested       LoanStatus = "REQUESTED"
	LoanApproved        LoanStatus = "APPROVED"
	LoanReturnRequested LoanStatus = "RETURN_REQUESTED"
	LoanReturned        LoanStatus = "RETURNED"
)

// LoanStatuses lists every stored status in lifecycle order.
var LoanStatuses = []LoanStatus{LoanRequested, LoanApproved, LoanReturnRequested, LoanReturned}

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	for _, v := range LoanStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s LoanStatus) Terminal() bool {
	return s == LoanReturned
}

// Loan is one borrowing episode of one book by one member.
type Loan struct {
	ID            int64      `json:"id" db:"id"`
	BookID        int64      `json:"book_id" db:"book_id"`
	MemberID      int64      `json:"member_id" db:"member_id"`
	BorrowDate    time.Time  `json:"borrow_date" db:"borrow_date"`
	ReturnDueDate time.Time  `json:"return_due_date" db:"return_due_date"`
	ReturnedDate  *time.Time `json:"returned_date,omitempty" db:"returned_date"`
	Status        LoanStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	// Joined fields (not always populated).
	BookTitle  string `json:"book_title,omitempty" db:"book_title"`
	MemberName string `json:"member_name,omitempty" db:"member_name"`
}

// IsOpen reports whether the loan still holds its book.
func (l *Loan) IsOpen() bool {
	return l.ReturnedDate == nil
}

// IsOverdue reports whether an approved loan is past its due date at now.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanApproved && l.ReturnedDate == nil && Date(now).After(Date(l.ReturnDueDate))
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
