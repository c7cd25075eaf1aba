package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
)

// LoansHandler exposes the loan lifecycle.
type LoansHandler struct {
	Loans *circulation.Service
}

type loanRequest struct {
	BookID int64 `json:"book_id"`
}

type directLoanRequest struct {
	BookID   int64 `json:"book_id"`
	MemberID int64 `json:"member_id"`
}

// List handles GET /api/loans?status=. Without a status it returns the
// whole ledger.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		loans []model.Loan
		err   error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "":
		loans, err = h.Loans.AllLoans(r.Context())
	case "open":
		loans, err = h.Loans.OpenLoans(r.Context())
	default:
		if !model.LoanStatus(status).Valid() {
			jsonError(w, http.StatusBadRequest, "invalid status")
			return
		}
		loans, err = h.Loans.FindByStatus(r.Context(), model.LoanStatus(status))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(loans))
}

// Get handles GET /api/loans/{id}. Members may only see their own loans.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, ok := h.ownLoan(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Counts handles GET /api/loans/counts.
func (h *LoansHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Loans.StatusCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, counts)
}

// Overdue handles GET /api/loans/overdue.
func (h *LoansHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Loans.Overdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(loans))
}

// Mine handles GET /api/loans/mine.
func (h *LoansHandler) Mine(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Loans.FindByMember(r.Context(), GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(loans))
}

// Request handles POST /api/loans/requests. The borrower is the caller.
func (h *LoansHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil || req.BookID <= 0 {
		jsonError(w, http.StatusBadRequest, "book_id required")
		return
	}

	loan, err := h.Loans.RequestLoan(r.Context(), req.BookID, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, loan)
}

// BorrowDirect handles POST /api/loans.
func (h *LoansHandler) BorrowDirect(w http.ResponseWriter, r *http.Request) {
	var req directLoanRequest
	if err := decodeJSON(w, r, &req); err != nil || req.BookID <= 0 || req.MemberID <= 0 {
		jsonError(w, http.StatusBadRequest, "book_id and member_id required")
		return
	}

	loan, err := h.Loans.BorrowDirect(r.Context(), req.BookID, req.MemberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, loan)
}

// Approve handles POST /api/loans/{id}/approve.
func (h *LoansHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Loans.ApproveLoan)
}

// Reject handles POST /api/loans/{id}/reject.
func (h *LoansHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	if err := h.Loans.RejectLoan(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "loan request rejected"})
}

// RequestReturn handles POST /api/loans/{id}/return-request. Members may
// only ask to return their own loans.
func (h *LoansHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	loan, ok := h.ownLoan(w, r)
	if !ok {
		return
	}

	updated, err := h.Loans.RequestReturn(r.Context(), loan.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// ConfirmReturn handles POST /api/loans/{id}/confirm-return.
func (h *LoansHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Loans.ConfirmReturn)
}

// ReturnDirect handles POST /api/loans/{id}/return.
func (h *LoansHandler) ReturnDirect(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Loans.ReturnDirect)
}

func (h *LoansHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*model.Loan, error)) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := op(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// ownLoan loads the {id} loan and checks that a member caller is its
// borrower. Admins may access any loan.
func (h *LoansHandler) ownLoan(w http.ResponseWriter, r *http.Request) (*model.Loan, bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return nil, false
	}

	loan, err := h.Loans.Loan(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	claims := GetClaims(r.Context())
	if claims.Role != model.RoleAdmin && loan.MemberID != claims.UserID {
		writeError(w, r, fmt.Errorf("loan %d belongs to another member: %w", id, model.ErrUnauthorized))
		return nil, false
	}
	return loan, true
}
