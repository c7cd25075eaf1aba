// Package api serves the library over a JSON HTTP API.
package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
)

// NewRouter creates the API router with all endpoints registered. Loan
// transitions and notifications go through loans and its dispatcher.
func NewRouter(db *sqlx.DB, jwtSecret string, loans *circulation.Service) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	booksHandler := &BooksHandler{DB: db, Loans: loans}
	membersHandler := &MembersHandler{DB: db, Loans: loans}
	loansHandler := &LoansHandler{Loans: loans}
	notificationsHandler := &NotificationsHandler{Notifier: loans.Notifier}
	noticesHandler := &NoticesHandler{DB: db, Notifier: loans.Notifier}
	historyHandler := &HistoryHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	member := func(h http.HandlerFunc) http.Handler { return authMW(RequireMember(h)) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Catalog: read (all), write (admin).
	mux.Handle("GET /api/books", authed(booksHandler.List))
	mux.Handle("POST /api/books", admin(booksHandler.Create))
	mux.Handle("GET /api/books/borrowed", authed(booksHandler.Borrowed))
	mux.Handle("GET /api/books/{id}", authed(booksHandler.Get))
	mux.Handle("PUT /api/books/{id}", admin(booksHandler.Update))
	mux.Handle("DELETE /api/books/{id}", admin(booksHandler.Delete))
	mux.Handle("PUT /api/books/{id}/cover", admin(booksHandler.UploadCover))
	mux.Handle("GET /api/books/{id}/cover", authed(booksHandler.GetCover))
	mux.Handle("GET /api/books/{id}/loans", admin(booksHandler.History))

	// Members (admin only).
	mux.Handle("GET /api/members", admin(membersHandler.List))
	mux.Handle("POST /api/members", admin(membersHandler.Create))
	mux.Handle("GET /api/members/{id}", admin(membersHandler.Get))
	mux.Handle("PUT /api/members/{id}", admin(membersHandler.Update))
	mux.Handle("PUT /api/members/{id}/password", admin(membersHandler.ResetPassword))
	mux.Handle("DELETE /api/members/{id}", admin(membersHandler.Delete))

	// Loans.
	mux.Handle("GET /api/loans", admin(loansHandler.List))
	mux.Handle("POST /api/loans", admin(loansHandler.BorrowDirect))
	mux.Handle("GET /api/loans/counts", admin(loansHandler.Counts))
	mux.Handle("GET /api/loans/overdue", admin(loansHandler.Overdue))
	mux.Handle("GET /api/loans/mine", member(loansHandler.Mine))
	mux.Handle("POST /api/loans/requests", member(loansHandler.Request))
	mux.Handle("GET /api/loans/{id}", authed(loansHandler.Get))
	mux.Handle("POST /api/loans/{id}/approve", admin(loansHandler.Approve))
	mux.Handle("POST /api/loans/{id}/reject", admin(loansHandler.Reject))
	mux.Handle("POST /api/loans/{id}/return-request", member(loansHandler.RequestReturn))
	mux.Handle("POST /api/loans/{id}/confirm-return", admin(loansHandler.ConfirmReturn))
	mux.Handle("POST /api/loans/{id}/return", admin(loansHandler.ReturnDirect))

	// Notifications (own only).
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("GET /api/notifications/unread-count", authed(notificationsHandler.UnreadCount))
	mux.Handle("POST /api/notifications/read-all", authed(notificationsHandler.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))

	// Notices: read (all), write (admin).
	mux.Handle("GET /api/notices", authed(noticesHandler.List))
	mux.Handle("POST /api/notices", admin(noticesHandler.Create))
	mux.Handle("GET /api/notices/{id}", authed(noticesHandler.Get))
	mux.Handle("PUT /api/notices/{id}", admin(noticesHandler.Update))
	mux.Handle("DELETE /api/notices/{id}", admin(noticesHandler.Delete))

	// Audit (admin only).
	mux.Handle("GET /api/history/logins", admin(historyHandler.Logins))

	return mux
}
