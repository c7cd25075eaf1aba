package api

import (
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// HistoryHandler serves the sign-in audit trail.
type HistoryHandler struct {
	DB *sqlx.DB
}

// Logins handles GET /api/history/logins?username=, newest first.
func (h *HistoryHandler) Logins(w http.ResponseWriter, r *http.Request) {
	var (
		list []model.LoginRecord
		err  error
	)
	if username := strings.TrimSpace(r.URL.Query().Get("username")); username != "" {
		list, err = store.ListLoginsByUsername(r.Context(), h.DB, username)
	} else {
		list, err = store.ListLogins(r.Context(), h.DB)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(list))
}
