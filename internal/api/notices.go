package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/notify"
	"github.com/erazemk/izposoja/internal/store"
)

// NoticesHandler handles the notice board.
type NoticesHandler struct {
	DB       *sqlx.DB
	Notifier *notify.Dispatcher
}

type noticeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// List handles GET /api/notices.
func (h *NoticesHandler) List(w http.ResponseWriter, r *http.Request) {
	notices, err := store.ListNotices(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(notices))
}

// Get handles GET /api/notices/{id}.
func (h *NoticesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	notice, err := store.GetNotice(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notice == nil {
		jsonError(w, http.StatusNotFound, "notice not found")
		return
	}
	jsonResponse(w, http.StatusOK, notice)
}

// Create handles POST /api/notices. Every member is notified.
func (h *NoticesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req noticeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		jsonError(w, http.StatusBadRequest, "title and content required")
		return
	}

	notice, err := h.Notifier.PublishNotice(r.Context(), req.Title, req.Content, GetClaims(r.Context()).Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, notice)
}

// Update handles PUT /api/notices/{id}. Edits do not notify anyone.
func (h *NoticesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	var req noticeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		jsonError(w, http.StatusBadRequest, "title and content required")
		return
	}

	if err := store.UpdateNotice(r.Context(), h.DB, id, title, req.Content, time.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	notice, err := store.GetNotice(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, notice)
}

// Delete handles DELETE /api/notices/{id}.
func (h *NoticesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	if err := store.DeleteNotice(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("notice deleted", "notice", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notice deleted"})
}
