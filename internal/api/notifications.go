package api

import (
	"fmt"
	"net/http"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/notify"
)

// NotificationsHandler serves the caller's own notifications.
type NotificationsHandler struct {
	Notifier *notify.Dispatcher
}

// recipient returns the notification address of the caller.
func recipient(r *http.Request) (model.RecipientType, int64) {
	claims := GetClaims(r.Context())
	return model.RecipientTypeForRole(claims.Role), claims.UserID
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	rtype, rid := recipient(r)
	list, err := h.Notifier.Notifications(r.Context(), rtype, rid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(list))
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	rtype, rid := recipient(r)
	n, err := h.Notifier.UnreadCount(r.Context(), rtype, rid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"unread": n})
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.Notifier.Notification(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rtype, rid := recipient(r)
	if n.RecipientType != rtype || n.RecipientID != rid {
		writeError(w, r, fmt.Errorf("notification %d: %w", id, model.ErrUnauthorized))
		return
	}

	if err := h.Notifier.MarkAsRead(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "marked as read"})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	rtype, rid := recipient(r)
	n, err := h.Notifier.MarkAllAsRead(r.Context(), rtype, rid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"marked": n})
}
