package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/search"
	"github.com/erazemk/izposoja/internal/store"
)

// MembersHandler handles member directory endpoints. Admin only.
type MembersHandler struct {
	DB    *sqlx.DB
	Loans *circulation.Service
}

type createMemberRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateMemberRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/members?field=&q=.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	members, err := search.Members(r.Context(), h.DB, query.Get("field"), query.Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(members))
}

// Create handles POST /api/members. Username and password are optional
// together; a member without them cannot log in.
func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := model.Member{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Username: strings.TrimSpace(req.Username),
	}
	if m.Name == "" || m.Phone == "" {
		jsonError(w, http.StatusBadRequest, "name and phone required")
		return
	}
	if (m.Username == "") != (req.Password == "") {
		jsonError(w, http.StatusBadRequest, "username and password must be given together")
		return
	}

	if req.Password != "" {
		if err := model.ValidatePassword(req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		m.PasswordHash = hash
	}

	member, err := store.CreateMember(r.Context(), h.DB, m)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("member created", "member", member.ID, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusCreated, member)
}

// Get handles GET /api/members/{id}.
func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := store.GetMember(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if member == nil {
		jsonError(w, http.StatusNotFound, "member not found")
		return
	}

	loans, err := h.Loans.FindByMember(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"member": member,
		"loans":  emptyIfNil(loans),
	})
}

// Update handles PUT /api/members/{id}.
func (h *MembersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req updateMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, phone := strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		jsonError(w, http.StatusBadRequest, "name and phone required")
		return
	}

	if err := store.UpdateMember(r.Context(), h.DB, id, name, phone); err != nil {
		writeError(w, r, err)
		return
	}

	member, err := store.GetMember(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, member)
}

// ResetPassword handles PUT /api/members/{id}/password.
func (h *MembersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.UpdateMemberPassword(r.Context(), h.DB, id, hash); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("member password reset", "member", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Delete handles DELETE /api/members/{id}.
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := store.DeleteMember(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("member deleted", "member", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "member deleted"})
}
