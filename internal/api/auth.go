package api

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sqlx.DB
	JWTSecret string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// account is the credential view shared by admins and members.
type account struct {
	id           int64
	username     string
	passwordHash string
	role         string
}

// Login handles POST /api/auth/login. Admin usernames are checked before
// member usernames.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	acct, err := h.lookup(r, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if acct == nil || !auth.CheckPassword(acct.passwordHash, req.Password) {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, acct.id, acct.username, acct.role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = store.RecordLogin(r.Context(), h.DB, model.LoginRecord{
		UserType:  model.RecipientTypeForRole(acct.role),
		UserID:    acct.id,
		Username:  acct.username,
		IPAddress: clientIP(r),
		LoginTime: time.Now(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged in", "user", acct.username, "role", acct.role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, Role: acct.role})
}

func (h *AuthHandler) lookup(r *http.Request, username string) (*account, error) {
	admin, err := store.GetAdminByUsername(r.Context(), h.DB, username)
	if err != nil {
		return nil, err
	}
	if admin != nil {
		return &account{admin.ID, admin.Username, admin.PasswordHash, model.RoleAdmin}, nil
	}

	member, err := store.GetMemberByUsername(r.Context(), h.DB, username)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return &account{member.ID, member.Username, member.PasswordHash, model.RoleUser}, nil
	}
	return nil, nil
}

func (h *AuthHandler) byID(r *http.Request, claims *auth.Claims) (*account, error) {
	if claims.Role == model.RoleAdmin {
		admin, err := store.GetAdmin(r.Context(), h.DB, claims.UserID)
		if err != nil || admin == nil {
			return nil, err
		}
		return &account{admin.ID, admin.Username, admin.PasswordHash, model.RoleAdmin}, nil
	}

	member, err := store.GetMember(r.Context(), h.DB, claims.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	return &account{member.ID, member.Username, member.PasswordHash, model.RoleUser}, nil
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := h.byID(r, claims)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if acct == nil {
		jsonError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	if !auth.CheckPassword(acct.passwordHash, req.CurrentPassword) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if acct.role == model.RoleAdmin {
		err = store.UpdateAdminPassword(r.Context(), h.DB, acct.id, hash)
	} else {
		err = store.UpdateMemberPassword(r.Context(), h.DB, acct.id, hash)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user changed own password", "user", claims.Username, "role", claims.Role)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// clientIP returns the host part of the peer address. Forwarding headers are
// not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
