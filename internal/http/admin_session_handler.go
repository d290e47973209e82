package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/crypto"
	"github.com/driftloop/mailcore/pkg/logger"
)

const sessionTTL = 7 * 24 * time.Hour

// AdminSessionHandler mints and clears the "session" cookie that
// middleware.AdminAuth's cookie path validates.
type AdminSessionHandler struct {
	admin  domain.AdminRepository
	logger logger.Logger
}

func NewAdminSessionHandler(admin domain.AdminRepository, log logger.Logger) *AdminSessionHandler {
	return &AdminSessionHandler{admin: admin, logger: log}
}

func (h *AdminSessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/login", h.handleLogin)
	mux.HandleFunc("POST /api/admin/logout", h.handleLogout)
}

func (h *AdminSessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.admin.GetUserByEmail(r.Context(), body.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !crypto.CheckPasswordHash(body.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := crypto.RandomToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	now := time.Now().UTC()
	session := &domain.AdminSession{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := h.admin.CreateSession(r.Context(), session); err != nil {
		writeDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	writeData(w, http.StatusOK, map[string]string{"user_id": user.ID})
}

func (h *AdminSessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session")
	if err == nil {
		if derr := h.admin.DeleteSession(r.Context(), cookie.Value); derr != nil {
			h.logger.WithField("error", derr.Error()).Warn("admin: session delete on logout failed")
		}
	}
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
	writeData(w, http.StatusOK, map[string]string{"status": "logged out"})
}
