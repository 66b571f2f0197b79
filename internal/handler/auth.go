package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exampro/internal/model"
)

const sessionCookieName = "exampro_session"

func (h *Handler) cookiePath() string {
	return h.path("/")
}

// requireTeacher is middleware that checks for a valid teacher session cookie.
func (h *Handler) requireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeError(w, r, http.StatusInternalServerError, "ErrInternal")
			return
		}
		if authSess == nil {
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.TeacherLogin
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateLogin(req); err != nil {
		writeInvalid(w, r, err)
		return
	}

	hash, err := h.store.GetMetadata(model.MetaTeacherPasswordHash)
	if err != nil {
		slog.Error("failed to read teacher password", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if hash == "" {
		slog.Warn("teacher login attempted but no password is configured")
		writeError(w, r, http.StatusUnauthorized, "ErrWrongPassword")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		slog.Warn("teacher login failed", "remote_addr", r.RemoteAddr)
		writeError(w, r, http.StatusUnauthorized, "ErrWrongPassword")
		return
	}

	token, err := h.store.CreateAuthSession()
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("teacher logged in", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.store.DeleteAuthSession(cookie.Value); err != nil {
			slog.Error("failed to delete auth session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}
