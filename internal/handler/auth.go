package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/contact-book/internal/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleLogin exchanges credentials for an access token.
//
// HTTP: POST /auth/login
// BODY: {"email":"ada@example.com","password":"..."}
// 200:  {"id","name","email","accessToken","expiresIn"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

// HandleMe returns the authenticated caller.
//
// HTTP: GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p.User.Public())
}
