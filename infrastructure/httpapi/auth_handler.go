// Package httpapi holds the thin HTTP collaborators around the realtime
// core: account registration and login, file upload, and message search.
package httpapi

import (
	"chat-relay/errors"
	"chat-relay/services"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
)

type AuthHandler struct {
	authService services.IAuthService
	log         *slog.Logger
}

func NewAuthHandler(authService services.IAuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, err := h.authService.Register(request.Username, request.Email, request.Password)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrUserAlreadyExists), stderrors.Is(err, errors.ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
		case stderrors.Is(err, errors.ErrInvalidPassword), stderrors.Is(err, errors.ErrInvalidRegistration):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("Registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, err := h.authService.Login(request.Email, request.Password)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("Login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func toAccountResponse(account services.Account) accountResponse {
	return accountResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Token:    account.Token,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
