package api

import (
	"encoding/json"
	"net/http"

	"hostbook/internal/service"
)

type AuthHandler struct {
	Service *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{Service: svc}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, token, err := h.Service.Signup(req.Name, req.Email, req.Password, req.Role, req.Phone)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:    token,
		UserID:   user.ID,
		Name:     user.Name,
		Role:     user.Role,
		Username: user.Username,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, token, err := h.Service.Login(req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Token:    token,
		UserID:   user.ID,
		Name:     user.Name,
		Role:     user.Role,
		Username: user.Username,
	})
}
