package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"donorlink-backend/internal/service"
)

type AuthHandler struct {
	authSvc service.AuthService
}

func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/bank/register", h.registerBank).Methods(http.MethodPost)
	r.HandleFunc("/bank/login", h.loginBank).Methods(http.MethodPost)
	r.HandleFunc("/donor/login", h.loginDonor).Methods(http.MethodPost)
	r.HandleFunc("/admin/login", h.loginAdmin).Methods(http.MethodPost)
	r.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)
}

type registerBankRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User         any    `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) registerBank(w http.ResponseWriter, r *http.Request) {
	var req registerBankRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bank, access, refresh, err := h.authSvc.RegisterBank(r.Context(),
		req.Email, req.Password, req.Name, req.Address, req.Phone, req.Website, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: bank, AccessToken: access, RefreshToken: refresh})
}

func (h *AuthHandler) loginBank(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bank, access, refresh, err := h.authSvc.LoginBank(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: bank, AccessToken: access, RefreshToken: refresh})
}

func (h *AuthHandler) loginDonor(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	donor, access, refresh, err := h.authSvc.LoginDonor(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: donor, AccessToken: access, RefreshToken: refresh})
}

func (h *AuthHandler) loginAdmin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	admin, access, refresh, err := h.authSvc.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: admin, AccessToken: access, RefreshToken: refresh})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	access, refresh, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}
