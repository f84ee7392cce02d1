package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/security"
	"donorlink-backend/internal/service"
	"donorlink-backend/internal/storage"
)

// PublicHandler serves the unauthenticated donor-facing surface: browsing
// banks and starting the donor journey.
type PublicHandler struct {
	donorSvc service.DonorService
	tokens   security.TokenManager
}

func NewPublicHandler(donorSvc service.DonorService, tokens security.TokenManager) *PublicHandler {
	return &PublicHandler{donorSvc: donorSvc, tokens: tokens}
}

func (h *PublicHandler) Register(r *mux.Router) {
	r.HandleFunc("/banks", h.listBanks).Methods(http.MethodGet)
	r.HandleFunc("/banks/{id}", h.getBank).Methods(http.MethodGet)
	r.HandleFunc("/banks/{id}/select", h.selectBank).Methods(http.MethodPost)
}

func (h *PublicHandler) listBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.donorSvc.ListBanks(r.Context(), r.URL.Query().Get("location"), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

func (h *PublicHandler) getBank(w http.ResponseWriter, r *http.Request) {
	bank, err := h.donorSvc.GetBank(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// selectBank starts the donor journey. The new donor has no credentials yet,
// so the response carries tokens for the session that follows.
func (h *PublicHandler) selectBank(w http.ResponseWriter, r *http.Request) {
	donor, err := h.donorSvc.SelectBank(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	access, err := h.tokens.GenerateAccessToken(donor.ID, donor.Email, domain.RoleDonor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	refresh, err := h.tokens.GenerateRefreshToken(donor.ID, donor.Email, domain.RoleDonor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: donor, AccessToken: access, RefreshToken: refresh})
}

// FileHandler streams documents out of mock storage. It only exists when the
// deployment runs without S3; object URLs point back at this route.
type FileHandler struct {
	store storage.Storage
}

func NewFileHandler(store storage.Storage) *FileHandler {
	return &FileHandler{store: store}
}

func (h *FileHandler) Register(r *mux.Router) {
	r.HandleFunc("/files/{bucket}/{key}", h.download).Methods(http.MethodGet)
}

func (h *FileHandler) download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["bucket"], vars["key"]

	exists, size, err := h.store.Exists(r.Context(), bucket, key)
	if err != nil || !exists {
		writeError(w, r, domain.NewWorkflowError(domain.CodeNotFound, "file not found"))
		return
	}

	f, err := h.store.Get(r.Context(), bucket, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	_, _ = io.Copy(w, f)
}
