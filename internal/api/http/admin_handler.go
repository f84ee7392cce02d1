package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/service"
)

type AdminHandler struct {
	adminSvc service.AdminService
}

func NewAdminHandler(adminSvc service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

func (h *AdminHandler) Register(r *mux.Router) {
	r.HandleFunc("/dashboard", h.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/analytics/subscriptions", h.subscriptionAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/banks", h.listBanks).Methods(http.MethodGet)
	r.HandleFunc("/banks/{id}", h.getBank).Methods(http.MethodGet)
	r.HandleFunc("/banks/{id}/history", h.bankHistory).Methods(http.MethodGet)
	r.HandleFunc("/banks/{id}/verify", h.verifyBank).Methods(http.MethodPost)
	r.HandleFunc("/banks/{id}/subscription", h.updateSubscription).Methods(http.MethodPut)
	r.HandleFunc("/donors", h.listDonors).Methods(http.MethodGet)
	r.HandleFunc("/donors/{id}", h.getDonor).Methods(http.MethodGet)
	r.HandleFunc("/activity-logs", h.activityLogs).Methods(http.MethodGet)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminSvc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) subscriptionAnalytics(w http.ResponseWriter, r *http.Request) {
	tiers, trend, err := h.adminSvc.SubscriptionAnalytics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tiers":         tiers,
		"monthly_trend": trend,
	})
}

func (h *AdminHandler) listBanks(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	filter := repository.BankFilter{
		State:  r.URL.Query().Get("state"),
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("is_verified"); v != "" {
		b, _ := strconv.ParseBool(v)
		filter.IsVerified = &b
	}
	if v := r.URL.Query().Get("is_subscribed"); v != "" {
		b, _ := strconv.ParseBool(v)
		filter.IsSubscribed = &b
	}

	banks, total, err := h.adminSvc.ListBanks(r.Context(), filter, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(banks, total, page, size))
}

func (h *AdminHandler) getBank(w http.ResponseWriter, r *http.Request) {
	bank, err := h.adminSvc.GetBank(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *AdminHandler) bankHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.adminSvc.BankHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AdminHandler) verifyBank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := h.adminSvc.VerifyBank(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.Approve, req.Notes, r.RemoteAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *AdminHandler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier      string     `json:"tier"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := h.adminSvc.UpdateSubscription(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.Tier, req.ExpiresAt, r.RemoteAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *AdminHandler) listDonors(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	filter := repository.DonorFilter{
		State:  r.URL.Query().Get("state"),
		BankID: r.URL.Query().Get("bank_id"),
		Search: r.URL.Query().Get("search"),
	}

	donors, total, err := h.adminSvc.ListDonors(r.Context(), filter, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(donors, total, page, size))
}

func (h *AdminHandler) getDonor(w http.ResponseWriter, r *http.Request) {
	donor, err := h.adminSvc.GetDonor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *AdminHandler) activityLogs(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	logs, total, err := h.adminSvc.ActivityLogs(r.Context(), page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(logs, total, page, size))
}
