package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/service"
	"donorlink-backend/internal/storage"
)

type BankHandler struct {
	bankSvc service.BankService
	docSvc  service.DocumentService
}

func NewBankHandler(bankSvc service.BankService, docSvc service.DocumentService) *BankHandler {
	return &BankHandler{bankSvc: bankSvc, docSvc: docSvc}
}

func (h *BankHandler) Register(r *mux.Router) {
	r.HandleFunc("/profile", h.profile).Methods(http.MethodGet)
	r.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPut)
	r.HandleFunc("/counseling-config", h.updateCounselingConfig).Methods(http.MethodPut)
	r.HandleFunc("/certification", h.submitCertification).Methods(http.MethodPost)
	r.HandleFunc("/subscription", h.activateSubscription).Methods(http.MethodPost)
	r.HandleFunc("/subscription/confirm", h.confirmSubscription).Methods(http.MethodPost)

	r.HandleFunc("/consent-templates", h.listConsentTemplates).Methods(http.MethodGet)
	r.HandleFunc("/consent-templates", h.createConsentTemplate).Methods(http.MethodPost)
	r.HandleFunc("/consent-templates/{id}", h.updateConsentTemplate).Methods(http.MethodPut)
	r.HandleFunc("/consents/{id}/verify", h.verifyConsent).Methods(http.MethodPost)

	r.HandleFunc("/counseling", h.listCounseling).Methods(http.MethodGet)
	r.HandleFunc("/counseling/{id}/schedule", h.scheduleCounseling).Methods(http.MethodPost)
	r.HandleFunc("/counseling/{id}/complete", h.completeCounseling).Methods(http.MethodPost)

	r.HandleFunc("/donors", h.listDonors).Methods(http.MethodGet)
	r.HandleFunc("/donors/{id}", h.getDonor).Methods(http.MethodGet)
	r.HandleFunc("/donors/{id}/history", h.donorHistory).Methods(http.MethodGet)
	r.HandleFunc("/donors/{id}/begin-testing", h.beginTesting).Methods(http.MethodPost)
	r.HandleFunc("/donors/{id}/test-reports", h.uploadTestReport).Methods(http.MethodPost)
	r.HandleFunc("/donors/{id}/complete-testing", h.completeTesting).Methods(http.MethodPost)
	r.HandleFunc("/donors/{id}/eligibility", h.decideEligibility).Methods(http.MethodPost)
}

func (h *BankHandler) profile(w http.ResponseWriter, r *http.Request) {
	bank, err := h.bankSvc.GetProfile(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *BankHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Website     string `json:"website"`
		Description string `json:"description"`
		LogoURL     string `json:"logo_url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := h.bankSvc.UpdateProfile(r.Context(), claimsFrom(r.Context()).UserID,
		req.Name, req.Address, req.Phone, req.Website, req.Description, req.LogoURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *BankHandler) updateCounselingConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.CounselingConfig
	if !decodeBody(w, r, &cfg) {
		return
	}

	bank, err := h.bankSvc.UpdateCounselingConfig(r.Context(), claimsFrom(r.Context()).UserID, cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// submitCertification accepts one or more PDF documents in a multipart form
// and moves the bank into verification review.
func (h *BankHandler) submitCertification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, domain.NewWorkflowError(domain.CodeValidation, "multipart form required"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, r, domain.NewWorkflowError(domain.CodeValidation, "at least one file is required"))
		return
	}

	docs := make([]domain.DocumentRef, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, r, err)
			return
		}
		ref, err := h.docSvc.Upload(r.Context(), storage.BucketCertificationDocuments,
			header.Filename, header.Header.Get("Content-Type"), header.Size, file)
		file.Close()
		if err != nil {
			writeError(w, r, err)
			return
		}
		docs = append(docs, *ref)
	}

	bank, err := h.bankSvc.SubmitCertification(r.Context(), claimsFrom(r.Context()).UserID, docs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *BankHandler) activateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier           string         `json:"tier"`
		Months         int            `json:"months"`
		BillingDetails map[string]any `json:"billing_details"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := h.bankSvc.ActivateSubscription(r.Context(), claimsFrom(r.Context()).UserID, service.SubscriptionInput{
		Tier:           req.Tier,
		Months:         req.Months,
		BillingDetails: req.BillingDetails,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *BankHandler) confirmSubscription(w http.ResponseWriter, r *http.Request) {
	bank, err := h.bankSvc.ConfirmSubscription(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *BankHandler) listConsentTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.bankSvc.ListConsentTemplates(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *BankHandler) createConsentTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Version string `json:"version"`
		Order   int32  `json:"order"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tpl, err := h.bankSvc.CreateConsentTemplate(r.Context(), claimsFrom(r.Context()).UserID,
		req.Title, req.Content, req.Version, req.Order)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *BankHandler) updateConsentTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Version  string `json:"version"`
		IsActive bool   `json:"is_active"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tpl, err := h.bankSvc.UpdateConsentTemplate(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.Title, req.Content, req.Version, req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *BankHandler) verifyConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	consent, err := h.bankSvc.VerifyConsent(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.Approve, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consent)
}

func (h *BankHandler) listCounseling(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.bankSvc.ListCounselingSessions(r.Context(), claimsFrom(r.Context()).UserID,
		r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *BankHandler) scheduleCounseling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduledAt time.Time `json:"scheduled_at"`
		MeetingLink string    `json:"meeting_link"`
		Location    string    `json:"location"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.bankSvc.ScheduleCounseling(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.ScheduledAt, req.MeetingLink, req.Location)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *BankHandler) completeCounseling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.bankSvc.CompleteCounseling(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *BankHandler) listDonors(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	filter := repository.DonorFilter{
		State:  r.URL.Query().Get("state"),
		Search: r.URL.Query().Get("search"),
	}

	donors, total, err := h.bankSvc.ListDonors(r.Context(), claimsFrom(r.Context()).UserID, filter, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(donors, total, page, size))
}

func (h *BankHandler) getDonor(w http.ResponseWriter, r *http.Request) {
	donor, err := h.bankSvc.GetDonor(r.Context(), claimsFrom(r.Context()).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *BankHandler) donorHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.bankSvc.DonorHistory(r.Context(), claimsFrom(r.Context()).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *BankHandler) beginTesting(w http.ResponseWriter, r *http.Request) {
	donor, err := h.bankSvc.BeginTesting(r.Context(), claimsFrom(r.Context()).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *BankHandler) uploadTestReport(w http.ResponseWriter, r *http.Request) {
	in, ok := testReportFromMultipart(w, r, h.docSvc)
	if !ok {
		return
	}

	report, err := h.bankSvc.UploadTestReport(r.Context(), claimsFrom(r.Context()).UserID, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *BankHandler) completeTesting(w http.ResponseWriter, r *http.Request) {
	donor, err := h.bankSvc.CompleteTesting(r.Context(), claimsFrom(r.Context()).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *BankHandler) decideEligibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	donor, err := h.bankSvc.DecideEligibility(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["id"], req.Approve, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}
