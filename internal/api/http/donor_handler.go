package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/service"
	"donorlink-backend/internal/storage"
)

type DonorHandler struct {
	donorSvc service.DonorService
	docSvc   service.DocumentService
}

func NewDonorHandler(donorSvc service.DonorService, docSvc service.DocumentService) *DonorHandler {
	return &DonorHandler{donorSvc: donorSvc, docSvc: docSvc}
}

func (h *DonorHandler) Register(r *mux.Router) {
	r.HandleFunc("/lead", h.createLead).Methods(http.MethodPost)
	r.HandleFunc("/account", h.createAccount).Methods(http.MethodPost)
	r.HandleFunc("/counseling", h.requestCounseling).Methods(http.MethodPost)
	r.HandleFunc("/counseling", h.listCounseling).Methods(http.MethodGet)
	r.HandleFunc("/consent-templates", h.listConsentTemplates).Methods(http.MethodGet)
	r.HandleFunc("/consents", h.listConsents).Methods(http.MethodGet)
	r.HandleFunc("/consents/{templateID}/sign", h.signConsent).Methods(http.MethodPost)
	r.HandleFunc("/test-reports", h.uploadTestReport).Methods(http.MethodPost)
	r.HandleFunc("/test-reports", h.listTestReports).Methods(http.MethodGet)
	r.HandleFunc("/profile", h.profile).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/history", h.history).Methods(http.MethodGet)
}

func (h *DonorHandler) createLead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName           string         `json:"first_name"`
		LastName            string         `json:"last_name"`
		Phone               string         `json:"phone"`
		MedicalInterestInfo map[string]any `json:"medical_interest_info"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	donor, err := h.donorSvc.CreateLead(r.Context(), claimsFrom(r.Context()).UserID, service.DonorLeadInput{
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Phone:               req.Phone,
		MedicalInterestInfo: req.MedicalInterestInfo,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *DonorHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string     `json:"email"`
		Password    string     `json:"password"`
		DateOfBirth *time.Time `json:"date_of_birth"`
		Address     string     `json:"address"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	donor, err := h.donorSvc.CreateAccount(r.Context(), claimsFrom(r.Context()).UserID, service.DonorAccountInput{
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *DonorHandler) requestCounseling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method domain.CounselingMethod `json:"method"`
		Notes  string                  `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.donorSvc.RequestCounseling(r.Context(), claimsFrom(r.Context()).UserID, req.Method, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *DonorHandler) listCounseling(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.donorSvc.ListMyCounseling(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *DonorHandler) listConsentTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.donorSvc.ListConsentTemplates(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *DonorHandler) signConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SignatureData map[string]any `json:"signature_data"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	consent, err := h.donorSvc.SignConsent(r.Context(), claimsFrom(r.Context()).UserID,
		mux.Vars(r)["templateID"], req.SignatureData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consent)
}

func (h *DonorHandler) listConsents(w http.ResponseWriter, r *http.Request) {
	consents, err := h.donorSvc.ListMyConsents(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, consents)
}

func (h *DonorHandler) uploadTestReport(w http.ResponseWriter, r *http.Request) {
	in, ok := testReportFromMultipart(w, r, h.docSvc)
	if !ok {
		return
	}

	report, err := h.donorSvc.UploadTestReport(r.Context(), claimsFrom(r.Context()).UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *DonorHandler) listTestReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.donorSvc.ListMyTestReports(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *DonorHandler) profile(w http.ResponseWriter, r *http.Request) {
	donor, err := h.donorSvc.GetProfile(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *DonorHandler) status(w http.ResponseWriter, r *http.Request) {
	donor, next, err := h.donorSvc.Status(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"donor":      donor,
		"next_state": next,
	})
}

func (h *DonorHandler) history(w http.ResponseWriter, r *http.Request) {
	entries, err := h.donorSvc.History(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// testReportFromMultipart stores the uploaded file and assembles the report
// input from the surrounding form fields.
func testReportFromMultipart(w http.ResponseWriter, r *http.Request, docSvc service.DocumentService) (service.TestReportInput, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, domain.NewWorkflowError(domain.CodeValidation, "multipart form required"))
		return service.TestReportInput{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.NewWorkflowError(domain.CodeValidation, "file field is required"))
		return service.TestReportInput{}, false
	}
	defer file.Close()

	ref, err := docSvc.Upload(r.Context(), storage.BucketTestReports,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		writeError(w, r, err)
		return service.TestReportInput{}, false
	}

	in := service.TestReportInput{
		TestType: r.FormValue("test_type"),
		TestName: r.FormValue("test_name"),
		FileURL:  ref.URL,
		FileName: ref.FileName,
		LabName:  r.FormValue("lab_name"),
		Notes:    r.FormValue("notes"),
	}
	if v := r.FormValue("test_date"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			in.TestDate = &ts
		}
	}
	return in, true
}

const maxUploadMemory = 32 << 20

func pagination(r *http.Request) (int32, int32) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if size < 1 || size > 100 {
		size = 20
	}
	return int32(page), int32(size)
}
