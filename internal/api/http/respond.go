package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/logger"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type pageBody struct {
	Items      any   `json:"items"`
	Total      int32 `json:"total"`
	Page       int32 `json:"page"`
	PageSize   int32 `json:"page_size"`
	TotalPages int32 `json:"total_pages"`
}

func paged(items any, total, page, pageSize int32) pageBody {
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pageBody{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the structured denial taxonomy onto HTTP statuses. Anything
// that is not a WorkflowError is an internal fault and stays opaque to the
// caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var we *domain.WorkflowError
	if !errors.As(err, &we) {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "internal_error",
			Message: "something went wrong",
		})
		return
	}

	status := http.StatusInternalServerError
	switch we.Code {
	case domain.CodeValidation:
		status = http.StatusBadRequest
	case domain.CodeUnauthorized:
		status = http.StatusUnauthorized
	case domain.CodeInsufficientAuthority:
		status = http.StatusForbidden
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeInvalidTransition, domain.CodeUnknownTransition, domain.CodeConflict:
		status = http.StatusConflict
	case domain.CodePreconditionUnmet:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorBody{Error: string(we.Code), Message: we.Message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, domain.NewWorkflowError(domain.CodeValidation, "invalid request body"))
		return false
	}
	return true
}
