package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/spendlens/spendlens/internal/api/dto"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError maps an error to its status code and envelope.
func respondError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("unexpected error", err)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, dto.ErrorResponse{
		Error: dto.ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// respondValidation sends a 400 carrying field-level validation errors.
func respondValidation(w http.ResponseWriter, errs interface{}) {
	respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error: dto.ErrorBody{
			Code:    apperrors.ErrCodeBadRequest,
			Message: "validation failed",
			Details: errs,
		},
	})
}

// queryDays parses the "days" query parameter with a default window length.
func queryDays(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > 365 {
		return 0, apperrors.BadRequest("days must be an integer between 1 and 365")
	}
	return days, nil
}
