package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"orderdesk/internal/models"
	"orderdesk/pkg/logger"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string           `json:"error"`
	Kind      models.ErrorKind `json:"kind,omitempty"`
	ProductID int64            `json:"product_id,omitempty"`
	From      models.Status    `json:"from,omitempty"`
	To        models.Status    `json:"to,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// statusFor maps a service error to its HTTP status. Infrastructure errors are 500.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindValidation,
		models.KindProductUnavailable,
		models.KindInvalidQuantity,
		models.KindTenantUnavailable,
		models.KindTenantNotAccepting,
		models.KindInvalidTransition,
		models.KindIllegalState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes a business error with its details, or a generic
// 500 after logging anything else.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, code, "internal server error")
		return
	}

	var domainErr *models.Error
	errors.As(err, &domainErr)
	respondWithJSON(w, code, errorResponse{
		Error:     domainErr.Message,
		Kind:      domainErr.Kind,
		ProductID: domainErr.ProductID,
		From:      domainErr.From,
		To:        domainErr.To,
	})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return n, nil
}

// parseDateRange reads optional startDate/endDate (YYYY-MM-DD). The end date covers
// the whole day.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var startDate, endDate time.Time
	var err error

	if raw := r.URL.Query().Get("startDate"); raw != "" {
		startDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, models.NewValidationError("startDate must be YYYY-MM-DD")
		}
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		endDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, models.NewValidationError("endDate must be YYYY-MM-DD")
		}
		endDate = endDate.Add(24*time.Hour - time.Nanosecond)
	}

	if !startDate.IsZero() && !endDate.IsZero() && startDate.After(endDate) {
		return time.Time{}, time.Time{}, models.NewValidationError("start date must be before end date")
	}
	return startDate, endDate, nil
}
