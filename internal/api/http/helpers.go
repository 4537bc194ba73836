package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

// respondServiceError translates typed service failures into specific
// client-facing outcomes. The caller always gets a definitive rejection
// reason, never a bare "error".
func respondServiceError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		respondError(w, http.StatusConflict, "INSUFFICIENT_AVAILABLE_BALANCE", err.Error())
	case errors.Is(err, service.ErrDailyCountLimit):
		respondError(w, http.StatusConflict, "DAILY_WITHDRAW_COUNT_LIMIT", err.Error())
	case errors.Is(err, service.ErrDailyAmountLimit):
		respondError(w, http.StatusConflict, "DAILY_WITHDRAW_AMOUNT_LIMIT", err.Error())
	case errors.Is(err, service.ErrWithdrawalNotFound):
		respondError(w, http.StatusNotFound, "WITHDRAWAL_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "WITHDRAWAL_INVALID_TRANSITION", err.Error())
	case errors.Is(err, service.ErrIdempotencyKeyConflict):
		respondError(w, http.StatusConflict, "IDEMPOTENCY_KEY_CONFLICT", err.Error())
	case errors.Is(err, service.ErrContractNotFound):
		respondError(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrContractNotActive):
		respondError(w, http.StatusConflict, "CONTRACT_NOT_ACTIVE", err.Error())
	case errors.Is(err, service.ErrAmountMismatch):
		respondError(w, http.StatusConflict, "AMOUNT_MISMATCH", err.Error())
	case errors.Is(err, service.ErrProviderRejected):
		respondError(w, http.StatusUnprocessableEntity, "PAYMENT_PROVIDER_REJECTED", err.Error())
	case errors.Is(err, service.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrConflict):
		respondError(w, http.StatusInternalServerError, "CONFLICT_RETRIES_EXHAUSTED", err.Error())
	default:
		logger.Error("Unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return false
	}
	return true
}
