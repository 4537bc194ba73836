package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rentfolio-backend/internal/service"
)

type PaymentHandler struct {
	payments      service.PaymentService
	notifications service.NotificationService
}

func NewPaymentHandler(payments service.PaymentService, notifications service.NotificationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, notifications: notifications}
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	var in service.PaymentInitiationInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")

	result, err := h.payments.InitiatePayment(r.Context(), actor, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Idempotent {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := ActorFromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	pageSize, _ := strconv.ParseInt(r.URL.Query().Get("page_size"), 10, 64)

	notes, total, err := h.notifications.GetNotifications(r.Context(), actor.ID, page, pageSize)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total": total})
}

func (h *PaymentHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid notification id")
		return
	}
	if err := h.notifications.MarkAsRead(r.Context(), actor.ID, id); err != nil {
		respondError(w, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "is_read": true})
}
