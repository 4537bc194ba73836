package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/service"
)

type WithdrawalHandler struct {
	withdrawals service.WithdrawalService
}

func NewWithdrawalHandler(withdrawals service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	var in service.WithdrawalRequestInput
	if !decodeBody(w, r, &in) {
		return
	}

	result, err := h.withdrawals.RequestWithdrawal(r.Context(), actor, in, clientMeta(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

type transitionRequest struct {
	Status domain.WithdrawalStatus `json:"status"`
	Note   string                  `json:"note,omitempty"`
}

func (h *WithdrawalHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	withdrawalID := mux.Vars(r)["id"]
	var in transitionRequest
	if !decodeBody(w, r, &in) {
		return
	}

	status, err := h.withdrawals.TransitionWithdrawal(r.Context(), actor, withdrawalID, in.Status, in.Note, clientMeta(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": withdrawalID, "status": status})
}

func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	records, err := h.withdrawals.ListWithdrawals(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"withdrawals": records, "total": len(records)})
}

func (h *WithdrawalHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no actor in context")
		return
	}

	balance, err := h.withdrawals.GetBalance(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}
