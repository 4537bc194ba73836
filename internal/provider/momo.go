// Package provider holds the mobile-money payment provider client. The
// real integration is an external system; this codebase ships a simulated
// client with the same contract.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rentfolio-backend/internal/logger"
)

const (
	StatusPending    = "PENDING"
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
)

type PaymentRequest struct {
	Amount      float64
	PhoneNumber string
	Provider    string
	ContractID  int64
}

type PaymentResponse struct {
	TransactionID string
	Status        string
	Message       string
}

type Client interface {
	RequestPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
}

// SimulatedClient mimics a mobile-money initiation API: it hands back a
// provider transaction id in PENDING state and relies on the webhook for
// settlement. Phone numbers ending in "0000" are rejected outright, which
// gives tests and demos a deterministic failure path.
type SimulatedClient struct{}

func NewSimulatedClient() *SimulatedClient {
	return &SimulatedClient{}
}

func (c *SimulatedClient) RequestPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	logger.ExternalServiceCall("momo", "RequestPayment", "provider", req.Provider, "contractID", req.ContractID)

	if strings.HasSuffix(req.PhoneNumber, "0000") {
		resp := &PaymentResponse{
			Status:  StatusFailed,
			Message: "subscriber cannot be reached",
		}
		logger.ExternalServiceResult("momo", "RequestPayment", nil, "status", resp.Status)
		return resp, nil
	}

	resp := &PaymentResponse{
		TransactionID: fmt.Sprintf("MP-%s", uuid.NewString()),
		Status:        StatusPending,
		Message:       "payment request accepted",
	}
	logger.ExternalServiceResult("momo", "RequestPayment", nil, "transactionID", resp.TransactionID, "status", resp.Status)
	return resp, nil
}
