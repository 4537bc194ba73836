package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/service"
)

// SignatureHeader carries the provider's hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	webhooks service.WebhookService
	secret   []byte
}

func NewWebhookHandler(webhooks service.WebhookService, secret string) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, secret: []byte(secret)}
}

// HandleProviderCallback verifies the signature over the raw body before
// anything is parsed. A mismatch or missing secret is a hard failure; the
// payload is never processed.
func (h *WebhookHandler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	if len(h.secret) == 0 {
		logger.Error("Webhook secret not configured")
		webhookRejectedTotal.WithLabelValues("no_secret").Inc()
		respondError(w, http.StatusInternalServerError, "WEBHOOK_NOT_CONFIGURED", "webhook secret not configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read request body")
		return
	}

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		logger.Warn("Webhook signature verification failed", "remote", r.RemoteAddr)
		webhookRejectedTotal.WithLabelValues("bad_signature").Inc()
		respondError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed")
		return
	}

	var payload service.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		webhookRejectedTotal.WithLabelValues("bad_payload").Inc()
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}

	result, err := h.webhooks.ProcessCallback(r.Context(), payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
