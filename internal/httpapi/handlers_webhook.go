package httpapi

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// VerifyWebhook answers the Cloud API subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (h *Handlers) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || token == "" || token != h.verifyToken {
		logger.FromContext(r.Context()).Warn("Webhook verification rejected",
			zap.String("hub_mode", mode))
		writeError(w, http.StatusForbidden, "verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// ReceiveWebhook ingests delivery receipts. The Cloud API redelivers anything
// that is not answered 200, so apply failures are logged and absorbed; only a
// payload that cannot be parsed at all gets a 400.
func (h *Handlers) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.service.ProcessWebhook(r.Context(), body); err != nil {
		if apperrors.IsBadRequestError(err) || apperrors.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, "malformed webhook payload")
			return
		}
		logger.FromContext(r.Context()).Error("Webhook processing failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
