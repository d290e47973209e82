package http

import (
	"io"
	"net/http"
	"time"

	"github.com/driftloop/mailcore/internal/delivery"
	"github.com/driftloop/mailcore/pkg/logger"
)

// WebhookHandler receives provider delivery-event callbacks (spec.md §6).
type WebhookHandler struct {
	verifier  *delivery.Verifier
	processor *delivery.Processor
	logger    logger.Logger
}

func NewWebhookHandler(verifier *delivery.Verifier, processor *delivery.Processor, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, processor: processor, logger: log}
}

func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/webhooks/email", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	headers := delivery.SignatureHeaders{
		ID:        r.Header.Get("Webhook-Id"),
		Timestamp: r.Header.Get("Webhook-Timestamp"),
		Signature: r.Header.Get("Webhook-Signature"),
	}
	if err := h.verifier.Verify(body, headers); err != nil {
		writeError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	if err := h.processor.Handle(r.Context(), headers.ID, body, time.Now().UTC()); err != nil {
		h.logger.WithField("error", err.Error()).Error("webhook: handle failed")
		writeError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
