package http

import (
	"encoding/json"
	"net/http"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/provider"
	"github.com/driftloop/mailcore/internal/render"
	"github.com/driftloop/mailcore/pkg/logger"
)

// templateCatalog lists the preset ids this deployment ships (render
// package's presets map is private, so the catalog is maintained here for
// the admin UI's template picker).
var templateCatalog = []string{"simple", "newsletter"}

type TemplateHandler struct {
	brand    domain.BrandSettingsRepository
	renderer *render.Renderer
	provider *provider.Client
	siteURL  string
	logger   logger.Logger
}

func NewTemplateHandler(brand domain.BrandSettingsRepository, renderer *render.Renderer, providerClient *provider.Client, siteURL string, log logger.Logger) *TemplateHandler {
	return &TemplateHandler{brand: brand, renderer: renderer, provider: providerClient, siteURL: siteURL, logger: log}
}

func (h *TemplateHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/templates", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/templates/preview", requireAdmin(http.HandlerFunc(h.handlePreview)))
	mux.Handle("POST /api/templates/test-send", requireAdmin(http.HandlerFunc(h.handleTestSend)))
}

func (h *TemplateHandler) handleList(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, templateCatalog)
}

type previewRequest struct {
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	TemplateID string `json:"template_id"`
}

func (h *TemplateHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	brand, err := h.brand.Get(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	html, err := h.renderer.Render(r.Context(), render.Input{
		Subject:         req.Subject,
		Content:         req.Content,
		TemplateID:      req.TemplateID,
		Brand:           brand,
		SubscriberName:  "Preview Subscriber",
		SubscriberEmail: "preview@example.com",
		UnsubscribeURL:  h.siteURL + "/unsubscribe/preview",
		SiteURL:         h.siteURL,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

type testSendRequest struct {
	previewRequest
	ToEmail string `json:"to_email"`
}

func (h *TemplateHandler) handleTestSend(w http.ResponseWriter, r *http.Request) {
	var req testSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToEmail == "" {
		writeError(w, http.StatusBadRequest, "to_email is required")
		return
	}
	brand, err := h.brand.Get(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	html, err := h.renderer.Render(r.Context(), render.Input{
		Subject:         req.Subject,
		Content:         req.Content,
		TemplateID:      req.TemplateID,
		Brand:           brand,
		SubscriberName:  "Test Subscriber",
		SubscriberEmail: req.ToEmail,
		UnsubscribeURL:  h.siteURL + "/unsubscribe/preview",
		SiteURL:         h.siteURL,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := h.provider.Send(r.Context(), provider.SendMessage{
		ToEmail:  req.ToEmail,
		Subject:  "[TEST] " + req.Subject,
		HTMLBody: html,
		ReplyTo:  brand.ReplyTo,
	})
	if !result.Success() {
		writeError(w, http.StatusBadGateway, result.Err.Error())
		return
	}
	writeData(w, http.StatusOK, map[string]string{"provider_message_id": result.ProviderMessageID})
}
