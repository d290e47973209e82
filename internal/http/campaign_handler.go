package http

import (
	"encoding/json"
	"net/http"

	"github.com/driftloop/mailcore/internal/campaign"
	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

type CampaignHandler struct {
	campaigns    domain.CampaignRepository
	deliveryLogs domain.DeliveryLogRepository
	dispatcher   *campaign.Dispatcher
	logger       logger.Logger
}

func NewCampaignHandler(campaigns domain.CampaignRepository, deliveryLogs domain.DeliveryLogRepository, dispatcher *campaign.Dispatcher, log logger.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, deliveryLogs: deliveryLogs, dispatcher: dispatcher, logger: log}
}

func (h *CampaignHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/campaigns", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/campaigns", requireAdmin(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/campaigns/{id}", requireAdmin(http.HandlerFunc(h.handleGet)))
	mux.Handle("PUT /api/campaigns/{id}", requireAdmin(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /api/campaigns/{id}", requireAdmin(http.HandlerFunc(h.handleDelete)))
	mux.Handle("GET /api/campaigns/{id}/tracking", requireAdmin(http.HandlerFunc(h.handleTracking)))
}

func (h *CampaignHandler) handleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var c domain.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.Status = domain.CampaignStatusDraft
	if c.ScheduledAt != nil {
		c.Status = domain.CampaignStatusScheduled
	}
	if err := c.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.campaigns.Create(r.Context(), &c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, &c)
}

func (h *CampaignHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *CampaignHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if c.Status == domain.CampaignStatusSent {
		writeError(w, http.StatusConflict, "a sent campaign cannot be edited")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if c.ScheduledAt != nil && c.Status == domain.CampaignStatusDraft {
		c.Status = domain.CampaignStatusScheduled
	}
	if err := c.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.campaigns.Update(r.Context(), c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *CampaignHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) handleTracking(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	variant := r.URL.Query().Get("variant")

	var stats *domain.CampaignStats
	var err error
	switch variant {
	case "A":
		stats, err = h.deliveryLogs.StatsForCampaignVariant(r.Context(), id, domain.ABVariantA)
	case "B":
		stats, err = h.deliveryLogs.StatsForCampaignVariant(r.Context(), id, domain.ABVariantB)
	default:
		stats, err = h.deliveryLogs.StatsForCampaign(r.Context(), id)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
