package http

import (
	"net/http"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/unsubscribe"
	"github.com/driftloop/mailcore/pkg/logger"
)

// PublicHandler serves the two unauthenticated routes spec.md §6 exposes
// to a subscriber's browser: the unsubscribe-token redirect and the
// published-campaign archive.
type PublicHandler struct {
	unsubscribe *unsubscribe.Pipeline
	campaigns   domain.CampaignRepository
	siteURL     string
	logger      logger.Logger
}

func NewPublicHandler(pipeline *unsubscribe.Pipeline, campaigns domain.CampaignRepository, siteURL string, log logger.Logger) *PublicHandler {
	return &PublicHandler{unsubscribe: pipeline, campaigns: campaigns, siteURL: siteURL, logger: log}
}

func (h *PublicHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/newsletter/unsubscribe/{token}", h.handleUnsubscribe)
	mux.HandleFunc("GET /api/archive", h.handleArchiveList)
	mux.HandleFunc("GET /api/archive/{slug}", h.handleArchiveGet)
}

func (h *PublicHandler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	outcome := h.unsubscribe.Unsubscribe(r.Context(), r.PathValue("token"))
	http.Redirect(w, r, h.siteURL+"/unsubscribed?status="+string(outcome), http.StatusFound)
}

func (h *PublicHandler) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	published := make([]*domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Status == domain.CampaignStatusSent && c.IsPublished {
			published = append(published, c)
		}
	}
	writeData(w, http.StatusOK, published)
}

func (h *PublicHandler) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if c.Status != domain.CampaignStatusSent || !c.IsPublished {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeData(w, http.StatusOK, c)
}
