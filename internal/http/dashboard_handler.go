package http

import (
	"net/http"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

// DashboardHandler serves the admin overview of spec.md §6: global send
// stats over a lookback window.
type DashboardHandler struct {
	deliveryLogs domain.DeliveryLogRepository
	subscribers  domain.SubscriberRepository
	logger       logger.Logger
}

func NewDashboardHandler(deliveryLogs domain.DeliveryLogRepository, subscribers domain.SubscriberRepository, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{deliveryLogs: deliveryLogs, subscribers: subscribers, logger: log}
}

func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/dashboard", requireAdmin(http.HandlerFunc(h.handleGet)))
}

func (h *DashboardHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	lookbackDays := queryInt(r, "days", 30)
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	stats, err := h.deliveryLogs.GlobalStats(r.Context(), since)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	_, totalActive, err := h.subscribers.List(r.Context(), domain.SubscriberFilter{
		Status: domain.SubscriberStatusActive,
		Limit:  1,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"since":            since,
		"stats":            stats,
		"active_subscribers": totalActive,
	})
}
