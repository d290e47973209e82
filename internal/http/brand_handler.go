package http

import (
	"encoding/json"
	"net/http"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

type BrandHandler struct {
	brand  domain.BrandSettingsRepository
	logger logger.Logger
}

func NewBrandHandler(brand domain.BrandSettingsRepository, log logger.Logger) *BrandHandler {
	return &BrandHandler{brand: brand, logger: log}
}

func (h *BrandHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/brand", requireAdmin(http.HandlerFunc(h.handleGet)))
	mux.Handle("PUT /api/brand", requireAdmin(http.HandlerFunc(h.handleUpdate)))
}

func (h *BrandHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.brand.Get(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, b)
}

func (h *BrandHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	b, err := h.brand.Get(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := b.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.brand.Update(r.Context(), b); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, b)
}
