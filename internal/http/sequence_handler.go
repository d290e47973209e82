package http

import (
	"encoding/json"
	"net/http"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/sequence"
	"github.com/driftloop/mailcore/pkg/logger"
)

type SequenceHandler struct {
	sequences   domain.SequenceRepository
	subscribers domain.SubscriberRepository
	logger      logger.Logger
}

func NewSequenceHandler(sequences domain.SequenceRepository, subscribers domain.SubscriberRepository, log logger.Logger) *SequenceHandler {
	return &SequenceHandler{sequences: sequences, subscribers: subscribers, logger: log}
}

func (h *SequenceHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/sequences", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/sequences", requireAdmin(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/sequences/{id}", requireAdmin(http.HandlerFunc(h.handleGet)))
	mux.Handle("PUT /api/sequences/{id}", requireAdmin(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /api/sequences/{id}", requireAdmin(http.HandlerFunc(h.handleDelete)))
	mux.Handle("PUT /api/sequences/{id}/steps", requireAdmin(http.HandlerFunc(h.handleReplaceSteps)))
	mux.Handle("POST /api/sequences/{id}/enroll", requireAdmin(http.HandlerFunc(h.handleEnroll)))
	mux.Handle("GET /api/sequences/{id}/subscribers", requireAdmin(http.HandlerFunc(h.handleSubscribers)))
}

func (h *SequenceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	seqs, err := h.sequences.ListSequences(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, seqs)
}

func (h *SequenceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var s domain.Sequence
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.sequences.CreateSequence(r.Context(), &s); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, &s)
}

func (h *SequenceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.sequences.GetSequence(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	steps, err := h.sequences.EnabledSteps(r.Context(), s.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"sequence": s, "steps": steps})
}

func (h *SequenceHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s, err := h.sequences.GetSequence(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.sequences.UpdateSequence(r.Context(), s); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *SequenceHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sequences.DeleteSequence(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SequenceHandler) handleReplaceSteps(w http.ResponseWriter, r *http.Request) {
	var steps []*domain.SequenceStep
	if err := json.NewDecoder(r.Body).Decode(&steps); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, step := range steps {
		if err := step.Validate(); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if err := h.sequences.ReplaceSteps(r.Context(), r.PathValue("id"), steps); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, steps)
}

func (h *SequenceHandler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubscriberID string `json:"subscriber_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sequence.EnrollExplicit(r.Context(), h.sequences, h.subscribers, body.SubscriberID, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"status": "enrolled"})
}

func (h *SequenceHandler) handleSubscribers(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.sequences.ListEnrollmentsBySequence(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, enrollments)
}
