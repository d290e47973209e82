package http

import (
	"encoding/json"
	"net/http"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

type ContactListHandler struct {
	lists  domain.ContactListRepository
	logger logger.Logger
}

func NewContactListHandler(lists domain.ContactListRepository, log logger.Logger) *ContactListHandler {
	return &ContactListHandler{lists: lists, logger: log}
}

func (h *ContactListHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/lists", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/lists", requireAdmin(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/lists/{id}", requireAdmin(http.HandlerFunc(h.handleGet)))
	mux.Handle("PUT /api/lists/{id}", requireAdmin(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /api/lists/{id}", requireAdmin(http.HandlerFunc(h.handleDelete)))
	mux.Handle("GET /api/lists/{id}/members", requireAdmin(http.HandlerFunc(h.handleMembers)))
	mux.Handle("POST /api/lists/{id}/members", requireAdmin(http.HandlerFunc(h.handleAddMember)))
	mux.Handle("DELETE /api/lists/{id}/members/{subscriberId}", requireAdmin(http.HandlerFunc(h.handleRemoveMember)))
}

func (h *ContactListHandler) handleList(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, lists)
}

func (h *ContactListHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var l domain.ContactList
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := l.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.lists.Create(r.Context(), &l); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, &l)
}

func (h *ContactListHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	l, err := h.lists.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, l)
}

func (h *ContactListHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	l, err := h.lists.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := l.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.lists.Update(r.Context(), l); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, l)
}

func (h *ContactListHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactListHandler) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.lists.Members(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, members)
}

func (h *ContactListHandler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubscriberID string `json:"subscriber_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.lists.AddMember(r.Context(), r.PathValue("id"), body.SubscriberID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *ContactListHandler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("subscriberId")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
