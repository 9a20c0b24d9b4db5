package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/contact-book/internal/pagination"
	"github.com/sakif/contact-book/internal/service"
)

// ContactHandler serves /contacts. The owner is always the authenticated
// caller; request bodies cannot choose it.
type ContactHandler struct {
	contacts *service.ContactService
	logger   *slog.Logger
}

func NewContactHandler(contacts *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// HandleCreate: POST /contacts {"name","email","phone"}
func (h *ContactHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var in service.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.contacts.Create(r.Context(), p.UserID(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

// HandleList: GET /contacts?page=&limit=&search=&sortBy=&sortOrder=
func (h *ContactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.contacts.List(r.Context(), p.UserID(), pagination.ParseQuery(r.URL.Query()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writePage(w, res.Data, res.Meta)
}

// HandleGet: GET /contacts/{id}
func (h *ContactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.contacts.Get(r.Context(), p.UserID(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// HandleUpdate: PATCH /contacts/{id}
func (h *ContactHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var patch service.ContactPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.contacts.Update(r.Context(), p.UserID(), chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

// HandleDelete: DELETE /contacts/{id}. Responds with the removed contact.
func (h *ContactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	c, err := h.contacts.Delete(r.Context(), p.UserID(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}
