package handler

import (
	"net/http"
	"strings"

	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/geo"
)

// ContactHandler handles emergency directory endpoints.
type ContactHandler struct {
	resolver *contact.Resolver
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(resolver *contact.Resolver) *ContactHandler {
	return &ContactHandler{resolver: resolver}
}

// ListContacts handles GET /v1/contacts - the layered directory for a
// state and district. It always answers, falling back to national numbers.
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	region := geo.Region{
		State:    strings.TrimSpace(q.Get("state")),
		District: strings.TrimSpace(q.Get("district")),
	}.Normalized()

	res := h.resolver.Resolve(r.Context(), region)
	response.JSON(w, r, http.StatusOK, models.ContactList{Items: res.Contacts, Floor: res.Floor})
}
