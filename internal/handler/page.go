package handler

import (
	"log/slog"
	"net/http"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/services"
	"tapestry/internal/httputil"
)

// PageHandler handles page lifecycle HTTP requests
type PageHandler struct {
	pageService services.PageService
	logger      *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(pageService services.PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		pageService: pageService,
		logger:      logger,
	}
}

// CreatePage creates a new page
// POST /api/pages
func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	page, err := h.pageService.CreatePage(r.Context(), httputil.GetUser(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, page)
}

// GetPage retrieves a page by id or friendly URL ("some-title+<id>"). With
// ?email=&token= the request authenticates through the magic-link path
// instead of the bearer token.
// GET /api/pages/{id}
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathPageID(w, r, "id")
	if !ok {
		return
	}

	if email := r.URL.Query().Get("email"); email != "" {
		page, err := h.pageService.GetPageByToken(r.Context(), id, email, r.URL.Query().Get("token"))
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, page)
		return
	}

	page, err := h.pageService.GetPage(r.Context(), httputil.Actor(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// GetPageByName retrieves a page by its owner-scoped name
// GET /api/pages/{owner}/{name}
func (h *PageHandler) GetPageByName(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageService.GetPageByName(r.Context(), httputil.Actor(r), r.PathValue("owner"), r.PathValue("name"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// UpdatePage retitles, renames, republishes or transfers ownership
// PATCH /api/pages/{id}
func (h *PageHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdatePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	page, err := h.pageService.UpdatePage(r.Context(), httputil.GetUser(r), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// DeletePage soft-deletes a page
// DELETE /api/pages/{id}
func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.pageService.DeletePage(r.Context(), httputil.GetUser(r), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UndeletePage restores a soft-deleted page
// POST /api/pages/{id}/undelete
func (h *PageHandler) UndeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.pageService.UndeletePage(r.Context(), httputil.GetUser(r), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListParticipations lists user and group participations on a page
// GET /api/pages/{id}/participations
func (h *PageHandler) ListParticipations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	users, groups, err := h.pageService.ListParticipations(r.Context(), httputil.Actor(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"user_participations":  users,
		"group_participations": groups,
	})
}

// RemoveParticipant removes a user or group from a page
// DELETE /api/pages/{id}/participations/{entityID}?type=user|group
func (h *PageHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entityID, ok := pathUUID(w, r, "entityID")
	if !ok {
		return
	}

	entityType := models.EntityType(r.URL.Query().Get("type"))
	if entityType != models.EntityUser && entityType != models.EntityGroup {
		httputil.RespondError(w, http.StatusBadRequest, "type must be user or group")
		return
	}

	if err := h.pageService.RemoveEntity(r.Context(), httputil.GetUser(r), id, entityType, entityID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
