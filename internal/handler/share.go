package handler

import (
	"log/slog"
	"net/http"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
	"tapestry/internal/httputil"
	"tapestry/internal/service/share"
)

// ShareHandler handles share and notify HTTP requests
type ShareHandler struct {
	shareService services.ShareService
	pages        repositories.PageRepository
	logger       *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService services.ShareService, pages repositories.PageRepository, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		pages:        pages,
		logger:       logger,
	}
}

// shareBody is the wire form of a share request. Recipients arrive either as
// the structured map or as a raw comma/whitespace separated names string
// (the autocomplete form posts the latter); both may appear together.
type shareBody struct {
	Mode           services.ShareMode                   `json:"mode"`
	Recipients     map[string]services.RecipientOptions `json:"recipients"`
	RecipientNames string                               `json:"recipient_names,omitempty"`
	Access         models.AccessLevel                   `json:"access,omitempty"`
	Message        string                               `json:"message,omitempty"`
	SendEmail      bool                                 `json:"send_email"`
	SendMessage    bool                                 `json:"send_message"`
}

func (b *shareBody) toRequest() *services.ShareRequest {
	recipients := make(map[string]services.RecipientOptions, len(b.Recipients))
	for name, opts := range b.Recipients {
		recipients[name] = opts
	}
	for _, name := range share.SplitNames(b.RecipientNames) {
		if _, ok := recipients[name]; !ok {
			recipients[name] = services.RecipientOptions{Access: b.Access}
		}
	}
	return &services.ShareRequest{
		Mode:        b.Mode,
		Recipients:  recipients,
		Message:     b.Message,
		SendEmail:   b.SendEmail,
		SendMessage: b.SendMessage,
	}
}

// SharePage runs one share or notify batch against a page. Page id "0" or
// "new" addresses a page still being composed: recipients are resolved and
// classified but nothing is persisted.
// POST /api/pages/{id}/shares
func (h *ShareHandler) SharePage(w http.ResponseWriter, r *http.Request) {
	var body shareBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var page *models.Page
	if raw := r.PathValue("id"); raw != "0" && raw != "new" {
		id, err := parseUUID(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid id")
			return
		}
		page, err = h.pages.GetByID(r.Context(), id)
		if err != nil {
			handleError(w, err)
			return
		}
	}

	result, err := h.shareService.Apply(r.Context(), httputil.GetUser(r), page, body.toRequest())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
