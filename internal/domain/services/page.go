package services

import (
	"context"

	"github.com/google/uuid"

	"tapestry/internal/domain/models"
)

// CreatePageRequest represents a request to create a page
type CreatePageRequest struct {
	Title string `json:"title"`
	// Name is the optional owner-scoped slug; must already be in slug form.
	Name string `json:"name,omitempty"`
	// Owner is a user login or group name. Empty means self-owned, unless
	// configuration permits ownerless pages.
	Owner  string `json:"owner,omitempty"`
	Public bool   `json:"public"`
}

// UpdatePageRequest represents a partial page update. Nil fields are left
// unchanged.
type UpdatePageRequest struct {
	Title  *string `json:"title,omitempty"`
	Name   *string `json:"name,omitempty"`
	Public *bool   `json:"public,omitempty"`
	// Owner transfers ownership to the named user or group. The new owner
	// is granted an admin participation when it lacks one.
	Owner *string `json:"owner,omitempty"`
}

// PageService defines the page lifecycle operations
type PageService interface {
	// CreatePage creates a page; the creating user receives an admin
	// participation, and the owner (when distinct) one as well.
	CreatePage(ctx context.Context, actor *models.User, req *CreatePageRequest) (*models.Page, error)

	// GetPage retrieves a page the actor may view
	GetPage(ctx context.Context, actor models.Entity, id uuid.UUID) (*models.Page, error)

	// GetPageByName retrieves a page by its owner-scoped name; the name may
	// also be a friendly URL ("some-title+<id>")
	GetPageByName(ctx context.Context, actor models.Entity, ownerName, name string) (*models.Page, error)

	// GetPageByToken retrieves a page through the magic-link path: the email
	// and secret must match a stored, unexpired page token. Grants view only.
	GetPageByToken(ctx context.Context, id uuid.UUID, email, secret string) (*models.Page, error)

	// UpdatePage renames, retitles, republishes or transfers ownership
	// (admin required)
	UpdatePage(ctx context.Context, actor *models.User, id uuid.UUID, req *UpdatePageRequest) (*models.Page, error)

	// DeletePage moves the page to the deleted flow (admin required)
	DeletePage(ctx context.Context, actor *models.User, id uuid.UUID) error

	// UndeletePage restores a deleted page (admin required)
	UndeletePage(ctx context.Context, actor *models.User, id uuid.UUID) error

	// ListParticipations returns all participations on a page (view required)
	ListParticipations(ctx context.Context, actor models.Entity, id uuid.UUID) ([]models.UserParticipation, []models.GroupParticipation, error)

	// RemoveEntity removes a user or group from the page (admin required)
	RemoveEntity(ctx context.Context, actor *models.User, id uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error
}
