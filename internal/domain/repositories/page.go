package repositories

import (
	"context"

	"github.com/google/uuid"

	"tapestry/internal/domain/models"
)

// PageRepository defines data access operations for pages
type PageRepository interface {
	// Create creates a new page
	Create(ctx context.Context, page *models.Page) error

	// GetByID retrieves a page by ID, regardless of flow state
	GetByID(ctx context.Context, id uuid.UUID) (*models.Page, error)

	// FindByName retrieves a non-deleted page by name within an owner scope
	FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Page, error)

	// Update saves the page's mutable fields and bumps updated_at
	Update(ctx context.Context, page *models.Page) error

	// Touch bumps updated_at only, used when sharing changes participations
	// without touching the page body
	Touch(ctx context.Context, id uuid.UUID) error

	// NameTaken reports whether another non-deleted page in the same scope
	// already uses the name. Scope is the owner when the page has one,
	// otherwise the creating user.
	NameTaken(ctx context.Context, page *models.Page) (bool, error)
}

// ParticipationRepository defines data access for user and group
// participations. All mutation methods must run inside a transaction (the
// implementations lock the target row) so concurrent share runs against the
// same page cannot lose updates.
type ParticipationRepository interface {
	// UserParticipation returns the user's direct participation on the page,
	// or nil when no row exists.
	UserParticipation(ctx context.Context, pageID, userID uuid.UUID) (*models.UserParticipation, error)

	// GroupParticipation returns the group's participation on the page, or
	// nil when no row exists.
	GroupParticipation(ctx context.Context, pageID, groupID uuid.UUID) (*models.GroupParticipation, error)

	// GroupParticipations returns the participations any of the given groups
	// hold on the page.
	GroupParticipations(ctx context.Context, pageID uuid.UUID, groupIDs []uuid.UUID) ([]models.GroupParticipation, error)

	// ListByPage returns all participations on a page
	ListByPage(ctx context.Context, pageID uuid.UUID) ([]models.UserParticipation, []models.GroupParticipation, error)

	// SetUserAccess creates or updates the user's participation to the given
	// access level. Returns the resulting row and whether the access value
	// actually changed.
	SetUserAccess(ctx context.Context, pageID, userID uuid.UUID, access models.AccessLevel) (*models.UserParticipation, bool, error)

	// SetGroupAccess creates or updates the group's participation to the
	// given access level. Returns the resulting row and whether the access
	// value actually changed.
	SetGroupAccess(ctx context.Context, pageID, groupID uuid.UUID, access models.AccessLevel) (*models.GroupParticipation, bool, error)

	// RemoveEntity deletes the entity's participation from the page
	RemoveEntity(ctx context.Context, pageID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error
}
