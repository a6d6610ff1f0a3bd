package repositories

import (
	"context"

	"github.com/google/uuid"

	"tapestry/internal/domain/models"
)

// UserRepository defines identity lookup operations for users
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByLogin retrieves a user by login, or nil when no such user exists
	FindByLogin(ctx context.Context, login string) (*models.User, error)

	// AllGroupIDs returns the ids of every group the user belongs to,
	// resolved transitively (committees included).
	AllGroupIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// GroupRepository defines identity lookup operations for groups
type GroupRepository interface {
	// GetByID retrieves a group by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)

	// FindByName retrieves a group by name, or nil when no such group exists
	FindByName(ctx context.Context, name string) (*models.Group, error)

	// IsMember reports whether the user belongs to the group
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)

	// Members returns the group's member users, used for email fan-out when
	// a group is shared with.
	Members(ctx context.Context, groupID uuid.UUID) ([]models.User, error)
}

// PageTokenRepository stores magic-link credentials for email recipients
type PageTokenRepository interface {
	// Create stores a new token
	Create(ctx context.Context, token *models.PageToken) error

	// Find retrieves the token for (page, email) with the given secret, or
	// nil when none matches.
	Find(ctx context.Context, pageID uuid.UUID, email, secret string) (*models.PageToken, error)

	// DeleteExpired removes tokens past their expiry
	DeleteExpired(ctx context.Context) (int64, error)
}

// NoticeRepository is the outbox for in-platform page notices
type NoticeRepository interface {
	// Create appends one notice
	Create(ctx context.Context, notice *models.PageNotice) error
}

// AuditRepository records access-change events
type AuditRepository interface {
	// Record appends one event
	Record(ctx context.Context, event *models.AccessEvent) error
}
