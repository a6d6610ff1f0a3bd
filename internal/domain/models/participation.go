package models

import (
	"time"

	"github.com/google/uuid"
)

// UserParticipation ties one user to one page. Access may be AccessNone: such
// a row exists because the user watches or starred the page, and grants
// nothing. Rows are page-owned and cascade-delete with the page.
type UserParticipation struct {
	ID     uuid.UUID   `json:"id" db:"id"`
	PageID uuid.UUID   `json:"page_id" db:"page_id"`
	UserID uuid.UUID   `json:"user_id" db:"user_id"`
	Access AccessLevel `json:"access" db:"access"`

	Watched  bool `json:"watched" db:"watched"`
	Star     bool `json:"star" db:"star"`
	Resolved bool `json:"resolved" db:"resolved"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Grants reports whether this participation satisfies the requested
// permission.
func (p *UserParticipation) Grants(requested AccessLevel) bool {
	return p.Access.Grants(requested)
}

// GroupParticipation ties one group to one page. Every member of the group
// inherits the access level at permission-resolution time; no per-member rows
// are materialized.
type GroupParticipation struct {
	ID      uuid.UUID   `json:"id" db:"id"`
	PageID  uuid.UUID   `json:"page_id" db:"page_id"`
	GroupID uuid.UUID   `json:"group_id" db:"group_id"`
	Access  AccessLevel `json:"access" db:"access"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (p *GroupParticipation) Grants(requested AccessLevel) bool {
	return p.Access.Grants(requested)
}
