package models

import (
	"time"

	"github.com/google/uuid"
)

// PageToken is the magic-link credential for an email recipient who is not a
// platform member. It is keyed on (page, email) and is deliberately not a
// participation: the normal resolver never sees it, and redeeming it grants
// view only, through its own authentication path.
type PageToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PageID    uuid.UUID `json:"page_id" db:"page_id"`
	Email     string    `json:"email" db:"email"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (t *PageToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
