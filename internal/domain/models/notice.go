package models

import (
	"time"

	"github.com/google/uuid"
)

// NoticeKind distinguishes the page notices a share run can emit.
type NoticeKind string

const (
	NoticeShared   NoticeKind = "page_shared"
	NoticeNotified NoticeKind = "page_notified"
)

// PageNotice is one in-platform message about a page, written to the notices
// table for the delivery system to pick up. Delivery transport is not this
// service's concern.
type PageNotice struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PageID     uuid.UUID  `json:"page_id" db:"page_id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"` // recipient
	FromUserID uuid.UUID  `json:"from_user_id" db:"from_user_id"`
	Kind       NoticeKind `json:"kind" db:"kind"`
	Message    string     `json:"message,omitempty" db:"message"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// AccessEventKind names the two audit events sharing can produce.
type AccessEventKind string

const (
	EventUpdateUserAccess  AccessEventKind = "update_user_access"
	EventUpdateGroupAccess AccessEventKind = "update_group_access"
)

// AccessEvent records one participation whose access level actually changed.
// No-op regrants do not produce events.
type AccessEvent struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Kind       AccessEventKind `json:"kind" db:"kind"`
	PageID     uuid.UUID       `json:"page_id" db:"page_id"`
	EntityType EntityType      `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Access     AccessLevel     `json:"access" db:"access"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
