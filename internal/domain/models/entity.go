package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform member. Login is the unique handle recipients are
// addressed by when sharing.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Login       string    `json:"login" db:"login"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"email,omitempty" db:"email"`
	// Pesterable means the user's profile allows contact from people they
	// share no group with.
	Pesterable bool `json:"-" db:"pesterable"`
	// SiteAdmin grants the platform-level admin capability (page creation
	// under arbitrary groups, notify without page admin).
	SiteAdmin bool      `json:"-" db:"site_admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Group is a named collective. A group can own pages and hold a single
// group participation that all members inherit; groups are not members of
// other groups.
type Group struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	DisplayName string    `json:"display_name" db:"display_name"`
	// PublicView means the group's public-access setting allows outsiders
	// to view it (and to create pages under it).
	PublicView bool      `json:"public_view" db:"public_view"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// EntityType discriminates the two kinds of actors and owners.
type EntityType string

const (
	EntityUser  EntityType = "user"
	EntityGroup EntityType = "group"
)

// Entity is the closed user-or-group variant. Exactly one of User or Group
// is set for a non-zero entity; the zero Entity is the anonymous actor.
type Entity struct {
	Type  EntityType
	User  *User
	Group *Group
}

func UserEntity(u *User) Entity   { return Entity{Type: EntityUser, User: u} }
func GroupEntity(g *Group) Entity { return Entity{Type: EntityGroup, Group: g} }

// Anonymous reports whether the entity is the unauthenticated actor.
func (e Entity) Anonymous() bool { return e.User == nil && e.Group == nil }

func (e Entity) ID() uuid.UUID {
	switch e.Type {
	case EntityUser:
		if e.User != nil {
			return e.User.ID
		}
	case EntityGroup:
		if e.Group != nil {
			return e.Group.ID
		}
	}
	return uuid.Nil
}

// Name returns the handle the entity is addressed by: login for users,
// group name for groups.
func (e Entity) Name() string {
	switch e.Type {
	case EntityUser:
		if e.User != nil {
			return e.User.Login
		}
	case EntityGroup:
		if e.Group != nil {
			return e.Group.Name
		}
	}
	return ""
}

func (e Entity) DisplayName() string {
	switch e.Type {
	case EntityUser:
		if e.User != nil && e.User.DisplayName != "" {
			return e.User.DisplayName
		}
	case EntityGroup:
		if e.Group != nil && e.Group.DisplayName != "" {
			return e.Group.DisplayName
		}
	}
	return e.Name()
}
