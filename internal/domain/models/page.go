package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Flow is the page lifecycle state. Deleted pages stay in the table; the
// permission layer downgrades them (edit is always denied).
type Flow int16

const (
	FlowNormal  Flow = 0
	FlowDeleted Flow = 3
)

// Page is the main content record. The actual content (wiki text, gallery,
// poll, task list) lives behind the data reference and is rendered elsewhere;
// this model carries everything access control and sharing need.
type Page struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Title string    `json:"title" db:"title"`
	// Name is the optional unique-within-owner slug. Empty means the page is
	// addressed by its friendly URL only.
	Name string `json:"name,omitempty" db:"name"`

	// Owner is a user or a group, or absent when configuration permits
	// ownerless pages.
	OwnerType *EntityType `json:"owner_type,omitempty" db:"owner_type"`
	OwnerID   *uuid.UUID  `json:"owner_id,omitempty" db:"owner_id"`
	OwnerName string      `json:"owner_name,omitempty" db:"owner_name"`

	CreatedByID uuid.UUID `json:"created_by_id" db:"created_by_id"`

	// Public allows viewing without any participation. It must never be
	// conflated with participation-derived access.
	Public bool `json:"public" db:"public"`

	Flow     Flow `json:"-" db:"flow"`
	Resolved bool `json:"resolved" db:"resolved"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (p *Page) Deleted() bool { return p.Flow == FlowDeleted }

// Owned reports whether the page has an owner entity.
func (p *Page) Owned() bool { return p.OwnerID != nil && p.OwnerType != nil }

// OwnedBy reports whether the given entity is the page owner.
func (p *Page) OwnedBy(e Entity) bool {
	return p.Owned() && *p.OwnerType == e.Type && *p.OwnerID == e.ID()
}

var (
	nameizeStrip    = regexp.MustCompile(`[^a-z0-9\-]+`)
	nameizeCollapse = regexp.MustCompile(`-+`)
)

// Nameize converts a title to its slug form: lowercased, whitespace and
// punctuation folded to single hyphens.
func Nameize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = nameizeStrip.ReplaceAllString(s, "")
	s = nameizeCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidName reports whether a page name is already in slug form. Page names
// must survive Nameize unchanged so they can appear in URLs as-is.
func ValidName(name string) bool {
	return name == Nameize(name)
}

// FriendlyURL is the unique string for a page including its id, e.g.
// "what-a-fine-page+5234". Pages without a title yet (mid-creation) fall
// back to the bare id.
func (p *Page) FriendlyURL() string {
	if p.Title == "" {
		return p.ID.String()
	}
	s := Nameize(p.Title)
	// limit slug length and drop any half-cut trailing word
	if len(s) > 42 {
		s = s[:41]
		if i := strings.LastIndex(s, "-"); i > 0 {
			s = s[:i]
		}
	}
	return s + "+" + p.ID.String()
}

// NameURL identifies the page within its owner context: the name when set,
// otherwise the friendly URL.
func (p *Page) NameURL() string {
	if p.Name != "" {
		return p.Name
	}
	return p.FriendlyURL()
}

// URI is the best-guess path for the page, sans host: owner-scoped when the
// page has an owner, /page/ otherwise.
func (p *Page) URI() string {
	if p.OwnerName != "" {
		return "/" + p.OwnerName + "/" + p.NameURL()
	}
	return "/page/" + p.FriendlyURL()
}
