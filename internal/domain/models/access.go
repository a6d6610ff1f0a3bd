package models

import (
	"encoding/json"
	"fmt"
)

// AccessLevel is the ordered set of access grants a participation can carry.
//
// The ordinals are load-bearing: lower means more privileged, and they are
// what gets stored in the participations tables. AccessNone is the in-memory
// form of a NULL access column - a participation row that exists (watching,
// starring) but grants nothing.
type AccessLevel int16

const (
	AccessNone  AccessLevel = 0
	AccessAdmin AccessLevel = 1
	AccessEdit  AccessLevel = 2
	AccessView  AccessLevel = 3
)

// absentBadness is the sort key for a NULL access column. Any explicit
// admin/edit/view grant beats it, and a row carrying it still beats having
// no row at all.
const absentBadness = 100

// Grants reports whether a participation at level l satisfies the requested
// permission. AccessNone never grants anything; each level implies all less
// privileged levels (admin implies edit implies view).
func (l AccessLevel) Grants(requested AccessLevel) bool {
	if l == AccessNone || requested == AccessNone {
		return false
	}
	return l <= requested
}

// badness is the most-privileged tie-break key: minimum wins, NULL access
// maps to a sentinel worse than every real level.
func (l AccessLevel) badness() int {
	if l == AccessNone {
		return absentBadness
	}
	return int(l)
}

// MostPrivileged selects the winning access level among all participations an
// entity reaches a page through (direct plus group-inherited). The second
// return value reports whether any participation exists at all: an empty
// candidate list is strictly worse than an explicit AccessNone row.
func MostPrivileged(levels []AccessLevel) (AccessLevel, bool) {
	if len(levels) == 0 {
		return AccessNone, false
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l.badness() < best.badness() {
			best = l
		}
	}
	return best, true
}

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessNone, AccessAdmin, AccessEdit, AccessView:
		return true
	}
	return false
}

func (l AccessLevel) String() string {
	switch l {
	case AccessNone:
		return "none"
	case AccessAdmin:
		return "admin"
	case AccessEdit:
		return "edit"
	case AccessView:
		return "view"
	}
	return fmt.Sprintf("access(%d)", int(l))
}

// ParseAccessLevel converts the wire form ("view", "edit", "admin", "none")
// to an AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "none", "":
		return AccessNone, nil
	case "admin":
		return AccessAdmin, nil
	case "edit":
		return AccessEdit, nil
	case "view":
		return AccessView, nil
	}
	return AccessNone, fmt.Errorf("unknown access level %q", s)
}

// MarshalJSON renders the level as its wire name.
func (l AccessLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts the wire name.
func (l *AccessLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAccessLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
