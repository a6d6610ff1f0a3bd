package services

import (
	"context"

	"tapestry/internal/domain/models"
)

// DenyReason explains a Decision that is not allowed.
type DenyReason string

const (
	// DenyDeletedPage: the page is deleted and edit was requested. This
	// override beats every participation, including admin.
	DenyDeletedPage DenyReason = "deleted_page"
	// DenyNoParticipation: the actor reaches the page through no
	// participation at all.
	DenyNoParticipation DenyReason = "no_participation"
	// DenyInsufficientAccess: the best participation does not grant the
	// requested permission.
	DenyInsufficientAccess DenyReason = "insufficient_access"
)

// Decision is the typed allow/deny result of a permission check. Callers
// choose whether to treat a denial as a boolean or convert it to a
// PermissionDeniedError; control flow never runs on exceptions.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty when allowed
}

var Allowed = Decision{Allowed: true}

func Denied(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// PermissionResolver computes participation-derived access for an arbitrary
// actor against a page. It is a pure read: public visibility is not its
// business (see AccessPolicy), and it must tolerate concurrent writers.
type PermissionResolver interface {
	// EffectiveAccess returns the most privileged access level the entity
	// reaches the page through - direct participation plus, for users, the
	// participations of every group they belong to. The boolean reports
	// whether any participation exists at all.
	EffectiveAccess(ctx context.Context, entity models.Entity, page *models.Page) (models.AccessLevel, bool, error)

	// Decide resolves whether the entity holds the requested permission,
	// applying the deleted-page override first.
	Decide(ctx context.Context, entity models.Entity, page *models.Page, perm models.AccessLevel) (Decision, error)
}

// AccessPolicy is the authorization gate layered on the resolver plus
// page-level flags. The boolean predicates return false and let the caller
// decide; Require converts a denial into a PermissionDeniedError.
type AccessPolicy interface {
	// CanView is true when the page is public or the resolver grants view.
	// Public pages pass without a participation lookup so casual visitors
	// never hit the participation table.
	CanView(ctx context.Context, actor models.Entity, page *models.Page) (bool, error)

	// CanUpdate requires participation-derived edit access
	CanUpdate(ctx context.Context, actor models.Entity, page *models.Page) (bool, error)

	// CanAdmin requires participation-derived admin access
	CanAdmin(ctx context.Context, actor models.Entity, page *models.Page) (bool, error)

	// CanCreate authorizes creating a page under the candidate owner group
	// (nil means self-owned): allowed when the actor may edit the group or
	// the group's public-access setting allows view, otherwise only for
	// site admins.
	CanCreate(ctx context.Context, actor *models.User, ownerGroup *models.Group) (bool, error)

	// Require returns a *domain.PermissionDeniedError when the actor lacks
	// the permission, nil otherwise.
	Require(ctx context.Context, actor models.Entity, page *models.Page, perm models.AccessLevel) error
}

// PesterPolicy is the social-contact check: whether the actor is allowed to
// contact the recipient at all. Sharing to someone new requires it; regrants
// to recipients who already have access on a private page do not.
type PesterPolicy interface {
	MayPester(ctx context.Context, actor *models.User, recipient models.Entity) (bool, error)
}
