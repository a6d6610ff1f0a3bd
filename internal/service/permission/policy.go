package permission

import (
	"context"

	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// policy implements services.AccessPolicy on top of the resolver plus
// page-level flags.
type policy struct {
	resolver services.PermissionResolver
	groups   repositories.GroupRepository
}

// NewPolicy creates a new access policy
func NewPolicy(resolver services.PermissionResolver, groups repositories.GroupRepository) services.AccessPolicy {
	return &policy{
		resolver: resolver,
		groups:   groups,
	}
}

// CanView lets public pages through without touching the participation
// table; everything else goes to the resolver.
func (p *policy) CanView(ctx context.Context, actor models.Entity, page *models.Page) (bool, error) {
	if page.Public {
		return true, nil
	}
	decision, err := p.resolver.Decide(ctx, actor, page, models.AccessView)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

func (p *policy) CanUpdate(ctx context.Context, actor models.Entity, page *models.Page) (bool, error) {
	decision, err := p.resolver.Decide(ctx, actor, page, models.AccessEdit)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

func (p *policy) CanAdmin(ctx context.Context, actor models.Entity, page *models.Page) (bool, error) {
	decision, err := p.resolver.Decide(ctx, actor, page, models.AccessAdmin)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// CanCreate authorizes creating a page under the candidate owner group.
// Members may always add pages; outsiders may when the group's public
// setting allows view; anyone else needs the platform admin capability.
func (p *policy) CanCreate(ctx context.Context, actor *models.User, ownerGroup *models.Group) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if ownerGroup == nil {
		return true, nil
	}

	member, err := p.groups.IsMember(ctx, ownerGroup.ID, actor.ID)
	if err != nil {
		return false, err
	}
	if member || ownerGroup.PublicView {
		return true, nil
	}

	return actor.SiteAdmin, nil
}

// Require converts a denial into a PermissionDeniedError carrying the
// requested permission and page for error messages.
func (p *policy) Require(ctx context.Context, actor models.Entity, page *models.Page, perm models.AccessLevel) error {
	var allowed bool
	var err error

	switch perm {
	case models.AccessView:
		allowed, err = p.CanView(ctx, actor, page)
	case models.AccessEdit:
		allowed, err = p.CanUpdate(ctx, actor, page)
	case models.AccessAdmin:
		allowed, err = p.CanAdmin(ctx, actor, page)
	default:
		allowed = false
	}
	if err != nil {
		return err
	}
	if !allowed {
		return &domain.PermissionDeniedError{
			Perm:   perm.String(),
			PageID: page.ID.String(),
		}
	}

	return nil
}
