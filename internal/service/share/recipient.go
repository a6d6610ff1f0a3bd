package share

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// recipientResolver implements services.RecipientResolver: free-text name in,
// user/group/email recipient or classified failure out.
type recipientResolver struct {
	users          repositories.UserRepository
	groups         repositories.GroupRepository
	participations repositories.ParticipationRepository
	resolver       services.PermissionResolver
	policy         services.AccessPolicy
	pester         services.PesterPolicy
}

// NewRecipientResolver creates a new recipient resolver
func NewRecipientResolver(
	users repositories.UserRepository,
	groups repositories.GroupRepository,
	participations repositories.ParticipationRepository,
	resolver services.PermissionResolver,
	policy services.AccessPolicy,
	pester services.PesterPolicy,
) services.RecipientResolver {
	return &recipientResolver{
		users:          users,
		groups:         groups,
		participations: participations,
		resolver:       resolver,
		policy:         policy,
		pester:         pester,
	}
}

// SplitNames breaks the raw recipient field into individual names. The form
// joins multi-word autocomplete tokens with "+", and separates recipients
// with commas or whitespace.
func SplitNames(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}

// Resolve classifies one recipient name. A lot can go wrong: the name might
// not exist, the actor may not be allowed to contact them, the recipient may
// already have access. None of these abort the batch.
func (r *recipientResolver) Resolve(ctx context.Context, actor *models.User, page *models.Page, name string, opts services.RecipientOptions, mode services.ShareMode) (*services.Recipient, *services.ShareFailure, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		// silently skipped, not an error
		return nil, nil, nil
	}

	entity, err := r.lookup(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	if entity.Anonymous() {
		// not a user, not a group: a syntactically valid email address
		// becomes a magic-link recipient, anything else is a miss
		if validation.Validate(name, is.EmailFormat) == nil {
			return &services.Recipient{Name: name, Email: name, Access: opts.Access}, nil, nil
		}
		return nil, &services.ShareFailure{Name: name, Reason: services.ReasonNotFound}, nil
	}

	ok, failure, err := r.eligible(ctx, actor, page, entity, opts.Access, mode)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, failure, nil
	}

	return &services.Recipient{Name: name, Entity: entity, Access: opts.Access}, nil, nil
}

// lookup tries user login first, then group name.
func (r *recipientResolver) lookup(ctx context.Context, name string) (models.Entity, error) {
	user, err := r.users.FindByLogin(ctx, name)
	if err != nil {
		return models.Entity{}, err
	}
	if user != nil {
		return models.UserEntity(user), nil
	}

	group, err := r.groups.FindByName(ctx, name)
	if err != nil {
		return models.Entity{}, err
	}
	if group != nil {
		return models.GroupEntity(group), nil
	}

	return models.Entity{}, nil
}

// eligible runs the pester and page-scoped checks. page may be nil for pages
// still being composed; only the pester check applies then.
func (r *recipientResolver) eligible(ctx context.Context, actor *models.User, page *models.Page, entity models.Entity, requested models.AccessLevel, mode services.ShareMode) (bool, *services.ShareFailure, error) {
	name := entity.Name()

	mayPester, err := r.pester.MayPester(ctx, actor, entity)
	if err != nil {
		return false, nil, err
	}
	if !mayPester {
		// carve-out: you cannot share to people you cannot pester, unless
		// the page is private and they already have access - only new
		// access requires the contact permission
		forgiven := false
		if page != nil && !page.Public {
			access, found, err := r.resolver.EffectiveAccess(ctx, entity, page)
			if err != nil {
				return false, nil, err
			}
			forgiven = found && access.Grants(models.AccessView)
		}
		if !forgiven {
			return false, &services.ShareFailure{Name: name, Reason: services.ReasonPesterDenied}, nil
		}
	}

	if page == nil {
		return true, nil, nil
	}

	exists, direct, err := r.participationRow(ctx, page, entity)
	if err != nil {
		return false, nil, err
	}

	switch mode {
	case services.ModeShare:
		// an existing grant at the same level makes a re-share a notice, not
		// an error; a different level is an update and flows through, and a
		// NULL-access watcher row never counts
		if exists && direct != models.AccessNone && direct == requested {
			return false, &services.ShareFailure{Name: name, Reason: services.ReasonAlreadyShared}, nil
		}

	case services.ModeNotify:
		if !exists {
			// notifying someone with no standing on the page requires that
			// they can already view it some other way (public counts), or
			// that the actor holds admin
			canView, err := r.policy.CanView(ctx, entity, page)
			if err != nil {
				return false, nil, err
			}
			if !canView {
				actorAdmin, err := r.policy.CanAdmin(ctx, models.UserEntity(actor), page)
				if err != nil {
					return false, nil, err
				}
				if !actorAdmin {
					return false, &services.ShareFailure{Name: name, Reason: services.ReasonNotifyNoAccess}, nil
				}
			}
		}
	}

	return true, nil, nil
}

// participationRow returns whether the entity holds its own row on the page
// and the access it carries (AccessNone for a NULL-access watcher row).
func (r *recipientResolver) participationRow(ctx context.Context, page *models.Page, entity models.Entity) (bool, models.AccessLevel, error) {
	switch entity.Type {
	case models.EntityUser:
		part, err := r.participations.UserParticipation(ctx, page.ID, entity.User.ID)
		if err != nil || part == nil {
			return false, models.AccessNone, err
		}
		return true, part.Access, nil
	case models.EntityGroup:
		part, err := r.participations.GroupParticipation(ctx, page.ID, entity.Group.ID)
		if err != nil || part == nil {
			return false, models.AccessNone, err
		}
		return true, part.Access, nil
	}
	return false, models.AccessNone, nil
}
