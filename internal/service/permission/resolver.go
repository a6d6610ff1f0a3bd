package permission

import (
	"context"
	"log/slog"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// resolver implements services.PermissionResolver on the participation
// tables. It is a pure read and never blocks on writers: it sees whatever
// the last committed share run left behind.
type resolver struct {
	participations repositories.ParticipationRepository
	users          repositories.UserRepository
	logger         *slog.Logger
}

// NewResolver creates a new permission resolver
func NewResolver(
	participations repositories.ParticipationRepository,
	users repositories.UserRepository,
	logger *slog.Logger,
) services.PermissionResolver {
	return &resolver{
		participations: participations,
		users:          users,
		logger:         logger,
	}
}

// EffectiveAccess gathers the candidate participations - the entity's direct
// row plus, for users, the rows of every group they belong to - and selects
// the most privileged one. A row with NULL access still counts as "has a
// participation" but loses against any explicit grant.
func (r *resolver) EffectiveAccess(ctx context.Context, entity models.Entity, page *models.Page) (models.AccessLevel, bool, error) {
	if entity.Anonymous() {
		return models.AccessNone, false, nil
	}

	var levels []models.AccessLevel

	switch entity.Type {
	case models.EntityUser:
		direct, err := r.participations.UserParticipation(ctx, page.ID, entity.User.ID)
		if err != nil {
			return models.AccessNone, false, err
		}
		if direct != nil {
			levels = append(levels, direct.Access)
		}

		groupIDs, err := r.users.AllGroupIDs(ctx, entity.User.ID)
		if err != nil {
			return models.AccessNone, false, err
		}
		gparts, err := r.participations.GroupParticipations(ctx, page.ID, groupIDs)
		if err != nil {
			return models.AccessNone, false, err
		}
		for i := range gparts {
			levels = append(levels, gparts[i].Access)
		}

	case models.EntityGroup:
		// a group reaches a page only through its own participation
		part, err := r.participations.GroupParticipation(ctx, page.ID, entity.Group.ID)
		if err != nil {
			return models.AccessNone, false, err
		}
		if part != nil {
			levels = append(levels, part.Access)
		}
	}

	access, found := models.MostPrivileged(levels)
	return access, found, nil
}

// Decide resolves whether the entity holds the requested permission.
func (r *resolver) Decide(ctx context.Context, entity models.Entity, page *models.Page, perm models.AccessLevel) (services.Decision, error) {
	// Deleted pages never accept edits. This beats everything, including
	// admin participations.
	if page.Deleted() && perm == models.AccessEdit {
		return services.Denied(services.DenyDeletedPage), nil
	}

	access, found, err := r.EffectiveAccess(ctx, entity, page)
	if err != nil {
		return services.Decision{}, err
	}
	if !found {
		return services.Denied(services.DenyNoParticipation), nil
	}
	if !access.Grants(perm) {
		return services.Denied(services.DenyInsufficientAccess), nil
	}

	return services.Allowed, nil
}
