package permission

import (
	"context"

	"github.com/google/uuid"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// contactPolicy implements services.PesterPolicy. A user may pester another
// user when the target's profile allows contact or the two share a group.
// Groups may be pestered by their members and by anyone when the group is
// publicly visible.
type contactPolicy struct {
	users  repositories.UserRepository
	groups repositories.GroupRepository
}

// NewContactPolicy creates a new pester policy
func NewContactPolicy(users repositories.UserRepository, groups repositories.GroupRepository) services.PesterPolicy {
	return &contactPolicy{
		users:  users,
		groups: groups,
	}
}

func (c *contactPolicy) MayPester(ctx context.Context, actor *models.User, recipient models.Entity) (bool, error) {
	if actor == nil {
		return false, nil
	}

	switch recipient.Type {
	case models.EntityUser:
		if recipient.User.ID == actor.ID {
			return true, nil
		}
		if recipient.User.Pesterable {
			return true, nil
		}
		return c.shareGroup(ctx, actor.ID, recipient.User.ID)

	case models.EntityGroup:
		if recipient.Group.PublicView {
			return true, nil
		}
		return c.groups.IsMember(ctx, recipient.Group.ID, actor.ID)
	}

	return false, nil
}

func (c *contactPolicy) shareGroup(ctx context.Context, a, b uuid.UUID) (bool, error) {
	aGroups, err := c.users.AllGroupIDs(ctx, a)
	if err != nil {
		return false, err
	}
	bGroups, err := c.users.AllGroupIDs(ctx, b)
	if err != nil {
		return false, err
	}

	seen := make(map[uuid.UUID]struct{}, len(aGroups))
	for _, id := range aGroups {
		seen[id] = struct{}{}
	}
	for _, id := range bGroups {
		if _, ok := seen[id]; ok {
			return true, nil
		}
	}

	return false, nil
}
