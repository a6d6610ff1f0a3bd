package permission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
)

// In-memory repository fakes. Keyed maps stand in for the participation and
// membership tables; tests populate them directly.

type partKey struct{ page, entity uuid.UUID }

type fakeParticipations struct {
	users  map[partKey]*models.UserParticipation
	groups map[partKey]*models.GroupParticipation
}

func newFakeParticipations() *fakeParticipations {
	return &fakeParticipations{
		users:  make(map[partKey]*models.UserParticipation),
		groups: make(map[partKey]*models.GroupParticipation),
	}
}

func (f *fakeParticipations) addUser(pageID, userID uuid.UUID, access models.AccessLevel) {
	f.users[partKey{pageID, userID}] = &models.UserParticipation{
		ID: uuid.New(), PageID: pageID, UserID: userID, Access: access,
	}
}

func (f *fakeParticipations) addGroup(pageID, groupID uuid.UUID, access models.AccessLevel) {
	f.groups[partKey{pageID, groupID}] = &models.GroupParticipation{
		ID: uuid.New(), PageID: pageID, GroupID: groupID, Access: access,
	}
}

func (f *fakeParticipations) UserParticipation(ctx context.Context, pageID, userID uuid.UUID) (*models.UserParticipation, error) {
	return f.users[partKey{pageID, userID}], nil
}

func (f *fakeParticipations) GroupParticipation(ctx context.Context, pageID, groupID uuid.UUID) (*models.GroupParticipation, error) {
	return f.groups[partKey{pageID, groupID}], nil
}

func (f *fakeParticipations) GroupParticipations(ctx context.Context, pageID uuid.UUID, groupIDs []uuid.UUID) ([]models.GroupParticipation, error) {
	var out []models.GroupParticipation
	for _, id := range groupIDs {
		if p, ok := f.groups[partKey{pageID, id}]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeParticipations) ListByPage(ctx context.Context, pageID uuid.UUID) ([]models.UserParticipation, []models.GroupParticipation, error) {
	users := []models.UserParticipation{}
	groups := []models.GroupParticipation{}
	for k, p := range f.users {
		if k.page == pageID {
			users = append(users, *p)
		}
	}
	for k, p := range f.groups {
		if k.page == pageID {
			groups = append(groups, *p)
		}
	}
	return users, groups, nil
}

func (f *fakeParticipations) SetUserAccess(ctx context.Context, pageID, userID uuid.UUID, access models.AccessLevel) (*models.UserParticipation, bool, error) {
	k := partKey{pageID, userID}
	if existing, ok := f.users[k]; ok {
		changed := existing.Access != access
		existing.Access = access
		existing.UpdatedAt = time.Now()
		return existing, changed, nil
	}
	f.addUser(pageID, userID, access)
	return f.users[k], true, nil
}

func (f *fakeParticipations) SetGroupAccess(ctx context.Context, pageID, groupID uuid.UUID, access models.AccessLevel) (*models.GroupParticipation, bool, error) {
	k := partKey{pageID, groupID}
	if existing, ok := f.groups[k]; ok {
		changed := existing.Access != access
		existing.Access = access
		existing.UpdatedAt = time.Now()
		return existing, changed, nil
	}
	f.addGroup(pageID, groupID, access)
	return f.groups[k], true, nil
}

func (f *fakeParticipations) RemoveEntity(ctx context.Context, pageID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error {
	k := partKey{pageID, entityID}
	switch entityType {
	case models.EntityUser:
		if _, ok := f.users[k]; !ok {
			return domain.ErrNotFound
		}
		delete(f.users, k)
	case models.EntityGroup:
		if _, ok := f.groups[k]; !ok {
			return domain.ErrNotFound
		}
		delete(f.groups, k)
	}
	return nil
}

type fakeUsers struct {
	byID    map[uuid.UUID]*models.User
	byLogin map[string]*models.User
	groups  map[uuid.UUID][]uuid.UUID
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    make(map[uuid.UUID]*models.User),
		byLogin: make(map[string]*models.User),
		groups:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeUsers) add(user *models.User, groupIDs ...uuid.UUID) {
	f.byID[user.ID] = user
	f.byLogin[user.Login] = user
	f.groups[user.ID] = groupIDs
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return f.byLogin[login], nil
}

func (f *fakeUsers) AllGroupIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.groups[userID], nil
}

type fakeGroups struct {
	byID    map[uuid.UUID]*models.Group
	byName  map[string]*models.Group
	members map[uuid.UUID][]uuid.UUID
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{
		byID:    make(map[uuid.UUID]*models.Group),
		byName:  make(map[string]*models.Group),
		members: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeGroups) add(group *models.Group, memberIDs ...uuid.UUID) {
	f.byID[group.ID] = group
	f.byName[group.Name] = group
	f.members[group.ID] = memberIDs
}

func (f *fakeGroups) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	if g, ok := f.byID[id]; ok {
		return g, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGroups) FindByName(ctx context.Context, name string) (*models.Group, error) {
	return f.byName[name], nil
}

func (f *fakeGroups) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	for _, id := range f.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroups) Members(ctx context.Context, groupID uuid.UUID) ([]models.User, error) {
	return nil, nil
}

var (
	_ repositories.ParticipationRepository = (*fakeParticipations)(nil)
	_ repositories.UserRepository          = (*fakeUsers)(nil)
	_ repositories.GroupRepository         = (*fakeGroups)(nil)
)
