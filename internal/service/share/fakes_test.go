package share

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// In-memory fakes for the full share dependency set. Tests assemble a small
// world of users, groups and pages and run real permission and share logic
// over it.

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
		delete(f.users, k)
	case models.EntityGroup:
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
	members map[uuid.UUID][]*models.User
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{
		byID:    make(map[uuid.UUID]*models.Group),
		byName:  make(map[string]*models.Group),
		members: make(map[uuid.UUID][]*models.User),
	}
}

func (f *fakeGroups) add(group *models.Group, members ...*models.User) {
	f.byID[group.ID] = group
	f.byName[group.Name] = group
	f.members[group.ID] = members
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
	for _, u := range f.members[groupID] {
		if u.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroups) Members(ctx context.Context, groupID uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, u := range f.members[groupID] {
		out = append(out, *u)
	}
	return out, nil
}

type fakePages struct {
	byID    map[uuid.UUID]*models.Page
	touched map[uuid.UUID]int
}

func newFakePages() *fakePages {
	return &fakePages{
		byID:    make(map[uuid.UUID]*models.Page),
		touched: make(map[uuid.UUID]int),
	}
}

func (f *fakePages) add(page *models.Page) { f.byID[page.ID] = page }

func (f *fakePages) Create(ctx context.Context, page *models.Page) error {
	f.byID[page.ID] = page
	return nil
}

func (f *fakePages) GetByID(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePages) FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Page, error) {
	for _, p := range f.byID {
		if p.Name == name && p.OwnerID != nil && *p.OwnerID == ownerID && !p.Deleted() {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePages) Update(ctx context.Context, page *models.Page) error {
	if _, ok := f.byID[page.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[page.ID] = page
	return nil
}

func (f *fakePages) Touch(ctx context.Context, id uuid.UUID) error {
	f.touched[id]++
	return nil
}

func (f *fakePages) NameTaken(ctx context.Context, page *models.Page) (bool, error) {
	return false, nil
}

type tokenKey struct {
	page  uuid.UUID
	email string
}

type fakeTokens struct {
	byPair map[tokenKey]*models.PageToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byPair: make(map[tokenKey]*models.PageToken)}
}

func (f *fakeTokens) Create(ctx context.Context, token *models.PageToken) error {
	// reshare replaces the stored token for the pair
	f.byPair[tokenKey{token.PageID, token.Email}] = token
	return nil
}

func (f *fakeTokens) Find(ctx context.Context, pageID uuid.UUID, email, secret string) (*models.PageToken, error) {
	t, ok := f.byPair[tokenKey{pageID, email}]
	if !ok || t.Token != secret || t.Expired(time.Now()) {
		return nil, nil
	}
	return t, nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	for k, t := range f.byPair {
		if t.Expired(time.Now()) {
			delete(f.byPair, k)
			n++
		}
	}
	return n, nil
}

type fakeAudit struct {
	events []models.AccessEvent
}

func (f *fakeAudit) Record(ctx context.Context, event *models.AccessEvent) error {
	f.events = append(f.events, *event)
	return nil
}

type fakeNotices struct {
	notices []models.PageNotice
}

func (f *fakeNotices) Create(ctx context.Context, notice *models.PageNotice) error {
	f.notices = append(f.notices, *notice)
	return nil
}

type fakeTx struct{}

func (fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

type sentEmail struct {
	address  string
	template string
	payload  map[string]interface{}
}

type fakeNotifier struct {
	notices []models.PageNotice
	emails  []sentEmail
}

func (f *fakeNotifier) SendNotice(ctx context.Context, recipient *models.User, notice *models.PageNotice) error {
	f.notices = append(f.notices, *notice)
	return nil
}

func (f *fakeNotifier) SendEmail(ctx context.Context, address, template string, payload map[string]interface{}) error {
	f.emails = append(f.emails, sentEmail{address: address, template: template, payload: payload})
	return nil
}

var (
	_ repositories.ParticipationRepository = (*fakeParticipations)(nil)
	_ repositories.UserRepository          = (*fakeUsers)(nil)
	_ repositories.GroupRepository         = (*fakeGroups)(nil)
	_ repositories.PageRepository          = (*fakePages)(nil)
	_ repositories.PageTokenRepository     = (*fakeTokens)(nil)
	_ repositories.AuditRepository         = (*fakeAudit)(nil)
	_ repositories.NoticeRepository        = (*fakeNotices)(nil)
	_ repositories.TransactionManager      = fakeTx{}
	_ services.Notifier                    = (*fakeNotifier)(nil)
)
