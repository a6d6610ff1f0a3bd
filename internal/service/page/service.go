package page

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"tapestry/internal/auth"
	"tapestry/internal/config"
	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// service implements services.PageService
type service struct {
	pages          repositories.PageRepository
	participations repositories.ParticipationRepository
	users          repositories.UserRepository
	groups         repositories.GroupRepository
	tokens         repositories.PageTokenRepository
	audit          repositories.AuditRepository
	policy         services.AccessPolicy
	magic          *auth.MagicLink
	txManager      repositories.TransactionManager
	// ensureOwner forces every page to have an owner; when set, creating
	// without one makes the creator the owner, and removing the owner is
	// rejected.
	ensureOwner bool
	logger      *slog.Logger
}

// NewService creates a new page service
func NewService(
	pages repositories.PageRepository,
	participations repositories.ParticipationRepository,
	users repositories.UserRepository,
	groups repositories.GroupRepository,
	tokens repositories.PageTokenRepository,
	audit repositories.AuditRepository,
	policy services.AccessPolicy,
	magic *auth.MagicLink,
	txManager repositories.TransactionManager,
	ensureOwner bool,
	logger *slog.Logger,
) services.PageService {
	return &service{
		pages:          pages,
		participations: participations,
		users:          users,
		groups:         groups,
		tokens:         tokens,
		audit:          audit,
		policy:         policy,
		magic:          magic,
		txManager:      txManager,
		ensureOwner:    ensureOwner,
		logger:         logger,
	}
}

func (s *service) CreatePage(ctx context.Context, actor *models.User, req *services.CreatePageRequest) (*models.Page, error) {
	if actor == nil {
		return nil, &domain.UnauthorizedError{Message: "creating pages requires a logged-in user"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxPageTitleLength)),
		validation.Field(&req.Name, validation.Length(0, config.MaxPageNameLength)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if req.Name != "" && !models.ValidName(req.Name) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("page name %q is not in slug form (try %q)", req.Name, models.Nameize(req.Name))}
	}

	now := time.Now()
	page := &models.Page{
		ID:          uuid.New(),
		Title:       req.Title,
		Name:        req.Name,
		CreatedByID: actor.ID,
		Public:      req.Public,
		Flow:        models.FlowNormal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	owner, err := s.resolveOwner(ctx, actor, req.Owner)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		if owner.Type == models.EntityGroup {
			allowed, err := s.policy.CanCreate(ctx, actor, owner.Group)
			if err != nil {
				return nil, err
			}
			if !allowed {
				return nil, &domain.PermissionDeniedError{Perm: "create", PageID: owner.Group.Name}
			}
		}
		setOwner(page, *owner)
	}

	if page.Name != "" {
		taken, err := s.pages.NameTaken(ctx, page)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("page name %q is already taken in this context", page.Name),
				ResourceType: "page",
				ResourceID:   page.Name,
			}
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Create(txCtx, page); err != nil {
			return err
		}
		if err := s.grantAdmin(txCtx, page, models.UserEntity(actor), actor.ID); err != nil {
			return err
		}
		if owner != nil && !(owner.Type == models.EntityUser && owner.User.ID == actor.ID) {
			return s.grantAdmin(txCtx, page, *owner, actor.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("page created", "page_id", page.ID, "title", page.Title, "owner", page.OwnerName, "created_by", actor.Login)
	return page, nil
}

func (s *service) GetPage(ctx context.Context, actor models.Entity, id uuid.UUID) (*models.Page, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Require(ctx, actor, page, models.AccessView); err != nil {
		return nil, err
	}
	return page, nil
}

// GetPageByName resolves /<owner>/<name> paths. The name part is either the
// page's slug within the owner or a friendly URL carrying the id.
func (s *service) GetPageByName(ctx context.Context, actor models.Entity, ownerName, name string) (*models.Page, error) {
	if i := strings.LastIndex(name, "+"); i >= 0 {
		id, err := uuid.Parse(name[i+1:])
		if err != nil {
			return nil, fmt.Errorf("%w: malformed page reference %q", domain.ErrNotFound, name)
		}
		return s.GetPage(ctx, actor, id)
	}

	owner, err := s.lookupOwner(ctx, ownerName)
	if err != nil {
		return nil, fmt.Errorf("%w: no owner named %q", domain.ErrNotFound, ownerName)
	}

	page, err := s.pages.FindByName(ctx, owner.ID(), name)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, ownerName, name)
	}
	if err := s.policy.Require(ctx, actor, page, models.AccessView); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *service) GetPageByToken(ctx context.Context, id uuid.UUID, email, secret string) (*models.Page, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.magic.Verify(id, email, secret); err != nil {
		return nil, &domain.UnauthorizedError{Message: "invalid or expired page link"}
	}
	// the signature alone is not enough: a reshare replaces the stored token
	// and revokes earlier links
	stored, err := s.tokens.Find(ctx, id, email, secret)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Expired(time.Now()) {
		return nil, &domain.UnauthorizedError{Message: "invalid or expired page link"}
	}

	return page, nil
}

func (s *service) UpdatePage(ctx context.Context, actor *models.User, id uuid.UUID, req *services.UpdatePageRequest) (*models.Page, error) {
	if actor == nil {
		return nil, &domain.UnauthorizedError{Message: "updating pages requires a logged-in user"}
	}

	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.Deleted() {
		return nil, &domain.ConflictError{Message: "page is deleted", ResourceType: "page", ResourceID: id.String()}
	}
	if err := s.policy.Require(ctx, models.UserEntity(actor), page, models.AccessAdmin); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if err := validation.Validate(*req.Title, validation.Required, validation.Length(1, config.MaxPageTitleLength)); err != nil {
			return nil, &domain.ValidationError{Message: "title: " + err.Error()}
		}
		page.Title = *req.Title
	}
	if req.Name != nil {
		if *req.Name != "" && !models.ValidName(*req.Name) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("page name %q is not in slug form", *req.Name)}
		}
		page.Name = *req.Name
	}
	if req.Public != nil {
		page.Public = *req.Public
	}

	var newOwner *models.Entity
	if req.Owner != nil {
		if *req.Owner == "" {
			if s.ensureOwner {
				return nil, &domain.ValidationError{Message: "pages must have an owner"}
			}
			page.OwnerType = nil
			page.OwnerID = nil
			page.OwnerName = ""
		} else {
			owner, err := s.lookupOwner(ctx, *req.Owner)
			if err != nil {
				return nil, err
			}
			if !page.OwnedBy(*owner) {
				newOwner = owner
			}
			setOwner(page, *owner)
		}
	}

	if page.Name != "" {
		taken, err := s.pages.NameTaken(ctx, page)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("page name %q is already taken in this context", page.Name),
				ResourceType: "page",
				ResourceID:   page.Name,
			}
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Update(txCtx, page); err != nil {
			return err
		}
		if newOwner != nil {
			return s.grantAdmin(txCtx, page, *newOwner, actor.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

func (s *service) DeletePage(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return s.setFlow(ctx, actor, id, models.FlowDeleted)
}

func (s *service) UndeletePage(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return s.setFlow(ctx, actor, id, models.FlowNormal)
}

// setFlow moves a page between the normal and deleted flows. Admin is
// required either way; deletion does not strip it, which is what makes
// undelete possible.
func (s *service) setFlow(ctx context.Context, actor *models.User, id uuid.UUID, flow models.Flow) error {
	if actor == nil {
		return &domain.UnauthorizedError{Message: "deleting pages requires a logged-in user"}
	}

	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Require(ctx, models.UserEntity(actor), page, models.AccessAdmin); err != nil {
		return err
	}
	if page.Flow == flow {
		return nil
	}

	page.Flow = flow
	if err := s.pages.Update(ctx, page); err != nil {
		return err
	}

	s.logger.Info("page flow changed", "page_id", page.ID, "flow", flow, "actor", actor.Login)
	return nil
}

func (s *service) ListParticipations(ctx context.Context, actor models.Entity, id uuid.UUID) ([]models.UserParticipation, []models.GroupParticipation, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.policy.Require(ctx, actor, page, models.AccessView); err != nil {
		return nil, nil, err
	}
	return s.participations.ListByPage(ctx, id)
}

func (s *service) RemoveEntity(ctx context.Context, actor *models.User, id uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error {
	if actor == nil {
		return &domain.UnauthorizedError{Message: "removing participants requires a logged-in user"}
	}

	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Require(ctx, models.UserEntity(actor), page, models.AccessAdmin); err != nil {
		return err
	}
	if page.Owned() && *page.OwnerType == entityType && *page.OwnerID == entityID {
		return &domain.ValidationError{Message: "the page owner cannot be removed; transfer ownership first"}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.participations.RemoveEntity(txCtx, id, entityType, entityID); err != nil {
			return err
		}
		if err := s.pages.Touch(txCtx, id); err != nil {
			return err
		}
		return s.audit.Record(txCtx, &models.AccessEvent{
			Kind:       eventKind(entityType),
			PageID:     id,
			EntityType: entityType,
			EntityID:   entityID,
			Access:     models.AccessNone,
			ActorID:    actor.ID,
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("participant removed", "page_id", id, "entity_type", entityType, "entity_id", entityID, "actor", actor.Login)
	return nil
}

// resolveOwner turns the request's owner name into an entity. Empty means
// self-owned when configuration requires an owner, ownerless otherwise.
func (s *service) resolveOwner(ctx context.Context, actor *models.User, name string) (*models.Entity, error) {
	if name == "" {
		if s.ensureOwner {
			e := models.UserEntity(actor)
			return &e, nil
		}
		return nil, nil
	}

	owner, err := s.lookupOwner(ctx, name)
	if err != nil {
		return nil, err
	}
	if owner.Type == models.EntityUser && owner.User.ID != actor.ID {
		return nil, &domain.ValidationError{Message: "pages can only be owned by yourself or a group"}
	}
	return owner, nil
}

// lookupOwner finds the named user or group, user login first.
func (s *service) lookupOwner(ctx context.Context, name string) (*models.Entity, error) {
	user, err := s.users.FindByLogin(ctx, name)
	if err != nil {
		return nil, err
	}
	if user != nil {
		e := models.UserEntity(user)
		return &e, nil
	}

	group, err := s.groups.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if group != nil {
		e := models.GroupEntity(group)
		return &e, nil
	}

	return nil, &domain.ValidationError{Message: fmt.Sprintf("no user or group named %q", name)}
}

// grantAdmin gives the entity an admin participation, recording the audit
// event when the access actually changed.
func (s *service) grantAdmin(ctx context.Context, page *models.Page, entity models.Entity, actorID uuid.UUID) error {
	var changed bool
	var err error

	switch entity.Type {
	case models.EntityUser:
		_, changed, err = s.participations.SetUserAccess(ctx, page.ID, entity.User.ID, models.AccessAdmin)
	case models.EntityGroup:
		_, changed, err = s.participations.SetGroupAccess(ctx, page.ID, entity.Group.ID, models.AccessAdmin)
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.audit.Record(ctx, &models.AccessEvent{
		Kind:       eventKind(entity.Type),
		PageID:     page.ID,
		EntityType: entity.Type,
		EntityID:   entity.ID(),
		Access:     models.AccessAdmin,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
}

func setOwner(page *models.Page, owner models.Entity) {
	t := owner.Type
	id := owner.ID()
	page.OwnerType = &t
	page.OwnerID = &id
	page.OwnerName = owner.Name()
}

func eventKind(t models.EntityType) models.AccessEventKind {
	if t == models.EntityGroup {
		return models.EventUpdateGroupAccess
	}
	return models.EventUpdateUserAccess
}
