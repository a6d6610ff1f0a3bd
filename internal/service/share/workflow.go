package share

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"tapestry/internal/auth"
	"tapestry/internal/config"
	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// workflow implements services.ShareService: one run walks
// collecting -> applying -> notifying for every recipient in the request.
type workflow struct {
	pages          repositories.PageRepository
	participations repositories.ParticipationRepository
	groups         repositories.GroupRepository
	tokens         repositories.PageTokenRepository
	audit          repositories.AuditRepository
	policy         services.AccessPolicy
	recipients     services.RecipientResolver
	notifier       services.Notifier
	magic          *auth.MagicLink
	txManager      repositories.TransactionManager
	baseURL        string
	logger         *slog.Logger
}

// NewWorkflow creates a new share workflow
func NewWorkflow(
	pages repositories.PageRepository,
	participations repositories.ParticipationRepository,
	groups repositories.GroupRepository,
	tokens repositories.PageTokenRepository,
	audit repositories.AuditRepository,
	policy services.AccessPolicy,
	recipients services.RecipientResolver,
	notifier services.Notifier,
	magic *auth.MagicLink,
	txManager repositories.TransactionManager,
	baseURL string,
	logger *slog.Logger,
) services.ShareService {
	return &workflow{
		pages:          pages,
		participations: participations,
		groups:         groups,
		tokens:         tokens,
		audit:          audit,
		policy:         policy,
		recipients:     recipients,
		notifier:       notifier,
		magic:          magic,
		txManager:      txManager,
		baseURL:        baseURL,
		logger:         logger,
	}
}

// Apply runs one share/notify request. The entry gate (admin for share, edit
// for notify) is enforced once, here; per-recipient eligibility lives in the
// recipient resolver and never aborts the batch. A nil page means the page
// is still being composed: recipients are resolved and classified but
// nothing is persisted or notified.
func (s *workflow) Apply(ctx context.Context, actor *models.User, page *models.Page, req *services.ShareRequest) (*services.ShareResult, error) {
	if actor == nil {
		return nil, &domain.UnauthorizedError{Message: "sharing requires a logged-in user"}
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, req.Mode)
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if page != nil {
		entryPerm := models.AccessEdit
		if req.Mode == services.ModeShare {
			entryPerm = models.AccessAdmin
		}
		if err := s.policy.Require(ctx, models.UserEntity(actor), page, entryPerm); err != nil {
			return nil, err
		}
	}

	result := &services.ShareResult{
		UserParticipations:  []models.UserParticipation{},
		GroupParticipations: []models.GroupParticipation{},
		Failures:            []services.ShareFailure{},
	}

	// deterministic processing order
	names := make([]string, 0, len(req.Recipients))
	for name := range req.Recipients {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		recipient, failure, err := s.recipients.Resolve(ctx, actor, page, name, req.Recipients[name], req.Mode)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			result.Failures = append(result.Failures, *failure)
			continue
		}
		if recipient == nil {
			continue
		}
		if page == nil {
			continue
		}

		if err := s.applyRecipient(ctx, actor, page, recipient, req, result); err != nil {
			// fatal: already-committed recipients stay, nothing is retried
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
	}

	if page != nil {
		s.logger.Info("page share applied",
			"page_id", page.ID,
			"mode", req.Mode,
			"actor", actor.Login,
			"users", len(result.UserParticipations),
			"groups", len(result.GroupParticipations),
			"failures", len(result.Failures),
		)
	}

	return result, nil
}

// validate rejects malformed recipient options before anything executes.
func (s *workflow) validate(req *services.ShareRequest) error {
	if len(req.Recipients) > config.MaxRecipientsPerShare {
		return fmt.Errorf("%w: at most %d recipients per share; use a group", domain.ErrValidation, config.MaxRecipientsPerShare)
	}
	if len(req.Message) > config.MaxShareMessageLength {
		return fmt.Errorf("%w: message too long", domain.ErrValidation)
	}
	for name, opts := range req.Recipients {
		if !opts.Access.Valid() {
			return fmt.Errorf("%w: recipient %q: unknown access level", domain.ErrValidation, name)
		}
		if req.Mode == services.ModeShare && opts.Access == models.AccessNone {
			return fmt.Errorf("%w: recipient %q: share requires an access level", domain.ErrValidation, name)
		}
	}
	return nil
}

// applyRecipient persists one recipient's changes in its own transaction,
// then dispatches notifications outside it.
func (s *workflow) applyRecipient(ctx context.Context, actor *models.User, page *models.Page, recipient *services.Recipient, req *services.ShareRequest, result *services.ShareResult) error {
	if recipient.IsEmail() {
		return s.applyEmailRecipient(ctx, actor, page, recipient)
	}

	sendNotice := req.SendMessage || req.Mode == services.ModeNotify

	// notify mode uses access the recipient already has; only share mode
	// mutates participations
	if req.Mode == services.ModeShare {
		switch recipient.Entity.Type {
		case models.EntityUser:
			var part *models.UserParticipation
			err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
				var changed bool
				var err error
				part, changed, err = s.participations.SetUserAccess(txCtx, page.ID, recipient.Entity.User.ID, recipient.Access)
				if err != nil {
					return err
				}
				if err := s.pages.Touch(txCtx, page.ID); err != nil {
					return err
				}
				if changed {
					return s.audit.Record(txCtx, &models.AccessEvent{
						Kind:       models.EventUpdateUserAccess,
						PageID:     page.ID,
						EntityType: models.EntityUser,
						EntityID:   recipient.Entity.User.ID,
						Access:     recipient.Access,
						ActorID:    actor.ID,
						CreatedAt:  time.Now(),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.UserParticipations = append(result.UserParticipations, *part)

		case models.EntityGroup:
			var part *models.GroupParticipation
			err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
				var changed bool
				var err error
				part, changed, err = s.participations.SetGroupAccess(txCtx, page.ID, recipient.Entity.Group.ID, recipient.Access)
				if err != nil {
					return err
				}
				if err := s.pages.Touch(txCtx, page.ID); err != nil {
					return err
				}
				if changed {
					return s.audit.Record(txCtx, &models.AccessEvent{
						Kind:       models.EventUpdateGroupAccess,
						PageID:     page.ID,
						EntityType: models.EntityGroup,
						EntityID:   recipient.Entity.Group.ID,
						Access:     recipient.Access,
						ActorID:    actor.ID,
						CreatedAt:  time.Now(),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			result.GroupParticipations = append(result.GroupParticipations, *part)
		}
	}

	s.dispatch(ctx, actor, page, recipient, req, sendNotice)
	return nil
}

// applyEmailRecipient mints and stores a magic link, then mails it. The
// address never becomes a participation.
func (s *workflow) applyEmailRecipient(ctx context.Context, actor *models.User, page *models.Page, recipient *services.Recipient) error {
	now := time.Now()
	secret, expires, err := s.magic.Mint(page.ID, recipient.Email, now)
	if err != nil {
		return err
	}

	token := &models.PageToken{
		PageID:    page.ID,
		Email:     recipient.Email,
		Token:     secret,
		ExpiresAt: expires,
		CreatedAt: now,
	}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.tokens.Create(txCtx, token); err != nil {
			return err
		}
		return s.pages.Touch(txCtx, page.ID)
	})
	if err != nil {
		return err
	}

	// opportunistic cleanup: minting a link is the one write this table sees,
	// so dead tokens are pruned here rather than by a scheduled job
	if pruned, err := s.tokens.DeleteExpired(ctx); err != nil {
		s.logger.Warn("expired token cleanup failed", "error", err)
	} else if pruned > 0 {
		s.logger.Debug("expired page tokens pruned", "count", pruned)
	}

	link := fmt.Sprintf("%s/pages/%s?email=%s&token=%s",
		s.baseURL, page.ID, url.QueryEscape(recipient.Email), url.QueryEscape(secret))

	// fire-and-forget: delivery is the collaborator's problem
	if err := s.notifier.SendEmail(ctx, recipient.Email, "page_magic_link", map[string]interface{}{
		"page_title": page.Title,
		"page_url":   link,
		"from":       actor.Login,
	}); err != nil {
		s.logger.Warn("magic link email dispatch failed",
			"page_id", page.ID, "email", recipient.Email, "error", err)
	}

	return nil
}

// dispatch sends the notice and/or email for a user or group recipient.
// Group recipients fan out to each member; the group's access stays a
// single participation row.
func (s *workflow) dispatch(ctx context.Context, actor *models.User, page *models.Page, recipient *services.Recipient, req *services.ShareRequest, sendNotice bool) {
	kind := models.NoticeShared
	if req.Mode == services.ModeNotify {
		kind = models.NoticeNotified
	}

	var targets []models.User
	switch recipient.Entity.Type {
	case models.EntityUser:
		targets = []models.User{*recipient.Entity.User}
	case models.EntityGroup:
		members, err := s.groups.Members(ctx, recipient.Entity.Group.ID)
		if err != nil {
			s.logger.Warn("member lookup for notification failed",
				"group_id", recipient.Entity.Group.ID, "error", err)
			return
		}
		targets = members
	}

	for i := range targets {
		target := &targets[i]
		if target.ID == actor.ID {
			continue
		}
		if sendNotice {
			notice := &models.PageNotice{
				PageID:     page.ID,
				UserID:     target.ID,
				FromUserID: actor.ID,
				Kind:       kind,
				Message:    req.Message,
				CreatedAt:  time.Now(),
			}
			if err := s.notifier.SendNotice(ctx, target, notice); err != nil {
				s.logger.Warn("notice dispatch failed",
					"page_id", page.ID, "user", target.Login, "error", err)
			}
		}
		if req.SendEmail && target.Email != "" {
			if err := s.notifier.SendEmail(ctx, target.Email, "page_shared", map[string]interface{}{
				"page_title": page.Title,
				"page_url":   s.baseURL + page.URI(),
				"from":       actor.Login,
				"message":    req.Message,
			}); err != nil {
				s.logger.Warn("share email dispatch failed",
					"page_id", page.ID, "user", target.Login, "error", err)
			}
		}
	}
}
