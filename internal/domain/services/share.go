package services

import (
	"context"

	"tapestry/internal/domain/models"
)

// ShareMode selects what a share run does: share may grant access, notify
// only sends notices (using access the recipient already has).
type ShareMode string

const (
	ModeShare  ShareMode = "share"
	ModeNotify ShareMode = "notify"
)

func (m ShareMode) Valid() bool { return m == ModeShare || m == ModeNotify }

// RecipientOptions carries the per-recipient settings from the share form.
type RecipientOptions struct {
	Access models.AccessLevel `json:"access"`
}

// ShareRequest is the transient input of one share/notify run. It is never
// persisted.
type ShareRequest struct {
	Mode        ShareMode                   `json:"mode"`
	Recipients  map[string]RecipientOptions `json:"recipients"`
	Message     string                      `json:"message,omitempty"`
	SendEmail   bool                        `json:"send_email"`
	SendMessage bool                        `json:"send_message"`
}

// FailureReason is the stable per-recipient reason code surfaced for
// localization.
type FailureReason string

const (
	ReasonNotFound       FailureReason = "not_found"
	ReasonPesterDenied   FailureReason = "pester_denied"
	ReasonAlreadyShared  FailureReason = "already_shared"
	ReasonNotifyNoAccess FailureReason = "notify_no_access"
)

// ShareFailure reports one recipient that was skipped. Failures never abort
// the rest of the batch.
type ShareFailure struct {
	Name   string        `json:"name"`
	Reason FailureReason `json:"reason"`
}

// ShareResult is the outcome of one run: the participations whose access
// actually changed, grouped by entity kind, plus the skipped recipients.
type ShareResult struct {
	UserParticipations  []models.UserParticipation  `json:"updated_user_participations"`
	GroupParticipations []models.GroupParticipation `json:"updated_group_participations"`
	Failures            []ShareFailure              `json:"failures"`
}

// Recipient is one resolved share target: a user, a group, or a bare email
// address for magic-link access.
type Recipient struct {
	Name   string
	Entity models.Entity // zero entity for email recipients
	Email  string        // set only for email recipients
	Access models.AccessLevel
}

func (r *Recipient) IsEmail() bool { return r.Email != "" }

// RecipientResolver turns one raw recipient name into a Recipient or a
// classified failure. Exactly one of the three returns is meaningful: a nil
// recipient and nil failure means the name was empty and silently skipped.
// page may be nil for pages still being composed, which disables the
// page-scoped eligibility checks.
type RecipientResolver interface {
	Resolve(ctx context.Context, actor *models.User, page *models.Page, name string, opts RecipientOptions, mode ShareMode) (*Recipient, *ShareFailure, error)
}

// ShareService orchestrates a full share/notify run. The actor must hold
// admin (share mode) or edit (notify mode) on the page before anything
// executes; that gate is checked once at entry. Each eligible recipient is
// applied in its own transaction, so a persistence failure aborts the run
// but does not roll back recipients already committed.
type ShareService interface {
	Apply(ctx context.Context, actor *models.User, page *models.Page, req *ShareRequest) (*ShareResult, error)
}

// Notifier dispatches notices and emails. Fire-and-forget from the share
// workflow's perspective: delivery failures are the collaborator's concern.
type Notifier interface {
	// SendNotice delivers an in-platform notice to a user
	SendNotice(ctx context.Context, recipient *models.User, notice *models.PageNotice) error

	// SendEmail sends a templated mail to an address
	SendEmail(ctx context.Context, address, template string, payload map[string]interface{}) error
}
