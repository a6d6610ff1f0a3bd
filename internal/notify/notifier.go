package notify

import (
	"context"
	"log/slog"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/domain/services"
)

// notifier implements services.Notifier. Notices go to the notices table for
// the delivery system to pick up; email is written to the log until a real
// mail transport is wired in.
type notifier struct {
	notices repositories.NoticeRepository
	logger  *slog.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(notices repositories.NoticeRepository, logger *slog.Logger) services.Notifier {
	return &notifier{
		notices: notices,
		logger:  logger,
	}
}

func (n *notifier) SendNotice(ctx context.Context, recipient *models.User, notice *models.PageNotice) error {
	if err := n.notices.Create(ctx, notice); err != nil {
		return err
	}
	n.logger.Debug("notice queued",
		"page_id", notice.PageID,
		"recipient", recipient.Login,
		"kind", notice.Kind,
	)
	return nil
}

// TODO: replace the log line with an SMTP or provider client once the mail
// transport is chosen.
func (n *notifier) SendEmail(ctx context.Context, address, template string, payload map[string]interface{}) error {
	n.logger.Info("email dispatched",
		"to", address,
		"template", template,
		"payload", payload,
	)
	return nil
}
