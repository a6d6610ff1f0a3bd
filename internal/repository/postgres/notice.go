package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
)

// PostgresNoticeRepository implements the NoticeRepository interface. The
// notices table is an outbox: the delivery system reads and removes rows,
// this service only appends.
type PostgresNoticeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNoticeRepository creates a new notice repository
func NewNoticeRepository(config *RepositoryConfig) repositories.NoticeRepository {
	return &PostgresNoticeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create appends one notice
func (r *PostgresNoticeRepository) Create(ctx context.Context, notice *models.PageNotice) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, page_id, user_id, from_user_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, r.tables.PageNotices)

	if notice.ID == uuid.Nil {
		notice.ID = uuid.New()
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		notice.ID,
		notice.PageID,
		notice.UserID,
		notice.FromUserID,
		notice.Kind,
		notice.Message,
		notice.CreatedAt,
	).Scan(&notice.CreatedAt)
	if err != nil {
		return fmt.Errorf("create page notice: %w", err)
	}

	return nil
}

// PostgresAuditRepository implements the AuditRepository interface
type PostgresAuditRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(config *RepositoryConfig) repositories.AuditRepository {
	return &PostgresAuditRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Record appends one access-change event
func (r *PostgresAuditRepository) Record(ctx context.Context, event *models.AccessEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, kind, page_id, entity_type, entity_id, access, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, r.tables.AccessEvents)

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		event.ID,
		event.Kind,
		event.PageID,
		event.EntityType,
		event.EntityID,
		int16(event.Access),
		event.ActorID,
		event.CreatedAt,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("record access event: %w", err)
	}

	return nil
}
