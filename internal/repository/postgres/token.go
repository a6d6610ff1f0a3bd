package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
)

// PostgresPageTokenRepository implements the PageTokenRepository interface
type PostgresPageTokenRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPageTokenRepository creates a new page token repository
func NewPageTokenRepository(config *RepositoryConfig) repositories.PageTokenRepository {
	return &PostgresPageTokenRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create stores a new token. A second share to the same (page, email)
// replaces the previous token and extends the expiry.
func (r *PostgresPageTokenRepository) Create(ctx context.Context, token *models.PageToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, page_id, email, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (page_id, email)
		DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		RETURNING id, created_at
	`, r.tables.PageTokens)

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		token.ID,
		token.PageID,
		token.Email,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create page token: %w", err)
	}

	return nil
}

// Find retrieves the unexpired token matching (page, email, secret), or nil
func (r *PostgresPageTokenRepository) Find(ctx context.Context, pageID uuid.UUID, email, secret string) (*models.PageToken, error) {
	query := fmt.Sprintf(`
		SELECT id, page_id, email, token, expires_at, created_at
		FROM %s
		WHERE page_id = $1 AND email = $2 AND token = $3 AND expires_at > $4
	`, r.tables.PageTokens)

	var token models.PageToken
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, pageID, email, secret, time.Now()).Scan(
		&token.ID,
		&token.PageID,
		&token.Email,
		&token.Token,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find page token: %w", err)
	}

	return &token, nil
}

// DeleteExpired removes tokens past their expiry
func (r *PostgresPageTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, r.tables.PageTokens)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
