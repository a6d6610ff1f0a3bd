package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
)

// PostgresPageRepository implements the PageRepository interface
type PostgresPageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPageRepository creates a new page repository
func NewPageRepository(config *RepositoryConfig) repositories.PageRepository {
	return &PostgresPageRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const pageColumns = "id, title, name, owner_type, owner_id, owner_name, created_by_id, public, flow, resolved, created_at, updated_at"

func scanPage(row interface{ Scan(...interface{}) error }) (*models.Page, error) {
	var page models.Page
	var name, ownerName *string
	var ownerType *string
	err := row.Scan(
		&page.ID,
		&page.Title,
		&name,
		&ownerType,
		&page.OwnerID,
		&ownerName,
		&page.CreatedByID,
		&page.Public,
		&page.Flow,
		&page.Resolved,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if name != nil {
		page.Name = *name
	}
	if ownerName != nil {
		page.OwnerName = *ownerName
	}
	if ownerType != nil {
		t := models.EntityType(*ownerType)
		page.OwnerType = &t
	}
	return &page, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create creates a new page
func (r *PostgresPageRepository) Create(ctx context.Context, page *models.Page) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, name, owner_type, owner_id, owner_name, created_by_id, public, flow, resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, r.tables.Pages)

	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}

	var ownerType *string
	if page.OwnerType != nil {
		t := string(*page.OwnerType)
		ownerType = &t
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		page.ID,
		page.Title,
		nullable(page.Name),
		ownerType,
		page.OwnerID,
		nullable(page.OwnerName),
		page.CreatedByID,
		page.Public,
		page.Flow,
		page.Resolved,
		page.CreatedAt,
		page.UpdatedAt,
	).Scan(&page.CreatedAt, &page.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("page name %q already taken", page.Name),
				ResourceType: "page",
			}
		}
		return fmt.Errorf("create page: %w", err)
	}

	return nil
}

// GetByID retrieves a page by ID, deleted pages included: callers decide
// what the flow state means for them.
func (r *PostgresPageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, pageColumns, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	page, err := scanPage(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page: %w", err)
	}

	return page, nil
}

// FindByName retrieves a non-deleted page by name within an owner scope
func (r *PostgresPageRepository) FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1 AND name = $2 AND flow != $3
	`, pageColumns, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	page, err := scanPage(executor.QueryRow(ctx, query, ownerID, name, models.FlowDeleted))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("page %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find page by name: %w", err)
	}

	return page, nil
}

// Update saves the page's mutable fields
func (r *PostgresPageRepository) Update(ctx context.Context, page *models.Page) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, name = $2, owner_type = $3, owner_id = $4, owner_name = $5,
		    public = $6, flow = $7, resolved = $8, updated_at = $9
		WHERE id = $10
	`, r.tables.Pages)

	var ownerType *string
	if page.OwnerType != nil {
		t := string(*page.OwnerType)
		ownerType = &t
	}

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		page.Title,
		nullable(page.Name),
		ownerType,
		page.OwnerID,
		nullable(page.OwnerName),
		page.Public,
		page.Flow,
		page.Resolved,
		page.UpdatedAt,
		page.ID,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("page name %q already taken", page.Name),
				ResourceType: "page",
				ResourceID:   page.ID.String(),
			}
		}
		return fmt.Errorf("update page: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", page.ID, domain.ErrNotFound)
	}

	return nil
}

// Touch bumps updated_at only
func (r *PostgresPageRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = NOW() WHERE id = $1`, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touch page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// NameTaken reports whether another non-deleted page already uses the name
// in the page's scope (owner when owned, creating user otherwise).
func (r *PostgresPageRepository) NameTaken(ctx context.Context, page *models.Page) (bool, error) {
	if page.Name == "" {
		return false, nil
	}

	var query string
	var scope interface{}
	if page.OwnerID != nil {
		query = fmt.Sprintf(`
			SELECT COUNT(*) FROM %s
			WHERE name = $1 AND owner_id = $2 AND id != $3 AND flow != $4
		`, r.tables.Pages)
		scope = *page.OwnerID
	} else {
		query = fmt.Sprintf(`
			SELECT COUNT(*) FROM %s
			WHERE name = $1 AND created_by_id = $2 AND id != $3 AND flow != $4
		`, r.tables.Pages)
		scope = page.CreatedByID
	}

	var count int
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, page.Name, scope, page.ID, models.FlowDeleted).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name taken: %w", err)
	}

	return count > 0, nil
}
