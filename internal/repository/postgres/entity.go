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

// PostgresUserRepository implements the UserRepository interface
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const userColumns = "id, login, display_name, email, pesterable, site_admin, created_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	var email *string
	err := row.Scan(
		&user.ID,
		&user.Login,
		&user.DisplayName,
		&email,
		&user.Pesterable,
		&user.SiteAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email != nil {
		user.Email = *email
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	user, err := scanUser(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// FindByLogin retrieves a user by login, or nil when no such user exists
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE login = $1`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	user, err := scanUser(executor.QueryRow(ctx, query, login))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by login: %w", err)
	}

	return user, nil
}

// AllGroupIDs returns the ids of every group the user belongs to. The
// memberships table is flat (groups do not nest), so one query resolves the
// transitive set.
func (r *PostgresUserRepository) AllGroupIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := fmt.Sprintf(`SELECT group_id FROM %s WHERE user_id = $1`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list group ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group ids: %w", err)
	}

	return ids, nil
}

// PostgresGroupRepository implements the GroupRepository interface
type PostgresGroupRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(config *RepositoryConfig) repositories.GroupRepository {
	return &PostgresGroupRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const groupColumns = "id, name, display_name, public_view, created_at"

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.Group, error) {
	var group models.Group
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.DisplayName,
		&group.PublicView,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByID retrieves a group by ID
func (r *PostgresGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, groupColumns, r.tables.Groups)

	executor := GetExecutor(ctx, r.pool)
	group, err := scanGroup(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}

	return group, nil
}

// FindByName retrieves a group by name, or nil when no such group exists
func (r *PostgresGroupRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, groupColumns, r.tables.Groups)

	executor := GetExecutor(ctx, r.pool)
	group, err := scanGroup(executor.QueryRow(ctx, query, name))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find group by name: %w", err)
	}

	return group, nil
}

// IsMember reports whether the user belongs to the group
func (r *PostgresGroupRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE group_id = $1 AND user_id = $2
	`, r.tables.Memberships)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, groupID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return count > 0, nil
}

// Members returns the group's member users
func (r *PostgresGroupRepository) Members(ctx context.Context, groupID uuid.UUID) ([]models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s u
		JOIN %s m ON m.user_id = u.id
		WHERE m.group_id = $1
		ORDER BY u.login
	`, userColumnsPrefixed("u"), r.tables.Users, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return users, nil
}

func userColumnsPrefixed(alias string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.login, %[1]s.display_name, %[1]s.email, %[1]s.pesterable, %[1]s.site_admin, %[1]s.created_at", alias)
}
