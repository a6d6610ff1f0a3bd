package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tapestry/internal/domain"
	"tapestry/internal/domain/models"
	"tapestry/internal/domain/repositories"
)

// PostgresParticipationRepository implements the ParticipationRepository
// interface. Access levels are stored as nullable smallints: NULL is the
// AccessNone watcher row.
type PostgresParticipationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(config *RepositoryConfig) repositories.ParticipationRepository {
	return &PostgresParticipationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func accessToDB(a models.AccessLevel) *int16 {
	if a == models.AccessNone {
		return nil
	}
	v := int16(a)
	return &v
}

func accessFromDB(v *int16) models.AccessLevel {
	if v == nil {
		return models.AccessNone
	}
	return models.AccessLevel(*v)
}

// UserParticipation returns the user's direct participation, or nil
func (r *PostgresParticipationRepository) UserParticipation(ctx context.Context, pageID, userID uuid.UUID) (*models.UserParticipation, error) {
	query := fmt.Sprintf(`
		SELECT id, page_id, user_id, access, watched, star, resolved, created_at, updated_at
		FROM %s
		WHERE page_id = $1 AND user_id = $2
	`, r.tables.UserParticipations)

	var part models.UserParticipation
	var access *int16
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, pageID, userID).Scan(
		&part.ID,
		&part.PageID,
		&part.UserID,
		&access,
		&part.Watched,
		&part.Star,
		&part.Resolved,
		&part.CreatedAt,
		&part.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user participation: %w", err)
	}
	part.Access = accessFromDB(access)

	return &part, nil
}

// GroupParticipation returns the group's participation, or nil
func (r *PostgresParticipationRepository) GroupParticipation(ctx context.Context, pageID, groupID uuid.UUID) (*models.GroupParticipation, error) {
	parts, err := r.GroupParticipations(ctx, pageID, []uuid.UUID{groupID})
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return &parts[0], nil
}

// GroupParticipations returns the participations any of the groups hold
func (r *PostgresParticipationRepository) GroupParticipations(ctx context.Context, pageID uuid.UUID, groupIDs []uuid.UUID) ([]models.GroupParticipation, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, page_id, group_id, access, created_at, updated_at
		FROM %s
		WHERE page_id = $1 AND group_id = ANY($2)
	`, r.tables.GroupParticipations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, pageID, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("list group participations: %w", err)
	}
	defer rows.Close()

	var parts []models.GroupParticipation
	for rows.Next() {
		var part models.GroupParticipation
		var access *int16
		err := rows.Scan(&part.ID, &part.PageID, &part.GroupID, &access, &part.CreatedAt, &part.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan group participation: %w", err)
		}
		part.Access = accessFromDB(access)
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group participations: %w", err)
	}

	return parts, nil
}

// ListByPage returns all participations on a page
func (r *PostgresParticipationRepository) ListByPage(ctx context.Context, pageID uuid.UUID) ([]models.UserParticipation, []models.GroupParticipation, error) {
	executor := GetExecutor(ctx, r.pool)

	uQuery := fmt.Sprintf(`
		SELECT id, page_id, user_id, access, watched, star, resolved, created_at, updated_at
		FROM %s
		WHERE page_id = $1
		ORDER BY created_at
	`, r.tables.UserParticipations)

	rows, err := executor.Query(ctx, uQuery, pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("list user participations: %w", err)
	}
	defer rows.Close()

	uparts := []models.UserParticipation{}
	for rows.Next() {
		var part models.UserParticipation
		var access *int16
		err := rows.Scan(&part.ID, &part.PageID, &part.UserID, &access, &part.Watched, &part.Star, &part.Resolved, &part.CreatedAt, &part.UpdatedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("scan user participation: %w", err)
		}
		part.Access = accessFromDB(access)
		uparts = append(uparts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate user participations: %w", err)
	}
	rows.Close()

	gQuery := fmt.Sprintf(`
		SELECT id, page_id, group_id, access, created_at, updated_at
		FROM %s
		WHERE page_id = $1
		ORDER BY created_at
	`, r.tables.GroupParticipations)

	grows, err := executor.Query(ctx, gQuery, pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("list group participations: %w", err)
	}
	defer grows.Close()

	gparts := []models.GroupParticipation{}
	for grows.Next() {
		var part models.GroupParticipation
		var access *int16
		err := grows.Scan(&part.ID, &part.PageID, &part.GroupID, &access, &part.CreatedAt, &part.UpdatedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("scan group participation: %w", err)
		}
		part.Access = accessFromDB(access)
		gparts = append(gparts, part)
	}
	if err := grows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate group participations: %w", err)
	}

	return uparts, gparts, nil
}

// SetUserAccess creates or updates the user's participation. The existing
// row is locked first so two concurrent share runs against the same page
// serialize instead of losing an update.
func (r *PostgresParticipationRepository) SetUserAccess(ctx context.Context, pageID, userID uuid.UUID, access models.AccessLevel) (*models.UserParticipation, bool, error) {
	executor := GetExecutor(ctx, r.pool)

	lock := fmt.Sprintf(`
		SELECT id, access FROM %s
		WHERE page_id = $1 AND user_id = $2
		FOR UPDATE
	`, r.tables.UserParticipations)

	var id uuid.UUID
	var current *int16
	err := executor.QueryRow(ctx, lock, pageID, userID).Scan(&id, &current)
	if err != nil {
		if !IsPgNoRowsError(err) {
			return nil, false, fmt.Errorf("lock user participation: %w", err)
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s (id, page_id, user_id, access, watched, star, resolved, created_at, updated_at)
			VALUES ($1, $2, $3, $4, false, false, false, $5, $5)
			RETURNING id, page_id, user_id, watched, star, resolved, created_at, updated_at
		`, r.tables.UserParticipations)

		now := time.Now()
		var part models.UserParticipation
		err := executor.QueryRow(ctx, insert, uuid.New(), pageID, userID, accessToDB(access), now).Scan(
			&part.ID, &part.PageID, &part.UserID, &part.Watched, &part.Star, &part.Resolved, &part.CreatedAt, &part.UpdatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert user participation: %w", err)
		}
		part.Access = access
		return &part, true, nil
	}

	changed := accessFromDB(current) != access

	update := fmt.Sprintf(`
		UPDATE %s SET access = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, page_id, user_id, watched, star, resolved, created_at, updated_at
	`, r.tables.UserParticipations)

	var part models.UserParticipation
	err = executor.QueryRow(ctx, update, accessToDB(access), time.Now(), id).Scan(
		&part.ID, &part.PageID, &part.UserID, &part.Watched, &part.Star, &part.Resolved, &part.CreatedAt, &part.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("update user participation: %w", err)
	}
	part.Access = access

	return &part, changed, nil
}

// SetGroupAccess creates or updates the group's participation
func (r *PostgresParticipationRepository) SetGroupAccess(ctx context.Context, pageID, groupID uuid.UUID, access models.AccessLevel) (*models.GroupParticipation, bool, error) {
	executor := GetExecutor(ctx, r.pool)

	lock := fmt.Sprintf(`
		SELECT id, access FROM %s
		WHERE page_id = $1 AND group_id = $2
		FOR UPDATE
	`, r.tables.GroupParticipations)

	var id uuid.UUID
	var current *int16
	err := executor.QueryRow(ctx, lock, pageID, groupID).Scan(&id, &current)
	if err != nil {
		if !IsPgNoRowsError(err) {
			return nil, false, fmt.Errorf("lock group participation: %w", err)
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s (id, page_id, group_id, access, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id, page_id, group_id, created_at, updated_at
		`, r.tables.GroupParticipations)

		now := time.Now()
		var part models.GroupParticipation
		err := executor.QueryRow(ctx, insert, uuid.New(), pageID, groupID, accessToDB(access), now).Scan(
			&part.ID, &part.PageID, &part.GroupID, &part.CreatedAt, &part.UpdatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert group participation: %w", err)
		}
		part.Access = access
		return &part, true, nil
	}

	changed := accessFromDB(current) != access

	update := fmt.Sprintf(`
		UPDATE %s SET access = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, page_id, group_id, created_at, updated_at
	`, r.tables.GroupParticipations)

	var part models.GroupParticipation
	err = executor.QueryRow(ctx, update, accessToDB(access), time.Now(), id).Scan(
		&part.ID, &part.PageID, &part.GroupID, &part.CreatedAt, &part.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("update group participation: %w", err)
	}
	part.Access = access

	return &part, changed, nil
}

// RemoveEntity deletes the entity's participation from the page
func (r *PostgresParticipationRepository) RemoveEntity(ctx context.Context, pageID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error {
	var query string
	switch entityType {
	case models.EntityUser:
		query = fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1 AND user_id = $2`, r.tables.UserParticipations)
	case models.EntityGroup:
		query = fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1 AND group_id = $2`, r.tables.GroupParticipations)
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, pageID, entityID)
	if err != nil {
		return fmt.Errorf("remove participation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participation for %s: %w", entityID, domain.ErrNotFound)
	}

	return nil
}
