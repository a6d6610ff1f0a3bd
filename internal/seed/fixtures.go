package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"tapestry/internal/domain/models"
	"tapestry/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixtures is the parsed development dataset.
type Fixtures struct {
	Users []struct {
		ID          uuid.UUID `yaml:"id"`
		Login       string    `yaml:"login"`
		DisplayName string    `yaml:"display_name"`
		Email       string    `yaml:"email"`
		Pesterable  bool      `yaml:"pesterable"`
		SiteAdmin   bool      `yaml:"site_admin"`
	} `yaml:"users"`
	Groups []struct {
		ID          uuid.UUID `yaml:"id"`
		Name        string    `yaml:"name"`
		DisplayName string    `yaml:"display_name"`
		PublicView  bool      `yaml:"public_view"`
	} `yaml:"groups"`
	Memberships []struct {
		Group string `yaml:"group"`
		User  string `yaml:"user"`
	} `yaml:"memberships"`
	Pages []struct {
		ID        uuid.UUID `yaml:"id"`
		Title     string    `yaml:"title"`
		Name      string    `yaml:"name"`
		Owner     string    `yaml:"owner"`
		CreatedBy string    `yaml:"created_by"`
		Public    bool      `yaml:"public"`
	} `yaml:"pages"`
}

// Load parses the embedded fixtures.
func Load() (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(fixturesYAML, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// Seeder inserts the fixture dataset. Inserts are idempotent: rerunning the
// seeder against an existing database is a no-op.
type Seeder struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *Seeder {
	return &Seeder{
		pool:   pool,
		tables: tables,
		logger: logger,
	}
}

// Seed inserts users, groups, memberships and pages, granting the creator
// and owner of each page an admin participation the way the page service
// would.
func (s *Seeder) Seed(ctx context.Context, f *Fixtures) error {
	now := time.Now()

	userIDs := make(map[string]uuid.UUID, len(f.Users))
	for _, u := range f.Users {
		userIDs[u.Login] = u.ID
		query := `INSERT INTO ` + s.tables.Users + ` (id, login, display_name, email, pesterable, site_admin, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`
		if _, err := s.pool.Exec(ctx, query, u.ID, u.Login, u.DisplayName, u.Email, u.Pesterable, u.SiteAdmin, now); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Login, err)
		}
	}

	groupIDs := make(map[string]uuid.UUID, len(f.Groups))
	for _, g := range f.Groups {
		groupIDs[g.Name] = g.ID
		query := `INSERT INTO ` + s.tables.Groups + ` (id, name, display_name, public_view, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`
		if _, err := s.pool.Exec(ctx, query, g.ID, g.Name, g.DisplayName, g.PublicView, now); err != nil {
			return fmt.Errorf("seed group %s: %w", g.Name, err)
		}
	}

	for _, m := range f.Memberships {
		groupID, ok := groupIDs[m.Group]
		if !ok {
			return fmt.Errorf("membership references unknown group %q", m.Group)
		}
		userID, ok := userIDs[m.User]
		if !ok {
			return fmt.Errorf("membership references unknown user %q", m.User)
		}
		query := `INSERT INTO ` + s.tables.Memberships + ` (group_id, user_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (group_id, user_id) DO NOTHING`
		if _, err := s.pool.Exec(ctx, query, groupID, userID, now); err != nil {
			return fmt.Errorf("seed membership %s/%s: %w", m.Group, m.User, err)
		}
	}

	for _, p := range f.Pages {
		creatorID, ok := userIDs[p.CreatedBy]
		if !ok {
			return fmt.Errorf("page %q references unknown creator %q", p.Title, p.CreatedBy)
		}

		var ownerType *models.EntityType
		var ownerID *uuid.UUID
		ownerName := p.Owner
		if id, ok := userIDs[p.Owner]; ok {
			t := models.EntityUser
			ownerType, ownerID = &t, &id
		} else if id, ok := groupIDs[p.Owner]; ok {
			t := models.EntityGroup
			ownerType, ownerID = &t, &id
		} else if p.Owner != "" {
			return fmt.Errorf("page %q references unknown owner %q", p.Title, p.Owner)
		}

		query := `INSERT INTO ` + s.tables.Pages + ` (id, title, name, owner_type, owner_id, owner_name, created_by_id, public, flow, resolved, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, 0, false, $9, $9)
			ON CONFLICT (id) DO NOTHING`
		if _, err := s.pool.Exec(ctx, query, p.ID, p.Title, p.Name, ownerType, ownerID, ownerName, creatorID, p.Public, now); err != nil {
			return fmt.Errorf("seed page %q: %w", p.Title, err)
		}

		if err := s.grantUserAdmin(ctx, p.ID, creatorID, now); err != nil {
			return err
		}
		if ownerType != nil {
			switch *ownerType {
			case models.EntityUser:
				if err := s.grantUserAdmin(ctx, p.ID, *ownerID, now); err != nil {
					return err
				}
			case models.EntityGroup:
				query := `INSERT INTO ` + s.tables.GroupParticipations + ` (id, page_id, group_id, access, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $5)
					ON CONFLICT (page_id, group_id) DO NOTHING`
				if _, err := s.pool.Exec(ctx, query, uuid.New(), p.ID, *ownerID, int16(models.AccessAdmin), now); err != nil {
					return fmt.Errorf("seed owner participation for page %q: %w", p.Title, err)
				}
			}
		}
	}

	s.logger.Info("fixtures seeded",
		"users", len(f.Users),
		"groups", len(f.Groups),
		"pages", len(f.Pages),
	)
	return nil
}

func (s *Seeder) grantUserAdmin(ctx context.Context, pageID, userID uuid.UUID, now time.Time) error {
	query := `INSERT INTO ` + s.tables.UserParticipations + ` (id, page_id, user_id, access, watched, star, resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, false, true, $5, $5)
		ON CONFLICT (page_id, user_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), pageID, userID, int16(models.AccessAdmin), now); err != nil {
		return fmt.Errorf("seed admin participation: %w", err)
	}
	return nil
}
