package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"tapestry/internal/config"
	"tapestry/internal/repository/postgres"
	"tapestry/internal/seed"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed fixtures")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	fixtures, err := seed.Load()
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	seeder := seed.NewSeeder(pool, tables, logger)
	if err := seeder.Seed(ctx, fixtures); err != nil {
		log.Fatalf("Failed to seed fixtures: %v", err)
	}

	log.Println("Seeding complete")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createUsers := `
		CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			email TEXT,
			pesterable BOOLEAN NOT NULL DEFAULT TRUE,
			site_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUsers); err != nil {
		return err
	}

	createGroups := `
		CREATE TABLE IF NOT EXISTS ` + tables.Groups + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			public_view BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createGroups); err != nil {
		return err
	}

	createMemberships := `
		CREATE TABLE IF NOT EXISTS ` + tables.Memberships + ` (
			group_id UUID NOT NULL REFERENCES ` + tables.Groups + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)
	`
	if _, err := pool.Exec(ctx, createMemberships); err != nil {
		return err
	}

	createPages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Pages + ` (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			name TEXT,
			owner_type TEXT,
			owner_id UUID,
			owner_name TEXT,
			created_by_id UUID NOT NULL REFERENCES ` + tables.Users + `(id),
			public BOOLEAN NOT NULL DEFAULT FALSE,
			flow SMALLINT NOT NULL DEFAULT 0,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createPages); err != nil {
		return err
	}

	// access is nullable: a NULL-access row is a watcher participation that
	// grants nothing but still counts as standing on the page
	createUserParticipations := `
		CREATE TABLE IF NOT EXISTS ` + tables.UserParticipations + ` (
			id UUID PRIMARY KEY,
			page_id UUID NOT NULL REFERENCES ` + tables.Pages + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			access SMALLINT,
			watched BOOLEAN NOT NULL DEFAULT FALSE,
			star BOOLEAN NOT NULL DEFAULT FALSE,
			resolved BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (page_id, user_id)
		)
	`
	if _, err := pool.Exec(ctx, createUserParticipations); err != nil {
		return err
	}

	createGroupParticipations := `
		CREATE TABLE IF NOT EXISTS ` + tables.GroupParticipations + ` (
			id UUID PRIMARY KEY,
			page_id UUID NOT NULL REFERENCES ` + tables.Pages + `(id) ON DELETE CASCADE,
			group_id UUID NOT NULL REFERENCES ` + tables.Groups + `(id) ON DELETE CASCADE,
			access SMALLINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (page_id, group_id)
		)
	`
	if _, err := pool.Exec(ctx, createGroupParticipations); err != nil {
		return err
	}

	createPageTokens := `
		CREATE TABLE IF NOT EXISTS ` + tables.PageTokens + ` (
			id UUID PRIMARY KEY,
			page_id UUID NOT NULL REFERENCES ` + tables.Pages + `(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			token TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (page_id, email)
		)
	`
	if _, err := pool.Exec(ctx, createPageTokens); err != nil {
		return err
	}

	createPageNotices := `
		CREATE TABLE IF NOT EXISTS ` + tables.PageNotices + ` (
			id UUID PRIMARY KEY,
			page_id UUID NOT NULL REFERENCES ` + tables.Pages + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			from_user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id),
			kind TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createPageNotices); err != nil {
		return err
	}

	createAccessEvents := `
		CREATE TABLE IF NOT EXISTS ` + tables.AccessEvents + ` (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			page_id UUID NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id UUID NOT NULL,
			access SMALLINT NOT NULL,
			actor_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAccessEvents); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `memberships_user ON ` + tables.Memberships + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `pages_owner ON ` + tables.Pages + `(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `user_parts_user ON ` + tables.UserParticipations + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `group_parts_group ON ` + tables.GroupParticipations + `(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `page_tokens_expiry ON ` + tables.PageTokens + `(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `page_notices_user ON ` + tables.PageNotices + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `access_events_page ON ` + tables.AccessEvents + `(page_id)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.AccessEvents,
		tables.PageNotices,
		tables.PageTokens,
		tables.GroupParticipations,
		tables.UserParticipations,
		tables.Pages,
		tables.Memberships,
		tables.Groups,
		tables.Users,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  dropped %s", table)
	}

	return nil
}
