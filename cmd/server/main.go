package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"tapestry/internal/auth"
	"tapestry/internal/config"
	"tapestry/internal/handler"
	"tapestry/internal/middleware"
	"tapestry/internal/notify"
	"tapestry/internal/repository/postgres"
	"tapestry/internal/service/page"
	"tapestry/internal/service/permission"
	"tapestry/internal/service/share"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Bearer token verifier against the identity provider's JWKS
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Magic link signer for email recipients
	magic, err := auth.NewMagicLink(cfg.MagicLinkSecret, cfg.MagicLinkTTL)
	if err != nil {
		log.Fatalf("Failed to create magic link signer: %v", err)
	}

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	pageRepo := postgres.NewPageRepository(repoConfig)
	participationRepo := postgres.NewParticipationRepository(repoConfig)
	userRepo := postgres.NewUserRepository(repoConfig)
	groupRepo := postgres.NewGroupRepository(repoConfig)
	tokenRepo := postgres.NewPageTokenRepository(repoConfig)
	noticeRepo := postgres.NewNoticeRepository(repoConfig)
	auditRepo := postgres.NewAuditRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Permission layer
	permResolver := permission.NewResolver(participationRepo, userRepo, logger)
	accessPolicy := permission.NewPolicy(permResolver, groupRepo)
	pesterPolicy := permission.NewContactPolicy(userRepo, groupRepo)

	// Share and page services
	notifier := notify.NewNotifier(noticeRepo, logger)
	recipientResolver := share.NewRecipientResolver(userRepo, groupRepo, participationRepo, permResolver, accessPolicy, pesterPolicy)
	shareService := share.NewWorkflow(
		pageRepo,
		participationRepo,
		groupRepo,
		tokenRepo,
		auditRepo,
		accessPolicy,
		recipientResolver,
		notifier,
		magic,
		txManager,
		cfg.BaseURL,
		logger,
	)
	pageService := page.NewService(
		pageRepo,
		participationRepo,
		userRepo,
		groupRepo,
		tokenRepo,
		auditRepo,
		accessPolicy,
		magic,
		txManager,
		cfg.EnsurePageOwner,
		logger,
	)

	// Create handlers
	healthHandler := handler.NewHealthHandler(pool)
	pageHandler := handler.NewPageHandler(pageService, logger)
	shareHandler := handler.NewShareHandler(shareService, pageRepo, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", healthHandler.HealthCheck)

	// Page routes
	mux.HandleFunc("POST /api/pages", pageHandler.CreatePage)
	mux.HandleFunc("GET /api/pages/{id}", pageHandler.GetPage)
	mux.HandleFunc("GET /api/pages/{owner}/{name}", pageHandler.GetPageByName)
	mux.HandleFunc("PATCH /api/pages/{id}", pageHandler.UpdatePage)
	mux.HandleFunc("DELETE /api/pages/{id}", pageHandler.DeletePage)
	mux.HandleFunc("POST /api/pages/{id}/undelete", pageHandler.UndeletePage)

	// Participation routes
	mux.HandleFunc("GET /api/pages/{id}/participations", pageHandler.ListParticipations)
	mux.HandleFunc("DELETE /api/pages/{id}/participations/{entityID}", pageHandler.RemoveParticipant)

	// Share routes
	mux.HandleFunc("POST /api/pages/{id}/shares", shareHandler.SharePage)

	// Build middleware chain
	// Order: CORS -> Recovery -> Auth -> Routes
	var root http.Handler = mux
	root = middleware.Auth(jwtVerifier, userRepo, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
