package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/audit"
	auditPostgres "github.com/frahmantamala/procurement-management/internal/audit/postgres"
	"github.com/frahmantamala/procurement-management/internal/auth"
	authPostgres "github.com/frahmantamala/procurement-management/internal/auth/postgres"
	"github.com/frahmantamala/procurement-management/internal/core/events"
	"github.com/frahmantamala/procurement-management/internal/document"
	documentPostgres "github.com/frahmantamala/procurement-management/internal/document/postgres"
	"github.com/frahmantamala/procurement-management/internal/notification"
	"github.com/frahmantamala/procurement-management/internal/organization"
	organizationPostgres "github.com/frahmantamala/procurement-management/internal/organization/postgres"
	"github.com/frahmantamala/procurement-management/internal/request"
	requestPostgres "github.com/frahmantamala/procurement-management/internal/request/postgres"
	"github.com/frahmantamala/procurement-management/internal/transport/rest"
	"github.com/frahmantamala/procurement-management/internal/user"
	userPostgres "github.com/frahmantamala/procurement-management/internal/user/postgres"
	"github.com/frahmantamala/procurement-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	logger.Init(os.Getenv("APP_ENV"))

	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := internal.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	log := logger.LoggerWrapper()
	eventBus := events.NewEventBus(log)

	// Auth
	tokenGen := auth.NewJWTTokenGenerator(config.Security.AccessTokenSecret, config.Security.RefreshTokenSecret)
	tokenGen.AccessTokenTTL = config.Security.AccessTokenDuration
	tokenGen.RefreshTokenTTL = config.Security.RefreshTokenDuration
	authService := auth.NewService(authPostgres.NewRepository(gdb), tokenGen, config.Security.BCryptCost)
	authHandler := auth.NewHandler(authService)

	// Users; the user service doubles as the approval chain directory.
	userService := user.NewService(userPostgres.NewUserRepository(gdb), authService, log)
	userHandler := user.NewHandler(userService)

	// Requests
	requestService := request.NewService(requestPostgres.NewRequestRepository(gdb), userService, eventBus, log)
	requestHandler := request.NewHandler(requestService)

	// Documents; storage stays nil when no endpoint is configured and the
	// document endpoints answer 503.
	var storage document.ObjectStorage
	if config.Storage.Endpoint != "" {
		minioStorage, err := document.NewMinIOStorage(config.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		ctx, cancel := internal.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := minioStorage.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
		storage = minioStorage
	}
	documentService := document.NewService(
		documentPostgres.NewDocumentRepository(gdb),
		storage,
		requestService,
		eventBus,
		config.Storage.PresignedExpiry,
		log,
	)
	documentHandler := document.NewHandler(documentService)

	// Organization
	organizationService := organization.NewService(organizationPostgres.NewOrganizationRepository(gdb), log)
	organizationHandler := organization.NewHandler(organizationService)

	// Audit trail and notifications ride the event bus.
	auditService := audit.NewService(auditPostgres.NewAuditRepository(gdb), log)
	auditService.RegisterEventHandlers(eventBus)
	auditHandler := audit.NewHandler(auditService)

	notificationService := notification.NewService(log)
	notificationService.RegisterEventHandlers(eventBus)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:         authHandler,
		Request:      requestHandler,
		Document:     documentHandler,
		User:         userHandler,
		Organization: organizationHandler,
		Audit:        auditHandler,
	}, config.Server.AllowedOrigins, log)

	return &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		Router: router,
	}, nil
}

// initDB opens the pgx-backed connection pool.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm wraps the shared pool so the ORM and raw queries use one set of
// connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
}
