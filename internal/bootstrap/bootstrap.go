package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/oklib/courseflow/internal/app/controllers"
	appMigrations "github.com/oklib/courseflow/internal/app/migrations"
	appRepos "github.com/oklib/courseflow/internal/app/repositories"
	appRoutes "github.com/oklib/courseflow/internal/app/routes"
	appServices "github.com/oklib/courseflow/internal/app/services"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/config"
	"github.com/oklib/courseflow/internal/db"
	appMiddleware "github.com/oklib/courseflow/internal/middleware"
	pkgAuth "github.com/oklib/courseflow/internal/pkg/auth"
	"github.com/oklib/courseflow/internal/pkg/logger"
	"github.com/oklib/courseflow/internal/seed"
	"github.com/oklib/courseflow/internal/warehouse"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos             *appRepos.Repositories
	Canvas            canvas.API
	Warehouse         warehouse.Directory
	JWTService        *pkgAuth.JWTService
	AuthService       *appServices.AuthService
	DirectoryService  *appServices.DirectoryService
	EnrollmentService *appServices.EnrollmentService
	MigrationService  *appServices.MigrationService
	Lifecycle         *appServices.Lifecycle
	RequestService    *appServices.RequestService
	SectionService    *appServices.SectionService
	ProvisionService  *appServices.ProvisionService
	SyncService       *appServices.SyncService
	AdminService      *appServices.AdminService
	Scheduler         *appServices.Scheduler

	AuthController    *appControllers.AuthController
	SectionController *appControllers.SectionController
	RequestController *appControllers.RequestController
	AdminController   *appControllers.AdminController
	AuthMiddleware    *appMiddleware.AuthMiddleware

	Logger zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes repositories, services and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)
	deps.Canvas = canvas.NewClient(cfg.Canvas.BaseURL, cfg.Canvas.Token)

	if cfg.Warehouse.DSN == "" {
		return nil, fmt.Errorf("warehouse DSN is required (set WAREHOUSE_DSN)")
	}
	pool, err := warehouse.Connect(context.Background(), cfg.Warehouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	deps.Warehouse = warehouse.NewPostgresDirectory(pool)

	tokenExp, err := time.ParseDuration(cfg.JWT.TokenExpiration)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT token expiration: %w", err)
	}
	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenExp:    tokenExp,
		TokenIssuer: cfg.JWT.Issuer,
	})

	deps.AuthService = appServices.NewAuthService(deps.Repos.UserRepository, deps.JWTService)
	deps.DirectoryService = appServices.NewDirectoryService(
		deps.Repos.UserRepository,
		deps.Warehouse,
		deps.Canvas,
		cfg.Canvas.AccountID,
	)
	deps.EnrollmentService = appServices.NewEnrollmentService(deps.Repos.EnrollmentRepository)
	deps.MigrationService = appServices.NewMigrationService(
		deps.Canvas,
		cfg.Provision.PollIntervalDuration(),
		cfg.Provision.MaxPollAttempts,
	)
	deps.Lifecycle = appServices.NewLifecycle(deps.Repos.RequestRepository)

	deps.RequestService = appServices.NewRequestService(
		deps.Repos.RequestRepository,
		deps.Repos.SectionRepository,
		deps.Repos.EnrollmentRepository,
		deps.DirectoryService,
		deps.Lifecycle,
		deps.Canvas,
		cfg.Provision.SISPrefix,
	)
	deps.SectionService = appServices.NewSectionService(deps.Repos.SectionRepository)
	deps.ProvisionService = appServices.NewProvisionService(
		deps.Repos.RequestRepository,
		deps.Repos.SectionRepository,
		deps.EnrollmentService,
		deps.DirectoryService,
		deps.MigrationService,
		deps.Lifecycle,
		deps.Canvas,
		cfg.Provision,
		cfg.Canvas.AccountID,
	)
	deps.SyncService = appServices.NewSyncService(
		deps.Warehouse,
		deps.Repos.SchoolRepository,
		deps.Repos.SubjectRepository,
		deps.Repos.ScheduleTypeRepository,
		deps.Repos.SectionRepository,
		deps.Repos.UserRepository,
		deps.Canvas,
		cfg.Canvas.AccountID,
	)
	deps.AdminService = appServices.NewAdminService(
		deps.Repos.EnrollmentRepository,
		deps.Repos.SchoolRepository,
		deps.Repos.SubjectRepository,
		deps.DirectoryService,
	)

	if cfg.Scheduler.Enabled {
		deps.Scheduler = appServices.NewScheduler(
			deps.ProvisionService,
			deps.SyncService,
			cfg.Provision.CurrentTerm,
			cfg.Provision.NextTerm,
		)
	}

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.AuthService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService)
	deps.SectionController = appControllers.NewSectionController(deps.SectionService)
	deps.RequestController = appControllers.NewRequestController(deps.RequestService)
	deps.AdminController = appControllers.NewAdminController(
		deps.RequestService,
		deps.AdminService,
		deps.ProvisionService,
		deps.SyncService,
	)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	appRoutes.SetupRouter(
		router,
		deps.AuthController,
		deps.SectionController,
		deps.RequestController,
		deps.AdminController,
		deps.AuthMiddleware,
	)

	return router
}
