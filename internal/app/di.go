// Package app provides the dependency injection container assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	auditHTTP "github.com/gridworks/datahub/internal/audit/http"
	auditService "github.com/gridworks/datahub/internal/audit/service"
	auditUseCase "github.com/gridworks/datahub/internal/audit/usecase"
	authzHTTP "github.com/gridworks/datahub/internal/authorization/http"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
	catalogHTTP "github.com/gridworks/datahub/internal/catalog/http"
	catalogUseCase "github.com/gridworks/datahub/internal/catalog/usecase"
	"github.com/gridworks/datahub/internal/config"
	"github.com/gridworks/datahub/internal/database"
	"github.com/gridworks/datahub/internal/http"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	identityService "github.com/gridworks/datahub/internal/identity/service"
	identityUseCase "github.com/gridworks/datahub/internal/identity/usecase"
	"github.com/gridworks/datahub/internal/metrics"
	outboxUsecase "github.com/gridworks/datahub/internal/outbox/usecase"
	principalsHTTP "github.com/gridworks/datahub/internal/principals/http"
	principalsUseCase "github.com/gridworks/datahub/internal/principals/usecase"
	requestsHTTP "github.com/gridworks/datahub/internal/requests/http"
	requestsUseCase "github.com/gridworks/datahub/internal/requests/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. Components are created lazily on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	typeRegistry    *catalogDomain.TypeRegistry

	// Repositories
	permissionRepo authzUseCase.PermissionRepository
	principalRepo  principalsUseCase.PrincipalRepository
	requestRepo    requestsUseCase.RequestRepository
	objectRepo     catalogUseCase.ObjectRepository
	accountRepo    identityUseCase.AccountRepository
	tokenRepo      identityUseCase.TokenRepository
	auditLogRepo   auditUseCase.AuditLogRepository
	outboxRepo     outboxUsecase.OutboxEventRepository

	// Services
	secretService identityService.SecretService
	tokenService  identityService.TokenService
	auditSigner   auditService.AuditSigner

	// Use Cases
	authorizationUseCase authzUseCase.AuthorizationUseCase
	aclUseCase           authzUseCase.AclUseCase
	explanationUseCase   authzUseCase.ExplanationUseCase
	principalUseCase     principalsUseCase.PrincipalUseCase
	requestUseCase       requestsUseCase.RequestUseCase
	catalogUseCase       catalogUseCase.CatalogUseCase
	accountUseCase       identityUseCase.AccountUseCase
	tokenUseCase         identityUseCase.TokenUseCase
	auditLogUseCase      auditUseCase.AuditLogUseCase
	outboxUseCase        outboxUsecase.UseCase
	notificationSink     authzUseCase.NotificationSink

	// Handlers
	tokenHandler         *identityHTTP.TokenHandler
	authorizationHandler *authzHTTP.AuthorizationHandler
	aclHandler           *authzHTTP.AclHandler
	requestHandler       *requestsHTTP.RequestHandler
	catalogHandler       *catalogHTTP.CatalogHandler
	principalHandler     *principalsHTTP.PrincipalHandler
	auditLogHandler      *auditHTTP.AuditLogHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	txManagerInit            sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	typeRegistryInit         sync.Once
	permissionRepoInit       sync.Once
	principalRepoInit        sync.Once
	requestRepoInit          sync.Once
	objectRepoInit           sync.Once
	accountRepoInit          sync.Once
	tokenRepoInit            sync.Once
	auditLogRepoInit         sync.Once
	outboxRepoInit           sync.Once
	secretServiceInit        sync.Once
	tokenServiceInit         sync.Once
	auditSignerInit          sync.Once
	authorizationUseCaseInit sync.Once
	aclUseCaseInit           sync.Once
	explanationUseCaseInit   sync.Once
	principalUseCaseInit     sync.Once
	requestUseCaseInit       sync.Once
	catalogUseCaseInit       sync.Once
	accountUseCaseInit       sync.Once
	tokenUseCaseInit         sync.Once
	auditLogUseCaseInit      sync.Once
	outboxUseCaseInit        sync.Once
	notificationSinkInit     sync.Once
	tokenHandlerInit         sync.Once
	authorizationHandlerInit sync.Once
	aclHandlerInit           sync.Once
	requestHandlerInit       sync.Once
	catalogHandlerInit       sync.Once
	principalHandlerInit     sync.Once
	auditLogHandlerInit      sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider. Returns nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance with all routes registered.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get token handler for http server: %w", err)
	}

	authorizationHandler, err := c.AuthorizationHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization handler for http server: %w", err)
	}

	aclHandler, err := c.AclHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get acl handler for http server: %w", err)
	}

	requestHandler, err := c.RequestHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get request handler for http server: %w", err)
	}

	catalogHandler, err := c.CatalogHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog handler for http server: %w", err)
	}

	principalHandler, err := c.PrincipalHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal handler for http server: %w", err)
	}

	auditLogHandler, err := c.AuditLogHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log handler for http server: %w", err)
	}

	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for http server: %w", err)
	}

	var rateLimitMiddleware gin.HandlerFunc
	if c.config.RateLimitEnabled {
		rateLimitMiddleware = identityHTTP.RateLimitMiddleware(
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
			logger,
		)
	}

	var tokenRateLimitMiddleware gin.HandlerFunc
	if c.config.RateLimitTokenEnabled {
		tokenRateLimitMiddleware = identityHTTP.TokenRateLimitMiddleware(
			c.config.RateLimitTokenRequestsPerSec,
			c.config.RateLimitTokenBurst,
			logger,
		)
	}

	var metricsMiddleware gin.HandlerFunc
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if metricsProvider != nil {
		metricsMiddleware = metrics.HTTPMetricsMiddleware(
			metricsProvider.MeterProvider(),
			c.config.MetricsNamespace,
		)
	}

	gin.SetMode(c.config.GetGinMode())

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(http.RouterConfig{
		TokenHandler:         tokenHandler,
		AuthorizationHandler: authorizationHandler,
		AclHandler:           aclHandler,
		RequestHandler:       requestHandler,
		CatalogHandler:       catalogHandler,
		PrincipalHandler:     principalHandler,
		AuditLogHandler:      auditLogHandler,

		AuthenticationMiddleware: identityHTTP.AuthenticationMiddleware(tokenUseCase, c.TokenService(), logger),
		RateLimitMiddleware:      rateLimitMiddleware,
		TokenRateLimitMiddleware: tokenRateLimitMiddleware,
		MetricsMiddleware:        metricsMiddleware,

		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
	})

	return server, nil
}

// initMetricsServer creates the metrics server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		metricsProvider,
	), nil
}
