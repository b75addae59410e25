package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/gridworks/datahub/internal/audit/http"
	authzHTTP "github.com/gridworks/datahub/internal/authorization/http"
	catalogHTTP "github.com/gridworks/datahub/internal/catalog/http"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	principalsHTTP "github.com/gridworks/datahub/internal/principals/http"
	requestsHTTP "github.com/gridworks/datahub/internal/requests/http"
)

// Server represents the HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is empty until
// SetupRouter is called with the application handlers.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterConfig holds the handlers and optional middleware registered on the
// router. Nil middleware entries are skipped.
type RouterConfig struct {
	TokenHandler         *identityHTTP.TokenHandler
	AuthorizationHandler *authzHTTP.AuthorizationHandler
	AclHandler           *authzHTTP.AclHandler
	RequestHandler       *requestsHTTP.RequestHandler
	CatalogHandler       *catalogHTTP.CatalogHandler
	PrincipalHandler     *principalsHTTP.PrincipalHandler
	AuditLogHandler      *auditHTTP.AuditLogHandler

	AuthenticationMiddleware gin.HandlerFunc
	RateLimitMiddleware      gin.HandlerFunc
	TokenRateLimitMiddleware gin.HandlerFunc
	MetricsMiddleware        gin.HandlerFunc

	CORSEnabled      bool
	CORSAllowOrigins string
}

// SetupRouter builds the Gin router and registers all API routes.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(RequestIDContextMiddleware())
	router.Use(CustomLoggerMiddleware(s.logger))

	if cfg.MetricsMiddleware != nil {
		router.Use(cfg.MetricsMiddleware)
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Token issuance is the only unauthenticated API endpoint, rate limited
	// per client IP.
	tokenGroup := router.Group("/v1")
	if cfg.TokenRateLimitMiddleware != nil {
		tokenGroup.Use(cfg.TokenRateLimitMiddleware)
	}
	tokenGroup.POST("/token", cfg.TokenHandler.IssueTokenHandler)

	v1 := router.Group("/v1")
	v1.Use(cfg.AuthenticationMiddleware)
	if cfg.RateLimitMiddleware != nil {
		v1.Use(cfg.RateLimitMiddleware)
	}

	v1.POST("/authorizations", cfg.AuthorizationHandler.CheckAuthorizationsHandler)
	v1.GET("/authorizations", cfg.AuthorizationHandler.ListAuthorizedObjectsHandler)

	v1.GET("/permissions/:aclKey", cfg.AclHandler.GetAclHandler)
	v1.GET("/permissions/:aclKey/explain", cfg.AclHandler.ExplainAclHandler)
	v1.PATCH("/permissions", cfg.AclHandler.UpdateAclsHandler)

	v1.PUT("/requests", cfg.RequestHandler.SubmitRequestHandler)
	v1.GET("/requests", cfg.RequestHandler.ListMyRequestsHandler)
	v1.GET("/requests/owned", cfg.RequestHandler.ListOpenForReviewHandler)
	v1.PATCH("/requests/status", cfg.RequestHandler.ResolveRequestHandler)

	v1.POST("/objects", cfg.CatalogHandler.RegisterObjectHandler)
	v1.GET("/objects", cfg.CatalogHandler.ListObjectsHandler)
	v1.GET("/objects/:aclKey", cfg.CatalogHandler.GetObjectHandler)
	v1.DELETE("/objects/:aclKey", cfg.CatalogHandler.DestroyObjectHandler)

	v1.POST("/principals", cfg.PrincipalHandler.CreatePrincipalHandler)
	v1.POST("/principals/memberships", cfg.PrincipalHandler.AddMembershipHandler)
	v1.DELETE("/principals/memberships", cfg.PrincipalHandler.RemoveMembershipHandler)
	v1.GET("/principals/:kind/:id", cfg.PrincipalHandler.GetPrincipalHandler)
	v1.DELETE("/principals/:kind/:id", cfg.PrincipalHandler.DeletePrincipalHandler)
	v1.GET("/principals/:kind/:id/parents", cfg.PrincipalHandler.ListParentsHandler)
	v1.GET("/principals/:kind/:id/children", cfg.PrincipalHandler.ListChildrenHandler)

	v1.GET("/audit-logs", cfg.AuditLogHandler.ListHandler)

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking
// database connectivity.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	databaseStatus := "ok"
	if s.db == nil {
		databaseStatus = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("readiness database ping failed", slog.Any("error", err))
			databaseStatus = "error"
		}
	}
	components["database"] = databaseStatus

	if databaseStatus != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// GetHandler returns the configured router, nil before SetupRouter runs.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		return nil
	}
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
