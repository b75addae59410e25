package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditHTTP "github.com/gridworks/datahub/internal/audit/http"
	authzHTTP "github.com/gridworks/datahub/internal/authorization/http"
	catalogHTTP "github.com/gridworks/datahub/internal/catalog/http"
	apperrors "github.com/gridworks/datahub/internal/errors"
	"github.com/gridworks/datahub/internal/httputil"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	"github.com/gridworks/datahub/internal/metrics"
	principalsHTTP "github.com/gridworks/datahub/internal/principals/http"
	requestsHTTP "github.com/gridworks/datahub/internal/requests/http"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func createTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(nil, "localhost", 8080, logger)
}

// createFullRouter wires the route table with handlers that are never
// reached past request parsing, and an auth middleware that rejects
// every request.
func createFullRouter(server *Server) *gin.Engine {
	denyAll := func(c *gin.Context) {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, server.logger)
		c.Abort()
	}

	server.SetupRouter(RouterConfig{
		TokenHandler:             identityHTTP.NewTokenHandler(nil, server.logger),
		AuthorizationHandler:     authzHTTP.NewAuthorizationHandler(nil, server.logger),
		AclHandler:               authzHTTP.NewAclHandler(nil, nil, server.logger),
		RequestHandler:           requestsHTTP.NewRequestHandler(nil, server.logger),
		CatalogHandler:           catalogHTTP.NewCatalogHandler(nil, nil, server.logger),
		PrincipalHandler:         principalsHTTP.NewPrincipalHandler(nil, server.logger),
		AuditLogHandler:          auditHTTP.NewAuditLogHandler(nil, server.logger),
		AuthenticationMiddleware: denyAll,
	})

	return server.router
}

func TestHealthHandler(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessHandler_NotReady_NilDB(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", components["database"])
}

func TestReadinessHandler_Ready(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	mock.ExpectPing()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(db, "localhost", 8080, logger)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", components["database"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomLoggerMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "test", response["message"])
}

func TestRequestIDContextMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(RequestIDContextMiddleware())
	router.GET("/test", func(c *gin.Context) {
		id, ok := httputil.RequestIDFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"request_id": id.String()})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, w.Header().Get("X-Request-Id"), response["request_id"])
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRouter_HealthEndpoint(t *testing.T) {
	server := createTestServer()
	router := createFullRouter(server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AuthenticatedRoutesRejectAnonymous(t *testing.T) {
	server := createTestServer()
	router := createFullRouter(server)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/authorizations"},
		{http.MethodGet, "/v1/authorizations"},
		{http.MethodGet, "/v1/permissions/" + uuid.Nil.String()},
		{http.MethodGet, "/v1/permissions/" + uuid.Nil.String() + "/explain"},
		{http.MethodPatch, "/v1/permissions"},
		{http.MethodPut, "/v1/requests"},
		{http.MethodGet, "/v1/requests"},
		{http.MethodGet, "/v1/requests/owned"},
		{http.MethodPatch, "/v1/requests/status"},
		{http.MethodPost, "/v1/objects"},
		{http.MethodGet, "/v1/objects"},
		{http.MethodGet, "/v1/objects/" + uuid.Nil.String()},
		{http.MethodDelete, "/v1/objects/" + uuid.Nil.String()},
		{http.MethodPost, "/v1/principals"},
		{http.MethodPost, "/v1/principals/memberships"},
		{http.MethodDelete, "/v1/principals/memberships"},
		{http.MethodGet, "/v1/principals/USER/alice"},
		{http.MethodDelete, "/v1/principals/USER/alice"},
		{http.MethodGet, "/v1/principals/USER/alice/parents"},
		{http.MethodGet, "/v1/principals/USER/alice/children"},
		{http.MethodGet, "/v1/audit-logs"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(route.method, route.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_TokenEndpointBypassesAuthentication(t *testing.T) {
	server := createTestServer()
	router := createFullRouter(server)

	// An invalid payload stops at request validation, proving the route is
	// reachable without a token.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/token", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRouter_NotFoundEndpoint(t *testing.T) {
	server := createTestServer()
	router := createFullRouter(server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := createTestServer()
	createFullRouter(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	assert.NoError(t, err)

	select {
	case err := <-errChan:
		t.Fatalf("server startup failed: %v", err)
	default:
	}
}

func TestRequestIDMiddleware_HeaderPresent(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	requestID := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)

	parsedUUID, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, parsedUUID)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, logger, provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestServer_NoMetricsEndpoint(t *testing.T) {
	server := createTestServer()
	router := createFullRouter(server)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
