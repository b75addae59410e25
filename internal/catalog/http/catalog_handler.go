// Package http provides HTTP handlers for the securable object catalog.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	"github.com/gridworks/datahub/internal/catalog/http/dto"
	catalogUseCase "github.com/gridworks/datahub/internal/catalog/usecase"
	apperrors "github.com/gridworks/datahub/internal/errors"
	"github.com/gridworks/datahub/internal/httputil"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// CatalogHandler handles HTTP requests for catalog operations.
type CatalogHandler struct {
	catalogUseCase       catalogUseCase.CatalogUseCase
	authorizationUseCase authzUseCase.AuthorizationUseCase
	logger               *slog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(
	catalog catalogUseCase.CatalogUseCase,
	authorization authzUseCase.AuthorizationUseCase,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		catalogUseCase:       catalog,
		authorizationUseCase: authorization,
		logger:               logger,
	}
}

// parseAclKeyParam parses the comma-separated acl key path parameter.
func parseAclKeyParam(c *gin.Context) (authzDomain.AclKey, error) {
	segments := strings.Split(c.Param("aclKey"), ",")
	key := make(authzDomain.AclKey, 0, len(segments))
	for _, segment := range segments {
		id, err := uuid.Parse(segment)
		if err != nil {
			return nil, authzDomain.ErrInvalidAclKey
		}
		key = append(key, id)
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return key, nil
}

// RegisterObjectHandler registers a securable object; the caller becomes its
// owner.
// POST /v1/objects
func (h *CatalogHandler) RegisterObjectHandler(c *gin.Context) {
	var req dto.RegisterObjectRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	object, err := req.ToSecurableObject()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	if err := h.catalogUseCase.RegisterObject(c.Request.Context(), seeds, object); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.NewObjectResponse(object))
}

// GetObjectHandler returns a catalog entry. Callers with no permission on the
// key get a 404, the same as for a key that was never registered.
// GET /v1/objects/:aclKey
func (h *CatalogHandler) GetObjectHandler(c *gin.Context) {
	aclKey, err := parseAclKeyParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	object, err := h.catalogUseCase.GetObject(c.Request.Context(), seeds, aclKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewObjectResponse(object))
}

// DestroyObjectHandler removes an object, everything nested under it, and
// every ace under the key. Requires OWNER on the key.
// DELETE /v1/objects/:aclKey
func (h *CatalogHandler) DestroyObjectHandler(c *gin.Context) {
	aclKey, err := parseAclKeyParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	if err := h.catalogUseCase.DestroyObject(c.Request.Context(), seeds, aclKey); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListObjectsHandler pages through the acl keys of a type the caller holds
// the requested permissions on.
// GET /v1/objects?objectType=&permission=&offset=&limit=
func (h *CatalogHandler) ListObjectsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	objectType := authzDomain.SecurableObjectType(c.Query("objectType"))
	if objectType == "" {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "objectType query parameter is required"),
			h.logger)
		return
	}

	permissionNames := c.QueryArray("permission")
	if len(permissionNames) == 0 {
		permissionNames = []string{"DISCOVER"}
	}
	required, err := authzDomain.ParsePermissions(permissionNames)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	aclKeys, err := h.authorizationUseCase.ListAuthorizedObjects(
		c.Request.Context(), seeds, objectType, required, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"aclKeys": aclKeys,
		"offset":  offset,
		"limit":   limit,
	})
}
