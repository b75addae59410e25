// Package http provides HTTP handlers for access evaluation and acl
// management.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/authorization/http/dto"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	apperrors "github.com/gridworks/datahub/internal/errors"
	"github.com/gridworks/datahub/internal/httputil"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// parseAclKeyParam parses the comma-separated acl key path parameter.
func parseAclKeyParam(c *gin.Context) (authzDomain.AclKey, error) {
	return dto.ParseAclKey(strings.Split(c.Param("aclKey"), ","))
}

// AuthorizationHandler handles access evaluation requests.
type AuthorizationHandler struct {
	authorizationUseCase authzUseCase.AuthorizationUseCase
	logger               *slog.Logger
}

// NewAuthorizationHandler creates a new authorization handler.
func NewAuthorizationHandler(
	authorizationUseCase authzUseCase.AuthorizationUseCase,
	logger *slog.Logger,
) *AuthorizationHandler {
	return &AuthorizationHandler{
		authorizationUseCase: authorizationUseCase,
		logger:               logger,
	}
}

// CheckAuthorizationsHandler answers a batch of access checks for the caller.
// POST /v1/authorizations
func (h *AuthorizationHandler) CheckAuthorizationsHandler(c *gin.Context) {
	var req dto.CheckAuthorizationsRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	checks, err := req.ToAccessChecks()
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	authorizations, err := h.authorizationUseCase.AccessChecks(c.Request.Context(), seeds, checks)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CheckAuthorizationsResponse{Authorizations: authorizations})
}

// ListAuthorizedObjectsHandler pages through the acl keys the caller holds
// the requested permissions on.
// GET /v1/authorizations?objectType=&permission=&offset=&limit=
func (h *AuthorizationHandler) ListAuthorizedObjectsHandler(c *gin.Context) {
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
		permissionNames = []string{"READ"}
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

	c.JSON(http.StatusOK, dto.AuthorizedObjectsResponse{
		AclKeys: aclKeys,
		Offset:  offset,
		Limit:   limit,
	})
}
