// Package http provides HTTP handlers for the permission request workflow.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
	"github.com/gridworks/datahub/internal/httputil"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
	"github.com/gridworks/datahub/internal/requests/http/dto"
	requestsUseCase "github.com/gridworks/datahub/internal/requests/usecase"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// RequestHandler handles HTTP requests for the permission request workflow.
type RequestHandler struct {
	requestUseCase requestsUseCase.RequestUseCase
	logger         *slog.Logger
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(
	requestUseCase requestsUseCase.RequestUseCase,
	logger *slog.Logger,
) *RequestHandler {
	return &RequestHandler{
		requestUseCase: requestUseCase,
		logger:         logger,
	}
}

// SubmitRequestHandler opens a permission request for the caller, or updates
// the caller's open request for the same key in place.
// PUT /v1/requests
func (h *RequestHandler) SubmitRequestHandler(c *gin.Context) {
	var req dto.SubmitRequestRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	account, ok := identityHTTP.GetAccount(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	request, err := req.ToPermissionsRequest(account.Principal)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	submitted, err := h.requestUseCase.SubmitRequest(c.Request.Context(), account.Seeds(), request)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewRequestResponse(submitted))
}

// ListMyRequestsHandler pages through the caller's own requests, optionally
// filtered by status.
// GET /v1/requests?status=&offset=&limit=
func (h *RequestHandler) ListMyRequestsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var status *requestsDomain.Status
	if raw := c.Query("status"); raw != "" {
		parsed, err := requestsDomain.ParseStatus(raw)
		if err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		status = &parsed
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	requests, err := h.requestUseCase.ListMyRequests(c.Request.Context(), seeds, status, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": dto.NewRequestListResponse(requests),
		"offset":   offset,
		"limit":    limit,
	})
}

// parseAclKeyRootQuery parses the optional comma-separated aclKeyRoot query
// parameter. An absent parameter yields a nil key.
func parseAclKeyRootQuery(c *gin.Context) (authzDomain.AclKey, error) {
	raw := c.Query("aclKeyRoot")
	if raw == "" {
		return nil, nil
	}

	segments := strings.Split(raw, ",")
	root := make(authzDomain.AclKey, 0, len(segments))
	for _, segment := range segments {
		id, err := uuid.Parse(segment)
		if err != nil {
			return nil, authzDomain.ErrInvalidAclKey
		}
		root = append(root, id)
	}
	return root, nil
}

// ListOpenForReviewHandler pages through open requests on keys the caller
// holds OWNER on, optionally scoped to one owned root.
// GET /v1/requests/owned?aclKeyRoot=&offset=&limit=
func (h *RequestHandler) ListOpenForReviewHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	root, err := parseAclKeyRootQuery(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	requests, err := h.requestUseCase.ListOpenForReview(c.Request.Context(), seeds, root, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": dto.NewRequestListResponse(requests),
		"offset":   offset,
		"limit":    limit,
	})
}

// ResolveRequestHandler approves or declines an open request. Approval grants
// the requested permissions in the same transaction.
// PATCH /v1/requests/status
func (h *RequestHandler) ResolveRequestHandler(c *gin.Context) {
	var req dto.ResolveRequestRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	status, err := requestsDomain.ParseStatus(req.Status)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	resolved, err := h.requestUseCase.ResolveRequest(c.Request.Context(), seeds, id, status)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewRequestResponse(resolved))
}
