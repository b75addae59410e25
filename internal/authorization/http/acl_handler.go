package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridworks/datahub/internal/authorization/http/dto"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	"github.com/gridworks/datahub/internal/httputil"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// AclHandler handles acl inspection and mutation requests. Every operation
// is gated on the caller holding OWNER on the target key.
type AclHandler struct {
	aclUseCase         authzUseCase.AclUseCase
	explanationUseCase authzUseCase.ExplanationUseCase
	logger             *slog.Logger
}

// NewAclHandler creates a new acl handler.
func NewAclHandler(
	aclUseCase authzUseCase.AclUseCase,
	explanationUseCase authzUseCase.ExplanationUseCase,
	logger *slog.Logger,
) *AclHandler {
	return &AclHandler{
		aclUseCase:         aclUseCase,
		explanationUseCase: explanationUseCase,
		logger:             logger,
	}
}

// GetAclHandler returns the full acl for a key.
// GET /v1/permissions/:aclKey
func (h *AclHandler) GetAclHandler(c *gin.Context) {
	aclKey, err := parseAclKeyParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	acl, err := h.aclUseCase.GetAcl(c.Request.Context(), seeds, aclKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, acl)
}

// UpdateAclsHandler applies a batch of acl mutations, one transaction per
// key, and reports per-key results.
// PATCH /v1/permissions
func (h *AclHandler) UpdateAclsHandler(c *gin.Context) {
	var req dto.UpdateAclsRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	batch, err := req.ToAclData()
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	results, err := h.aclUseCase.UpdateAcls(c.Request.Context(), seeds, batch)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewUpdateAclsResponse(results))
}

// ExplainAclHandler explains how each ace on a key reaches its principals.
// GET /v1/permissions/:aclKey/explain
func (h *AclHandler) ExplainAclHandler(c *gin.Context) {
	aclKey, err := parseAclKeyParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	seeds := identityHTTP.SeedsFromContext(c.Request.Context())

	explanations, err := h.explanationUseCase.ExplainAcl(c.Request.Context(), seeds, aclKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ExplainAclResponse{
		AclKey:       aclKey,
		Explanations: explanations,
	})
}
