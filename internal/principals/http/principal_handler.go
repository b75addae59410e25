// Package http provides HTTP handlers for the principal directory and the
// membership graph.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/httputil"
	"github.com/gridworks/datahub/internal/principals/http/dto"
	principalsUseCase "github.com/gridworks/datahub/internal/principals/usecase"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// PrincipalHandler handles HTTP requests for directory operations.
type PrincipalHandler struct {
	principalUseCase principalsUseCase.PrincipalUseCase
	logger           *slog.Logger
}

// NewPrincipalHandler creates a new principal handler.
func NewPrincipalHandler(
	principalUseCase principalsUseCase.PrincipalUseCase,
	logger *slog.Logger,
) *PrincipalHandler {
	return &PrincipalHandler{
		principalUseCase: principalUseCase,
		logger:           logger,
	}
}

// principalFromParams builds a principal from the :kind/:id path parameters.
func principalFromParams(c *gin.Context) (authzDomain.Principal, error) {
	return authzDomain.NewPrincipal(
		authzDomain.PrincipalKind(c.Param("kind")),
		c.Param("id"),
	)
}

// CreatePrincipalHandler registers a principal in the directory.
// POST /v1/principals
func (h *PrincipalHandler) CreatePrincipalHandler(c *gin.Context) {
	var req dto.CreatePrincipalRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	entry := req.ToEntry()

	if err := h.principalUseCase.CreatePrincipal(c.Request.Context(), entry); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.NewEntryResponse(entry))
}

// GetPrincipalHandler returns a directory entry.
// GET /v1/principals/:kind/:id
func (h *PrincipalHandler) GetPrincipalHandler(c *gin.Context) {
	principal, err := principalFromParams(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	entry, err := h.principalUseCase.GetPrincipal(c.Request.Context(), principal)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewEntryResponse(entry))
}

// DeletePrincipalHandler removes a principal and every membership edge
// touching it.
// DELETE /v1/principals/:kind/:id
func (h *PrincipalHandler) DeletePrincipalHandler(c *gin.Context) {
	principal, err := principalFromParams(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.principalUseCase.DeletePrincipal(c.Request.Context(), principal); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddMembershipHandler adds one membership edge.
// POST /v1/principals/memberships
func (h *PrincipalHandler) AddMembershipHandler(c *gin.Context) {
	var req dto.MembershipRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.principalUseCase.AddMembership(c.Request.Context(), req.ToMembership()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusCreated)
}

// RemoveMembershipHandler removes one membership edge.
// DELETE /v1/principals/memberships
func (h *PrincipalHandler) RemoveMembershipHandler(c *gin.Context) {
	var req dto.MembershipRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.principalUseCase.RemoveMembership(c.Request.Context(), req.ToMembership()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListParentsHandler returns the direct parents of a principal.
// GET /v1/principals/:kind/:id/parents
func (h *PrincipalHandler) ListParentsHandler(c *gin.Context) {
	principal, err := principalFromParams(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	parents, err := h.principalUseCase.ParentsOf(c.Request.Context(), principal)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"principals": parents})
}

// ListChildrenHandler returns the direct children of a principal.
// GET /v1/principals/:kind/:id/children
func (h *PrincipalHandler) ListChildrenHandler(c *gin.Context) {
	principal, err := principalFromParams(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	children, err := h.principalUseCase.ChildrenOf(c.Request.Context(), principal)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"principals": children})
}
