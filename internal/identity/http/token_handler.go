// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridworks/datahub/internal/httputil"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
	"github.com/gridworks/datahub/internal/identity/http/dto"
	identityUseCase "github.com/gridworks/datahub/internal/identity/usecase"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// TokenHandler handles HTTP requests for token operations.
type TokenHandler struct {
	tokenUseCase identityUseCase.TokenUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(
	tokenUseCase identityUseCase.TokenUseCase,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
		logger:       logger,
	}
}

// IssueTokenHandler issues a new authentication token for a service account.
// POST /v1/token - No authentication required (this is the authentication endpoint).
// Returns 201 Created with the token and its expiration time.
func (h *TokenHandler) IssueTokenHandler(c *gin.Context) {
	var req dto.IssueTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &identityDomain.IssueTokenInput{
		AccountName: req.AccountName,
		Secret:      req.Secret,
	}

	output, err := h.tokenUseCase.Issue(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.IssueTokenResponse{
		Token:     output.PlainToken,
		ExpiresAt: output.ExpiresAt,
	}

	c.JSON(http.StatusCreated, response)
}
