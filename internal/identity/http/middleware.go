// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/gridworks/datahub/internal/errors"
	"github.com/gridworks/datahub/internal/httputil"
	identityService "github.com/gridworks/datahub/internal/identity/service"
	identityUseCase "github.com/gridworks/datahub/internal/identity/usecase"
)

// AuthenticationMiddleware authenticates requests via a Bearer token in the
// Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Hashes the token using tokenService.HashToken()
// 3. Resolves the token to its account using tokenUseCase.Authenticate()
// 4. Stores the authenticated account in the request context
// 5. Allows downstream handlers to access the account via GetAccount()
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Invalid/expired/revoked token → 401 Unauthorized (from TokenUseCase.Authenticate)
//   - Inactive account → 403 Forbidden (from TokenUseCase.Authenticate)
//   - Locked account → 423 Locked (from TokenUseCase.Authenticate)
func AuthenticationMiddleware(
	tokenUseCase identityUseCase.TokenUseCase,
	tokenService identityService.TokenService,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := authHeader[len(bearerPrefix):]
		if plainToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		tokenHash := tokenService.HashToken(plainToken)

		account, err := tokenUseCase.Authenticate(c.Request.Context(), tokenHash)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithAccount(c.Request.Context(), account)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("account_id", account.ID.String()),
			slog.String("principal", account.Principal.String()))

		c.Next()
	}
}
