package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/gridworks/datahub/internal/app"
	"github.com/gridworks/datahub/internal/config"
	identityUseCase "github.com/gridworks/datahub/internal/identity/usecase"
)

// RunCleanExpiredTokens deletes authentication tokens past their expiration.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(ctx context.Context, format string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	tokenUseCase, err := container.TokenUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize token use case: %w", err)
	}

	return cleanExpiredTokens(ctx, tokenUseCase, logger, format, DefaultIO().Writer)
}

// cleanExpiredTokens performs the cleanup with injected dependencies.
func cleanExpiredTokens(
	ctx context.Context,
	tokenUseCase identityUseCase.TokenUseCase,
	logger *slog.Logger,
	format string,
	writer io.Writer,
) error {
	logger.Info("cleaning expired tokens")

	count, err := tokenUseCase.CleanExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean expired tokens: %w", err)
	}

	if format == "json" {
		result := map[string]interface{}{
			"count": count,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired token(s)\n", count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}
