package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gridworks/datahub/internal/app"
	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/config"
	identityUseCase "github.com/gridworks/datahub/internal/identity/usecase"
)

// RunCreateAccount creates a new service account bound to a principal and
// prints the generated secret. The secret is shown only once.
//
// Requirements: Database must be migrated and accessible.
func RunCreateAccount(ctx context.Context, name, kind, id, format string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	accountUseCase, err := container.AccountUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize account use case: %w", err)
	}

	return createAccount(ctx, accountUseCase, logger, name, kind, id, format, DefaultIO())
}

// createAccount performs the account creation with injected dependencies.
func createAccount(
	ctx context.Context,
	accountUseCase identityUseCase.AccountUseCase,
	logger *slog.Logger,
	name, kind, id, format string,
	io IOTuple,
) error {
	principal, err := authzDomain.NewPrincipal(
		authzDomain.PrincipalKind(strings.ToUpper(strings.TrimSpace(kind))),
		strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("invalid principal: %w", err)
	}

	logger.Info("creating new account",
		slog.String("name", name),
		slog.String("principal", principal.String()),
	)

	account, plainSecret, err := accountUseCase.CreateAccount(ctx, name, principal)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if format == "json" {
		result := map[string]string{
			"account_id": account.ID.String(),
			"name":       account.Name,
			"principal":  account.Principal.String(),
			"secret":     plainSecret,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(io.Writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintln(io.Writer, "\nAccount created successfully!")
		_, _ = fmt.Fprintf(io.Writer, "Account ID: %s\n", account.ID.String())
		_, _ = fmt.Fprintf(io.Writer, "Name: %s\n", account.Name)
		_, _ = fmt.Fprintf(io.Writer, "Principal: %s\n", account.Principal.String())
		_, _ = fmt.Fprintf(io.Writer, "Secret: %s\n", plainSecret)
		_, _ = fmt.Fprintln(io.Writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
	}

	logger.Info("account created successfully",
		slog.String("account_id", account.ID.String()),
		slog.String("name", account.Name),
	)

	return nil
}
