package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/gridworks/datahub/internal/app"
	auditUseCase "github.com/gridworks/datahub/internal/audit/usecase"
	"github.com/gridworks/datahub/internal/config"
)

// RunVerifyAuditLogs verifies the HMAC signatures of a page of audit log
// entries for tamper detection.
//
// Requirements: Database must be migrated and AUDIT_SIGNING_SECRET configured.
func RunVerifyAuditLogs(ctx context.Context, offset, limit int, format string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	return verifyAuditLogs(ctx, auditLogUseCase, logger, DefaultIO().Writer, offset, limit, format)
}

// verifyAuditLogs performs the verification with injected dependencies.
func verifyAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	offset, limit int,
	format string,
) error {
	if offset < 0 || limit <= 0 {
		return fmt.Errorf("offset must be non-negative and limit positive, got offset=%d limit=%d", offset, limit)
	}

	logger.Info("verifying audit log signatures",
		slog.Int("offset", offset),
		slog.Int("limit", limit),
	)

	result, err := auditLogUseCase.VerifySignatures(ctx, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to verify audit logs: %w", err)
	}

	if format == "json" {
		if err := outputVerifyJSON(writer, result); err != nil {
			return err
		}
	} else {
		outputVerifyText(writer, result)
	}

	logger.Info("verification completed",
		slog.Int("verified", result.Verified),
		slog.Int("unsigned", result.Unsigned),
		slog.Int("invalid", len(result.Invalid)),
	)

	if len(result.Invalid) > 0 {
		return fmt.Errorf("integrity check failed: %d invalid signature(s)", len(result.Invalid))
	}

	return nil
}

// outputVerifyText outputs the verification result in human-readable text format.
func outputVerifyText(writer io.Writer, result *auditUseCase.VerificationResult) {
	_, _ = fmt.Fprintln(writer, "Audit Log Integrity Verification")
	_, _ = fmt.Fprintln(writer, "=================================")
	_, _ = fmt.Fprintf(writer, "Verified: %d\n", result.Verified)
	_, _ = fmt.Fprintf(writer, "Unsigned: %d\n", result.Unsigned)
	_, _ = fmt.Fprintf(writer, "Invalid:  %d\n\n", len(result.Invalid))

	switch {
	case len(result.Invalid) > 0:
		_, _ = fmt.Fprintf(writer, "WARNING: %d entry(ies) failed the integrity check!\n\n", len(result.Invalid))
		_, _ = fmt.Fprintln(writer, "Invalid entry IDs:")
		for _, id := range result.Invalid {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintln(writer, "\nStatus: FAILED")
	case result.Verified == 0 && result.Unsigned == 0:
		_, _ = fmt.Fprintln(writer, "Status: No entries found in the requested page")
	default:
		_, _ = fmt.Fprintln(writer, "Status: PASSED")
	}
}

// outputVerifyJSON outputs the verification result in JSON format for machine consumption.
func outputVerifyJSON(writer io.Writer, result *auditUseCase.VerificationResult) error {
	out := map[string]interface{}{
		"verified": result.Verified,
		"unsigned": result.Unsigned,
		"invalid":  result.Invalid,
		"passed":   len(result.Invalid) == 0,
	}

	jsonBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
