// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gridworks/datahub/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Hierarchical authorization service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-account",
				Usage: "Create a service account bound to a principal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Human-readable account name",
					},
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Value:   "USER",
						Usage:   "Principal kind: USER, ROLE or ORGANIZATION",
					},
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Principal identifier within its kind",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateAccount(
						ctx,
						cmd.String("name"),
						cmd.String("kind"),
						cmd.String("id"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "clean-expired-tokens",
				Usage: "Delete authentication tokens past their expiration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpiredTokens(ctx, cmd.String("format"))
				},
			},
			{
				Name:  "verify-audit-logs",
				Usage: "Verify HMAC signatures of audit log entries",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "offset",
						Aliases: []string{"o"},
						Value:   0,
						Usage:   "Number of entries to skip",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   1000,
						Usage:   "Maximum number of entries to verify",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunVerifyAuditLogs(
						ctx,
						int(cmd.Int("offset")),
						int(cmd.Int("limit")),
						cmd.String("format"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
