// Package http provides HTTP handlers for audit log inspection.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/gridworks/datahub/internal/audit/domain"
	auditUseCase "github.com/gridworks/datahub/internal/audit/usecase"
	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// AuditLogItem is the wire form of one audit entry. The signature itself is
// not exposed; verification happens through the verify command.
type AuditLogItem struct {
	ID        uuid.UUID             `json:"id"`
	RequestID uuid.UUID             `json:"requestId"`
	Actor     authzDomain.Principal `json:"actor"`
	EventType string                `json:"eventType"`
	AclKey    string                `json:"aclKey"`
	Metadata  map[string]any        `json:"metadata,omitempty"`
	IsSigned  bool                  `json:"isSigned"`
	CreatedAt time.Time             `json:"createdAt"`
}

func newAuditLogItems(logs []*auditDomain.AuditLog) []AuditLogItem {
	items := make([]AuditLogItem, 0, len(logs))
	for _, log := range logs {
		items = append(items, AuditLogItem{
			ID:        log.ID,
			RequestID: log.RequestID,
			Actor:     log.Actor,
			EventType: log.EventType,
			AclKey:    log.AclKey,
			Metadata:  log.Metadata,
			IsSigned:  log.IsSigned,
			CreatedAt: log.CreatedAt,
		})
	}
	return items
}

// ListHandler retrieves audit logs newest first with pagination and optional
// inclusive RFC3339 time bounds.
// GET /v1/audit-logs?offset=&limit=&created_at_from=&created_at_to=
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var createdAtFrom *time.Time
	if fromStr := c.Query("created_at_from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid created_at_from format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)"),
				h.logger)
			return
		}
		utcTime := parsed.UTC()
		createdAtFrom = &utcTime
	}

	var createdAtTo *time.Time
	if toStr := c.Query("created_at_to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid created_at_to format: must be RFC3339 (e.g., 2026-02-14T23:59:59Z)"),
				h.logger)
			return
		}
		utcTime := parsed.UTC()
		createdAtTo = &utcTime
	}

	if createdAtFrom != nil && createdAtTo != nil && createdAtFrom.After(*createdAtTo) {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("created_at_from must be before or equal to created_at_to"),
			h.logger)
		return
	}

	auditLogs, err := h.auditLogUseCase.List(c.Request.Context(), offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auditLogs": newAuditLogItems(auditLogs),
		"offset":    offset,
		"limit":     limit,
	})
}
