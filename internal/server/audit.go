package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/jadiazinf/condominio-core/internal/audit/domain"
	"gorm.io/datatypes"
)

func (s *Server) recordAudit(c *gin.Context, condominiumID *snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		CondominiumID: condominiumID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
		Metadata:      datatypes.JSONMap(metadata),
	})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	filter := auditdomain.ListFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
		ActorType:  strings.TrimSpace(c.Query("actor_type")),
	}
	if raw := strings.TrimSpace(c.Query("condominium_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("condominium_id", "invalid", "invalid condominium id"))
			return
		}
		filter.CondominiumID = id
	}
	if raw := strings.TrimSpace(c.Query("start_at")); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("start_at", "invalid", "start_at must be RFC3339"))
			return
		}
		filter.StartAt = &at
	}
	if raw := strings.TrimSpace(c.Query("end_at")); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("end_at", "invalid", "end_at must be RFC3339"))
			return
		}
		filter.EndAt = &at
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("limit", "invalid", "limit must be an integer"))
			return
		}
		filter.Limit = limit
	}

	entries, err := s.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
