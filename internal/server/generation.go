package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	generationdomain "github.com/jadiazinf/condominio-core/internal/generation/domain"
)

func (s *Server) CreateGenerationSchedule(c *gin.Context) {
	var req generationdomain.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.generationSvc.CreateSchedule(c.Request.Context(), req, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, nil, "generation_schedule.create", "quota_generation_schedule", schedule.ID.String(), map[string]any{
		"rule_id":        schedule.QuotaGenerationRuleID.String(),
		"frequency_type": schedule.FrequencyType,
	})

	c.JSON(http.StatusOK, gin.H{"data": schedule})
}

func (s *Server) GetGenerationSchedule(c *gin.Context) {
	schedule, err := s.generationSvc.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": schedule})
}

func (s *Server) ListSchedulesByRule(c *gin.Context) {
	schedules, err := s.generationSvc.ListSchedulesByRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": schedules})
}

// RunGeneration triggers one manual generation run for a schedule and
// period.
func (s *Server) RunGeneration(c *gin.Context) {
	var req generationdomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Method = generationdomain.MethodManual

	result, err := s.generationSvc.Generate(c.Request.Context(), req, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, nil, "quota_generation.run", "generation_log", result.LogID.String(), map[string]any{
		"schedule_id":    req.ScheduleID,
		"quotas_created": result.QuotasCreated,
		"quotas_failed":  result.QuotasFailed,
	})

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListGenerationLogsBySchedule(c *gin.Context) {
	logs, err := s.generationSvc.ListLogsBySchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) ListGenerationLogsByRule(c *gin.Context) {
	logs, err := s.generationSvc.ListLogsByRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
