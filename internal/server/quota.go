package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	quotadomain "github.com/jadiazinf/condominio-core/internal/quota/domain"
)

type adjustQuotaRequest struct {
	NewAmount      string `json:"new_amount"`
	AdjustmentType string `json:"adjustment_type"`
	Reason         string `json:"reason"`
}

func (s *Server) AdjustQuota(c *gin.Context) {
	var req adjustQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.quotaSvc.Adjust(c.Request.Context(), quotadomain.AdjustRequest{
		QuotaID:        c.Param("id"),
		NewAmount:      strings.TrimSpace(req.NewAmount),
		AdjustmentType: quotadomain.AdjustmentType(strings.TrimSpace(req.AdjustmentType)),
		Reason:         req.Reason,
	}, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, nil, "quota.adjust", "quota", result.Quota.ID.String(), map[string]any{
		"adjustment_id":   result.Adjustment.ID.String(),
		"adjustment_type": string(result.Adjustment.AdjustmentType),
		"previous_amount": result.Adjustment.PreviousAmount.StringFixed(2),
		"new_amount":      result.Adjustment.NewAmount.StringFixed(2),
	})

	c.JSON(http.StatusOK, gin.H{
		"data":    result,
		"message": result.Message,
	})
}

func (s *Server) GetQuota(c *gin.Context) {
	quota, err := s.quotaSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quota})
}

// ListQuotas filters by unit or by billing period.
func (s *Server) ListQuotas(c *gin.Context) {
	if unitID := strings.TrimSpace(c.Query("unit_id")); unitID != "" {
		quotas, err := s.quotaSvc.ListByUnit(c.Request.Context(), unitID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": quotas})
		return
	}

	year, errYear := strconv.Atoi(strings.TrimSpace(c.Query("period_year")))
	month, errMonth := strconv.Atoi(strings.TrimSpace(c.Query("period_month")))
	if errYear != nil || errMonth != nil {
		AbortWithError(c, newValidationError("period", "required", "unit_id or period_year and period_month are required"))
		return
	}

	quotas, err := s.quotaSvc.ListByPeriod(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quotas})
}

func (s *Server) MarkQuotasOverdue(c *gin.Context) {
	marked, err := s.quotaSvc.MarkOverdue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"marked": marked}})
}

func (s *Server) GetAdjustment(c *gin.Context) {
	adjustment, err := s.quotaSvc.GetAdjustmentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": adjustment})
}

func (s *Server) ListAdjustmentsByQuota(c *gin.Context) {
	adjustments, err := s.quotaSvc.ListAdjustmentsByQuota(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": adjustments})
}

func (s *Server) ListAdjustmentsByUser(c *gin.Context) {
	adjustments, err := s.quotaSvc.ListAdjustmentsByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": adjustments})
}

func (s *Server) ListAdjustmentsByType(c *gin.Context) {
	adjustmentType := quotadomain.AdjustmentType(strings.TrimSpace(c.Param("type")))
	adjustments, err := s.quotaSvc.ListAdjustmentsByType(c.Request.Context(), adjustmentType)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": adjustments})
}
