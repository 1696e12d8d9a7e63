package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ruledomain "github.com/jadiazinf/condominio-core/internal/generationrule/domain"
)

func (s *Server) CreateGenerationRule(c *gin.Context) {
	var req ruledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.ruleSvc.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, &rule.CondominiumID, "generation_rule.create", "quota_generation_rule", rule.ID.String(), map[string]any{
		"name":               rule.Name,
		"payment_concept_id": rule.PaymentConceptID.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) GetGenerationRule(c *gin.Context) {
	rule, err := s.ruleSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) ListGenerationRules(c *gin.Context) {
	condominiumID := strings.TrimSpace(c.Query("condominium_id"))
	if condominiumID == "" {
		AbortWithError(c, newValidationError("condominium_id", "required", "condominium_id is required"))
		return
	}
	includeInactive := c.Query("include_inactive") == "true"

	rules, err := s.ruleSvc.ListByCondominium(c.Request.Context(), condominiumID, includeInactive)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (s *Server) DeactivateGenerationRule(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.ruleSvc.Deactivate(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Reason), actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, &rule.CondominiumID, "generation_rule.deactivate", "quota_generation_rule", rule.ID.String(), map[string]any{
		"reason": req.Reason,
	})

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) ResolveGenerationRule(c *gin.Context) {
	var req ruledomain.ResolveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.ruleSvc.Resolve(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rule})
}
