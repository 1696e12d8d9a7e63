package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	formuladomain "github.com/jadiazinf/condominio-core/internal/formula/domain"
)

func (s *Server) CreateFormula(c *gin.Context) {
	var req formuladomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	formula, err := s.formulaSvc.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, &formula.CondominiumID, "formula.create", "quota_formula", formula.ID.String(), map[string]any{
		"name":         formula.Name,
		"formula_type": string(formula.FormulaType),
	})

	c.JSON(http.StatusOK, gin.H{"data": formula})
}

func (s *Server) UpdateFormula(c *gin.Context) {
	var req formuladomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	formula, err := s.formulaSvc.Update(c.Request.Context(), req, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, &formula.CondominiumID, "formula.update", "quota_formula", formula.ID.String(), map[string]any{
		"update_reason": req.UpdateReason,
	})

	c.JSON(http.StatusOK, gin.H{"data": formula})
}

func (s *Server) GetFormula(c *gin.Context) {
	formula, err := s.formulaSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": formula})
}

func (s *Server) ListFormulas(c *gin.Context) {
	condominiumID := strings.TrimSpace(c.Query("condominium_id"))
	if condominiumID == "" {
		AbortWithError(c, newValidationError("condominium_id", "required", "condominium_id is required"))
		return
	}
	includeInactive := c.Query("include_inactive") == "true"

	formulas, err := s.formulaSvc.ListByCondominium(c.Request.Context(), condominiumID, includeInactive)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": formulas})
}

func (s *Server) EvaluateFormula(c *gin.Context) {
	var req formuladomain.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	evaluation, err := s.formulaSvc.Evaluate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": evaluation})
}
