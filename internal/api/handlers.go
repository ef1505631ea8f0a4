package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/internal/middleware"
)

type symptomsRequest struct {
	Symptoms []string `json:"symptoms" binding:"required"`
}

type symptomRequest struct {
	Name string `json:"name" binding:"required"`
}

type renameRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Status())
}

func (s *Server) handleReload(c *gin.Context) {
	status, err := s.service.Reload(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// handleValidate checks a candidate document in the request body without
// loading it. ?format=yaml selects YAML.
func (s *Server) handleValidate(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 10<<20))
	if err != nil {
		s.respondError(c, err)
		return
	}

	format := knowledge.FormatJSON
	if f := c.Query("format"); f == "yaml" || f == "yml" {
		format = knowledge.FormatYAML
	}

	report, err := s.service.Validate(data, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.NewServiceError(
			domain.ErrMalformedSource, "document could not be parsed", err.Error(), c.GetString(middleware.CorrelationIDKey)))
		return
	}

	code := http.StatusOK
	if !report.Valid {
		code = http.StatusUnprocessableEntity
	}
	c.JSON(code, report)
}

func (s *Server) handleDiagnose(c *gin.Context) {
	var req symptomsRequest
	if !s.bind(c, &req) {
		return
	}

	d, err := s.service.Diagnose(c.Request.Context(), req.Symptoms)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleConditions(c *gin.Context) {
	var req symptomsRequest
	if !s.bind(c, &req) {
		return
	}

	matches, err := s.service.RankConditions(c.Request.Context(), req.Symptoms)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conditions": matches})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	summary, err := s.service.RecentSearches(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleListSymptoms lists referenced symptoms; ?registered=true lists the
// managed registry instead.
func (s *Server) handleListSymptoms(c *gin.Context) {
	list := s.service.Symptoms
	if c.Query("registered") == "true" {
		list = s.service.RegisteredSymptoms
	}

	symptoms, err := list(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symptoms": symptoms})
}

func (s *Server) handleAddSymptom(c *gin.Context) {
	var req symptomRequest
	if !s.bind(c, &req) {
		return
	}

	added, err := s.service.AddSymptom(c.Request.Context(), req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}

	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	c.JSON(code, gin.H{"name": req.Name, "added": added})
}

func (s *Server) handleRenameSymptom(c *gin.Context) {
	var req renameRequest
	if !s.bind(c, &req) {
		return
	}

	changed, err := s.service.RenameSymptom(c.Request.Context(), c.Param("name"), req.NewName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"old_name": c.Param("name"), "new_name": req.NewName, "changed": changed})
}

func (s *Server) handleDeleteSymptom(c *gin.Context) {
	if err := s.service.DeleteSymptom(c.Request.Context(), c.Param("name")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleListDiseases lists diseases, filtered by ?name= and ?symptom=.
func (s *Server) handleListDiseases(c *gin.Context) {
	diseases, err := s.service.SearchDiseases(c.Request.Context(), c.Query("name"), c.Query("symptom"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diseases": diseases})
}

func (s *Server) handleGetDisease(c *gin.Context) {
	d, err := s.service.Disease(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleAddDisease(c *gin.Context) {
	var in knowledge.DiseaseInput
	if !s.bind(c, &in) {
		return
	}

	d, err := s.service.AddDisease(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) handleUpdateDisease(c *gin.Context) {
	var in knowledge.DiseaseInput
	if !s.bind(c, &in) {
		return
	}

	d, err := s.service.UpdateDisease(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleDeleteDisease(c *gin.Context) {
	if err := s.service.DeleteDisease(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListRules(c *gin.Context) {
	rules, err := s.service.Rules(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) handleGetRule(c *gin.Context) {
	r, err := s.service.Rule(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleAddRule(c *gin.Context) {
	var in knowledge.RuleInput
	if !s.bind(c, &in) {
		return
	}

	r, err := s.service.AddRule(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) handleUpdateRule(c *gin.Context) {
	var in knowledge.RuleInput
	if !s.bind(c, &in) {
		return
	}

	r, err := s.service.UpdateRule(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleDeleteRule(c *gin.Context) {
	if err := s.service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
