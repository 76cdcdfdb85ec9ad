package api

import (
	"errors"
	"net/http"

	"messaging-core/internal/models"
	"messaging-core/internal/template"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TemplateHandler struct {
	DB        *gorm.DB
	Submitter *template.Submitter
}

func NewTemplateHandler(db *gorm.DB, submitter *template.Submitter) *TemplateHandler {
	return &TemplateHandler{DB: db, Submitter: submitter}
}

func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	var templates []models.Template
	if err := h.DB.Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, templates)
}

// CreateTemplate stores a local draft. The component definition is kept in
// whichever legacy shape the caller sends; the compiler normalizes on
// submission.
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req struct {
		Name           string `json:"name" binding:"required"`
		Language       string `json:"language" binding:"required"`
		Category       string `json:"category"`
		Components     string `json:"components" binding:"required"`
		HeaderMediaURL string `json:"header_media_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := template.ParseDefinition(req.Components); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl := models.Template{
		Name:           req.Name,
		Language:       req.Language,
		Category:       req.Category,
		Components:     req.Components,
		HeaderMediaURL: req.HeaderMediaURL,
		Status:         models.TemplateDraft,
	}
	if err := h.DB.Create(&tpl).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// SubmitTemplate compiles a draft and submits it for platform approval.
// Validation defects come back as 400 naming the offending component;
// gateway rejections as 502 with the template left in failed status.
func (h *TemplateHandler) SubmitTemplate(c *gin.Context) {
	var req struct {
		AccountID uint `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tpl models.Template
	if err := h.DB.First(&tpl, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	result, err := h.Submitter.Submit(c.Request.Context(), req.AccountID, tpl.ID)
	if err != nil {
		var valErr *template.ValidationError
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error(), "component": valErr.Component})
			return
		}
		if result != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "template": result})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncTemplates triggers an immediate status refresh instead of waiting for
// the next poll tick.
func (h *TemplateHandler) SyncTemplates(c *gin.Context) {
	if err := h.Submitter.SyncStatuses(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Templates synced"})
}
