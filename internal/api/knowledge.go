package api

import (
	"net/http"
	"strings"

	"messaging-core/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type KnowledgeHandler struct {
	DB *gorm.DB
}

func NewKnowledgeHandler(db *gorm.DB) *KnowledgeHandler {
	return &KnowledgeHandler{DB: db}
}

// GetEntries lists knowledge entries, optionally filtered by a keyword query
// matched against question and keywords.
func (h *KnowledgeHandler) GetEntries(c *gin.Context) {
	query := h.DB.Model(&models.KnowledgeEntry{})

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(question) LIKE ? OR LOWER(keywords) LIKE ?", like, like)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var entries []models.KnowledgeEntry
	if err := query.Order("use_count DESC").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *KnowledgeHandler) CreateEntry(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
		Answer   string `json:"answer" binding:"required"`
		Category string `json:"category"`
		Keywords string `json:"keywords"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := models.KnowledgeEntry{
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
		Keywords: req.Keywords,
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UseEntry bumps the usage counter when an answer is picked for a reply.
func (h *KnowledgeHandler) UseEntry(c *gin.Context) {
	result := h.DB.Model(&models.KnowledgeEntry{}).
		Where("id = ?", c.Param("id")).
		Update("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Usage recorded"})
}
