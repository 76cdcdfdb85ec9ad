package api

import (
	"net/http"

	"messaging-core/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AccountHandler struct {
	DB *gorm.DB
}

func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{DB: db}
}

func (h *AccountHandler) GetAccounts(c *gin.Context) {
	var accounts []models.Account
	if err := h.DB.Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req struct {
		PhoneNumber   string `json:"phone_number" binding:"required"`
		DisplayName   string `json:"display_name"`
		PhoneNumberID string `json:"phone_number_id" binding:"required"`
		BusinessID    string `json:"business_id"`
		AccessToken   string `json:"access_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account := models.Account{
		PhoneNumber:   req.PhoneNumber,
		DisplayName:   req.DisplayName,
		PhoneNumberID: req.PhoneNumberID,
		BusinessID:    req.BusinessID,
		AccessToken:   req.AccessToken,
		Active:        true,
	}
	if err := h.DB.Create(&account).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

// UpdateAccount edits display data or toggles the active flag. Accounts are
// deactivated rather than deleted so conversation history stays attached.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var account models.Account
	if err := h.DB.First(&account, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	var req struct {
		DisplayName *string `json:"display_name"`
		AccessToken *string `json:"access_token"`
		BusinessID  *string `json:"business_id"`
		Active      *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DisplayName != nil {
		account.DisplayName = *req.DisplayName
	}
	if req.AccessToken != nil {
		account.AccessToken = *req.AccessToken
	}
	if req.BusinessID != nil {
		account.BusinessID = *req.BusinessID
	}
	if req.Active != nil {
		account.Active = *req.Active
	}

	if err := h.DB.Save(&account).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}
