package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"messaging-core/internal/capture"
	"messaging-core/internal/conversation"
	"messaging-core/internal/dispatch"
	"messaging-core/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ConversationHandler struct {
	DB            *gorm.DB
	Conversations *conversation.Manager
	Dispatcher    *dispatch.Dispatcher
	Composers     *capture.Registry
}

func NewConversationHandler(db *gorm.DB, convs *conversation.Manager, disp *dispatch.Dispatcher, composers *capture.Registry) *ConversationHandler {
	return &ConversationHandler{
		DB:            db,
		Conversations: convs,
		Dispatcher:    disp,
		Composers:     composers,
	}
}

func surfaceID(conversationID uint) string {
	return fmt.Sprintf("conv:%d", conversationID)
}

func (h *ConversationHandler) GetConversations(c *gin.Context) {
	accountID, err := strconv.ParseUint(c.Query("account_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id query param required"})
		return
	}

	convs, err := h.Conversations.List(uint(accountID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetMessages returns the full ordered message list. Clients poll this
// endpoint on a short interval instead of holding a push connection.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	msgs, err := h.Conversations.ListMessages(conv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	if err := h.Conversations.MarkRead(conv.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Conversation marked read"})
}

// SendMessage dispatches an outbound message on the conversation, consuming
// whatever the composer slot holds (file attachment or captured recording).
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var account models.Account
	if err := h.DB.First(&account, conv.AccountID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !account.Active {
		c.JSON(http.StatusConflict, gin.H{"error": "Account is deactivated"})
		return
	}

	out := dispatch.Outbound{Text: req.Text}
	if media := h.Composers.Get(surfaceID(conv.ID)).TakeMedia(); media != nil {
		out.Media = &dispatch.MediaPayload{
			Data:     media.Data,
			Ext:      media.Ext,
			Type:     media.Type,
			FileName: media.FileName,
		}
	}

	msg, err := h.Dispatcher.Send(c.Request.Context(), &account, conv, out)
	if err != nil {
		if msg != nil {
			// The message record carries the gateway's error text; surface
			// both so the failed bubble can render inline.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "message": msg})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msg)
}

// SetAttachment stores an uploaded file in the conversation's composer slot,
// displacing any recording.
func (h *ConversationHandler) SetAttachment(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	mediaType := c.PostForm("media_type")
	if mediaType == "" {
		mediaType = "document"
	}
	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")

	composer := h.Composers.Get(surfaceID(conv.ID))
	if err := composer.SetAttachment(data, ext, header.Filename, mediaType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Attachment staged", "size": len(data)})
}

func (h *ConversationHandler) StartRecording(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	if err := h.Composers.Get(surfaceID(conv.ID)).StartRecording(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Recording started"})
}

func (h *ConversationHandler) AppendRecording(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	chunk, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read audio chunk"})
		return
	}

	if err := h.Composers.Get(surfaceID(conv.ID)).AppendAudio(chunk); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Chunk appended"})
}

func (h *ConversationHandler) StopRecording(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	elapsed, err := h.Composers.Get(surfaceID(conv.ID)).StopRecording()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Recording stopped", "elapsed_seconds": int(elapsed.Seconds())})
}

func (h *ConversationHandler) DiscardComposer(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	h.Composers.Get(surfaceID(conv.ID)).Discard()
	c.JSON(http.StatusOK, gin.H{"status": "Composer cleared"})
}

func (h *ConversationHandler) GetComposer(c *gin.Context) {
	conv, ok := h.loadConversation(c)
	if !ok {
		return
	}

	composer := h.Composers.Get(surfaceID(conv.ID))
	media, staged := composer.Preview()
	resp := gin.H{"recording": composer.Recording(), "staged": staged}
	if staged {
		resp["type"] = media.Type
		resp["file_name"] = media.FileName
		resp["size"] = len(media.Data)
	}
	c.JSON(http.StatusOK, resp)
}

// ResolveAndSend is the dashboard convenience: resolve (or create) the
// conversation for an account+phone pair, then dispatch.
func (h *ConversationHandler) ResolveAndSend(c *gin.Context) {
	var req struct {
		AccountID   uint   `json:"account_id" binding:"required"`
		Phone       string `json:"phone" binding:"required"`
		ContactName string `json:"contact_name"`
		Text        string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var account models.Account
	if err := h.DB.First(&account, req.AccountID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if !account.Active {
		c.JSON(http.StatusConflict, gin.H{"error": "Account is deactivated"})
		return
	}

	conv, err := h.Conversations.Resolve(account.ID, req.Phone, req.ContactName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.Dispatcher.Send(c.Request.Context(), &account, conv, dispatch.Outbound{Text: req.Text})
	if err != nil {
		if msg != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "message": msg})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *ConversationHandler) loadConversation(c *gin.Context) (*models.Conversation, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return nil, false
	}

	var conv models.Conversation
	if err := h.DB.First(&conv, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return nil, false
	}
	return &conv, true
}
