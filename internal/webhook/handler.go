package webhook

import (
	"log"
	"net/http"
	"time"

	"messaging-core/internal/config"
	"messaging-core/internal/conversation"
	"messaging-core/internal/dispatch"
	appmodels "messaging-core/internal/models"
	"messaging-core/pkg/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dedupTTL = 24 * time.Hour

type Handler struct {
	Config        *config.Config
	DB            *gorm.DB
	Conversations *conversation.Manager
	Dispatcher    *dispatch.Dispatcher
	Dedup         Deduper // nil when no cache is configured
}

func NewHandler(cfg *config.Config, db *gorm.DB, convs *conversation.Manager, disp *dispatch.Dispatcher, dedup Deduper) *Handler {
	return &Handler{
		Config:        cfg,
		DB:            db,
		Conversations: convs,
		Dispatcher:    disp,
		Dedup:         dedup,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			log.Println("Webhook verified successfully!")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

func (h *Handler) HandleEvent(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Error binding JSON: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			account, err := h.accountFor(value.Metadata.PhoneNumberID)
			if err != nil {
				log.Printf("No account for phone number id %s: %v", value.Metadata.PhoneNumberID, err)
				continue
			}

			contactName := ""
			if len(value.Contacts) > 0 {
				contactName = value.Contacts[0].Profile.Name
			}

			for _, message := range value.Messages {
				h.handleInbound(c, account, contactName, message)
			}

			for _, status := range value.Statuses {
				next := status.Status
				errorText := ""
				if next == appmodels.StatusFailed && len(status.Errors) > 0 {
					errorText = status.Errors[0].Title
					log.Printf("Delivery failure for %s: %s", status.ID, errorText)
				}
				if err := h.Dispatcher.ApplyStatus(status.ID, next, errorText); err != nil {
					log.Printf("Error applying status %s to %s: %v", next, status.ID, err)
				}
			}
		}
	}

	c.Status(http.StatusOK)
}

type inboundMessage = struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *models.MediaMessage `json:"image,omitempty"`
	Video    *models.MediaMessage `json:"video,omitempty"`
	Audio    *models.MediaMessage `json:"audio,omitempty"`
	Document *models.MediaMessage `json:"document,omitempty"`
	Type     string               `json:"type"`
}

func (h *Handler) handleInbound(c *gin.Context, account *appmodels.Account, contactName string, message inboundMessage) {
	ctx := c.Request.Context()

	if h.Dedup != nil {
		isDup, err := h.Dedup.IsDuplicate(ctx, message.ID)
		if err != nil {
			log.Printf("Dedup check failed for %s: %v", message.ID, err)
		} else if isDup {
			log.Printf("Duplicate webhook event %s, skipping", message.ID)
			return
		}
	}

	var content string
	switch message.Type {
	case "text":
		content = message.Text.Body
	case "image":
		if message.Image != nil {
			content = "[image]:" + message.Image.ID
			if message.Image.Caption != "" {
				content += ":" + message.Image.Caption
			}
		}
	case "video":
		if message.Video != nil {
			content = "[video]:" + message.Video.ID
			if message.Video.Caption != "" {
				content += ":" + message.Video.Caption
			}
		}
	case "audio":
		if message.Audio != nil {
			content = "[audio]:" + message.Audio.ID
		}
	case "document":
		if message.Document != nil {
			content = "[document]:" + message.Document.ID
			if message.Document.Filename != "" {
				content += ":" + message.Document.Filename
			}
		}
	default:
		content = "[" + message.Type + "]"
	}
	log.Printf("Received %s message from %s", message.Type, message.From)

	conv, err := h.Conversations.Resolve(account.ID, message.From, contactName)
	if err != nil {
		log.Printf("Error resolving conversation for %s: %v", message.From, err)
		return
	}

	msg := appmodels.Message{
		ConversationID:   conv.ID,
		Direction:        "inbound",
		Type:             message.Type,
		Content:          content,
		Status:           appmodels.StatusDelivered,
		GatewayMessageID: message.ID,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		log.Printf("Error saving inbound message: %v", err)
		return
	}

	if err := h.Conversations.Touch(conv.ID, content, true); err != nil {
		log.Printf("Error touching conversation %d: %v", conv.ID, err)
	}

	if h.Dedup != nil {
		if err := h.Dedup.MarkProcessed(ctx, message.ID, dedupTTL); err != nil {
			log.Printf("Error marking %s processed: %v", message.ID, err)
		}
	}
}

func (h *Handler) accountFor(phoneNumberID string) (*appmodels.Account, error) {
	var account appmodels.Account
	err := h.DB.Where("phone_number_id = ? AND active = ?", phoneNumberID, true).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
