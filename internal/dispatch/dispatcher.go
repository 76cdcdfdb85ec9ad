package dispatch

import (
	"context"
	"errors"
	"log"
	"strings"

	"messaging-core/internal/conversation"
	"messaging-core/internal/gateway"
	"messaging-core/internal/models"

	"gorm.io/gorm"
)

var ErrEmptyMessage = errors.New("message has neither content nor media")

// MediaStore is the slice of the media transfer unit the dispatcher needs.
type MediaStore interface {
	Store(data []byte, ext string) (string, error)
}

// MessageGateway sends one outbound message and returns the platform message
// id. Satisfied by *gateway.Client.
type MessageGateway interface {
	SendMessage(ctx context.Context, account *models.Account, out gateway.OutboundMessage) (string, error)
}

// MediaPayload is an attachment or captured recording ready for transfer.
type MediaPayload struct {
	Data     []byte
	Ext      string
	Type     string // image, video, audio, document
	FileName string
}

// Outbound is one send request against a conversation.
type Outbound struct {
	Text  string
	Media *MediaPayload
}

// Dispatcher drives the outbound send state machine. It only ever writes
// pending (on submission) and failed (on submission error); sent, delivered
// and read arrive later through gateway status callbacks.
type Dispatcher struct {
	DB            *gorm.DB
	Gateway       MessageGateway
	Media         MediaStore
	Conversations *conversation.Manager
}

func NewDispatcher(db *gorm.DB, gw MessageGateway, media MediaStore, convs *conversation.Manager) *Dispatcher {
	return &Dispatcher{DB: db, Gateway: gw, Media: media, Conversations: convs}
}

// Send persists a pending message, transfers media if present, and invokes
// the remote send. Failures are terminal for the message: it is marked
// failed with the gateway's error text and the caller composes a new send.
func (d *Dispatcher) Send(ctx context.Context, account *models.Account, conv *models.Conversation, out Outbound) (*models.Message, error) {
	if strings.TrimSpace(out.Text) == "" && out.Media == nil {
		return nil, ErrEmptyMessage
	}

	msgType := "text"
	if out.Media != nil {
		msgType = out.Media.Type
	}

	msg := models.Message{
		ConversationID: conv.ID,
		Direction:      "outbound",
		Type:           msgType,
		Content:        out.Text,
		Status:         models.StatusPending,
	}
	if err := d.DB.Create(&msg).Error; err != nil {
		return nil, err
	}

	if out.Media != nil {
		url, err := d.Media.Store(out.Media.Data, out.Media.Ext)
		if err != nil {
			d.fail(&msg, err.Error())
			return &msg, err
		}
		msg.MediaURL = url
		if err := d.DB.Save(&msg).Error; err != nil {
			return nil, err
		}
	}

	send := gateway.OutboundMessage{
		To:       conv.Phone,
		Type:     msgType,
		Text:     out.Text,
		MediaURL: msg.MediaURL,
	}
	if out.Media != nil {
		send.Caption = out.Text
		send.FileName = out.Media.FileName
	}

	gatewayID, err := d.Gateway.SendMessage(ctx, account, send)
	if err != nil {
		d.fail(&msg, err.Error())
		return &msg, err
	}

	msg.GatewayMessageID = gatewayID
	if err := d.DB.Save(&msg).Error; err != nil {
		return nil, err
	}

	preview := out.Text
	if preview == "" {
		preview = "[" + msgType + "]"
	}
	if err := d.Conversations.Touch(conv.ID, preview, false); err != nil {
		log.Printf("Error touching conversation %d: %v", conv.ID, err)
	}

	return &msg, nil
}

func (d *Dispatcher) fail(msg *models.Message, reason string) {
	msg.Status = models.StatusFailed
	msg.Error = reason
	if err := d.DB.Save(msg).Error; err != nil {
		log.Printf("Error marking message %d failed: %v", msg.ID, err)
	}
}

// ApplyStatus advances a message's delivery status from a gateway
// acknowledgment. Transitions are monotonic; regressions and unknown ids are
// ignored. Failure callbacks carry an error text that lands on the message so
// the failed bubble can show why delivery broke.
func (d *Dispatcher) ApplyStatus(gatewayMessageID, status, errorText string) error {
	if gatewayMessageID == "" {
		return nil
	}

	var msg models.Message
	err := d.DB.Where("gateway_message_id = ?", gatewayMessageID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if !models.StatusAdvances(msg.Status, status) {
		return nil
	}

	updates := map[string]interface{}{"status": status}
	if status == models.StatusFailed && errorText != "" {
		updates["error"] = errorText
	}
	return d.DB.Model(&msg).Updates(updates).Error
}
