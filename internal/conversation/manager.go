package conversation

import (
	"strings"
	"time"

	"messaging-core/internal/models"

	"gorm.io/gorm"
)

// Manager owns the account → conversation → message hierarchy.
type Manager struct {
	DB *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{DB: db}
}

// NormalizePhone strips formatting punctuation so differently formatted input
// for the same counterparty keys the same conversation. A leading plus is
// preserved; everything else non-digit is dropped.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve looks up the conversation for (account, phone), creating it lazily
// on first contact. The unique index on the pair backs the at-most-one
// invariant.
func (m *Manager) Resolve(accountID uint, phone, contactName string) (*models.Conversation, error) {
	key := NormalizePhone(phone)

	var conv models.Conversation
	err := m.DB.Where("account_id = ? AND phone = ?", accountID, key).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	conv = models.Conversation{
		AccountID:   accountID,
		Phone:       key,
		ContactName: contactName,
		Status:      "active",
		Unread:      0,
		LastAt:      time.Now(),
	}
	if err := m.DB.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns an account's conversations, most recently active first.
func (m *Manager) List(accountID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := m.DB.Where("account_id = ?", accountID).
		Order("last_at DESC").
		Find(&convs).Error
	return convs, err
}

// ListMessages returns the conversation's messages ordered by creation time
// ascending. Finite and restartable: callers re-fetch rather than stream.
func (m *Manager) ListMessages(conversationID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := m.DB.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkRead resets the unread counter. Never goes negative by construction.
func (m *Manager) MarkRead(conversationID uint) error {
	return m.DB.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("unread", 0).Error
}

// Touch records the latest message preview and timestamp on the
// conversation, bumping the unread counter for inbound traffic.
func (m *Manager) Touch(conversationID uint, preview string, inbound bool) error {
	updates := map[string]interface{}{
		"last_message": preview,
		"last_at":      time.Now(),
	}
	if inbound {
		updates["unread"] = gorm.Expr("unread + 1")
	}
	return m.DB.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error
}
