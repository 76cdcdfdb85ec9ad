package models

import (
	"time"
)

// Message delivery statuses. Transitions advance rank-wise only; failed is terminal.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Template approval statuses as tracked locally.
const (
	TemplateDraft    = "draft"
	TemplatePending  = "pending"
	TemplateApproved = "approved"
	TemplateRejected = "rejected"
	TemplateFailed   = "failed"
)

// Account represents one messaging identity on the remote platform.
// Accounts are deactivated rather than deleted so history stays attached.
type Account struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber   string    `gorm:"type:varchar(50);not null" json:"phone_number"`
	DisplayName   string    `gorm:"type:varchar(255)" json:"display_name"`
	PhoneNumberID string    `gorm:"type:varchar(255);not null" json:"phone_number_id"`
	BusinessID    string    `gorm:"type:varchar(255)" json:"business_id"`
	AccessToken   string    `gorm:"type:text" json:"-"`
	Active        bool      `gorm:"default:true" json:"active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// Conversation is the thread between one Account and one counterparty phone.
// At most one row exists per (account_id, phone) pair.
type Conversation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   uint      `gorm:"index:idx_account_phone,unique;not null" json:"account_id"`
	Phone       string    `gorm:"index:idx_account_phone,unique;type:varchar(50);not null" json:"phone"`
	ContactName string    `gorm:"type:varchar(255)" json:"contact_name"`
	LastMessage string    `gorm:"type:text" json:"last_message"`
	LastAt      time.Time `json:"last_at"`
	Unread      int       `gorm:"default:0" json:"unread"`
	Status      string    `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message belongs to exactly one Conversation. Rows are never deleted; the
// only mutation is advancing the delivery status.
type Message struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ConversationID   uint      `gorm:"index;not null" json:"conversation_id"`
	Direction        string    `gorm:"type:varchar(10);not null" json:"direction"` // inbound, outbound
	Type             string    `gorm:"type:varchar(20)" json:"type"`               // text, image, video, audio, document
	Content          string    `gorm:"type:text" json:"content"`
	MediaURL         string    `gorm:"type:text" json:"media_url"`
	Status           string    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Error            string    `gorm:"type:text" json:"error,omitempty"`
	GatewayMessageID string    `gorm:"type:varchar(255);index" json:"gateway_message_id,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Template is a reusable message structure submitted for platform approval.
// Components holds the stored definition as JSON, in either the ordered-list
// or the keyed-object legacy shape.
type Template struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Language       string    `gorm:"type:varchar(50)" json:"language"`
	Category       string    `gorm:"type:varchar(100)" json:"category"`
	Components     string    `gorm:"type:text" json:"components"`
	HeaderMediaURL string    `gorm:"type:text" json:"header_media_url"`
	RemoteID       string    `gorm:"type:varchar(255)" json:"remote_id"`
	Status         string    `gorm:"type:varchar(20);default:'draft'" json:"status"`
	RejectedReason string    `gorm:"type:text" json:"rejected_reason,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// KnowledgeEntry feeds the messaging assistant with canned answers.
type KnowledgeEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Category  string    `gorm:"type:varchar(100)" json:"category"`
	Keywords  string    `gorm:"type:text" json:"keywords"` // Comma separated
	UseCount  int       `gorm:"default:0" json:"use_count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}

var statusRank = map[string]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// StatusAdvances reports whether moving from to next is a forward transition.
// failed is accepted from any non-terminal state and never left again.
func StatusAdvances(current, next string) bool {
	if current == StatusFailed || current == next {
		return false
	}
	if next == StatusFailed {
		return current != StatusRead
	}
	cur, ok := statusRank[current]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}
