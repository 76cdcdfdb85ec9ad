package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"messaging-core/internal/models"
)

// Client talks to the Graph-style messaging platform. Credentials are
// per-Account; only the endpoint root is shared so tests can point it at a
// local server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{},
	}
}

// SendError carries the remote platform's error text verbatim; it ends up in
// the failed message's error field.
type SendError struct {
	Remote string
}

func (e *SendError) Error() string {
	return "gateway send failed: " + e.Remote
}

// --- Message structures ---

type GenericMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *TextObj  `json:"text,omitempty"`
	Image            *MediaObj `json:"image,omitempty"`
	Video            *MediaObj `json:"video,omitempty"`
	Audio            *MediaObj `json:"audio,omitempty"`
	Document         *MediaObj `json:"document,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // For documents
}

// OutboundMessage is the dispatcher-facing send request.
type OutboundMessage struct {
	To       string
	Type     string // text, image, video, audio, document
	Text     string
	MediaURL string
	Caption  string
	FileName string
}

// --- Template structures ---

type TemplateSubmission struct {
	Name       string              `json:"name"`
	Language   string              `json:"language"`
	Category   string              `json:"category"`
	Components []TemplateComponent `json:"components"`
}

type TemplateComponent struct {
	Type    string           `json:"type"`
	Format  string           `json:"format,omitempty"`
	Text    string           `json:"text,omitempty"`
	Example *ComponentExample `json:"example,omitempty"`
	Buttons []TemplateButton `json:"buttons,omitempty"`
}

type ComponentExample struct {
	HeaderText   []string   `json:"header_text,omitempty"`
	HeaderHandle []string   `json:"header_handle,omitempty"`
	BodyText     [][]string `json:"body_text,omitempty"`
}

type TemplateButton struct {
	Type        string `json:"type"` // URL, PHONE_NUMBER, QUICK_REPLY
	Text        string `json:"text"`
	URL         string `json:"url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// RemoteTemplate is one entry of the platform's template listing.
type RemoteTemplate struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	RejectedReason string `json:"rejected_reason,omitempty"`
}

// --- Helpers ---

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// remoteErrorText extracts the structured Graph error message if present,
// otherwise returns the raw body.
func remoteErrorText(body []byte) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return ge.Error.Message
	}
	return string(body)
}

// failureText prefers the remote error payload but keeps the transport error
// when the platform never answered, so an unreachable gateway still leaves a
// diagnostic on the record.
func failureText(body []byte, err error) string {
	if remote := remoteErrorText(body); remote != "" {
		return remote
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func (c *Client) sendRequest(ctx context.Context, method, url, token string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("API error: %s - %s", resp.Status, remoteErrorText(respBody))
	}

	return respBody, nil
}

// --- Messaging ---

// SendMessage delivers one outbound message on behalf of the account and
// returns the platform message id used later by status callbacks.
func (c *Client) SendMessage(ctx context.Context, account *models.Account, out OutboundMessage) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               out.To,
		Type:             out.Type,
	}

	switch out.Type {
	case "text":
		msg.Text = &TextObj{Body: out.Text}
	case "image":
		msg.Image = &MediaObj{Link: out.MediaURL, Caption: out.Caption}
	case "video":
		msg.Video = &MediaObj{Link: out.MediaURL, Caption: out.Caption}
	case "audio":
		msg.Audio = &MediaObj{Link: out.MediaURL}
	case "document":
		msg.Document = &MediaObj{Link: out.MediaURL, Caption: out.Caption, Filename: out.FileName}
	default:
		return "", &SendError{Remote: "unsupported message type: " + out.Type}
	}

	url := fmt.Sprintf("%s/%s/messages", c.BaseURL, account.PhoneNumberID)
	respBody, err := c.sendRequest(ctx, "POST", url, account.AccessToken, msg)
	if err != nil {
		return "", &SendError{Remote: failureText(respBody, err)}
	}

	var result struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Messages) == 0 {
		// Delivery was accepted even if the id is missing; callbacks will
		// simply not match this message.
		return "", nil
	}
	return result.Messages[0].ID, nil
}

// UploadMedia pushes a binary to the platform's own media store and returns
// the platform media id. Used when an attachment must live on the platform
// CDN instead of being fetched by link.
func (c *Client) UploadMedia(ctx context.Context, account *models.Account, data []byte, fileName, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	writer.WriteField("messaging_product", "whatsapp")
	writer.WriteField("type", mimeType)
	if err := writer.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/media", c.BaseURL, account.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("media upload failed: %s", remoteErrorText(respBody))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || result.ID == "" {
		return "", fmt.Errorf("no media id in response: %s", string(respBody))
	}
	return result.ID, nil
}

// --- Template management ---

// SubmitTemplate creates the template on the platform and returns the remote
// id plus the initial approval status (typically PENDING).
func (c *Client) SubmitTemplate(ctx context.Context, account *models.Account, sub TemplateSubmission) (string, string, error) {
	url := fmt.Sprintf("%s/%s/message_templates", c.BaseURL, account.BusinessID)
	respBody, err := c.sendRequest(ctx, "POST", url, account.AccessToken, sub)
	if err != nil {
		return "", "", fmt.Errorf("template submission rejected: %s", failureText(respBody, err))
	}

	var result struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", "", err
	}
	return result.ID, result.Status, nil
}

// ListTemplates fetches the current approval status of every template under
// the account's business. Used by the status poller.
func (c *Client) ListTemplates(ctx context.Context, account *models.Account) ([]RemoteTemplate, error) {
	url := fmt.Sprintf("%s/%s/message_templates?fields=id,name,status,rejected_reason", c.BaseURL, account.BusinessID)
	respBody, err := c.sendRequest(ctx, "GET", url, account.AccessToken, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []RemoteTemplate `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// DeleteTemplate removes a template by name.
func (c *Client) DeleteTemplate(ctx context.Context, account *models.Account, name string) error {
	url := fmt.Sprintf("%s/%s/message_templates?name=%s", c.BaseURL, account.BusinessID, name)
	_, err := c.sendRequest(ctx, "DELETE", url, account.AccessToken, nil)
	return err
}
