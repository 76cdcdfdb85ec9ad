package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"messaging-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *models.Account {
	return &models.Account{
		PhoneNumberID: "pn-100",
		BusinessID:    "biz-200",
		AccessToken:   "acct-token",
	}
}

func TestSendMessage_Text(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody GenericMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"messages": [{"id": "wamid.ABC"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	id, err := c.SendMessage(context.Background(), testAccount(), OutboundMessage{
		To:   "+393331234567",
		Type: "text",
		Text: "ciao",
	})
	require.NoError(t, err)

	assert.Equal(t, "wamid.ABC", id)
	assert.Equal(t, "/pn-100/messages", gotPath)
	assert.Equal(t, "Bearer acct-token", gotAuth)
	assert.Equal(t, "whatsapp", gotBody.MessagingProduct)
	require.NotNil(t, gotBody.Text)
	assert.Equal(t, "ciao", gotBody.Text.Body)
	assert.Nil(t, gotBody.Image)
}

func TestSendMessage_DocumentCarriesFilename(t *testing.T) {
	var gotBody GenericMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"messages": [{"id": "wamid.DOC"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SendMessage(context.Background(), testAccount(), OutboundMessage{
		To:       "+393331234567",
		Type:     "document",
		MediaURL: "http://localhost:8080/media/quote.pdf",
		Caption:  "Preventivo",
		FileName: "preventivo.pdf",
	})
	require.NoError(t, err)

	require.NotNil(t, gotBody.Document)
	assert.Equal(t, "http://localhost:8080/media/quote.pdf", gotBody.Document.Link)
	assert.Equal(t, "Preventivo", gotBody.Document.Caption)
	assert.Equal(t, "preventivo.pdf", gotBody.Document.Filename)
}

func TestSendMessage_RemoteErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "(#131030) Recipient phone number not in allowed list", "code": 131030}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SendMessage(context.Background(), testAccount(), OutboundMessage{
		To: "+390000", Type: "text", Text: "hi",
	})

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "(#131030) Recipient phone number not in allowed list", sendErr.Remote)
}

func TestSendMessage_UnreachableGatewayKeepsTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")

	_, err := c.SendMessage(context.Background(), testAccount(), OutboundMessage{
		To: "+390000", Type: "text", Text: "hi",
	})

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.NotEmpty(t, sendErr.Remote, "the transport failure must land on the record")
	assert.Contains(t, sendErr.Remote, "connection refused")
}

func TestSubmitTemplate_UnreachableGatewayKeepsTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")

	_, _, err := c.SubmitTemplate(context.Background(), testAccount(), TemplateSubmission{Name: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSendMessage_UnsupportedType(t *testing.T) {
	c := NewClient("http://unused")

	_, err := c.SendMessage(context.Background(), testAccount(), OutboundMessage{
		To: "+390000", Type: "sticker",
	})

	var sendErr *SendError
	assert.ErrorAs(t, err, &sendErr)
}

func TestUploadMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pn-100/media", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))
		assert.Equal(t, "image/jpeg", r.FormValue("type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pic.jpg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("jpeg-bytes"), data)

		w.Write([]byte(`{"id": "media-id-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	id, err := c.UploadMedia(context.Background(), testAccount(), []byte("jpeg-bytes"), "pic.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "media-id-1", id)
}

func TestUploadMedia_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Unsupported media type"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.UploadMedia(context.Background(), testAccount(), []byte("x"), "x.bin", "application/x-bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported media type")
}

func TestSubmitTemplate(t *testing.T) {
	var gotPath string
	var gotSub TemplateSubmission

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotSub))
		w.Write([]byte(`{"id": "tpl-remote-1", "status": "PENDING"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	id, status, err := c.SubmitTemplate(context.Background(), testAccount(), TemplateSubmission{
		Name:     "order_ready",
		Language: "it",
		Category: "UTILITY",
		Components: []TemplateComponent{
			{Type: "BODY", Text: "Ordine {{1}} pronto", Example: &ComponentExample{BodyText: [][]string{{"1234"}}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "tpl-remote-1", id)
	assert.Equal(t, "PENDING", status)
	assert.Equal(t, "/biz-200/message_templates", gotPath)
	assert.Equal(t, "order_ready", gotSub.Name)
	require.Len(t, gotSub.Components, 1)
	require.NotNil(t, gotSub.Components[0].Example)
}

func TestSubmitTemplate_RejectionSurfacesRemoteText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Template name already exists"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, _, err := c.SubmitTemplate(context.Background(), testAccount(), TemplateSubmission{Name: "dup"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Template name already exists")
}

func TestListTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/biz-200/message_templates", r.URL.Path)
		assert.Equal(t, "id,name,status,rejected_reason", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"data": [
			{"id": "t1", "name": "welcome", "status": "APPROVED"},
			{"id": "t2", "name": "promo", "status": "REJECTED", "rejected_reason": "PROMOTIONAL"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	templates, err := c.ListTemplates(context.Background(), testAccount())
	require.NoError(t, err)

	require.Len(t, templates, 2)
	assert.Equal(t, "APPROVED", templates[0].Status)
	assert.Equal(t, "PROMOTIONAL", templates[1].RejectedReason)
}

func TestDeleteTemplate(t *testing.T) {
	var gotMethod, gotName string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotName = r.URL.Query().Get("name")
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.DeleteTemplate(context.Background(), testAccount(), "old_template"))

	assert.Equal(t, "DELETE", gotMethod)
	assert.Equal(t, "old_template", gotName)
}
