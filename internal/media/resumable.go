package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Uploader implements the platform's resumable upload handshake used for
// template header media. Handles are single-use: request a fresh one per
// submission attempt and never cache the result.
type Uploader struct {
	BaseURL  string
	AppToken string
	HTTP     *http.Client

	// Fetch resolves a source URL to raw bytes. Defaults to an HTTP GET but
	// is swappable for locally stored media.
	Fetch func(ctx context.Context, sourceURL string) ([]byte, error)
}

func NewUploader(baseURL, appToken string) *Uploader {
	return &Uploader{
		BaseURL:  baseURL,
		AppToken: appToken,
		HTTP:     &http.Client{},
	}
}

// ObtainRemoteHandle runs the three-step handshake: resolve the application
// identity, open an upload session sized for the bytes, then stream them in.
// On success the returned handle is valid exactly once as a template header
// reference. No partial handle is ever returned on failure.
func (u *Uploader) ObtainRemoteHandle(ctx context.Context, sourceURL, mimeType string) (string, error) {
	data, err := u.fetchSource(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("fetch source media: %w", err)
	}

	appID, err := u.resolveAppID(ctx)
	if err != nil {
		return "", err
	}

	sessionID, err := u.openSession(ctx, appID, len(data), mimeType)
	if err != nil {
		return "", err
	}

	return u.uploadBytes(ctx, sessionID, data)
}

func (u *Uploader) fetchSource(ctx context.Context, sourceURL string) ([]byte, error) {
	if u.Fetch != nil {
		return u.Fetch(ctx, sourceURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", sourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Step 1: the upload credential must identify an application.
func (u *Uploader) resolveAppID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u.BaseURL+"/app", nil)
	if err != nil {
		return "", &AuthResolutionError{Remote: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+u.AppToken)

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return "", &AuthResolutionError{Remote: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", &AuthResolutionError{Remote: string(body)}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.ID == "" {
		return "", &AuthResolutionError{Remote: "credential does not identify an application"}
	}
	return result.ID, nil
}

// Step 2: open a session declaring byte length and MIME type.
func (u *Uploader) openSession(ctx context.Context, appID string, length int, mimeType string) (string, error) {
	q := url.Values{}
	q.Set("file_length", strconv.Itoa(length))
	q.Set("file_type", mimeType)
	q.Set("file_name", "header_media")

	endpoint := fmt.Sprintf("%s/%s/uploads?%s", u.BaseURL, appID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return "", &SessionError{Remote: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+u.AppToken)

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return "", &SessionError{Remote: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", &SessionError{Remote: string(body)}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.ID == "" {
		return "", &SessionError{Remote: "no session id in response: " + string(body)}
	}
	return result.ID, nil
}

// Step 3: stream the raw bytes. Session endpoints use the OAuth header
// scheme, not the Bearer scheme of regular API calls.
func (u *Uploader) uploadBytes(ctx context.Context, sessionID string, data []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/%s", u.BaseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return "", &UploadError{Remote: err.Error()}
	}
	req.Header.Set("Authorization", "OAuth "+u.AppToken)
	req.Header.Set("file_offset", "0")
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return "", &UploadError{Remote: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", &UploadError{Remote: string(body)}
	}

	var result struct {
		Handle string `json:"h"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Handle == "" {
		return "", &UploadError{Remote: "no handle in response: " + string(body)}
	}
	return result.Handle, nil
}
