package fridgeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"fridge/models"
)

// Client talks to a remote fridge backend: item creation and media parsing.
type Client struct {
	itemsURL   string
	uploadURL  string
	httpClient *http.Client
}

func NewClient(itemsURL, uploadURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		itemsURL:   strings.TrimSpace(itemsURL),
		uploadURL:  strings.TrimSpace(uploadURL),
		httpClient: httpClient,
	}
}

type createResponse struct {
	ID      json.RawMessage `json:"id"`
	MongoID json.RawMessage `json:"_id"`
}

// CreateInventoryItem posts draft as JSON and returns the id the backend assigned.
func (c *Client) CreateInventoryItem(ctx context.Context, draft models.DraftItem) (string, error) {
	if c.itemsURL == "" {
		return "", fmt.Errorf("create inventory item: items url not configured")
	}
	body, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("encode item: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.itemsURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create inventory item: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("create inventory item: %w", err)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if id := rawID(out.ID); id != "" {
		return id, nil
	}
	return rawID(out.MongoID), nil
}

// rawID accepts string or numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

type parseResponse struct {
	Items []models.DraftItem `json:"items"`
}

// ParseMediaFile uploads file as multipart "file" and returns the parsed items.
func (c *Client) ParseMediaFile(ctx context.Context, file models.MediaFile) ([]models.DraftItem, error) {
	if c.uploadURL == "" {
		return nil, fmt.Errorf("parse media: upload url not configured")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.MIMEType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse media: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("parse media: %w", err)
	}

	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return out.Items, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
