package mediaparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fridge/models"
)

const DefaultModel = "gemini-1.5-flash"

const promptTemplate = `You are a kitchen inventory assistant. Identify every grocery item visible in this %s.

For each item return:
- "name": short product name
- "type": one of vegetable, fruit, protein, dairy, other
- "expirationDate": estimated expiration date as YYYY-MM-DD, assuming it was bought on %s
- "servingCount": how many units are visible (integer, at least 1)

Return ONLY a JSON object of the form {"items":[...]} with no other text.`

type contentGenerator interface {
	generate(ctx context.Context, mimeType string, data []byte, prompt string) (string, error)
}

// GeminiParser extracts draft items from photos and short videos with Gemini.
type GeminiParser struct {
	gen contentGenerator
	now func() time.Time
}

// NewGeminiParser creates a Gemini-backed parser. Close releases the client.
func NewGeminiParser(ctx context.Context, apiKey, model string) (*GeminiParser, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &GeminiParser{gen: &geminiGenerator{client: client, model: model}, now: time.Now}, nil
}

func (p *GeminiParser) Close() error {
	if g, ok := p.gen.(*geminiGenerator); ok {
		return g.client.Close()
	}
	return nil
}

// ParseMediaFile implements the media parsing capability.
func (p *GeminiParser) ParseMediaFile(ctx context.Context, file models.MediaFile) ([]models.DraftItem, error) {
	kind := "photo"
	if strings.HasPrefix(file.MIMEType, "video/") {
		kind = "video"
	}
	prompt := fmt.Sprintf(promptTemplate, kind, p.now().Format("2006-01-02"))
	text, err := p.gen.generate(ctx, file.MIMEType, file.Data, prompt)
	if err != nil {
		return nil, err
	}
	return decodeItems(text)
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, mimeType string, data []byte, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from Gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

type parsedItems struct {
	Items []models.DraftItem `json:"items"`
}

func decodeItems(text string) ([]models.DraftItem, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, errors.New("no valid JSON found in response")
	}
	var out parsedItems
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	items := make([]models.DraftItem, 0, len(out.Items))
	for _, item := range out.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		if strings.TrimSpace(item.Category) == "" {
			item.Category = "other"
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		items = append(items, item)
	}
	return items, nil
}

// extractJSON returns the outermost JSON object in s, tolerating code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
