package mediaparse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fridge/models"
)

type stubGenerator struct {
	text     string
	err      error
	mimeType string
	prompt   string
}

func (s *stubGenerator) generate(_ context.Context, mimeType string, _ []byte, prompt string) (string, error) {
	s.mimeType = mimeType
	s.prompt = prompt
	return s.text, s.err
}

func TestParseMediaFileDecodesFencedJSON(t *testing.T) {
	gen := &stubGenerator{text: "```json\n{\"items\":[{\"name\":\" Apple \",\"type\":\"fruit\",\"expirationDate\":\"2025-01-09\",\"servingCount\":4},{\"name\":\"Mystery\",\"servingCount\":0},{\"name\":\"\"}]}\n```"}
	p := &GeminiParser{gen: gen, now: func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }}

	items, err := p.ParseMediaFile(context.Background(), models.MediaFile{Name: "clip.mp4", MIMEType: "video/mp4", Data: []byte{1}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].Name != "Apple" || items[0].Quantity != 4 || items[0].ExpirationDate != "2025-01-09" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Category != "other" || items[1].Quantity != 1 {
		t.Fatalf("expected defaults on second item, got %+v", items[1])
	}
	if gen.mimeType != "video/mp4" {
		t.Fatalf("unexpected mime %q", gen.mimeType)
	}
	if !strings.Contains(gen.prompt, "video") || !strings.Contains(gen.prompt, "2025-01-02") {
		t.Fatalf("prompt missing media kind or date: %s", gen.prompt)
	}
}

func TestParseMediaFileRejectsNonJSON(t *testing.T) {
	p := &GeminiParser{gen: &stubGenerator{text: "I see some apples."}, now: time.Now}
	if _, err := p.ParseMediaFile(context.Background(), models.MediaFile{MIMEType: "image/png"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseMediaFilePropagatesGeneratorError(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := &GeminiParser{gen: &stubGenerator{err: boom}, now: time.Now}
	if _, err := p.ParseMediaFile(context.Background(), models.MediaFile{MIMEType: "image/png"}); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestNewGeminiParserRequiresKey(t *testing.T) {
	if _, err := NewGeminiParser(context.Background(), " ", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
