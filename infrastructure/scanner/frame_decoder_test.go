package scanner

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

func renderFramePNG(t *testing.T, value string) []byte {
	t.Helper()
	code, err := code128.Encode(value)
	if err != nil {
		t.Fatalf("encode code128: %v", err)
	}
	scaled, err := barcode.Scale(code, 480, 120)
	if err != nil {
		t.Fatalf("scale barcode: %v", err)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, 640, 240))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(80, 60, 560, 180), scaled, image.Point{}, draw.Src)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return out.Bytes()
}

func TestFrameDecoderReadsCode128(t *testing.T) {
	frame := renderFramePNG(t, "FRIDGE0042")

	code, err := NewFrameDecoder().DecodeBytes(frame)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if code != "FRIDGE0042" {
		t.Fatalf("expected FRIDGE0042, got %q", code)
	}
}

func TestFrameDecoderBlankFrameIsNoCode(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 320, 240))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	_, err := NewFrameDecoder().DecodeBytes(out.Bytes())
	if !errors.Is(err, ErrNoCode) {
		t.Fatalf("expected ErrNoCode, got %v", err)
	}
}

func TestFrameDecoderRejectsGarbage(t *testing.T) {
	_, err := NewFrameDecoder().DecodeBytes([]byte("not an image"))
	if err == nil || errors.Is(err, ErrNoCode) {
		t.Fatalf("expected image decode error, got %v", err)
	}
}
