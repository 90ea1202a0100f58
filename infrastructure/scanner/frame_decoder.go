package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// FrameDecoder decodes grocery barcodes (EAN/UPC/Code128) and QR codes from still frames.
// It is shared by every relay; readers are used one frame at a time.
type FrameDecoder struct {
	mu      sync.Mutex
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{
		readers: []gozxing.Reader{
			oned.NewEAN13Reader(),
			oned.NewUPCAReader(),
			oned.NewEAN8Reader(),
			oned.NewCode128Reader(),
			qrcode.NewQRCodeReader(),
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// DecodeBytes decodes a JPEG or PNG frame.
func (d *FrameDecoder) DecodeBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty frame")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode frame image: %w", err)
	}
	return d.DecodeImage(img)
}

func (d *FrameDecoder) DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, reader := range d.readers {
		result, err := reader.Decode(bmp, d.hints)
		if err != nil {
			reader.Reset()
			continue
		}
		if text := result.GetText(); text != "" {
			return text, nil
		}
	}
	return "", ErrNoCode
}
