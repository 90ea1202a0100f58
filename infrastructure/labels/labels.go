package labels

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
)

// ItemLabel is one printable fridge label.
type ItemLabel struct {
	ItemID         int64
	Name           string
	Category       string
	Barcode        string
	ExpirationDate time.Time
	Quantity       int64
	AddedAt        time.Time
}

// BarcodeValue is the value encoded on the label: the product barcode when
// known, otherwise the inventory item id.
func (l ItemLabel) BarcodeValue() string {
	if v := strings.TrimSpace(l.Barcode); v != "" {
		return v
	}
	return fmt.Sprintf("F%08d", l.ItemID)
}

// RenderCode128PNG renders value as a Code128 barcode on a width x height
// white canvas with a quiet zone of one tenth of the width on each side.
func RenderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	margin := width / 10
	scaled, err := barcode.Scale(code, width-2*margin, height)
	if err != nil {
		return nil, err
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(margin, 0, width-margin, height), scaled, scaled.Bounds().Min, draw.Src)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// RenderItemLabelsPDF renders one A6 page per label.
func RenderItemLabelsPDF(items []ItemLabel, printedAt time.Time) ([]byte, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no labels to render")
	}

	pdf := gofpdf.New("L", "mm", "A6", "")
	pdf.SetTitle("Fridge Labels", false)
	pdf.SetAutoPageBreak(false, 0)

	for _, item := range items {
		value := item.BarcodeValue()
		barcodePNG, err := RenderCode128PNG(value, 900, 220)
		if err != nil {
			return nil, err
		}

		pdf.AddPage()
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "Unnamed Item"
		}
		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = "other"
		}
		expiry := "N/A"
		if !item.ExpirationDate.IsZero() {
			expiry = item.ExpirationDate.Format("02/01/2006")
		}

		pdf.SetFont("Helvetica", "B", 22)
		pdf.CellFormat(0, 12, name, "", 1, "C", false, 0, "")

		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 7, "Category: "+category, "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 7, "Quantity: "+strconv.FormatInt(item.Quantity, 10), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 9, "Use by: "+expiry, "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "Printed: "+printedAt.Format("02/01/2006"), "", 1, "C", false, 0, "")

		opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		imageName := fmt.Sprintf("item-barcode-%d", item.ItemID)
		pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
		pageW, _ := pdf.GetPageSize()
		imgW := 110.0
		imgH := 26.0
		x := (pageW - imgW) / 2
		y := 62.0
		pdf.ImageOptions(imageName, x, y, imgW, imgH, false, opt, 0, "")

		pdf.SetY(y + imgH + 2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 6, value, "", 1, "C", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
