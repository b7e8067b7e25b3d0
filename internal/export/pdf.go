package export

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"CreatorCanvas/internal/canvas"
)

const pdfMargin = 36 // pt

// ProofSheet writes the composition onto a single A4 page, scaled to
// fit, in the same ascending-zIndex order as the raster export. Meant
// for review hand-offs, not pixel fidelity: text falls back to the
// built-in Helvetica faces.
func (ex *Exporter) ProofSheet(ctx context.Context, w io.Writer, elements []canvas.Element, bounds canvas.Bounds) error {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		bounds = canvas.DefaultBounds
	}

	p := gofpdf.New("P", "pt", "A4", "")
	p.AddPage()
	pageW, pageH := p.GetPageSize()

	s := (pageW - 2*pdfMargin) / bounds.Width
	if v := (pageH - 2*pdfMargin) / bounds.Height; v < s {
		s = v
	}

	// Canvas outline so the sheet shows where the composition ends.
	p.SetDrawColor(180, 180, 180)
	p.SetLineWidth(0.5)
	p.Rect(pdfMargin, pdfMargin, bounds.Width*s, bounds.Height*s, "D")

	registered := make(map[string]bool)
	for _, el := range canvas.SortByZIndex(elements) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("proof sheet canceled: %w", err)
		}
		c := el.Common()
		if c.Width <= 0 || c.Height <= 0 {
			continue
		}
		x := pdfMargin + c.X*s
		y := pdfMargin + c.Y*s
		ew := c.Width * s
		eh := c.Height * s

		p.SetAlpha(c.EffectiveOpacity(), "Normal")
		if c.Rotation != 0 {
			p.TransformBegin()
			// gofpdf rotates counter-clockwise, the model clockwise.
			p.TransformRotate(-c.Rotation, x+ew/2, y+eh/2)
		}

		var err error
		switch e := el.(type) {
		case *canvas.AssetElement:
			err = ex.placePDFImage(ctx, p, registered, e, x, y, ew, eh)
		case *canvas.TextElement:
			placePDFText(p, e, x, y, ew, eh, s)
		}

		if c.Rotation != 0 {
			p.TransformEnd()
		}
		p.SetAlpha(1, "Normal")
		if err != nil {
			return fmt.Errorf("element %s: %w", c.ID, err)
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (ex *Exporter) placePDFImage(ctx context.Context, p *gofpdf.Fpdf, registered map[string]bool, e *canvas.AssetElement, x, y, w, h float64) error {
	if !registered[e.AssetID] {
		raw, err := ex.Resolver.Resolve(ctx, e.AssetID)
		if err != nil {
			return fmt.Errorf("resolve asset %q: %w", e.AssetID, err)
		}
		typ := pdfImageType(raw)
		if typ == "" {
			return fmt.Errorf("asset %q: unsupported image format", e.AssetID)
		}
		p.RegisterImageOptionsReader(e.AssetID, gofpdf.ImageOptions{ImageType: typ}, bytes.NewReader(raw))
		if p.Err() {
			return fmt.Errorf("register asset %q: %w", e.AssetID, p.Error())
		}
		registered[e.AssetID] = true
	}
	p.ImageOptions(e.AssetID, x, y, w, h, false, gofpdf.ImageOptions{}, 0, "")
	if p.Err() {
		return fmt.Errorf("place asset %q: %w", e.AssetID, p.Error())
	}
	return nil
}

func placePDFText(p *gofpdf.Fpdf, e *canvas.TextElement, x, y, w, h, s float64) {
	style := ""
	if e.FontWeight == "bold" {
		style += "B"
	}
	if e.FontStyle == "italic" {
		style += "I"
	}
	size := e.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	size *= s
	p.SetFont("Helvetica", style, size)

	if e.Background != "" {
		bg := parseHexColor(e.Background, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		p.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		p.Rect(x, y, w, h, "F")
	}

	fg := parseHexColor(e.Color, color.NRGBA{A: 0xff})
	p.SetTextColor(int(fg.R), int(fg.G), int(fg.B))

	lineY := y + size*0.8
	for _, line := range strings.Split(e.Text, "\n") {
		lineX := x
		switch e.Align {
		case canvas.AlignCenter:
			lineX = x + (w-p.GetStringWidth(line))/2
		case canvas.AlignRight:
			lineX = x + w - p.GetStringWidth(line)
		}
		p.Text(lineX, lineY, line)
		lineY += size * 1.2
	}
}

func pdfImageType(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte("\x89PNG")):
		return "PNG"
	case bytes.HasPrefix(b, []byte{0xff, 0xd8}):
		return "JPEG"
	case bytes.HasPrefix(b, []byte("GIF8")):
		return "GIF"
	}
	return ""
}
