package export

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"CreatorCanvas/internal/canvas"
)

const defaultFontSize = 16

// The bundled Go faces stand in for whatever family the element names;
// raster export stays deterministic with no font files on disk.
var (
	fontOnce  sync.Once
	fontErr   error
	faceFonts map[string]*sfnt.Font
)

func loadFonts() {
	faceFonts = make(map[string]*sfnt.Font, 4)
	for key, ttf := range map[string][]byte{
		"regular":     goregular.TTF,
		"bold":        gobold.TTF,
		"italic":      goitalic.TTF,
		"bold-italic": gobolditalic.TTF,
	} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			fontErr = fmt.Errorf("parse %s font: %w", key, err)
			return
		}
		faceFonts[key] = f
	}
}

func faceFor(el *canvas.TextElement, scale float64) (font.Face, error) {
	fontOnce.Do(loadFonts)
	if fontErr != nil {
		return nil, fontErr
	}
	key := "regular"
	bold := el.FontWeight == "bold"
	italic := el.FontStyle == "italic"
	switch {
	case bold && italic:
		key = "bold-italic"
	case bold:
		key = "bold"
	case italic:
		key = "italic"
	}
	size := el.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	return opentype.NewFace(faceFonts[key], &opentype.FaceOptions{
		Size:    size * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// renderText rasterizes a text element into a w x h tile: optional
// background fill, then each newline-separated line aligned within the
// tile width.
func renderText(el *canvas.TextElement, w, h int, scale float64) (*image.RGBA, error) {
	tile := image.NewRGBA(image.Rect(0, 0, w, h))

	if el.Background != "" {
		bg := parseHexColor(el.Background, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		xdraw.Draw(tile, tile.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
	}

	face, err := faceFor(el, scale)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(parseHexColor(el.Color, color.NRGBA{A: 0xff})),
		Face: face,
	}

	metrics := face.Metrics()
	y := metrics.Ascent
	for _, line := range strings.Split(el.Text, "\n") {
		adv := d.MeasureString(line)
		x := fixed.I(0)
		switch el.Align {
		case canvas.AlignCenter:
			x = (fixed.I(w) - adv) / 2
		case canvas.AlignRight:
			x = fixed.I(w) - adv
		}
		if x < 0 {
			x = 0
		}
		d.Dot = fixed.Point26_6{X: x, Y: y}
		d.DrawString(line)
		y += metrics.Height
	}
	return tile, nil
}

// parseHexColor reads "#rgb" or "#rrggbb", falling back to def on
// anything it does not understand. Color strings are advisory input
// from the editing UI, so bad values degrade instead of failing.
func parseHexColor(s string, def color.NRGBA) color.NRGBA {
	if len(s) == 0 || s[0] != '#' {
		return def
	}
	hexVal := func(c byte) (uint8, bool) {
		switch {
		case c >= '0' && c <= '9':
			return c - '0', true
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, true
		case c >= 'A' && c <= 'F':
			return c - 'A' + 10, true
		}
		return 0, false
	}
	switch len(s) {
	case 4: // #rgb
		var v [3]uint8
		for i := 0; i < 3; i++ {
			n, ok := hexVal(s[i+1])
			if !ok {
				return def
			}
			v[i] = n*16 + n
		}
		return color.NRGBA{R: v[0], G: v[1], B: v[2], A: 0xff}
	case 7: // #rrggbb
		var v [3]uint8
		for i := 0; i < 3; i++ {
			hi, ok1 := hexVal(s[1+2*i])
			lo, ok2 := hexVal(s[2+2*i])
			if !ok1 || !ok2 {
				return def
			}
			v[i] = hi*16 + lo
		}
		return color.NRGBA{R: v[0], G: v[1], B: v[2], A: 0xff}
	}
	return def
}
