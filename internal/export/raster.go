// Package export flattens a layered composition into a single output:
// a rasterized PNG or JPEG, or a PDF proof sheet. Pixel data for asset
// elements comes from an external Resolver; the exporter only decodes
// and draws.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"CreatorCanvas/internal/canvas"
)

// Format selects the encoded output image type.
type Format string

const (
	FormatPNG  Format = "png"  // lossless, keeps transparency
	FormatJPEG Format = "jpeg" // lossy, always opaque
)

// Stage identifies one phase of an export. Stages advance strictly
// preparing -> rendering -> generating -> complete, or jump to error.
type Stage string

const (
	StagePreparing  Stage = "preparing"
	StageRendering  Stage = "rendering"
	StageGenerating Stage = "generating"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Progress is one progress report. Percent is 0-100 and monotonically
// increasing until completion or error.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress reports during an export.
type ProgressFunc func(Progress)

// Resolver yields the encoded image bytes for an asset id. Implemented
// by the asset catalogs; resolution may hit disk or network.
type Resolver interface {
	Resolve(ctx context.Context, assetID string) ([]byte, error)
}

// Options configure one export call.
type Options struct {
	Format  Format
	Quality float64 // JPEG quality 0..1; 0 means the default 0.92
	Scale   float64 // multiplies both canvas dimensions; 0 means 1

	// Background fills the canvas before any element is drawn. Nil
	// keeps a transparent PNG; JPEG has no alpha channel and falls
	// back to white.
	Background color.Color

	Bounds     canvas.Bounds // zero value means canvas.DefaultBounds
	OnProgress ProgressFunc
}

// Exporter rasterizes compositions against one asset resolver.
type Exporter struct {
	Resolver Resolver
}

func New(r Resolver) *Exporter {
	return &Exporter{Resolver: r}
}

// Export flattens the elements into a single encoded image. Elements
// are drawn strictly in ascending zIndex order (painter's algorithm),
// one at a time: the next element is not drawn until the previous draw
// completed, so layering survives asynchronous asset resolution. The
// first resolution or decode failure aborts the whole export; there is
// no partial output.
func (ex *Exporter) Export(ctx context.Context, elements []canvas.Element, opts Options) ([]byte, error) {
	report := opts.OnProgress
	if report == nil {
		report = func(Progress) {}
	}
	fail := func(err error) ([]byte, error) {
		report(Progress{Stage: StageError, Message: err.Error()})
		return nil, err
	}

	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	bounds := opts.Bounds
	if bounds.Width <= 0 || bounds.Height <= 0 {
		bounds = canvas.DefaultBounds
	}

	report(Progress{Stage: StagePreparing, Percent: 0, Message: "preparing canvas"})

	w := int(math.Round(bounds.Width * opts.Scale))
	h := int(math.Round(bounds.Height * opts.Scale))
	if w < 1 || h < 1 {
		return fail(fmt.Errorf("export: canvas %gx%g at scale %g is empty", bounds.Width, bounds.Height, opts.Scale))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	bg := opts.Background
	if bg == nil && opts.Format == FormatJPEG {
		bg = color.White
	}
	if bg != nil {
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
	}

	ordered := canvas.SortByZIndex(elements)
	for i, el := range ordered {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("export canceled: %w", err))
		}
		if err := ex.drawElement(ctx, dst, el, opts.Scale); err != nil {
			return fail(fmt.Errorf("element %s: %w", el.Common().ID, err))
		}
		report(Progress{
			Stage:   StageRendering,
			Percent: 10 + 80*(i+1)/len(ordered),
			Message: fmt.Sprintf("rendered %d/%d elements", i+1, len(ordered)),
		})
	}

	report(Progress{Stage: StageGenerating, Percent: 95, Message: "encoding image"})

	var buf bytes.Buffer
	switch opts.Format {
	case FormatPNG:
		if err := png.Encode(&buf, dst); err != nil {
			return fail(fmt.Errorf("encode png: %w", err))
		}
	case FormatJPEG:
		q := opts.Quality
		if q <= 0 {
			q = 0.92
		}
		if q > 1 {
			q = 1
		}
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: int(math.Round(q * 100))}); err != nil {
			return fail(fmt.Errorf("encode jpeg: %w", err))
		}
	default:
		return fail(fmt.Errorf("unsupported format %q", opts.Format))
	}

	report(Progress{Stage: StageComplete, Percent: 100, Message: "export complete"})
	return buf.Bytes(), nil
}

// drawElement renders one element to an offscreen tile at export scale,
// then composites the tile onto dst rotated about the element center
// and masked by its opacity.
func (ex *Exporter) drawElement(ctx context.Context, dst *image.RGBA, el canvas.Element, scale float64) error {
	c := el.Common()
	tw := int(math.Round(c.Width * scale))
	th := int(math.Round(c.Height * scale))
	if tw < 1 || th < 1 {
		return nil // degenerate envelope, nothing to draw
	}

	var tile image.Image
	switch e := el.(type) {
	case *canvas.AssetElement:
		raw, err := ex.Resolver.Resolve(ctx, e.AssetID)
		if err != nil {
			return fmt.Errorf("resolve asset %q: %w", e.AssetID, err)
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("decode asset %q: %w", e.AssetID, err)
		}
		tile = resize.Resize(uint(tw), uint(th), img, resize.Bilinear)
	case *canvas.TextElement:
		t, err := renderText(e, tw, th, scale)
		if err != nil {
			return fmt.Errorf("render text: %w", err)
		}
		tile = t
	default:
		return nil
	}

	compose(dst, tile, c, scale)
	return nil
}

// compose places the tile so its center lands on the element's center,
// rotated clockwise by the element's rotation.
func compose(dst *image.RGBA, tile image.Image, c *canvas.Base, scale float64) {
	cx := (c.X + c.Width/2) * scale
	cy := (c.Y + c.Height/2) * scale
	tw := float64(tile.Bounds().Dx())
	th := float64(tile.Bounds().Dy())

	// In screen coordinates (y down) the standard rotation matrix
	// turns clockwise for positive angles.
	rad := c.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	m := f64.Aff3{
		cos, -sin, cx - (cos*tw/2 - sin*th/2),
		sin, cos, cy - (sin*tw/2 + cos*th/2),
	}

	var opts *xdraw.Options
	if o := c.EffectiveOpacity(); o < 1 {
		opts = &xdraw.Options{
			SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(o * 0xff))}),
		}
	}
	xdraw.ApproxBiLinear.Transform(dst, m, tile, tile.Bounds(), xdraw.Over, opts)
}
