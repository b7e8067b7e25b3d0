// Package canvas holds the in-memory model of a layered creative
// composition: the element types, the bounded undo/redo action history
// and the read-only asset usage analysis over an element snapshot.
//
// Everything in this package is a plain value. Functions return new
// slices and new history values instead of mutating their inputs, so a
// caller can snapshot "current elements + current history" for free.
package canvas

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ElementKind discriminates the two element variants.
type ElementKind string

const (
	KindAsset ElementKind = "asset"
	KindText  ElementKind = "text"
)

// Text alignment values.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Base is the geometric envelope shared by every element kind.
// X/Y are the top-left corner in canvas units, rotation is degrees
// clockwise about the element's own center. ZIndex ties are broken by
// insertion order. A nil Opacity means fully opaque.
type Base struct {
	ID       string   `json:"id"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Rotation float64  `json:"rotation"`
	ZIndex   int      `json:"zIndex"`
	Opacity  *float64 `json:"opacity,omitempty"`
	Locked   bool     `json:"locked,omitempty"`
}

// EffectiveOpacity resolves the optional opacity to a value in [0,1].
func (b *Base) EffectiveOpacity() float64 {
	if b.Opacity == nil {
		return 1
	}
	o := *b.Opacity
	if o < 0 {
		return 0
	}
	if o > 1 {
		return 1
	}
	return o
}

// Element is the sealed union of AssetElement and TextElement. The kind
// of an element never changes after creation.
type Element interface {
	Kind() ElementKind
	Common() *Base
	Clone() Element

	apply(p Patch)
}

// AssetElement references an image in an external asset catalog by id.
// The model never owns pixel data, only the reference.
type AssetElement struct {
	Base
	AssetID string `json:"assetId"`
}

func (e *AssetElement) Kind() ElementKind { return KindAsset }
func (e *AssetElement) Common() *Base     { return &e.Base }

func (e *AssetElement) Clone() Element {
	c := *e
	c.Opacity = cloneFloat(e.Opacity)
	return &c
}

// TextElement is a styled block of literal text.
type TextElement struct {
	Base
	Text       string  `json:"text"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize"`
	FontWeight string  `json:"fontWeight,omitempty"` // "normal" or "bold"
	FontStyle  string  `json:"fontStyle,omitempty"`  // "normal" or "italic"
	Color      string  `json:"color"`                // "#rrggbb"
	Background string  `json:"backgroundColor,omitempty"`
	Align      string  `json:"textAlign,omitempty"` // left, center, right
}

func (e *TextElement) Kind() ElementKind { return KindText }
func (e *TextElement) Common() *Base     { return &e.Base }

func (e *TextElement) Clone() Element {
	c := *e
	c.Opacity = cloneFloat(e.Opacity)
	return &c
}

// NewID returns a fresh unique identifier for elements and actions.
func NewID() string { return uuid.NewString() }

// Ptr is a convenience for building patches with literal values.
func Ptr[T any](v T) *T { return &v }

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Patch is a partial element state: only the non-nil fields are
// meaningful. Kind-specific fields are ignored when applied to an
// element of the other kind.
type Patch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	ZIndex   *int     `json:"zIndex,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	Locked   *bool    `json:"locked,omitempty"`

	AssetID *string `json:"assetId,omitempty"`

	Text       *string  `json:"text,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontWeight *string  `json:"fontWeight,omitempty"`
	FontStyle  *string  `json:"fontStyle,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Background *string  `json:"backgroundColor,omitempty"`
	Align      *string  `json:"textAlign,omitempty"`
}

func (b *Base) applyCommon(p Patch) {
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
	if p.Rotation != nil {
		b.Rotation = *p.Rotation
	}
	if p.ZIndex != nil {
		b.ZIndex = *p.ZIndex
	}
	if p.Opacity != nil {
		b.Opacity = cloneFloat(p.Opacity)
	}
	if p.Locked != nil {
		b.Locked = *p.Locked
	}
}

func (e *AssetElement) apply(p Patch) {
	e.applyCommon(p)
	if p.AssetID != nil {
		e.AssetID = *p.AssetID
	}
}

func (e *TextElement) apply(p Patch) {
	e.applyCommon(p)
	if p.Text != nil {
		e.Text = *p.Text
	}
	if p.FontFamily != nil {
		e.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		e.FontSize = *p.FontSize
	}
	if p.FontWeight != nil {
		e.FontWeight = *p.FontWeight
	}
	if p.FontStyle != nil {
		e.FontStyle = *p.FontStyle
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.Background != nil {
		e.Background = *p.Background
	}
	if p.Align != nil {
		e.Align = *p.Align
	}
}

// PreviousPatch captures the element's current value for every field the
// given patch sets, so the pair forms a reversible update.
func PreviousPatch(el Element, p Patch) Patch {
	var prev Patch
	b := el.Common()
	if p.X != nil {
		prev.X = Ptr(b.X)
	}
	if p.Y != nil {
		prev.Y = Ptr(b.Y)
	}
	if p.Width != nil {
		prev.Width = Ptr(b.Width)
	}
	if p.Height != nil {
		prev.Height = Ptr(b.Height)
	}
	if p.Rotation != nil {
		prev.Rotation = Ptr(b.Rotation)
	}
	if p.ZIndex != nil {
		prev.ZIndex = Ptr(b.ZIndex)
	}
	if p.Opacity != nil {
		prev.Opacity = Ptr(b.EffectiveOpacity())
	}
	if p.Locked != nil {
		prev.Locked = Ptr(b.Locked)
	}
	if t, ok := el.(*TextElement); ok {
		if p.Text != nil {
			prev.Text = Ptr(t.Text)
		}
		if p.FontFamily != nil {
			prev.FontFamily = Ptr(t.FontFamily)
		}
		if p.FontSize != nil {
			prev.FontSize = Ptr(t.FontSize)
		}
		if p.FontWeight != nil {
			prev.FontWeight = Ptr(t.FontWeight)
		}
		if p.FontStyle != nil {
			prev.FontStyle = Ptr(t.FontStyle)
		}
		if p.Color != nil {
			prev.Color = Ptr(t.Color)
		}
		if p.Background != nil {
			prev.Background = Ptr(t.Background)
		}
		if p.Align != nil {
			prev.Align = Ptr(t.Align)
		}
	}
	if a, ok := el.(*AssetElement); ok && p.AssetID != nil {
		prev.AssetID = Ptr(a.AssetID)
	}
	return prev
}

// MarshalJSON emits the element with its kind discriminator.
func (e *AssetElement) MarshalJSON() ([]byte, error) {
	type wire AssetElement
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		*wire
	}{KindAsset, (*wire)(e)})
}

func (e *TextElement) MarshalJSON() ([]byte, error) {
	type wire TextElement
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		*wire
	}{KindText, (*wire)(e)})
}

// UnmarshalElement decodes one element by its kind discriminator.
func UnmarshalElement(data []byte) (Element, error) {
	var probe struct {
		Kind ElementKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}
	switch probe.Kind {
	case KindAsset:
		var e AssetElement
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode asset element: %w", err)
		}
		return &e, nil
	case KindText:
		var e TextElement
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode text element: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown element kind %q", probe.Kind)
	}
}

// Elements is a JSON-decodable element slice.
type Elements []Element

func (es *Elements) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Elements, 0, len(raw))
	for _, r := range raw {
		el, err := UnmarshalElement(r)
		if err != nil {
			return err
		}
		out = append(out, el)
	}
	*es = out
	return nil
}

// FindElement returns the element with the given id and its index, or
// (nil, -1) when absent.
func FindElement(elements []Element, id string) (Element, int) {
	for i, el := range elements {
		if el.Common().ID == id {
			return el, i
		}
	}
	return nil, -1
}

// CloneElements deep-copies an element slice.
func CloneElements(elements []Element) []Element {
	out := make([]Element, len(elements))
	for i, el := range elements {
		out[i] = el.Clone()
	}
	return out
}
