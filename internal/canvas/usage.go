package canvas

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Default canvas bounds used for validation and export sizing.
const (
	DefaultCanvasWidth  = 800
	DefaultCanvasHeight = 600
)

// MetadataVersion is the opaque version tag carried on submission
// metadata and project files. It is passed through unchanged.
const MetadataVersion = "1.0"

// Elements smaller than this many canvas units in either dimension get
// a visibility warning.
const minVisibleSize = 10

// Placement records where one element referencing an asset sits on the
// canvas.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

// AssetUsage aggregates every reference to one asset id.
type AssetUsage struct {
	AssetID    string      `json:"assetId"`
	Count      int         `json:"count"`
	Placements []Placement `json:"placements"`
}

// UsedAssetIDs returns the deduplicated asset ids referenced by the
// snapshot, in first-use order.
func UsedAssetIDs(elements []Element) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, el := range elements {
		a, ok := el.(*AssetElement)
		if !ok || seen[a.AssetID] {
			continue
		}
		seen[a.AssetID] = true
		ids = append(ids, a.AssetID)
	}
	return ids
}

// AssetUsages returns one entry per distinct asset id with the count
// and placement of every referencing element.
func AssetUsages(elements []Element) []AssetUsage {
	byID := make(map[string]*AssetUsage)
	var order []string
	for _, el := range elements {
		a, ok := el.(*AssetElement)
		if !ok {
			continue
		}
		u := byID[a.AssetID]
		if u == nil {
			u = &AssetUsage{AssetID: a.AssetID}
			byID[a.AssetID] = u
			order = append(order, a.AssetID)
		}
		u.Count++
		u.Placements = append(u.Placements, Placement{
			X:        a.X,
			Y:        a.Y,
			Width:    a.Width,
			Height:   a.Height,
			Rotation: a.Rotation,
			Opacity:  a.EffectiveOpacity(),
		})
	}
	out := make([]AssetUsage, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// Summary aggregates element counts and asset usage for one snapshot.
// KitID passes through the id of the asset catalog the elements were
// drawn from, when the caller has one.
type Summary struct {
	TotalElements int          `json:"totalElements"`
	AssetElements int          `json:"assetElements"`
	TextElements  int          `json:"textElements"`
	UsedAssets    []string     `json:"usedAssets"`
	Usages        []AssetUsage `json:"assetUsage"`
	KitID         string       `json:"ipKitId,omitempty"`
}

// Summarize builds the asset summary for a snapshot.
func Summarize(elements []Element, kitID string) Summary {
	s := Summary{
		TotalElements: len(elements),
		UsedAssets:    UsedAssetIDs(elements),
		Usages:        AssetUsages(elements),
		KitID:         kitID,
	}
	for _, el := range elements {
		switch el.Kind() {
		case KindAsset:
			s.AssetElements++
		case KindText:
			s.TextElements++
		}
	}
	return s
}

// Bounds is the canvas rectangle compositions are validated against.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultBounds is the standard composition canvas.
var DefaultBounds = Bounds{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}

// ValidationResult carries the diagnostics for one composition. Only
// errors block submission; warnings are advisory.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Summary  Summary  `json:"summary"`
}

// Validate checks a composition against the default canvas bounds.
func Validate(elements []Element, kitID string) ValidationResult {
	return DefaultBounds.Validate(elements, kitID)
}

// Validate checks a composition for submission readiness. An empty
// composition is the one hard error and short-circuits every other
// rule; everything else only warns.
func (b Bounds) Validate(elements []Element, kitID string) ValidationResult {
	res := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
		Summary:  Summarize(elements, kitID),
	}

	if len(elements) == 0 {
		res.Errors = append(res.Errors, "canvas must contain at least one element")
		return res
	}

	emptyText := 0
	tooSmall := 0
	outOfBounds := 0
	for _, el := range elements {
		if t, ok := el.(*TextElement); ok && strings.TrimSpace(t.Text) == "" {
			emptyText++
		}
		c := el.Common()
		if c.Width < minVisibleSize || c.Height < minVisibleSize {
			tooSmall++
		}
		if c.X < 0 || c.Y < 0 || c.X+c.Width > b.Width || c.Y+c.Height > b.Height {
			outOfBounds++
		}
	}
	if emptyText > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d text element(s) have no content", emptyText))
	}
	if tooSmall > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d element(s) are smaller than %dx%d and may not be visible", tooSmall, minVisibleSize, minVisibleSize))
	}
	if outOfBounds > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d element(s) extend outside canvas bounds", outOfBounds))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// Metadata is the hand-off bundle for the submission persistence
// collaborator: the raw elements, the canvas size they were composed
// on, the version tag and the derived usage summary.
type Metadata struct {
	Elements    []Element `json:"elements"`
	Canvas      Bounds    `json:"canvasSize"`
	Version     string    `json:"version"`
	Summary     Summary   `json:"assetSummary"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// SubmissionMetadata builds the serialization-ready submission bundle.
func SubmissionMetadata(elements []Element, kitID string) Metadata {
	return Metadata{
		Elements:    elements,
		Canvas:      DefaultBounds,
		Version:     MetadataVersion,
		Summary:     Summarize(elements, kitID),
		GeneratedAt: time.Now(),
	}
}

// SortByZIndex returns the elements in ascending zIndex paint order,
// keeping the snapshot order for ties. The input is not modified.
func SortByZIndex(elements []Element) []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Common().ZIndex < out[j].Common().ZIndex
	})
	return out
}
