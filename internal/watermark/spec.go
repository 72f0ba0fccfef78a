package watermark

// PageSize is a page geometry in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

var (
	LetterSize = PageSize{Width: 612, Height: 792}
	A4Size     = PageSize{Width: 595.28, Height: 841.89}
)

const (
	cm = 72 / 2.54

	DefaultSpacing     = 200
	DefaultTileOpacity = 0.08

	// TilePrefix reads "belongs to" and precedes the name on every tile.
	TilePrefix = "خاص بـ "
)

// Spec describes one watermark. A zero Spacing selects a single centred placement,
// a positive Spacing selects the tiled grid.
type Spec struct {
	Text     string
	Prefix   string
	FontSize float64
	Rotation float64
	Opacity  float64
	Spacing  float64
}

// CenteredSpec is the single-placement style: one large string at a fixed anchor.
func CenteredSpec(text string) Spec {
	return Spec{
		Text:     text,
		FontSize: 24,
		Rotation: 30,
		Opacity:  1,
	}
}

// TiledSpec is the repeating style: a faint labelled string on a 200pt grid.
func TiledSpec(text string) Spec {
	return Spec{
		Text:     text,
		Prefix:   TilePrefix,
		FontSize: 14,
		Rotation: 35,
		Opacity:  DefaultTileOpacity,
		Spacing:  DefaultSpacing,
	}
}

// Tiled reports whether the spec uses the tiled grid.
func (s Spec) Tiled() bool {
	return s.Spacing > 0
}

// Label is the string drawn at each placement.
func (s Spec) Label() string {
	if s.Tiled() {
		return s.Prefix + s.Text
	}
	return s.Text
}

func (s Spec) normalized() Spec {
	if s.Tiled() {
		if s.FontSize <= 0 {
			s.FontSize = 14
		}
		if s.Opacity <= 0 || s.Opacity > 1 {
			s.Opacity = DefaultTileOpacity
		}
		return s
	}
	if s.FontSize <= 0 {
		s.FontSize = 24
	}
	s.Opacity = 1
	return s
}

// placement is an anchor in PDF user space (origin bottom-left).
type placement struct {
	x, y     float64
	centered bool
}

func placements(s Spec, size PageSize) []placement {
	if !s.Tiled() {
		return []placement{{x: 10 * cm, y: 15 * cm, centered: true}}
	}
	var out []placement
	for x := 0.0; x < size.Width; x += s.Spacing {
		for y := 0.0; y < size.Height; y += s.Spacing {
			out = append(out, placement{x: x, y: y})
		}
	}
	return out
}
