package watermark

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/pdftest"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/bidi"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	font, err := LoadFont(pdftest.FontFamily, pdftest.FontPath(t))
	require.NoError(t, err)
	r, err := NewRenderer(font, nil)
	require.NoError(t, err)
	return r
}

func TestLoadFontErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFont("Cairo", filepath.Join(t.TempDir(), "Cairo-Regular.ttf"))
		var renderErr *models.RenderError
		require.True(t, errors.As(err, &renderErr))
	})
	t.Run("empty path", func(t *testing.T) {
		_, err := LoadFont("Cairo", "")
		var renderErr *models.RenderError
		require.True(t, errors.As(err, &renderErr))
	})
	t.Run("not a font", func(t *testing.T) {
		_, err := ParseFont("Cairo", []byte("definitely not a TrueType file"))
		var renderErr *models.RenderError
		require.True(t, errors.As(err, &renderErr))
	})
}

func TestNewRendererRequiresFont(t *testing.T) {
	_, err := NewRenderer(nil, nil)
	var renderErr *models.RenderError
	require.True(t, errors.As(err, &renderErr))
}

func TestMissingGlyphs(t *testing.T) {
	font, err := ParseFont(pdftest.FontFamily, pdftest.FontBytes())
	require.NoError(t, err)

	assert.Empty(t, font.Missing("Ali Hassan"))
	assert.NotEmpty(t, font.Missing(TilePrefix+"Ali"))
}

func TestPlacements(t *testing.T) {
	centered := placements(CenteredSpec("Ali"), LetterSize)
	require.Len(t, centered, 1)
	assert.True(t, centered[0].centered)
	assert.InDelta(t, 283.46, centered[0].x, 0.01)
	assert.InDelta(t, 425.20, centered[0].y, 0.01)

	assert.Len(t, placements(TiledSpec("Ali"), A4Size), 15)

	tiled := placements(TiledSpec("Ali"), LetterSize)
	assert.Len(t, tiled, 16)
	assert.Equal(t, placement{x: 0, y: 0}, tiled[0])
	for _, p := range tiled {
		assert.Less(t, p.x, LetterSize.Width)
		assert.Less(t, p.y, LetterSize.Height)
	}
}

func TestSpecDefaults(t *testing.T) {
	s := Spec{Text: "Ali", Spacing: 150}.normalized()
	assert.Equal(t, 14.0, s.FontSize)
	assert.Equal(t, DefaultTileOpacity, s.Opacity)

	c := Spec{Text: "Ali", Opacity: 0.3}.normalized()
	assert.Equal(t, 1.0, c.Opacity, "single placement is always opaque")
	assert.Equal(t, 24.0, c.FontSize)

	assert.Equal(t, TilePrefix+"Sara", TiledSpec("Sara").Label())
	assert.Equal(t, "Sara", CenteredSpec("Sara").Label())
}

func TestRenderProducesSinglePage(t *testing.T) {
	r := testRenderer(t)

	for _, spec := range []Spec{CenteredSpec("Ali Hassan"), TiledSpec("Ali Hassan")} {
		overlay, err := r.Render(spec, LetterSize)
		require.NoError(t, err)

		n, err := api.PageCount(bytes.NewReader(overlay.PDF), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, LetterSize, overlay.Size)
	}
}

func TestRenderDegradesOnMissingGlyphs(t *testing.T) {
	r := testRenderer(t)

	overlay, err := r.Render(TiledSpec("سارة"), LetterSize)
	require.NoError(t, err)
	assert.NotEmpty(t, overlay.Missing)
	assert.NotEmpty(t, overlay.PDF)
}

func TestRenderIsDeterministic(t *testing.T) {
	r := testRenderer(t)

	for _, spec := range []Spec{TiledSpec("Ali Hassan"), CenteredSpec("Ali Hassan")} {
		a, err := r.Render(spec, LetterSize)
		require.NoError(t, err)
		b, err := r.Render(spec, LetterSize)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a.PDF, b.PDF), "overlay for %q differs between renders", spec.Label())
	}
}

func TestPreviewIsPixelIdentical(t *testing.T) {
	r := testRenderer(t)
	spec := TiledSpec("Ali Hassan")

	first, err := r.Preview(spec, LetterSize, 1)
	require.NoError(t, err)
	second, err := r.Preview(spec, LetterSize, 1)
	require.NoError(t, err)

	a, ok := first.(*image.RGBA)
	require.True(t, ok)
	b, ok := second.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, a.Rect, b.Rect)
	assert.True(t, bytes.Equal(a.Pix, b.Pix))
	assert.Equal(t, image.Rect(0, 0, 612, 792), a.Rect)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, first))
	assert.NotZero(t, buf.Len())
}

func TestPreviewRejectsBadScale(t *testing.T) {
	r := testRenderer(t)
	_, err := r.Preview(CenteredSpec("Ali"), LetterSize, 0)
	assert.Error(t, err)
}

func TestVisualOrder(t *testing.T) {
	assert.Equal(t, "Ali Hassan", visualOrder("Ali Hassan"))
	assert.Equal(t, "", visualOrder(""))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "hebrew", input: "שלום", want: "םולש"},
		{name: "arabic", input: "سارة", want: "ةراس"},
		{name: "latin name after arabic prefix", input: TilePrefix + "Ali", want: "Ali ـب صاخ"},
		{name: "arabic inside latin paragraph", input: "Ali علي", want: "Ali يلع"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, visualOrder(tt.input))
		})
	}

	dir, ok := paragraphDirection(TilePrefix + "Ali")
	assert.True(t, ok)
	assert.Equal(t, "RightToLeft", dirName(dir))

	_, ok = paragraphDirection("Sara 2")
	assert.False(t, ok)
}

func TestReverse(t *testing.T) {
	assert.Equal(t, "םולש", reverse("שלום"))
	assert.Equal(t, "", reverse(""))
}

func dirName(d bidi.Direction) string {
	if d == bidi.RightToLeft {
		return "RightToLeft"
	}
	return "LeftToRight"
}
