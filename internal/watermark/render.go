package watermark

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// Fixed document date so that identical specs produce identical bytes.
var renderEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Overlay is a single-page PDF holding only the watermark, sized to a reference page.
type Overlay struct {
	PDF     []byte
	Size    PageSize
	Label   string
	Missing []rune
}

// Renderer draws watermark overlays with a preloaded font.
type Renderer struct {
	font *Font
	log  *slog.Logger
}

// NewRenderer returns a Renderer that owns font. The font must be loaded before the
// first Render call; a nil font is rejected here.
func NewRenderer(font *Font, logger *slog.Logger) (*Renderer, error) {
	if font == nil {
		return nil, &models.RenderError{Err: fmt.Errorf("font resource is not initialized")}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{font: font, log: logger}, nil
}

// Render produces the overlay page for spec.
func (r *Renderer) Render(spec Spec, size PageSize) (*Overlay, error) {
	spec = spec.normalized()
	label := spec.Label()
	missing := r.font.Missing(label)
	if len(missing) > 0 {
		r.log.Warn("Font has no glyph for some characters; fallback glyph will be drawn.",
			"name", spec.Text, "font", r.font.Family, "missing", string(missing))
	}
	text := visualOrder(label)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetCreationDate(renderEpoch)
	pdf.SetModificationDate(renderEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(r.font.Family, "", r.font.data)
	pdf.AddPage()
	pdf.SetFont(r.font.Family, "", spec.FontSize)
	pdf.SetTextColor(0, 0, 0)
	if spec.Opacity < 1 {
		pdf.SetAlpha(spec.Opacity, "Normal")
	}

	for _, p := range placements(spec, size) {
		// gofpdf measures y from the top edge.
		x, y := p.x, size.Height-p.y
		pdf.TransformBegin()
		pdf.TransformRotate(spec.Rotation, x, y)
		if p.centered {
			pdf.Text(x-pdf.GetStringWidth(text)/2, y, text)
		} else {
			pdf.Text(x, y, text)
		}
		pdf.TransformEnd()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &models.RenderError{Name: spec.Text, Err: fmt.Errorf("failed to write overlay page: %w", err)}
	}
	return &Overlay{
		PDF:     buf.Bytes(),
		Size:    size,
		Label:   label,
		Missing: missing,
	}, nil
}
