package watermark

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/fogleman/gg"
)

// Preview rasterizes the same layout Render draws onto a white page, scale pixels per point.
func (r *Renderer) Preview(spec Spec, size PageSize, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, &models.RenderError{Name: spec.Text, Err: fmt.Errorf("invalid preview scale %v", scale)}
	}
	spec = spec.normalized()
	text := visualOrder(spec.Label())

	w := int(math.Ceil(size.Width * scale))
	h := int(math.Ceil(size.Height * scale))
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetFontFace(r.font.face(spec.FontSize * scale))
	dc.SetRGBA(0, 0, 0, spec.Opacity)
	for _, p := range placements(spec, size) {
		x, y := p.x*scale, (size.Height-p.y)*scale
		dc.Push()
		// The raster y axis points down, so a counter-clockwise turn is negative.
		dc.RotateAbout(gg.Radians(-spec.Rotation), x, y)
		if p.centered {
			dc.DrawStringAnchored(text, x, y, 0.5, 0)
		} else {
			dc.DrawString(text, x, y)
		}
		dc.Pop()
	}
	return dc.Image(), nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
