package watermark

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// Font is a TrueType font loaded once and shared read-only by every render.
type Font struct {
	Family string
	data   []byte
	ttf    *truetype.Font
}

// LoadFont reads and parses the TTF at path and registers it under family.
func LoadFont(family, path string) (*Font, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &models.RenderError{Err: fmt.Errorf("font path is empty")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.RenderError{Err: fmt.Errorf("failed to read font file: %w", err)}
	}
	return ParseFont(family, data)
}

// ParseFont parses raw TTF bytes.
func ParseFont(family string, data []byte) (*Font, error) {
	if strings.TrimSpace(family) == "" {
		return nil, &models.RenderError{Err: fmt.Errorf("font family is empty")}
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, &models.RenderError{Err: fmt.Errorf("failed to parse TTF: %w", err)}
	}
	return &Font{Family: family, data: data, ttf: ttf}, nil
}

// Missing returns the distinct runes of s that the font has no glyph for.
func (f *Font) Missing(s string) []rune {
	var missing []rune
	seen := make(map[rune]bool)
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || seen[r] {
			continue
		}
		seen[r] = true
		if f.ttf.Index(r) == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

func (f *Font) face(size float64) font.Face {
	return truetype.NewFace(f.ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
