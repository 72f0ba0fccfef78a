package pdfdoc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// The overlay is placed at the page origin at its own size, on top of existing content.
// Source pages of a different size are not rescaled.
const overlayDescription = "scalefactor:1 abs, position:bl, offset:0 0, rotation:0, opacity:1"

// Merger composites a one-page overlay onto every page of a source document.
// pdfcpu reads PDF stamps from disk, so overlays are staged in a private scratch dir.
type Merger struct {
	dir string
	seq int
}

// NewMerger creates a scratch directory under workDir (the OS temp dir when empty).
func NewMerger(workDir string) (*Merger, error) {
	dir, err := os.MkdirTemp(workDir, "pdf-watermarker-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Merger{dir: dir}, nil
}

// Close removes the scratch directory.
func (m *Merger) Close() error {
	return os.RemoveAll(m.dir)
}

// Merge returns a new document with overlayPDF stamped over each page of src, in order.
func (m *Merger) Merge(src *Source, overlayPDF []byte) ([]byte, error) {
	m.seq++
	overlayPath := filepath.Join(m.dir, fmt.Sprintf("overlay-%d.pdf", m.seq))
	if err := os.WriteFile(overlayPath, overlayPDF, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage overlay: %w", err)
	}
	defer os.Remove(overlayPath)

	wm, err := api.PDFWatermark(overlayPath, overlayDescription, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay stamp: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(src.Reader(), &out, nil, wm, newConfig()); err != nil {
		return nil, fmt.Errorf("failed to apply overlay: %w", err)
	}
	return out.Bytes(), nil
}
