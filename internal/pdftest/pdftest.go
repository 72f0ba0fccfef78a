// Package pdftest builds fixtures for tests: small source documents and a font file.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/goregular"
)

// FontFamily is the family name tests register the fixture font under.
const FontFamily = "GoRegular"

// Document returns a Letter-sized PDF with the given number of numbered pages.
func Document(t testing.TB, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "", 18)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("Handout page %d", i))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("pdftest: failed to build document: %v", err)
	}
	return buf.Bytes()
}

// FontBytes returns the raw TTF bytes of the fixture font.
func FontBytes() []byte {
	return goregular.TTF
}

// FontPath writes the fixture font into a temp dir and returns its path.
func FontPath(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "GoRegular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("pdftest: failed to write font: %v", err)
	}
	return path
}
