// Package pdfdoc wraps pdfcpu for the document side of a batch: loading the source,
// compositing overlays and password protection.
package pdfdoc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Source is the validated, optimized source document of a batch. Its bytes never change
// after LoadSource returns; every consumer reads through a fresh Reader.
type Source struct {
	Name      string
	Hash      string
	PageCount int
	data      []byte
}

// LoadSource reads r fully, validates it in relaxed mode and optimizes it once.
// Any failure is a *models.LoadError.
func LoadSource(name string, r io.Reader) (*Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.LoadError{Input: name, Err: fmt.Errorf("failed to read source document: %w", err)}
	}
	if len(raw) == 0 {
		return nil, &models.LoadError{Input: name, Err: fmt.Errorf("source document is empty")}
	}

	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(raw), &optimized, newConfig()); err != nil {
		return nil, &models.LoadError{Input: name, Err: fmt.Errorf("failed to validate/optimize PDF: %w", err)}
	}
	data := optimized.Bytes()

	pageCount, err := api.PageCount(bytes.NewReader(data), newConfig())
	if err != nil {
		return nil, &models.LoadError{Input: name, Err: fmt.Errorf("failed to get page count: %w", err)}
	}
	if pageCount == 0 {
		return nil, &models.LoadError{Input: name, Err: fmt.Errorf("source document has no pages")}
	}

	sum := sha256.Sum256(raw)
	return &Source{
		Name:      name,
		Hash:      hex.EncodeToString(sum[:]),
		PageCount: pageCount,
		data:      data,
	}, nil
}

// Reader returns an independent reader over the source bytes.
func (s *Source) Reader() io.ReadSeeker {
	return bytes.NewReader(s.data)
}

// Size is the length of the optimized source in bytes.
func (s *Source) Size() int {
	return len(s.data)
}

func newConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}
