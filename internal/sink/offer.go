package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alomari/pdfwatermarker/internal/models"
)

// MemorySink keeps every artifact for direct retrieval, labelled by name.
type MemorySink struct {
	Artifacts []*models.Artifact
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Put(_ context.Context, a *models.Artifact) (models.Delivery, error) {
	m.Artifacts = append(m.Artifacts, a)
	return models.Delivery{Name: a.Label, Status: models.DeliveryOK, Destination: EntryName(a.Label)}, nil
}

func (m *MemorySink) Close() error { return nil }

// DirSink writes each artifact as <sanitized label>.pdf into a directory.
// A repeated label gets a numeric suffix rather than overwriting the earlier file.
type DirSink struct {
	dir  string
	used map[string]int
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSink{dir: dir, used: make(map[string]int)}, nil
}

func (d *DirSink) Put(_ context.Context, a *models.Artifact) (models.Delivery, error) {
	base := Sanitize(a.Label)
	d.used[base]++
	name := base + ".pdf"
	if n := d.used[base]; n > 1 {
		name = fmt.Sprintf("%s_%d.pdf", base, n)
	}
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, a.Content, 0o644); err != nil {
		return models.Delivery{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return models.Delivery{Name: a.Label, Status: models.DeliveryOK, Destination: path}, nil
}

func (d *DirSink) Close() error { return nil }
