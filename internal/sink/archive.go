package sink

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/klauspost/compress/zip"
)

// Entries carry a fixed timestamp so identical batches give identical archives.
var archiveEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ArchiveSink packs every artifact into one zip container, entry <sanitized label>.pdf.
// Duplicate labels produce duplicate entry names.
type ArchiveSink struct {
	zw *zip.Writer
}

func NewArchiveSink(w io.Writer) *ArchiveSink {
	return &ArchiveSink{zw: zip.NewWriter(w)}
}

func (s *ArchiveSink) Put(_ context.Context, a *models.Artifact) (models.Delivery, error) {
	name := EntryName(a.Label)
	if err := s.Add(name, a.Content); err != nil {
		return models.Delivery{}, err
	}
	return models.Delivery{Name: a.Label, Status: models.DeliveryOK, Destination: name}, nil
}

// Add writes an extra entry, such as the password report.
func (s *ArchiveSink) Add(name string, content []byte) error {
	f, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}

// Close writes the central directory. The underlying writer is left open.
func (s *ArchiveSink) Close() error {
	if err := s.zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}
