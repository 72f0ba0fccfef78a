// Package sink realizes the outcomes of a batch run in one of the delivery modes.
package sink

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"unicode"

	"github.com/alomari/pdfwatermarker/internal/batch"
	"github.com/alomari/pdfwatermarker/internal/models"
)

// Mode is the delivery mode, selected once per batch.
type Mode string

const (
	ModeOffer   Mode = "download"
	ModeArchive Mode = "archive"
	ModeUpload  Mode = "upload"
)

// ParseMode maps user input to a Mode. Empty input selects the archive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "archive", "zip":
		return ModeArchive, nil
	case "download", "offer", "files":
		return ModeOffer, nil
	case "upload", "drive":
		return ModeUpload, nil
	}
	return "", fmt.Errorf("unknown output mode %q", s)
}

// ArchiveName is the download name of the archive container.
const ArchiveName = "watermarked_students.zip"

// Sink receives artifacts one at a time. Close finalizes whatever the sink builds.
type Sink interface {
	Put(ctx context.Context, a *models.Artifact) (models.Delivery, error)
	Close() error
}

// Sanitize makes label safe for use as a file or archive entry name:
// whitespace becomes "_", "+" becomes "plus" and path or shell metacharacters become "_".
func Sanitize(label string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r == '+':
			b.WriteString("plus")
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}

// EntryName is the sanitized file name for label.
func EntryName(label string) string {
	return Sanitize(label) + ".pdf"
}

// Drain hands every successful artifact to s and returns one Delivery per outcome, in order.
// Failed outcomes and per-artifact UploadErrors become failed deliveries; the loop goes on.
// Any other error from the sink, or context cancellation between artifacts, aborts the drain.
func Drain(ctx context.Context, outcomes iter.Seq[batch.Outcome], s Sink, logger *slog.Logger) ([]models.Delivery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var deliveries []models.Delivery
	for o := range outcomes {
		if o.Err != nil {
			deliveries = append(deliveries, models.Delivery{Name: o.Name, Status: models.DeliveryFailed, Error: o.Err.Error()})
			continue
		}
		if err := ctx.Err(); err != nil {
			return deliveries, err
		}
		d, err := s.Put(ctx, o.Artifact)
		if err != nil {
			var uploadErr *models.UploadError
			if !errors.As(err, &uploadErr) {
				return deliveries, fmt.Errorf("failed to deliver %q: %w", o.Name, err)
			}
			logger.Error("Failed to upload document", "name", o.Name, "error", err)
			d = models.Delivery{Name: o.Name, Status: models.DeliveryFailed, Error: err.Error()}
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

// Failures counts the failed deliveries.
func Failures(deliveries []models.Delivery) int {
	n := 0
	for _, d := range deliveries {
		if d.Failed() {
			n++
		}
	}
	return n
}
