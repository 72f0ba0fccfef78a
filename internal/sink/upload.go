package sink

import (
	"context"

	"github.com/alomari/pdfwatermarker/internal/models"
)

// PDFMimeType is the content type of every uploaded artifact.
const PDFMimeType = "application/pdf"

// Uploader is the remote storage collaborator. Retries, if any, happen inside it.
type Uploader interface {
	Create(ctx context.Context, name, parentFolderID string, content []byte, mimeType string) (string, error)
}

// UploadSink hands each artifact to an Uploader as <label>.pdf under one folder.
type UploadSink struct {
	uploader Uploader
	folderID string
}

func NewUploadSink(uploader Uploader, folderID string) *UploadSink {
	return &UploadSink{uploader: uploader, folderID: folderID}
}

// Put returns a *models.UploadError when the collaborator rejects the artifact.
func (s *UploadSink) Put(ctx context.Context, a *models.Artifact) (models.Delivery, error) {
	id, err := s.uploader.Create(ctx, a.Label+".pdf", s.folderID, a.Content, PDFMimeType)
	if err != nil {
		return models.Delivery{}, &models.UploadError{Name: a.Label, Err: err}
	}
	return models.Delivery{Name: a.Label, Status: models.DeliveryOK, Destination: id}, nil
}

func (s *UploadSink) Close() error { return nil }
