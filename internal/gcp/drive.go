package gcp

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveUploader creates files in Google Drive folders with a service account.
type DriveUploader struct {
	files   *drive.FilesService
	retries RetryPolicy
}

// Uploads go into folders shared with the service account, which drive.file cannot see.
var driveScopes = []string{drive.DriveScope}

// NewDriveUploader builds a Drive client with full Drive access.
func NewDriveUploader(ctx context.Context, opts ...option.ClientOption) (*DriveUploader, error) {
	opts = append(opts, option.WithScopes(driveScopes...))
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	return &DriveUploader{files: svc.Files, retries: DefaultRetryPolicy}, nil
}

// Create uploads content as name under parentFolderID and returns the new file ID.
func (u *DriveUploader) Create(ctx context.Context, name, parentFolderID string, content []byte, mimeType string) (string, error) {
	meta := &drive.File{Name: name, MimeType: mimeType}
	if parentFolderID != "" {
		meta.Parents = []string{parentFolderID}
	}

	var id string
	err := u.retries.Do(ctx, name, func(ctx context.Context) error {
		f, err := u.files.Create(meta).
			Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
			SupportsAllDrives(true).
			Fields("id").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("drive files.create failed: %w", err)
		}
		id = f.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
