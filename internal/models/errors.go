package models

import "fmt"

// LoadError reports that the source document or the name list could not be parsed.
// It aborts a batch before any artifact is produced.
type LoadError struct {
	Input string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Input, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports a font or glyph failure while rendering an overlay.
type RenderError struct {
	Name string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("render: %v", e.Err)
	}
	return fmt.Sprintf("render %q: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// EncryptionError reports that password protection failed for one name.
type EncryptionError struct {
	Name string
	Err  error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encrypt %q: %v", e.Name, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// UploadError reports that the remote storage collaborator rejected one artifact.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
