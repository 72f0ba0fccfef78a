package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Permissions granted on protected documents: printing allowed, modification not.
var Permissions = model.PermissionsPrint

const keyLength = 256

// Protect encrypts doc with AES-256 under password. The owner password is the user
// password, so there is no separate owner secret.
func Protect(doc []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password must not be empty")
	}
	conf := model.NewAESConfiguration(password, password, keyLength)
	conf.Permissions = Permissions
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(doc), &out, conf); err != nil {
		return nil, fmt.Errorf("failed to encrypt document: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount opens doc with password (empty for unprotected documents) and counts its pages.
func PageCount(doc []byte, password string) (int, error) {
	conf := newConfig()
	conf.UserPW = password
	n, err := api.PageCount(bytes.NewReader(doc), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to open document: %w", err)
	}
	return n, nil
}
