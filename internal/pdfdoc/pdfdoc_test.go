package pdfdoc

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSource(t *testing.T) {
	src, err := LoadSource("handout.pdf", bytes.NewReader(pdftest.Document(t, 3)))
	require.NoError(t, err)

	assert.Equal(t, "handout.pdf", src.Name)
	assert.Equal(t, 3, src.PageCount)
	assert.Len(t, src.Hash, 64)
	assert.Positive(t, src.Size())
}

func TestLoadSourceRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "not a pdf", input: "this is not a PDF document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSource("bad.pdf", strings.NewReader(tt.input))
			require.Error(t, err)

			var loadErr *models.LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, "bad.pdf", loadErr.Input)
		})
	}
}

func TestMergeKeepsPageCountAndSource(t *testing.T) {
	src, err := LoadSource("handout.pdf", bytes.NewReader(pdftest.Document(t, 3)))
	require.NoError(t, err)
	before := readAll(t, src)

	m, err := NewMerger(t.TempDir())
	require.NoError(t, err)
	defer m.Close()

	overlay := pdftest.Document(t, 1)
	first, err := m.Merge(src, overlay)
	require.NoError(t, err)
	second, err := m.Merge(src, overlay)
	require.NoError(t, err)

	for _, doc := range [][]byte{first, second} {
		n, err := PageCount(doc, "")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}
	assert.Equal(t, before, readAll(t, src), "merging must not change the source")
}

func TestProtectRoundTrip(t *testing.T) {
	doc := pdftest.Document(t, 2)
	const password = "AliHassan@alomari"

	protected, err := Protect(doc, password)
	require.NoError(t, err)

	n, err := PageCount(protected, password)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, wrong := range []string{"", "AliHassan", "alihassan@alomari", password + " "} {
		_, err := PageCount(protected, wrong)
		assert.Error(t, err, "password %q must not open the document", wrong)
	}
}

func TestProtectRequiresPassword(t *testing.T) {
	_, err := Protect(pdftest.Document(t, 1), "")
	assert.Error(t, err)
}

func readAll(t *testing.T, src *Source) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(src.Reader())
	require.NoError(t, err)
	return buf.Bytes()
}
