package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/pdfdoc"
	"github.com/alomari/pdfwatermarker/internal/pdftest"
	"github.com/alomari/pdfwatermarker/internal/report"
	"github.com/alomari/pdfwatermarker/internal/sink"
	"github.com/alomari/pdfwatermarker/internal/watermark"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeJobs struct {
	mu       sync.Mutex
	created  map[string]*models.Job
	statuses map[string][]string
	hashes   map[string]string
	final    map[string][]models.Delivery
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		created:  map[string]*models.Job{},
		statuses: map[string][]string{},
		hashes:   map[string]string{},
		final:    map[string][]models.Delivery{},
	}
}

func (j *fakeJobs) Create(_ context.Context, jobID string, job *models.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.created[jobID] = job
	j.statuses[jobID] = append(j.statuses[jobID], job.Status)
	return nil
}

func (j *fakeJobs) RecordSource(_ context.Context, jobID, hash string, _, _ int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.hashes[jobID] = hash
	return nil
}

func (j *fakeJobs) UpdateStatus(_ context.Context, jobID, status, _ string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statuses[jobID] = append(j.statuses[jobID], status)
	return nil
}

func (j *fakeJobs) Complete(_ context.Context, jobID, status string, deliveries []models.Delivery) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statuses[jobID] = append(j.statuses[jobID], status)
	j.final[jobID] = deliveries
	return nil
}

func (j *fakeJobs) only(t *testing.T) []string {
	t.Helper()
	require.Len(t, j.statuses, 1)
	for _, s := range j.statuses {
		return s
	}
	return nil
}

type fakeObjects struct {
	objects map[string][]byte
}

func (o *fakeObjects) Read(_ context.Context, bucket, object string) ([]byte, error) {
	data, ok := o.objects[bucket+"/"+object]
	if !ok {
		return nil, fmt.Errorf("object gs://%s/%s not found", bucket, object)
	}
	return data, nil
}

func (o *fakeObjects) SaveAtomically(_ context.Context, bucket, object string, content []byte, _ string) error {
	key := bucket + "/" + object
	if _, ok := o.objects[key]; ok {
		return nil
	}
	o.objects[key] = content
	return nil
}

type fakeUploader struct {
	failFor map[string]bool
	names   []string
}

func (u *fakeUploader) Create(_ context.Context, name, parentFolderID string, _ []byte, _ string) (string, error) {
	u.names = append(u.names, parentFolderID+"/"+name)
	if u.failFor[name] {
		return "", errors.New("rate limit exceeded")
	}
	return "id-" + name, nil
}

func newTestWatermarker(t *testing.T, jobs JobStore, objects ObjectStore, uploader sink.Uploader) *WatermarkerFunction {
	t.Helper()
	font, err := watermark.LoadFont(pdftest.FontFamily, pdftest.FontPath(t))
	require.NoError(t, err)
	renderer, err := watermark.NewRenderer(font, nil)
	require.NoError(t, err)
	config := WatermarkerConfig{
		Style:          "tiled",
		PasswordSuffix: "@alomari",
		DriveFolderID:  "default-folder",
		OutputBucket:   "outputs",
		WorkDir:        t.TempDir(),
	}
	return NewWatermarkerWithDeps(config, renderer, jobs, objects, uploader)
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = content
	}
	return entries
}

func TestProcessArchiveProtected(t *testing.T) {
	jobs := newFakeJobs()
	f := newTestWatermarker(t, jobs, nil, nil)

	result, err := f.Process(context.Background(), &WatermarkRequest{
		SourceName: "handout.pdf",
		Source:     bytes.NewReader(pdftest.Document(t, 3)),
		Names:      []string{"A B", "", "C+D"},
		Mode:       sink.ModeArchive,
		Protect:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, result.Status)
	assert.Equal(t, 3, result.PageCount)
	require.Len(t, result.Deliveries, 2)

	entries := readZip(t, result.Archive)
	require.Len(t, entries, 3)
	require.Contains(t, entries, "A_B.pdf")
	require.Contains(t, entries, "CplusD.pdf")
	require.Contains(t, entries, report.Filename)

	n, err := pdfdoc.PageCount(entries["A_B.pdf"], "AB@alomari")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	x, err := excelize.OpenReader(bytes.NewReader(entries[report.Filename]))
	require.NoError(t, err)
	defer x.Close()
	rows, err := x.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		report.Columns,
		{"A B", "AB@alomari", "Protected"},
		{"C+D", "C+D@alomari", "Protected"},
	}, rows)

	assert.Equal(t, []string{models.JobProcessing, models.JobCompleted}, jobs.only(t))
	assert.Len(t, jobs.hashes[result.JobID], 64)
}

func TestProcessOffer(t *testing.T) {
	f := newTestWatermarker(t, nil, nil, nil)

	result, err := f.Process(context.Background(), &WatermarkRequest{
		SourceName: "handout.pdf",
		Source:     bytes.NewReader(pdftest.Document(t, 2)),
		RosterName: "names.csv",
		Roster:     strings.NewReader("Name\nAli\nSara\n"),
		Mode:       sink.ModeOffer,
		Style:      "centered",
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "Ali", result.Documents[0].Label)
	assert.Nil(t, result.Archive)
	assert.Empty(t, result.Passwords)
}

func TestProcessUploadReportsFailuresPerName(t *testing.T) {
	jobs := newFakeJobs()
	up := &fakeUploader{failFor: map[string]bool{"Ali Hassan.pdf": true}}
	f := newTestWatermarker(t, jobs, nil, up)

	result, err := f.Process(context.Background(), &WatermarkRequest{
		SourceName: "handout.pdf",
		Source:     bytes.NewReader(pdftest.Document(t, 1)),
		Names:      []string{"Ali Hassan", "Sara"},
		Mode:       sink.ModeUpload,
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobCompletedWithErrors, result.Status)
	assert.Equal(t, []string{"default-folder/Ali Hassan.pdf", "default-folder/Sara.pdf"}, up.names)
	require.Len(t, result.Deliveries, 2)
	assert.True(t, result.Deliveries[0].Failed())
	assert.Equal(t, "id-Sara.pdf", result.Deliveries[1].Destination)
	assert.Equal(t, result.Deliveries, jobs.final[result.JobID])
}

func TestProcessLoadErrorFailsJob(t *testing.T) {
	jobs := newFakeJobs()
	f := newTestWatermarker(t, jobs, nil, nil)

	result, err := f.Process(context.Background(), &WatermarkRequest{
		SourceName: "broken.pdf",
		Source:     strings.NewReader("not a pdf"),
		Names:      []string{"Ali"},
		Mode:       sink.ModeArchive,
	})
	assert.Nil(t, result)
	assert.True(t, IsLoadError(err))
	assert.Equal(t, []string{models.JobProcessing, models.JobFailed}, jobs.only(t))
}

func TestPreview(t *testing.T) {
	f := newTestWatermarker(t, nil, nil, nil)

	png, err := f.Preview(context.Background(), &WatermarkRequest{Names: []string{"", "Sara"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = f.Preview(context.Background(), &WatermarkRequest{})
	assert.True(t, IsLoadError(err))
}

func TestProcessManifest(t *testing.T) {
	manifest, err := json.Marshal(models.BatchManifest{
		SourceObject: "in/handout.pdf",
		RosterObject: "in/names.txt",
		Mode:         "archive",
		Protect:      true,
	})
	require.NoError(t, err)
	objects := &fakeObjects{objects: map[string][]byte{
		"intake/in/handout.pdf": pdftest.Document(t, 2),
		"intake/in/names.txt":   []byte("Ali\nSara\n"),
		"intake/batch.json":     manifest,
	}}
	jobs := newFakeJobs()
	f := newTestWatermarker(t, jobs, objects, nil)

	require.NoError(t, f.ProcessManifest(context.Background(), GCSEvent{Bucket: "intake", Name: "batch.json"}))

	var jobID string
	for id := range jobs.created {
		jobID = id
	}
	require.NotEmpty(t, jobID)
	archive := objects.objects["outputs/"+jobID+"/"+sink.ArchiveName]
	require.NotNil(t, archive)
	assert.Contains(t, readZip(t, archive), "Sara.pdf")
	assert.NotNil(t, objects.objects["outputs/"+jobID+"/"+report.Filename])
}

func TestProcessManifestIgnoresOtherObjects(t *testing.T) {
	f := newTestWatermarker(t, nil, &fakeObjects{objects: map[string][]byte{}}, nil)
	assert.NoError(t, f.ProcessManifest(context.Background(), GCSEvent{Bucket: "intake", Name: "in/handout.pdf"}))
}

func TestProcessManifestMissingSource(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{
		"intake/batch.json": []byte(`{"mode":"archive","names":["Ali"]}`),
	}}
	f := newTestWatermarker(t, nil, objects, nil)
	err := f.ProcessManifest(context.Background(), GCSEvent{Bucket: "intake", Name: "batch.json"})
	assert.True(t, IsLoadError(err))
}

func TestNewWatermarkerNeedsLocalFont(t *testing.T) {
	t.Setenv("FONT_PATH", filepath.Join(t.TempDir(), "Cairo-Regular.ttf"))
	t.Setenv("WATERMARK_STYLE", "tiled")

	_, err := NewWatermarker(context.Background())
	var renderErr *models.RenderError
	require.ErrorAs(t, err, &renderErr)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("FONT_PATH", "")
	t.Setenv("FIRESTORE_COLLECTION", "")
	for _, key := range []string{"FONT_PATH", "FIRESTORE_COLLECTION"} {
		require.NoError(t, os.Unsetenv(key))
	}
	config := ConfigFromEnv()
	assert.Equal(t, "Cairo-Regular.ttf", config.FontPath)
	assert.Equal(t, "watermark-jobs", config.CollectionName)
}
