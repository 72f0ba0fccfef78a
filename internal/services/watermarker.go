package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/alomari/pdfwatermarker/internal/batch"
	"github.com/alomari/pdfwatermarker/internal/gcp"
	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/pdfdoc"
	"github.com/alomari/pdfwatermarker/internal/report"
	"github.com/alomari/pdfwatermarker/internal/roster"
	"github.com/alomari/pdfwatermarker/internal/sink"
	"github.com/alomari/pdfwatermarker/internal/watermark"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type WatermarkerConfig struct {
	ProjectID      string
	CollectionName string
	FontPath       string
	FontFamily     string
	Style          string
	PasswordSuffix string
	UploadTarget   string
	DriveFolderID  string
	UploadBucket   string
	OutputBucket   string
	WorkDir        string
}

// ConfigFromEnv reads the watermarker settings from the environment.
// FONT_PATH must point at a TTF that is already on disk; it is never downloaded.
func ConfigFromEnv() WatermarkerConfig {
	return WatermarkerConfig{
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "watermark-jobs"),
		FontPath:       gcp.GetEnv("FONT_PATH", "Cairo-Regular.ttf"),
		FontFamily:     gcp.GetEnv("FONT_FAMILY", "Cairo"),
		Style:          gcp.GetEnv("WATERMARK_STYLE", string(batch.StyleTiled)),
		PasswordSuffix: gcp.GetEnv("PASSWORD_SUFFIX", batch.DefaultPasswordSuffix),
		UploadTarget:   gcp.GetEnv("UPLOAD_TARGET", "drive"),
		DriveFolderID:  gcp.GetEnv("DRIVE_FOLDER_ID", ""),
		UploadBucket:   gcp.GetEnv("UPLOAD_BUCKET", ""),
		OutputBucket:   gcp.GetEnv("OUTPUT_BUCKET", ""),
		WorkDir:        gcp.GetEnv("WORK_DIR", ""),
	}
}

// JobStore records the status of each batch run.
type JobStore interface {
	Create(ctx context.Context, jobID string, job *models.Job) error
	RecordSource(ctx context.Context, jobID, sourceHash string, pageCount, nameCount int) error
	UpdateStatus(ctx context.Context, jobID, status, errDetails string) error
	Complete(ctx context.Context, jobID, status string, deliveries []models.Delivery) error
}

// ObjectStore reads manifest inputs and writes batch outputs.
type ObjectStore interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	SaveAtomically(ctx context.Context, bucket, object string, content []byte, contentType string) error
}

type WatermarkerFunction struct {
	renderer *watermark.Renderer
	jobs     JobStore
	objects  ObjectStore
	uploader sink.Uploader
	config   WatermarkerConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// WatermarkRequest is one batch: a source document and the names to stamp it with.
// Names and the roster file are combined, typed names first.
type WatermarkRequest struct {
	SourceName string
	Source     io.Reader
	Names      []string
	RosterName string
	Roster     io.Reader
	Mode       sink.Mode
	Style      string
	Protect    bool
	FolderID   string
}

// WatermarkResult holds what the chosen mode produced. Documents is set in offer mode,
// Archive in archive mode.
type WatermarkResult struct {
	JobID      string
	Status     string
	PageCount  int
	Deliveries []models.Delivery
	Passwords  []models.PasswordRecord
	Documents  []*models.Artifact
	Archive    []byte
}

// NewWatermarker builds the watermarker from the environment. The font is loaded once
// here and shared by every request.
func NewWatermarker(ctx context.Context) (*WatermarkerFunction, error) {
	config := ConfigFromEnv()
	if _, err := batch.ParseStyle(config.Style); err != nil {
		return nil, fmt.Errorf("WATERMARK_STYLE: %w", err)
	}

	font, err := watermark.LoadFont(config.FontFamily, config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", config.FontPath, err)
	}
	renderer, err := watermark.NewRenderer(font, slog.Default())
	if err != nil {
		return nil, err
	}

	opts := gcp.ClientOptionsFromEnv()

	var jobs JobStore
	if config.ProjectID != "" {
		firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		jobs = gcp.NewFirestoreJobStore(firestoreClient, config.CollectionName)
	}

	objects, err := gcp.NewBucketStore(ctx, opts...)
	if err != nil {
		return nil, err
	}

	var uploader sink.Uploader
	switch config.UploadTarget {
	case "drive":
		uploader, err = gcp.NewDriveUploader(ctx, opts...)
	case "bucket":
		uploader, err = gcp.NewBucketUploader(objects.Client(), config.UploadBucket)
	default:
		err = fmt.Errorf("UPLOAD_TARGET must be drive or bucket, got %q", config.UploadTarget)
	}
	if err != nil {
		return nil, err
	}

	f := NewWatermarkerWithDeps(config, renderer, jobs, objects, uploader)
	slog.Info("Watermarker logic initialized.", "font", config.FontFamily, "uploadTarget", config.UploadTarget, "jobTracking", jobs != nil)
	return f, nil
}

// NewWatermarkerWithDeps wires explicit collaborators. A nil JobStore disables job tracking.
func NewWatermarkerWithDeps(config WatermarkerConfig, renderer *watermark.Renderer, jobs JobStore, objects ObjectStore, uploader sink.Uploader) *WatermarkerFunction {
	if jobs == nil {
		jobs = noopJobStore{}
	}
	return &WatermarkerFunction{
		renderer: renderer,
		jobs:     jobs,
		objects:  objects,
		uploader: uploader,
		config:   config,
	}
}

// Process runs one batch end to end. A *models.LoadError means nothing was produced.
// Per-name failures are reported in the deliveries and do not fail the call.
func (f *WatermarkerFunction) Process(ctx context.Context, req *WatermarkRequest) (*WatermarkResult, error) {
	jobID := uuid.NewString()
	logCtx := slog.With("jobId", jobID, "sourceFilename", req.SourceName, "mode", req.Mode)
	logCtx.Info("Processing watermark request.")

	if err := f.createInitialJob(ctx, jobID, req); err != nil {
		logCtx.Error("Failed to create job document", "error", err)
		return nil, err
	}

	style, err := batch.ParseStyle(firstNonEmpty(req.Style, f.config.Style))
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "invalid style", &models.LoadError{Input: "style", Err: err})
	}
	names, err := resolveNames(req)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to read names", err)
	}
	src, err := pdfdoc.LoadSource(req.SourceName, req.Source)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to load source document", err)
	}
	logCtx = logCtx.With("sourceHash", src.Hash)
	logCtx.Info("Source document loaded.", "pageCount", src.PageCount, "nameCount", len(names))
	if err := f.jobs.RecordSource(ctx, jobID, src.Hash, src.PageCount, len(names)); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to update job document", err)
	}

	merger, err := pdfdoc.NewMerger(f.config.WorkDir)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to prepare merger", err)
	}
	defer merger.Close()

	run := batch.NewDriver(f.renderer, merger, logCtx).Run(ctx, src, names, batch.Options{
		Style:          style,
		Protect:        req.Protect,
		PasswordSuffix: f.config.PasswordSuffix,
	})

	result := &WatermarkResult{JobID: jobID, PageCount: src.PageCount}
	if err := f.deliver(ctx, logCtx, run, req, result); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to deliver documents", err)
	}
	if err := run.Err(); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "batch abandoned", err)
	}

	result.Passwords = run.Report()
	result.Status = models.JobCompleted
	if failed := sink.Failures(result.Deliveries); failed > 0 {
		result.Status = models.JobCompletedWithErrors
		logCtx.Warn("Some documents were not delivered.", "failed", failed, "total", len(result.Deliveries))
	}
	if err := f.jobs.Complete(ctx, jobID, result.Status, result.Deliveries); err != nil {
		logCtx.Error("Failed to record job completion", "error", err)
	}
	logCtx.Info("Watermark batch complete.", "status", result.Status, "deliveries", len(result.Deliveries))
	return result, nil
}

func (f *WatermarkerFunction) deliver(ctx context.Context, logCtx *slog.Logger, run *batch.Run, req *WatermarkRequest, result *WatermarkResult) error {
	var err error
	switch req.Mode {
	case sink.ModeOffer:
		mem := sink.NewMemorySink()
		result.Deliveries, err = sink.Drain(ctx, run.All(), mem, logCtx)
		result.Documents = mem.Artifacts
		return err

	case sink.ModeArchive, "":
		var buf bytes.Buffer
		archive := sink.NewArchiveSink(&buf)
		result.Deliveries, err = sink.Drain(ctx, run.All(), archive, logCtx)
		if err != nil {
			return err
		}
		if req.Protect {
			var xlsx bytes.Buffer
			if err := report.WriteXLSX(&xlsx, run.Report()); err != nil {
				return err
			}
			if err := archive.Add(report.Filename, xlsx.Bytes()); err != nil {
				return err
			}
		}
		if err := archive.Close(); err != nil {
			return err
		}
		result.Archive = buf.Bytes()
		return nil

	case sink.ModeUpload:
		if f.uploader == nil {
			return fmt.Errorf("no upload target is configured")
		}
		folderID := firstNonEmpty(req.FolderID, f.config.DriveFolderID)
		result.Deliveries, err = sink.Drain(ctx, run.All(), sink.NewUploadSink(f.uploader, folderID), logCtx)
		return err
	}
	return fmt.Errorf("unsupported output mode %q", req.Mode)
}

// Preview renders the watermark for the first name as a PNG.
func (f *WatermarkerFunction) Preview(ctx context.Context, req *WatermarkRequest) ([]byte, error) {
	names, err := resolveNames(req)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &models.LoadError{Input: "names", Err: fmt.Errorf("no names to preview")}
	}
	style, err := batch.ParseStyle(firstNonEmpty(req.Style, f.config.Style))
	if err != nil {
		return nil, &models.LoadError{Input: "style", Err: err}
	}
	img, err := f.renderer.Preview(style.Spec(names[0]), watermark.LetterSize, 1)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := watermark.EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ProcessManifest runs the batch described by a JSON manifest object and stores the
// outputs under OUTPUT_BUCKET/<jobId>/. Objects that are not .json are ignored.
func (f *WatermarkerFunction) ProcessManifest(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".json") {
		logCtx.Info("Object is not a batch manifest. Skipping.")
		return nil
	}
	logCtx.Info("Processing batch manifest.")

	raw, err := f.objects.Read(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download manifest", "error", err)
		return err
	}
	var manifest models.BatchManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		logCtx.Error("Failed to parse manifest", "error", err)
		return &models.LoadError{Input: e.Name, Err: err}
	}
	if manifest.SourceObject == "" {
		return &models.LoadError{Input: e.Name, Err: fmt.Errorf("manifest has no sourceObject")}
	}

	mode, err := sink.ParseMode(manifest.Mode)
	if err != nil {
		return &models.LoadError{Input: e.Name, Err: err}
	}
	if mode == sink.ModeOffer {
		// Nobody is waiting to be offered individual files; bundle them instead.
		mode = sink.ModeArchive
	}

	source, err := f.objects.Read(ctx, e.Bucket, manifest.SourceObject)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}
	req := &WatermarkRequest{
		SourceName: manifest.SourceObject,
		Source:     bytes.NewReader(source),
		Names:      manifest.Names,
		Mode:       mode,
		Style:      manifest.Style,
		Protect:    manifest.Protect,
		FolderID:   manifest.FolderID,
	}
	if manifest.RosterObject != "" {
		rosterData, err := f.objects.Read(ctx, e.Bucket, manifest.RosterObject)
		if err != nil {
			logCtx.Error("Failed to download roster", "error", err)
			return err
		}
		req.RosterName = manifest.RosterObject
		req.Roster = bytes.NewReader(rosterData)
	}

	result, err := f.Process(ctx, req)
	if err != nil {
		return err
	}
	logCtx = logCtx.With("jobId", result.JobID)

	outBucket := firstNonEmpty(f.config.OutputBucket, e.Bucket)
	if result.Archive != nil {
		object := path.Join(result.JobID, sink.ArchiveName)
		if err := f.objects.SaveAtomically(ctx, outBucket, object, result.Archive, "application/zip"); err != nil {
			logCtx.Error("Failed to store archive", "error", err)
			return err
		}
		logCtx.Info("Archive stored.", "object", object)
	}
	if manifest.Protect {
		var xlsx bytes.Buffer
		if err := report.WriteXLSX(&xlsx, result.Passwords); err != nil {
			return err
		}
		object := path.Join(result.JobID, report.Filename)
		if err := f.objects.SaveAtomically(ctx, outBucket, object, xlsx.Bytes(), xlsxContentType); err != nil {
			logCtx.Error("Failed to store password report", "error", err)
			return err
		}
		logCtx.Info("Password report stored.", "object", object)
	}
	return nil
}

func (f *WatermarkerFunction) createInitialJob(ctx context.Context, jobID string, req *WatermarkRequest) error {
	job := &models.Job{
		SourceFilename: req.SourceName,
		Status:         models.JobProcessing,
		Mode:           string(req.Mode),
		Protected:      req.Protect,
		CreatedAt:      time.Now(),
	}
	return f.jobs.Create(ctx, jobID, job)
}

func (f *WatermarkerFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)
	if err := f.jobs.UpdateStatus(ctx, jobID, models.JobFailed, fmt.Sprintf("%s: %v", message, originalErr)); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func resolveNames(req *WatermarkRequest) ([]string, error) {
	names := roster.Clean(req.Names)
	if req.Roster != nil {
		fromFile, err := roster.Load(req.RosterName, req.Roster)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}
	return names, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsLoadError reports whether err means the request inputs could not be read.
func IsLoadError(err error) bool {
	var loadErr *models.LoadError
	return errors.As(err, &loadErr)
}

type noopJobStore struct{}

func (noopJobStore) Create(context.Context, string, *models.Job) error                 { return nil }
func (noopJobStore) RecordSource(context.Context, string, string, int, int) error      { return nil }
func (noopJobStore) UpdateStatus(context.Context, string, string, string) error        { return nil }
func (noopJobStore) Complete(context.Context, string, string, []models.Delivery) error { return nil }
