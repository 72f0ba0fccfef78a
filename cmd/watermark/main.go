package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alomari/pdfwatermarker/internal/batch"
	"github.com/alomari/pdfwatermarker/internal/gcp"
	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/pdfdoc"
	"github.com/alomari/pdfwatermarker/internal/report"
	"github.com/alomari/pdfwatermarker/internal/roster"
	"github.com/alomari/pdfwatermarker/internal/sink"
	"github.com/alomari/pdfwatermarker/internal/watermark"
	"github.com/joho/godotenv"
)

type options struct {
	pdf      string
	names    string
	roster   string
	mode     string
	out      string
	style    string
	protect  bool
	report   string
	font     string
	family   string
	folder   string
	preview  string
	workDir  string
	suffix   string
	uploadTo string
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], logger))
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("watermark", flag.ContinueOnError)
	fs.StringVar(&o.pdf, "pdf", "", "source PDF to watermark")
	fs.StringVar(&o.names, "names", "", "names, one per line")
	fs.StringVar(&o.roster, "roster", "", "name list file (.xlsx, .csv or .txt)")
	fs.StringVar(&o.mode, "mode", "files", "output mode: files, zip or upload")
	fs.StringVar(&o.out, "out", "", "output directory (files) or archive path (zip)")
	fs.StringVar(&o.style, "style", gcp.GetEnv("WATERMARK_STYLE", string(batch.StyleTiled)), "watermark style: tiled or centered")
	fs.BoolVar(&o.protect, "protect", false, "encrypt each document with a password derived from the name")
	fs.StringVar(&o.report, "report", "", "write the password report here (.xlsx or .csv)")
	fs.StringVar(&o.font, "font", gcp.GetEnv("FONT_PATH", "Cairo-Regular.ttf"), "TrueType font used for the watermark (must exist locally)")
	fs.StringVar(&o.family, "family", gcp.GetEnv("FONT_FAMILY", "Cairo"), "font family name")
	fs.StringVar(&o.folder, "folder", gcp.GetEnv("DRIVE_FOLDER_ID", ""), "destination folder for upload mode")
	fs.StringVar(&o.preview, "preview", "", "write a PNG preview of the first name's watermark and exit")
	fs.StringVar(&o.workDir, "work-dir", gcp.GetEnv("WORK_DIR", ""), "scratch directory")
	fs.StringVar(&o.suffix, "suffix", gcp.GetEnv("PASSWORD_SUFFIX", batch.DefaultPasswordSuffix), "password suffix")
	fs.StringVar(&o.uploadTo, "upload-target", gcp.GetEnv("UPLOAD_TARGET", "drive"), "upload collaborator: drive or bucket")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.pdf == "" && o.preview == "" {
		return nil, errors.New("-pdf is required")
	}
	if o.names == "" && o.roster == "" {
		return nil, errors.New("one of -names or -roster is required")
	}
	return o, nil
}

// run returns the process exit status.
func run(ctx context.Context, args []string, logger *slog.Logger) int {
	o, err := parseFlags(args)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 2
	}
	if err := execute(ctx, o, logger); err != nil {
		logger.Error("Watermarking failed", "error", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, o *options, logger *slog.Logger) error {
	style, err := batch.ParseStyle(o.style)
	if err != nil {
		return err
	}
	font, err := watermark.LoadFont(o.family, o.font)
	if err != nil {
		return err
	}
	renderer, err := watermark.NewRenderer(font, logger)
	if err != nil {
		return err
	}
	names, err := loadNames(o)
	if err != nil {
		return err
	}

	if o.preview != "" {
		return writePreview(renderer, style, names, o.preview)
	}

	mode, err := sink.ParseMode(o.mode)
	if err != nil {
		return err
	}

	f, err := os.Open(o.pdf)
	if err != nil {
		return &models.LoadError{Input: o.pdf, Err: err}
	}
	defer f.Close()
	src, err := pdfdoc.LoadSource(filepath.Base(o.pdf), f)
	if err != nil {
		return err
	}
	logger.Info("Source document loaded.", "pageCount", src.PageCount, "nameCount", len(names), "sourceHash", src.Hash)

	merger, err := pdfdoc.NewMerger(o.workDir)
	if err != nil {
		return err
	}
	defer merger.Close()

	out, closeOut, err := openSink(ctx, mode, o)
	if err != nil {
		return err
	}

	r := batch.NewDriver(renderer, merger, logger).Run(ctx, src, names, batch.Options{
		Style:          style,
		Protect:        o.protect,
		PasswordSuffix: o.suffix,
	})
	deliveries, drainErr := sink.Drain(ctx, r.All(), out, logger)
	if err := closeOut(); err != nil && drainErr == nil {
		drainErr = err
	}
	if drainErr != nil {
		return drainErr
	}
	if err := r.Err(); err != nil {
		return err
	}

	if o.report != "" && o.protect {
		if err := writeReport(o.report, r.Report()); err != nil {
			return err
		}
		logger.Info("Password report written.", "path", o.report)
	}

	for _, d := range deliveries {
		if d.Failed() {
			logger.Error("Document not delivered", "name", d.Name, "error", d.Error)
			continue
		}
		logger.Info("Document delivered", "name", d.Name, "destination", d.Destination)
	}
	if failed := sink.Failures(deliveries); failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(deliveries))
	}
	return nil
}

func loadNames(o *options) ([]string, error) {
	names := roster.FromText(strings.ReplaceAll(o.names, `\n`, "\n"))
	if o.roster != "" {
		f, err := os.Open(o.roster)
		if err != nil {
			return nil, &models.LoadError{Input: o.roster, Err: err}
		}
		defer f.Close()
		fromFile, err := roster.Load(o.roster, f)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}
	return names, nil
}

func openSink(ctx context.Context, mode sink.Mode, o *options) (sink.Sink, func() error, error) {
	switch mode {
	case sink.ModeOffer:
		dir := o.out
		if dir == "" {
			dir = "watermarked"
		}
		s, err := sink.NewDirSink(dir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case sink.ModeArchive:
		path := o.out
		if path == "" {
			path = sink.ArchiveName
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create archive: %w", err)
		}
		s := sink.NewArchiveSink(f)
		return s, func() error { return errors.Join(s.Close(), f.Close()) }, nil

	case sink.ModeUpload:
		uploader, err := newUploader(ctx, o.uploadTo)
		if err != nil {
			return nil, nil, err
		}
		s := sink.NewUploadSink(uploader, o.folder)
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported output mode %q", mode)
}

func newUploader(ctx context.Context, target string) (sink.Uploader, error) {
	opts := gcp.ClientOptionsFromEnv()
	switch target {
	case "drive":
		return gcp.NewDriveUploader(ctx, opts...)
	case "bucket":
		store, err := gcp.NewBucketStore(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return gcp.NewBucketUploader(store.Client(), gcp.GetEnv("UPLOAD_BUCKET", ""))
	}
	return nil, fmt.Errorf("unknown upload target %q", target)
}

func writePreview(renderer *watermark.Renderer, style batch.Style, names []string, path string) error {
	if len(names) == 0 {
		return &models.LoadError{Input: "names", Err: errors.New("no names to preview")}
	}
	img, err := renderer.Preview(style.Spec(names[0]), watermark.LetterSize, 1)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return watermark.EncodePNG(w, img) })
}

func writeReport(path string, records []models.PasswordRecord) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return writeFile(path, func(w io.Writer) error { return report.WriteCSV(w, records) })
	}
	return writeFile(path, func(w io.Writer) error { return report.WriteXLSX(w, records) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
