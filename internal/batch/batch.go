// Package batch drives one watermarking run: for every name it renders an overlay,
// merges it over the source document and optionally protects the result.
package batch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/pdfdoc"
	"github.com/alomari/pdfwatermarker/internal/watermark"
)

// DefaultPasswordSuffix is appended to the whitespace-free name to form a password.
const DefaultPasswordSuffix = "@alomari"

// Style selects the watermark layout.
type Style string

const (
	StyleTiled    Style = "tiled"
	StyleCentered Style = "centered"
)

// ParseStyle maps user input to a Style. Empty input selects the tiled style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleTiled:
		return StyleTiled, nil
	case StyleCentered, "centred", "center":
		return StyleCentered, nil
	}
	return "", fmt.Errorf("unknown watermark style %q", s)
}

// Spec builds the watermark for name in this style.
func (s Style) Spec(name string) watermark.Spec {
	if s == StyleCentered {
		return watermark.CenteredSpec(name)
	}
	return watermark.TiledSpec(name)
}

// Options parameterize a run.
type Options struct {
	Style          Style
	Protect        bool
	PasswordSuffix string
	PageSize       watermark.PageSize
}

func (o Options) withDefaults() Options {
	if o.Style == "" {
		o.Style = StyleTiled
	}
	if o.PasswordSuffix == "" {
		o.PasswordSuffix = DefaultPasswordSuffix
	}
	if o.PageSize == (watermark.PageSize{}) {
		o.PageSize = watermark.LetterSize
	}
	return o
}

// DerivePassword strips all whitespace from name and appends suffix.
func DerivePassword(name, suffix string) string {
	return strings.Join(strings.Fields(name), "") + suffix
}

// Renderer draws the overlay page for one spec.
type Renderer interface {
	Render(spec watermark.Spec, size watermark.PageSize) (*watermark.Overlay, error)
}

// Merger composites an overlay over every page of the source.
type Merger interface {
	Merge(src *pdfdoc.Source, overlayPDF []byte) ([]byte, error)
}

// ProtectFunc encrypts a finished document under password.
type ProtectFunc func(doc []byte, password string) ([]byte, error)

// Outcome is the result for one name. Exactly one of Artifact and Err is set.
type Outcome struct {
	Index    int
	Name     string
	Artifact *models.Artifact
	Err      error
}

// Driver holds the collaborators shared by every run.
type Driver struct {
	renderer Renderer
	merger   Merger
	protect  ProtectFunc
	log      *slog.Logger
}

// NewDriver returns a Driver that protects documents with pdfdoc.Protect.
func NewDriver(renderer Renderer, merger Merger, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{renderer: renderer, merger: merger, protect: pdfdoc.Protect, log: logger}
}

// WithProtect replaces the encryption step.
func (d *Driver) WithProtect(fn ProtectFunc) *Driver {
	d.protect = fn
	return d
}

// Run prepares a run over names. Nothing is processed until the sequence from All is ranged.
func (d *Driver) Run(ctx context.Context, src *pdfdoc.Source, names []string, opts Options) *Run {
	return &Run{
		ctx:    ctx,
		driver: d,
		src:    src,
		names:  append([]string(nil), names...),
		opts:   opts.withDefaults(),
	}
}

// Run is a lazy, restartable pass over a name list.
type Run struct {
	ctx    context.Context
	driver *Driver
	src    *pdfdoc.Source
	names  []string
	opts   Options

	report []models.PasswordRecord
	err    error
}

// All yields one Outcome per name in order, one name at a time. Each call starts over
// from the first name and resets the password report. The run stops between names when
// the context is cancelled; Err then reports why.
func (r *Run) All() iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		r.report = nil
		r.err = nil
		for i, name := range r.names {
			if err := r.ctx.Err(); err != nil {
				r.err = err
				return
			}
			out := r.process(i, name)
			if !yield(out) {
				return
			}
		}
	}
}

// Report returns the password records accumulated by the last pass, in processing order.
// It is empty when protection is off.
func (r *Run) Report() []models.PasswordRecord {
	return r.report
}

// Err returns the cancellation cause if the last pass stopped early.
func (r *Run) Err() error {
	return r.err
}

func (r *Run) process(i int, name string) Outcome {
	d := r.driver
	logCtx := d.log.With("name", name, "index", i)
	out := Outcome{Index: i, Name: name}

	var password string
	if r.opts.Protect {
		password = DerivePassword(name, r.opts.PasswordSuffix)
	}

	doc, err := r.watermark(name)
	if err == nil && r.opts.Protect {
		doc, err = r.encrypt(name, password, doc)
	}
	if err != nil {
		logCtx.Error("Failed to produce document", "error", err)
		out.Err = err
		if r.opts.Protect {
			r.report = append(r.report, models.PasswordRecord{Name: name, Password: password, Status: models.PasswordStatusFailed})
		}
		return out
	}

	if r.opts.Protect {
		r.report = append(r.report, models.PasswordRecord{Name: name, Password: password, Status: models.PasswordStatusProtected})
	}
	out.Artifact = &models.Artifact{
		Label:     name,
		Content:   doc,
		Password:  password,
		PageCount: r.src.PageCount,
	}
	logCtx.Info("Watermarked document", "bytes", len(doc), "protected", r.opts.Protect)
	return out
}

func (r *Run) watermark(name string) ([]byte, error) {
	overlay, err := r.driver.renderer.Render(r.opts.Style.Spec(name), r.opts.PageSize)
	if err != nil {
		return nil, asRenderError(name, err)
	}
	doc, err := r.driver.merger.Merge(r.src, overlay.PDF)
	if err != nil {
		return nil, &models.RenderError{Name: name, Err: fmt.Errorf("failed to merge overlay: %w", err)}
	}
	return doc, nil
}

func (r *Run) encrypt(name, password string, doc []byte) ([]byte, error) {
	if password == r.opts.PasswordSuffix {
		return nil, &models.EncryptionError{Name: name, Err: fmt.Errorf("derived password is only the suffix")}
	}
	protected, err := r.driver.protect(doc, password)
	if err != nil {
		return nil, &models.EncryptionError{Name: name, Err: err}
	}
	return protected, nil
}

func asRenderError(name string, err error) error {
	var re *models.RenderError
	if errors.As(err, &re) {
		if re.Name == "" {
			re.Name = name
		}
		return re
	}
	return &models.RenderError{Name: name, Err: err}
}
