// Package report writes analysis results to flat files in the output
// directory: one Markdown file per analyzed entity and, optionally, a PDF
// rendering of the same content.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

// Format is an output file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

const maxNameAttempts = 1000

// Ext returns the file extension, including the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// ParseFormats maps the configured output format to the formats written.
func ParseFormats(s string) ([]Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return []Format{FormatMarkdown}, nil
	case "pdf":
		return []Format{FormatPDF}, nil
	case "both":
		return []Format{FormatMarkdown, FormatPDF}, nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", s))
	}
}

// TokenReport is the analysis of one token.
type TokenReport struct {
	Token    market.TokenData
	Analysis string
	Provider string
	Model    string
	// Raw is written as the fenced JSON block. Defaults to Token.
	Raw any
}

// RankingReport is one aggregate analysis over a list of tokens.
type RankingReport struct {
	Chain    string
	Kind     string
	Analysis string
	Provider string
	Model    string
	Raw      any
}

// Result describes one written file.
type Result struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Format      Format    `json:"format"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Recorder counts written reports. *metrics.Metrics implements it.
type Recorder interface {
	RecordReport(kind, format string)
}

// Options configures a Writer.
type Options struct {
	Dir      string
	Formats  []Format
	Now      func() time.Time
	Recorder Recorder
	Logger   *logging.Logger
}

// Writer renders reports into Dir.
type Writer struct {
	dir      string
	formats  []Format
	now      func() time.Time
	recorder Recorder
	logger   *logging.Logger
}

// NewWriter creates a writer. Markdown is written when no format is given.
func NewWriter(opts Options) *Writer {
	if opts.Dir == "" {
		opts.Dir = "outputs"
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []Format{FormatMarkdown}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Writer{
		dir:      opts.Dir,
		formats:  opts.Formats,
		now:      opts.Now,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteToken writes the report for one token, named
// YYYYMMDD_HHMMSS_<SYMBOL> plus the format extension. A name already taken
// gets a _2, _3, ... suffix.
func (w *Writer) WriteToken(r TokenReport) ([]Result, error) {
	now := w.now().UTC()
	if r.Raw == nil {
		r.Raw = r.Token
	}
	doc, err := tokenDocument(r, now)
	if err != nil {
		return nil, err
	}
	symbol := r.Token.Symbol
	if symbol == "" {
		symbol = market.Unknown
	}
	base := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), Sanitize(symbol))
	return w.write("token", base, doc, now)
}

// WriteRanking writes one aggregate report, named
// <chain>_<kind>_analysis_YYYYMMDD_HHMMSS plus the format extension.
func (w *Writer) WriteRanking(r RankingReport) ([]Result, error) {
	now := w.now().UTC()
	doc, err := rankingDocument(r, now)
	if err != nil {
		return nil, err
	}
	base := fmt.Sprintf("%s_%s_analysis_%s", Sanitize(r.Chain), Sanitize(r.Kind), now.Format("20060102_150405"))
	return w.write(r.Kind, base, doc, now)
}

func (w *Writer) write(kind, base string, doc *document, now time.Time) ([]Result, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, apperrors.NewInternalError("failed to create output directory").WithCause(err)
	}

	base, err := w.reserve(base)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(w.formats))
	for _, format := range w.formats {
		var (
			path string
			err  error
		)
		switch format {
		case FormatMarkdown:
			path = filepath.Join(w.dir, base+format.Ext())
			err = os.WriteFile(path, []byte(doc.markdown()), 0o644)
		case FormatPDF:
			path = filepath.Join(w.dir, base+format.Ext())
			err = doc.writePDF(path)
		default:
			err = fmt.Errorf("unsupported format %q", format)
		}
		if err != nil {
			return results, apperrors.NewInternalError("failed to write report").
				WithCause(err).
				WithDetail("path", path)
		}

		info, err := os.Stat(path)
		if err != nil {
			return results, apperrors.NewInternalError("failed to stat report").WithCause(err)
		}
		if w.recorder != nil {
			w.recorder.RecordReport(kind, string(format))
		}
		w.logger.Info("Report written", "path", path, "kind", kind, "format", format)

		results = append(results, Result{
			ID:          uuid.New(),
			Kind:        kind,
			Format:      format,
			Path:        path,
			Size:        info.Size(),
			GeneratedAt: now,
		})
	}
	return results, nil
}

// reserve finds the first free variant of base and claims it by creating the
// file of the first format exclusively. Concurrent writers never share a name.
func (w *Writer) reserve(base string) (string, error) {
	for n := 1; n <= maxNameAttempts; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		if w.taken(name, w.formats[1:]) {
			continue
		}

		path := filepath.Join(w.dir, name+w.formats[0].Ext())
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", apperrors.NewInternalError("failed to create report").WithCause(err).WithDetail("path", path)
		}
		_ = f.Close()
		return name, nil
	}
	return "", apperrors.NewInternalError("no free report name").WithDetail("base", base)
}

func (w *Writer) taken(name string, formats []Format) bool {
	for _, format := range formats {
		if _, err := os.Stat(filepath.Join(w.dir, name+format.Ext())); err == nil {
			return true
		}
	}
	return false
}

// Sanitize replaces every rune that is not a letter or digit with '_'.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}
