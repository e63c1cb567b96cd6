package entries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"schmerzverlauf/internal/blob"
	"schmerzverlauf/internal/chart"
	"schmerzverlauf/internal/core"
	"schmerzverlauf/internal/dosage"
	"schmerzverlauf/internal/table"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPNG  Format = "png"
)

// ParseFormat maps a query value to a Format; empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatHTML, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) contentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPNG:
		return "image/png"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ExportPrefix is the blob namespace of archived exports.
const ExportPrefix = "exports/"

// Artifact describes a rendered or archived export.
type Artifact struct {
	ID          string            `json:"id"`
	Table       string            `json:"table"`
	Format      Format            `json:"format"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	Key         string            `json:"key,omitempty"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Filename is the download name of the artifact.
func (a Artifact) Filename() string {
	return fmt.Sprintf("%s-%s.%s", a.Table, a.CreatedAt.Format("20060102T150405Z"), a.Format)
}

type renderedArtifact struct {
	Artifact Artifact
	Payload  []byte
}

// ExportRequest selects what to export.
type ExportRequest struct {
	Kind   core.Kind
	Filter core.Filter
	Format Format
}

// Exporter materializes filtered tables and archives them in a blob store.
type Exporter struct {
	svc    *core.Service
	blobs  blob.Store
	logger *zap.Logger
	// RowsPerPage splits the printable report into pages.
	RowsPerPage int
}

// NewExporter returns an Exporter. A nil blob store disables archiving.
func NewExporter(svc *core.Service, blobs blob.Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{svc: svc, blobs: blobs, logger: logger, RowsPerPage: 30}
}

// Render produces the export payload.
func (e *Exporter) Render(ctx context.Context, req ExportRequest) (renderedArtifact, error) {
	t, err := e.svc.Table(ctx, req.Kind, req.Filter)
	if err != nil {
		return renderedArtifact{}, err
	}
	store, err := e.svc.Store(req.Kind)
	if err != nil {
		return renderedArtifact{}, err
	}
	var payload []byte
	switch req.Format {
	case FormatCSV:
		payload, err = table.Marshal(t, store.Format())
	case FormatJSON:
		payload, err = json.Marshal(map[string]any{"table": store.Name(), "columns": t.Schema().Names(), "rows": t.Rows()})
	case FormatHTML:
		payload, err = e.buildReport(req, store.Name(), t)
	case FormatPNG:
		if req.Kind != core.KindPain {
			return renderedArtifact{}, fmt.Errorf("%w: png export is only available for the pain table", errUnsupported)
		}
		payload, err = chart.RenderPNG(chart.Series(t, chart.DefaultOptions()), chart.DefaultRenderOptions())
	default:
		return renderedArtifact{}, fmt.Errorf("%w: format %q", errUnsupported, req.Format)
	}
	if err != nil {
		return renderedArtifact{}, fmt.Errorf("render %s %s: %w", store.Name(), req.Format, err)
	}
	md := map[string]string{"rows": fmt.Sprint(t.Len())}
	if name := strings.TrimSpace(req.Filter.Name); name != "" {
		md["name"] = name
	}
	return renderedArtifact{
		Artifact: Artifact{
			ID:          uuid.NewString(),
			Table:       store.Name(),
			Format:      req.Format,
			ContentType: req.Format.contentType(),
			SizeBytes:   int64(len(payload)),
			Metadata:    md,
			CreatedAt:   e.svc.Now().UTC(),
		},
		Payload: payload,
	}, nil
}

// Archive renders req and stores it under exports/<table>/<timestamp>-<id>.<ext>.
func (e *Exporter) Archive(ctx context.Context, req ExportRequest) (Artifact, error) {
	if e.blobs == nil {
		return Artifact{}, fmt.Errorf("%w: no export archive configured", errUnsupported)
	}
	r, err := e.Render(ctx, req)
	if err != nil {
		return Artifact{}, err
	}
	a := r.Artifact
	key := path.Join(strings.TrimSuffix(ExportPrefix, "/"), a.Table, fmt.Sprintf("%s-%s.%s", a.CreatedAt.Format("20060102T150405Z"), a.ID, a.Format))
	md := blob.CloneMetadata(a.Metadata)
	md["table"], md["format"], md["id"] = a.Table, string(a.Format), a.ID
	info, err := e.blobs.Put(ctx, key, bytes.NewReader(r.Payload), blob.PutOptions{ContentType: a.ContentType, Metadata: md})
	if err != nil {
		return Artifact{}, fmt.Errorf("archive %s: %w", key, err)
	}
	a.Key = info.Key
	a.Metadata = md
	if url, err := e.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET"}); err == nil {
		a.URL = url
	}
	e.logger.Info("export archived", zap.String("key", key), zap.Int64("size", a.SizeBytes))
	return a, nil
}

// List returns archived exports, newest keys last.
func (e *Exporter) List(ctx context.Context) ([]blob.Info, error) {
	if e.blobs == nil {
		return nil, nil
	}
	return e.blobs.List(ctx, ExportPrefix)
}

// Open streams an archived export. Keys outside the export namespace are
// reported as not found.
func (e *Exporter) Open(ctx context.Context, key string) (blob.Info, []byte, error) {
	if e.blobs == nil || !strings.HasPrefix(key, ExportPrefix) {
		return blob.Info{}, nil, blob.ErrNotFound
	}
	info, rc, err := e.blobs.Get(ctx, key)
	if err != nil {
		return blob.Info{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return blob.Info{}, nil, err
	}
	return info, buf.Bytes(), nil
}

type reportPage struct {
	Rows [][]string
	Last bool
}

type reportData struct {
	Title     string
	Table     string
	Name      string
	Generated string
	Columns   []string
	Pages     []reportPage
	Count     int
	Chart     string // base64 PNG
	Summary   *chart.Summary
	Doses     []dosage.Total
}

func (e *Exporter) buildReport(req ExportRequest, tableName string, t table.Table) ([]byte, error) {
	data := reportData{
		Title:     "Schmerzverlauf",
		Table:     tableName,
		Name:      strings.TrimSpace(req.Filter.Name),
		Generated: e.svc.Now().Format("02.01.2006 15:04"),
		Columns:   t.Schema().Names(),
		Count:     t.Len(),
	}
	switch req.Kind {
	case core.KindPain:
		points := chart.Series(t, chart.DefaultOptions())
		png, err := chart.RenderPNG(points, chart.DefaultRenderOptions())
		if err != nil {
			return nil, err
		}
		data.Chart = encodeBase64(png)
		summary := chart.Summarize(points)
		data.Summary = &summary
	case core.KindMedication:
		data.Title = "Medikamente"
		data.Doses = dosage.DailyTotals(t)
	}
	data.Pages = paginate(t, e.RowsPerPage)
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func paginate(t table.Table, perPage int) []reportPage {
	if perPage <= 0 {
		perPage = t.Len()
	}
	var pages []reportPage
	for start := 0; start < t.Len(); start += perPage {
		end := min(start+perPage, t.Len())
		page := reportPage{}
		for i := start; i < end; i++ {
			page.Rows = append(page.Rows, t.Values(i))
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		pages = append(pages, reportPage{})
	}
	pages[len(pages)-1].Last = true
	return pages
}
