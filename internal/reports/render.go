package reports

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/snapshot"
	"github.com/go-pdf/fpdf"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

const pdfTitle = "Public Map Report"

var (
	ErrUnknownFormat = errors.New("format must be json, csv or pdf")
	ErrUnknownColumn = errors.New("unknown include column")
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	}
	return "", ErrUnknownFormat
}

type column struct {
	name  string
	value func(r *snapshot.PublicSnapshotRow) any
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// columns is the export column set in output order.
var columns = []column{
	{"point_id", func(r *snapshot.PublicSnapshotRow) any { return r.PointID.String() }},
	{"snapshot_date", func(r *snapshot.PublicSnapshotRow) any { return r.SnapshotDate }},
	{"lat", func(r *snapshot.PublicSnapshotRow) any { return r.Lat }},
	{"lng", func(r *snapshot.PublicSnapshotRow) any { return r.Lng }},
	{"status", func(r *snapshot.PublicSnapshotRow) any { return string(r.Status) }},
	{"precision", func(r *snapshot.PublicSnapshotRow) any { return string(r.Precision) }},
	{"category", func(r *snapshot.PublicSnapshotRow) any { return r.Category }},
	{"region", func(r *snapshot.PublicSnapshotRow) any { return r.Region }},
	{"resident_count", func(r *snapshot.PublicSnapshotRow) any { return r.ResidentCount }},
	{"public_note", func(r *snapshot.PublicSnapshotRow) any { return r.PublicNote }},
	{"updated_at", func(r *snapshot.PublicSnapshotRow) any { return timeValue(r.PointUpdatedAt) }},
	{"refreshed_at", func(r *snapshot.PublicSnapshotRow) any { return timeValue(r.RefreshedAt) }},
}

// selectColumns resolves include names against the known set. An empty
// include selects every column.
func selectColumns(include []string) ([]column, error) {
	if len(include) == 0 {
		return columns, nil
	}
	byName := make(map[string]column, len(columns))
	for _, c := range columns {
		byName[c.name] = c
	}
	out := make([]column, 0, len(include))
	seen := map[string]bool{}
	for _, name := range include {
		name = strings.ToLower(strings.TrimSpace(name))
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, c)
	}
	return out, nil
}

// Export is the rendered payload. Text formats fill Content, binary ones
// fill ContentBase64.
type Export struct {
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	ContentType   string `json:"content_type"`
	Filename      string `json:"filename"`
}

func Render(format Format, rows []snapshot.PublicSnapshotRow, include []string, date string) (Export, error) {
	cols, err := selectColumns(include)
	if err != nil {
		return Export{}, err
	}
	if date == "" {
		date = "empty"
	}
	filename := "public-map-" + date + "." + string(format)

	switch format {
	case FormatJSON:
		b, err := renderJSON(rows, cols)
		if err != nil {
			return Export{}, err
		}
		return Export{Content: string(b), ContentType: "application/json", Filename: filename}, nil
	case FormatCSV:
		b, err := renderCSV(rows, cols)
		if err != nil {
			return Export{}, err
		}
		return Export{Content: string(b), ContentType: "text/csv", Filename: filename}, nil
	case FormatPDF:
		b, err := renderPDF(rows, cols)
		if err != nil {
			return Export{}, err
		}
		return Export{
			ContentBase64: base64.StdEncoding.EncodeToString(b),
			ContentType:   "application/pdf",
			Filename:      filename,
		}, nil
	}
	return Export{}, ErrUnknownFormat
}

func renderJSON(rows []snapshot.PublicSnapshotRow, cols []column) ([]byte, error) {
	out := make([]map[string]any, 0, len(rows))
	for i := range rows {
		rec := make(map[string]any, len(cols))
		for _, c := range cols {
			rec[c.name] = c.value(&rows[i])
		}
		out = append(out, rec)
	}
	return json.MarshalIndent(out, "", "  ")
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

func renderCSV(rows []snapshot.PublicSnapshotRow, cols []column) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, len(cols))
	for i := range rows {
		for j, c := range cols {
			record[j] = cell(c.value(&rows[i]))
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(rows []snapshot.PublicSnapshotRow, cols []column) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, pdfTitle, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total points: %d", len(rows)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	width := 277.0 / float64(len(cols))
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 8)
	for _, c := range cols {
		pdf.CellFormat(width, 6, c.name, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i := range rows {
		for _, c := range cols {
			pdf.CellFormat(width, 6, tr(truncate(cell(c.value(&rows[i])), width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps a cell roughly inside its column at 8pt.
func truncate(s string, widthMM float64) string {
	limit := int(widthMM / 1.6)
	r := []rune(s)
	switch {
	case len(r) <= limit:
		return s
	case limit < 4:
		// no room for an ellipsis; clip hard
		return string(r[:max(limit, 0)])
	}
	return string(r[:limit-3]) + "..."
}
