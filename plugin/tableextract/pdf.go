package tableextract

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

// PDFExtractor reads a ruled table from one PDF page.
//
// Column and row boundaries come from the edges of the rectangles the page
// draws. Every drawn cell-sized rectangle is a cell; a merged cell keeps its
// text in its top-left grid position and leaves the positions it covers empty.
// Pages ruled with thin line rectangles only get one cell per grid position.
type PDFExtractor struct {
	config *Config
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor(config *Config) *PDFExtractor {
	if config == nil {
		config = DefaultConfig()
	}
	return &PDFExtractor{config: config}
}

// Extract reads the table on the configured page of the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (timetable.RawGrid, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, serrors.ExtractionFailed(path, errors.Wrap(err, "failed to open PDF"))
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := max(e.config.Page, 1)
	if page > r.NumPage() {
		return nil, serrors.ExtractionFailed(path, errors.Errorf("page %d requested, document has %d", page, r.NumPage()))
	}

	content, err := pageContent(r.Page(page))
	if err != nil {
		return nil, serrors.ExtractionFailed(path, err)
	}

	grid, err := GridFromContent(content, e.config.Tolerance)
	if err != nil {
		return nil, serrors.ExtractionFailed(path, err)
	}
	return grid, nil
}

// pageContent guards against the reader panicking on malformed content streams.
func pageContent(p pdf.Page) (content pdf.Content, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("malformed page content: %v", rec)
		}
	}()
	if p.V.IsNull() {
		return pdf.Content{}, errors.New("page not found")
	}
	return p.Content(), nil
}

// GridFromContent lays the glyphs of content out on the grid its rectangles rule.
func GridFromContent(content pdf.Content, tolerance float64) (timetable.RawGrid, error) {
	if tolerance <= 0 {
		tolerance = DefaultConfig().Tolerance
	}

	var xEdges, yEdges []float64
	for _, r := range content.Rect {
		r = normalizeRect(r)
		xEdges = append(xEdges, r.Min.X, r.Max.X)
		yEdges = append(yEdges, r.Min.Y, r.Max.Y)
	}
	xs := clusterEdges(xEdges, tolerance)
	ys := clusterEdges(yEdges, tolerance)
	if len(xs) < 2 || len(ys) < 2 {
		return nil, errors.New("no table ruling found on page")
	}

	rows, cols := len(ys)-1, len(xs)-1
	boxes := cellBoxes(content.Rect, xs, ys, tolerance)

	glyphs := make(map[int][]pdf.Text)
	for _, t := range content.Text {
		if idx := smallestBoxContaining(boxes, t); idx >= 0 {
			glyphs[idx] = append(glyphs[idx], t)
		}
	}

	grid := make(timetable.RawGrid, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}
	for idx, texts := range glyphs {
		b := boxes[idx]
		col := nearestIndex(xs, b.Min.X)
		row := len(ys) - 1 - nearestIndex(ys, b.Max.Y)
		if row < 0 || row >= rows || col >= cols {
			continue
		}
		grid[row][col] = joinGlyphs(texts)
	}
	return grid, nil
}

func normalizeRect(r pdf.Rect) pdf.Rect {
	return pdf.Rect{
		Min: pdf.Point{X: math.Min(r.Min.X, r.Max.X), Y: math.Min(r.Min.Y, r.Max.Y)},
		Max: pdf.Point{X: math.Max(r.Min.X, r.Max.X), Y: math.Max(r.Min.Y, r.Max.Y)},
	}
}

// clusterEdges sorts values and merges those closer than tolerance into their mean.
func clusterEdges(values []float64, tolerance float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var out []float64
	sum, n, last := sorted[0], 1, sorted[0]
	for _, v := range sorted[1:] {
		if v-last <= tolerance {
			sum += v
			n++
			last = v
			continue
		}
		out = append(out, sum/float64(n))
		sum, n, last = v, 1, v
	}
	return append(out, sum/float64(n))
}

func nearestIndex(values []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, x := range values {
		if d := math.Abs(x - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// cellBoxes returns the drawn cell rectangles, or one box per grid position
// when the page only draws lines. A rectangle framing the whole table is not a cell.
func cellBoxes(rects []pdf.Rect, xs, ys []float64, tolerance float64) []pdf.Rect {
	width, height := xs[len(xs)-1]-xs[0], ys[len(ys)-1]-ys[0]

	var boxes []pdf.Rect
	for _, r := range rects {
		r = normalizeRect(r)
		w, h := r.Max.X-r.Min.X, r.Max.Y-r.Min.Y
		if w <= tolerance || h <= tolerance {
			continue
		}
		if w >= width-tolerance && h >= height-tolerance && len(xs) > 2 && len(ys) > 2 {
			continue
		}
		boxes = append(boxes, r)
	}
	if len(boxes) > 0 {
		return boxes
	}

	for i := 0; i+1 < len(ys); i++ {
		for j := 0; j+1 < len(xs); j++ {
			boxes = append(boxes, pdf.Rect{
				Min: pdf.Point{X: xs[j], Y: ys[i]},
				Max: pdf.Point{X: xs[j+1], Y: ys[i+1]},
			})
		}
	}
	return boxes
}

// smallestBoxContaining returns the index of the smallest box holding the
// glyph's center, or -1.
func smallestBoxContaining(boxes []pdf.Rect, t pdf.Text) int {
	cx := t.X + t.W/2
	cy := t.Y + t.FontSize*0.3

	best, bestArea := -1, math.Inf(1)
	for i, b := range boxes {
		if cx < b.Min.X || cx > b.Max.X || cy < b.Min.Y || cy > b.Max.Y {
			continue
		}
		if area := (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y); area < bestArea {
			best, bestArea = i, area
		}
	}
	return best
}

// joinGlyphs rebuilds cell text: glyphs are grouped into lines top to bottom,
// read left to right, with a space wherever the horizontal gap is wide.
func joinGlyphs(texts []pdf.Text) string {
	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines [][]pdf.Text
	for _, t := range sorted {
		n := len(lines)
		if n > 0 && math.Abs(lines[n-1][0].Y-t.Y) <= math.Max(t.FontSize*0.5, 1) {
			lines[n-1] = append(lines[n-1], t)
			continue
		}
		lines = append(lines, []pdf.Text{t})
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

		var b strings.Builder
		for i, t := range line {
			if i > 0 {
				prev := line[i-1]
				gap := t.X - (prev.X + prev.W)
				if gap > math.Max(t.FontSize, 1)*0.15 && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") {
					b.WriteByte(' ')
				}
			}
			b.WriteString(t.S)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}
