package feat

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// AUColumns is the canonical Action Unit column set produced by the
// upstream facial-expression detector, in the order plots expect.
var AUColumns = []string{
	"AU01", "AU02", "AU04", "AU05", "AU06", "AU07", "AU09", "AU10",
	"AU11", "AU12", "AU14", "AU15", "AU17", "AU20", "AU23", "AU24",
	"AU25", "AU26", "AU28", "AU43",
}

// Table is a frame-indexed view over the AU columns of a detector CSV.
// Rows are video frames; columns follow AUColumns order.
type Table struct {
	path string
	cols []string
	rows [][]float64
}

// ReadTable loads the AU columns of a detector prediction CSV. The file
// may carry any number of non-AU columns (landmarks, emotions, pose);
// they are ignored. A header missing any canonical AU column is an
// error, since no frame of such a file could ever plot; an empty body
// is not.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[h] = i
	}

	indices := make([]int, 0, len(AUColumns))
	var missing []string
	for _, name := range AUColumns {
		idx, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		indices = append(indices, idx)
	}
	if len(missing) == len(AUColumns) {
		return nil, fmt.Errorf("no AU columns found in %s", path)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing AU columns %v", path, missing)
	}

	t := &Table{path: path, cols: append([]string(nil), AUColumns...)}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		row := make([]float64, len(indices))
		for i, idx := range indices {
			if idx >= len(record) {
				row[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(record[idx], 64)
			if err != nil {
				// non-numeric cells become NaN; the plot layer
				// decides what to do with them
				v = math.NaN()
			}
			row[i] = v
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// Path returns the source CSV path
func (t *Table) Path() string {
	return t.path
}

// Frames returns the number of frames (rows) in the table
func (t *Table) Frames() int {
	return len(t.rows)
}

// Columns returns the AU column names present, in canonical order
func (t *Table) Columns() []string {
	return t.cols
}

// AUs returns a copy of the AU intensity vector for one frame
func (t *Table) AUs(frame int) ([]float64, error) {
	if frame < 0 || frame >= len(t.rows) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", frame, len(t.rows))
	}
	out := make([]float64, len(t.rows[frame]))
	copy(out, t.rows[frame])
	return out, nil
}
