package feat

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeCSV builds a detector-style CSV with the full canonical AU
// column set plus a couple of non-AU columns, one row per frame.
func writeCSV(t *testing.T, rows [][]string) string {
	t.Helper()

	header := append([]string{"frame", "FaceScore"}, AUColumns...)
	lines := []string{strings.Join(header, ",")}
	for i, aus := range rows {
		record := append([]string{strconv.Itoa(i), "0.99"}, aus...)
		lines = append(lines, strings.Join(record, ","))
	}

	path := filepath.Join(t.TempDir(), "pred.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func auRow(value string) []string {
	row := make([]string, len(AUColumns))
	for i := range row {
		row[i] = value
	}
	return row
}

func TestReadTable(t *testing.T) {
	path := writeCSV(t, [][]string{auRow("0.25"), auRow("0.75")})

	table, err := ReadTable(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Frames())
	require.Equal(t, AUColumns, table.Columns())

	aus, err := table.AUs(1)
	require.NoError(t, err)
	require.Len(t, aus, len(AUColumns))
	require.Equal(t, 0.75, aus[0])
}

func TestReadTableEmptyBody(t *testing.T) {
	path := writeCSV(t, nil)

	table, err := ReadTable(path)
	require.NoError(t, err)
	require.Equal(t, 0, table.Frames())
}

func TestReadTableNonNumericCellBecomesNaN(t *testing.T) {
	row := auRow("0.5")
	row[3] = "garbage"
	path := writeCSV(t, [][]string{row})

	table, err := ReadTable(path)
	require.NoError(t, err)

	aus, err := table.AUs(0)
	require.NoError(t, err)
	require.True(t, math.IsNaN(aus[3]))
	require.Equal(t, 0.5, aus[0])
}

func TestReadTableNoAUColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("frame,x,y\n0,1,2\n"), 0644))

	_, err := ReadTable(path)
	require.Error(t, err)
}

// A header carrying only some AU columns would load rows no plot can
// ever accept, so it must fail up front rather than yield an empty
// video frame by frame.
func TestReadTableIncompleteAUColumns(t *testing.T) {
	header := append([]string{"frame"}, AUColumns[:5]...)
	lines := []string{
		strings.Join(header, ","),
		"0,0.1,0.2,0.3,0.4,0.5",
	}
	path := filepath.Join(t.TempDir(), "partial.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	_, err := ReadTable(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing AU columns")
	require.Contains(t, err.Error(), "AU07")
}

func TestReadTableMissingFile(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestAUsOutOfRange(t *testing.T) {
	path := writeCSV(t, [][]string{auRow("0")})

	table, err := ReadTable(path)
	require.NoError(t, err)

	_, err = table.AUs(1)
	require.Error(t, err)
	_, err = table.AUs(-1)
	require.Error(t, err)
}

// AUs must hand out copies; mutating a returned vector must not leak
// into later reads of the same frame.
func TestAUsReturnsCopy(t *testing.T) {
	path := writeCSV(t, [][]string{auRow("0.5")})

	table, err := ReadTable(path)
	require.NoError(t, err)

	first, err := table.AUs(0)
	require.NoError(t, err)
	first[0] = 42

	second, err := table.AUs(0)
	require.NoError(t, err)
	require.Equal(t, 0.5, second[0])
}
