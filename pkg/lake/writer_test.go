package lake

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

type scoreRow struct {
	ID    string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year  int64
	Score float64 `parquet:"name=score, type=DOUBLE"`
}

func (scoreRow) Columns() []string { return []string{"id", "year", "score"} }
func (r scoreRow) Values() []interface{} {
	return []interface{}{r.ID, r.Year, r.Score}
}

func newScores() *Dataset[scoreRow] {
	return NewDataset[scoreRow]("scores", []string{"year"}, func(r scoreRow) []string {
		return []string{strconv.FormatInt(r.Year, 10)}
	})
}

func readScores(t *testing.T, path string) []scoreRow {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(scoreRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]scoreRow, int(pr.GetNumRows()))
	require.NoError(t, pr.Read(&rows))
	return rows
}

func parquetFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ".parquet" {
			rel, _ := filepath.Rel(dir, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestPartitionsGroupAndSort(t *testing.T) {
	ds := newScores()
	ds.Append(
		scoreRow{ID: "a", Year: 2001},
		scoreRow{ID: "b", Year: 2000},
		scoreRow{ID: "c", Year: 2001},
	)

	parts := ds.Partitions()
	require.Len(t, parts, 2)
	assert.Equal(t, "year=2000", parts[0].Path)
	assert.Equal(t, "year=2001", parts[1].Path)
	assert.Equal(t, []string{"a", "c"}, []string{parts[1].Rows[0].ID, parts[1].Rows[1].ID})
}

func TestWritePartitionedDataset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scores.parquet")
	ds := newScores()
	ds.Append(
		scoreRow{ID: "a", Year: 2001, Score: 1.5},
		scoreRow{ID: "b", Year: 2000, Score: 2},
		scoreRow{ID: "c", Year: 2001, Score: 3},
	)

	stats, err := ds.Write(context.Background(), dir, WriteOptions{RunID: "r1", Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Rows: 3, Files: 2, Partitions: 2}, stats)

	assert.FileExists(t, filepath.Join(dir, SuccessMarker))
	assert.Equal(t, []string{
		"year=2000/part-00000-r1.snappy.parquet",
		"year=2001/part-00000-r1.snappy.parquet",
	}, parquetFiles(t, dir))

	rows := readScores(t, filepath.Join(dir, "year=2001", "part-00000-r1.snappy.parquet"))
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, 3.0, rows[1].Score)
	assert.Zero(t, rows[0].Year, "partition column is not stored in the file")
}

func TestWriteSplitsByMaxRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scores.parquet")
	ds := newScores()
	for i := 0; i < 5; i++ {
		ds.Append(scoreRow{ID: strconv.Itoa(i), Year: 2018})
	}

	stats, err := ds.Write(context.Background(), dir, WriteOptions{RunID: "r2", MaxRowsPerFile: 2, Compression: "none"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, []string{
		"year=2018/part-00000-r2.parquet",
		"year=2018/part-00001-r2.parquet",
		"year=2018/part-00002-r2.parquet",
	}, parquetFiles(t, dir))
	assert.Len(t, readScores(t, filepath.Join(dir, "year=2018", "part-00002-r2.parquet")), 1)
}

func TestWriteEmptyUnpartitionedKeepsSchemaFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scores.parquet")
	ds := NewDataset[scoreRow]("scores", nil, nil)

	stats, err := ds.Write(context.Background(), dir, WriteOptions{RunID: "r3"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Empty(t, readScores(t, filepath.Join(dir, "part-00000-r3.snappy.parquet")))
}

func TestWriteEmptyPartitionedWritesOnlyMarker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scores.parquet")
	stats, err := newScores().Write(context.Background(), dir, WriteOptions{RunID: "r4"})
	require.NoError(t, err)
	assert.Equal(t, WriteStats{}, stats)
	assert.Empty(t, parquetFiles(t, dir))
	assert.FileExists(t, filepath.Join(dir, SuccessMarker))
}

func TestParseCompression(t *testing.T) {
	_, ext, err := ParseCompression("GZIP")
	require.NoError(t, err)
	assert.Equal(t, ".gz", ext)

	_, _, err = ParseCompression("lzma")
	assert.Error(t, err)
}

func TestStage(t *testing.T) {
	root := t.TempDir()
	st, err := NewStage(root, "run-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".staging-run-1", "log_data", "time.parquet"), st.Dir("log_data/time.parquet"))
	assert.DirExists(t, st.Root)

	require.NoError(t, st.Cleanup())
	assert.NoDirExists(t, st.Root)
}
