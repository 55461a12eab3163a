// Package lake holds typed output datasets and writes them as Parquet
// directories laid out Hive-style (key=value sub-directories per partition).
package lake

import (
	"context"
	"sort"
)

// Record is a row that can describe itself column by column.
type Record interface {
	Columns() []string
	Values() []interface{}
}

// Table is the type-erased view of a Dataset used by the pipeline and loaders.
type Table interface {
	Name() string
	PartitionKeys() []string
	Len() int
	Records() []Record
	Write(ctx context.Context, dir string, opts WriteOptions) (WriteStats, error)
}

// Partition is the set of rows sharing one partition path.
type Partition[R Record] struct {
	Path   string
	Values []string
	Rows   []R
}

// Dataset is an in-memory table of R. Rows keep insertion order.
type Dataset[R Record] struct {
	name        string
	keys        []string
	partitionOf func(R) []string
	rows        []R
}

// NewDataset creates a dataset. keys and partitionOf are both nil for an
// unpartitioned table; otherwise partitionOf must return one value per key.
func NewDataset[R Record](name string, keys []string, partitionOf func(R) []string) *Dataset[R] {
	return &Dataset[R]{name: name, keys: keys, partitionOf: partitionOf}
}

func (d *Dataset[R]) Name() string            { return d.name }
func (d *Dataset[R]) PartitionKeys() []string { return d.keys }
func (d *Dataset[R]) Len() int                { return len(d.rows) }
func (d *Dataset[R]) Rows() []R               { return d.rows }

func (d *Dataset[R]) Append(rows ...R) {
	d.rows = append(d.rows, rows...)
}

func (d *Dataset[R]) Records() []Record {
	out := make([]Record, len(d.rows))
	for i, r := range d.rows {
		out[i] = r
	}
	return out
}

// Partitions groups rows by partition path, sorted by path. An
// unpartitioned dataset yields a single partition with an empty path.
func (d *Dataset[R]) Partitions() []Partition[R] {
	if len(d.keys) == 0 || d.partitionOf == nil {
		return []Partition[R]{{Rows: d.rows}}
	}

	index := make(map[string]int)
	var parts []Partition[R]
	for _, r := range d.rows {
		values := d.partitionOf(r)
		p := PartitionPath(d.keys, values)
		i, ok := index[p]
		if !ok {
			i = len(parts)
			index[p] = i
			parts = append(parts, Partition[R]{Path: p, Values: values})
		}
		parts[i].Rows = append(parts[i].Rows, r)
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].Path < parts[j].Path })
	return parts
}
