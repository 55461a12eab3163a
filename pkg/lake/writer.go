package lake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"
)

// SuccessMarker is written at the root of every completed table directory.
const SuccessMarker = "_SUCCESS"

type WriteOptions struct {
	RunID          string
	Compression    string
	MaxRowsPerFile int
	Workers        int
}

type WriteStats struct {
	Rows       int
	Files      int
	Partitions int
}

// ParseCompression maps a codec name to the parquet codec and the infix used
// in part file names.
func ParseCompression(name string) (parquet.CompressionCodec, string, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return parquet.CompressionCodec_SNAPPY, ".snappy", nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, ".gz", nil
	case "zstd":
		return parquet.CompressionCodec_ZSTD, ".zstd", nil
	case "none", "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED, "", nil
	default:
		return parquet.CompressionCodec_UNCOMPRESSED, "", fmt.Errorf("unsupported compression %q", name)
	}
}

// Write creates dir and fills it with part files, one
// directory per partition, then drops a _SUCCESS marker.
func (d *Dataset[R]) Write(ctx context.Context, dir string, opts WriteOptions) (WriteStats, error) {
	codec, ext, err := ParseCompression(opts.Compression)
	if err != nil {
		return WriteStats{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteStats{}, fmt.Errorf("create %s: %w", dir, err)
	}

	parts := d.Partitions()
	if len(d.keys) > 0 && d.Len() == 0 {
		parts = nil
	}

	var files atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partDir := filepath.Join(dir, filepath.FromSlash(p.Path))
			n, err := writePartition(partDir, p.Rows, opts, codec, ext)
			files.Add(int64(n))
			if err != nil {
				return fmt.Errorf("table %s partition %q: %w", d.name, p.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WriteStats{}, err
	}

	if err := os.WriteFile(filepath.Join(dir, SuccessMarker), nil, 0o644); err != nil {
		return WriteStats{}, fmt.Errorf("write %s marker: %w", SuccessMarker, err)
	}

	return WriteStats{Rows: d.Len(), Files: int(files.Load()), Partitions: len(parts)}, nil
}

func writePartition[R Record](dir string, rows []R, opts WriteOptions, codec parquet.CompressionCodec, ext string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	chunk := opts.MaxRowsPerFile
	if chunk <= 0 || chunk > len(rows) {
		chunk = len(rows)
	}

	written := 0
	for start := 0; ; start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		name := fmt.Sprintf("part-%05d-%s%s.parquet", written, opts.RunID, ext)
		if err := WriteParquetFile(filepath.Join(dir, name), rows[start:end], codec); err != nil {
			return written, err
		}
		written++
		if end >= len(rows) {
			return written, nil
		}
	}
}

// WriteParquetFile writes rows to a single Parquet file whose schema comes
// from the parquet tags of R.
func WriteParquetFile[R any](path string, rows []R, codec parquet.CompressionCodec) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(R), 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("parquet schema for %T: %w", *new(R), err)
	}
	pw.CompressionType = codec

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			fw.Close()
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finish %s: %w", path, err)
	}
	return fw.Close()
}
