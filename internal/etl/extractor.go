package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/BartekS5/lake-etl/pkg/logger"
	"github.com/BartekS5/lake-etl/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// JSONExtractor reads every file matching a glob. A file may hold one
// object, a sequence of objects (JSON Lines), or arrays of objects.
type JSONExtractor struct {
	Store   storage.Store
	Workers int
}

func NewJSONExtractor(store storage.Store, workers int) *JSONExtractor {
	return &JSONExtractor{Store: store, Workers: workers}
}

// Extract returns the rows of all matching files in path order. Files are
// read concurrently; the first failure cancels the rest.
func (e *JSONExtractor) Extract(ctx context.Context, pattern string) ([]Row, error) {
	files, err := e.Store.Glob(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warnf("No input files match %s", pattern)
		return nil, nil
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	perFile := make([][]Row, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			rows, err := e.readFile(gctx, name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			perFile[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, rows := range perFile {
		total += len(rows)
	}
	out := make([]Row, 0, total)
	for _, rows := range perFile {
		out = append(out, rows...)
	}

	logger.Debugw("extracted", "pattern", pattern, "files", len(files), "rows", total)
	return out, nil
}

func (e *JSONExtractor) readFile(ctx context.Context, name string) ([]Row, error) {
	rc, err := e.Store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return DecodeRows(rc)
}

// DecodeRows decodes consecutive JSON values from r into rows.
func DecodeRows(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []Row
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(rows)+1, err)
		}

		switch val := v.(type) {
		case map[string]interface{}:
			rows = append(rows, Row(val))
		case []interface{}:
			for _, item := range val {
				obj, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("record %d: array element is %T, want object", len(rows)+1, item)
				}
				rows = append(rows, Row(obj))
			}
		default:
			return nil, fmt.Errorf("record %d: value is %T, want object", len(rows)+1, v)
		}
	}
}
