package etl

import (
	"context"

	"github.com/BartekS5/lake-etl/pkg/lake"
)

// Row is one decoded source record, keyed by source field name.
type Row map[string]interface{}

type Extractor interface {
	Extract(ctx context.Context, pattern string) ([]Row, error)
}

// Loader copies a finished table into a serving store.
type Loader interface {
	Name() string
	Load(ctx context.Context, table lake.Table) error
}
