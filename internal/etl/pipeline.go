package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/lake-etl/internal/config"
	"github.com/BartekS5/lake-etl/internal/ledger"
	"github.com/BartekS5/lake-etl/pkg/lake"
	"github.com/BartekS5/lake-etl/pkg/logger"
	"github.com/BartekS5/lake-etl/pkg/models"
	"github.com/BartekS5/lake-etl/pkg/storage"
)

// StoreProvider resolves the storage backend for a location.
type StoreProvider interface {
	Store(uri string) (storage.Store, error)
}

type Pipeline struct {
	Config   *config.Config
	Mapping  *models.SourceMapping
	Stores   StoreProvider
	Ledger   ledger.Ledger
	Loaders  []Loader
	DryRun   bool
	newRunID func() string
	now      func() time.Time
}

// Report summarises a finished run.
type Report struct {
	RunID     string
	DryRun    bool
	Tables    map[string]int
	Unmatched int
	Published []string
	Duration  time.Duration
}

func NewPipeline(cfg *config.Config, mapping *models.SourceMapping, stores StoreProvider, led ledger.Ledger, loaders []Loader, dryRun bool) *Pipeline {
	if led == nil {
		led = ledger.Nop{}
	}
	return &Pipeline{
		Config:   cfg,
		Mapping:  mapping,
		Stores:   stores,
		Ledger:   led,
		Loaders:  loaders,
		DryRun:   dryRun,
		newRunID: uuid.NewString,
		now:      time.Now,
	}
}

// tables is the output of both transform branches.
type tables struct {
	byName    map[string]lake.Table
	unmatched int
	dateMin   string
	dateMax   string
}

// Run executes one full generation: extract, transform, stage, publish and
// load. Previously published tables are only touched once every table has
// been staged.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := NewValidator(p.Mapping).Validate(); err != nil {
		return nil, err
	}
	loc, err := p.Config.Location()
	if err != nil {
		return nil, err
	}

	start := p.now()
	report := &Report{RunID: p.newRunID(), DryRun: p.DryRun}
	manifest := &ledger.Manifest{
		RunID:     report.RunID,
		StartedAt: start.UTC(),
		Status:    ledger.StatusRunning,
	}

	logger.Infow("Starting pipeline", "run_id", report.RunID, "dry_run", p.DryRun,
		"catalog", p.Config.CatalogInput, "events", p.Config.EventInput, "output", p.Config.OutputRoot)

	if !p.DryRun {
		if err := p.Ledger.Begin(ctx, manifest); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	runErr := p.run(ctx, NewTransformer(p.Mapping, loc), report, manifest)
	report.Duration = p.now().Sub(start)

	if !p.DryRun {
		manifest.FinishedAt = p.now().UTC()
		manifest.Status = ledger.StatusSucceeded
		if runErr != nil {
			manifest.Status = ledger.StatusFailed
			manifest.Error = runErr.Error()
		}
		// The run context may already be cancelled; the outcome is still recorded.
		if err := p.Ledger.Finish(context.WithoutCancel(ctx), manifest); err != nil {
			logger.Errorf("Failed to record run %s: %v", report.RunID, err)
		}
	}

	if runErr != nil {
		logger.Errorf("Pipeline %s failed: %v", report.RunID, runErr)
		return report, runErr
	}
	logger.Infow("Pipeline finished successfully", "run_id", report.RunID, "duration", report.Duration.String())
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, t *Transformer, report *Report, manifest *ledger.Manifest) error {
	// 1. Transform
	out, err := p.transform(ctx, t)
	if err != nil {
		return err
	}
	report.Tables = make(map[string]int, len(out.byName))
	for name, tbl := range out.byName {
		report.Tables[name] = tbl.Len()
	}
	report.Unmatched = out.unmatched
	manifest.Tables = report.Tables
	manifest.EventDateMin = out.dateMin
	manifest.EventDateMax = out.dateMax

	if p.DryRun {
		for _, name := range TableOrder {
			logger.Infof("[DRY RUN] Would write %d rows to %s", report.Tables[name], p.destination(name))
		}
		return nil
	}

	// 2. Stage and publish
	published, err := p.write(ctx, report.RunID, out.byName)
	report.Published = published
	if err != nil {
		return err
	}

	// 3. Load
	for _, l := range p.Loaders {
		for _, name := range TableOrder {
			if err := l.Load(ctx, out.byName[name]); err != nil {
				return fmt.Errorf("%s loader, table %s: %w", l.Name(), name, err)
			}
		}
		logger.Infof("Loaded %d tables into %s", len(TableOrder), l.Name())
	}
	return nil
}

// transform reads the catalog once, then runs the catalog and event
// branches concurrently against the shared catalog.
func (p *Pipeline) transform(ctx context.Context, t *Transformer) (*tables, error) {
	catalogRows, err := p.extract(ctx, p.Config.CatalogInput)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	catalog := BuildCatalog(catalogRows, t, p.Config.Join.NormalizeTitles)
	logger.Infof("Catalog loaded: %d entries", catalog.Len())

	var (
		songs   *lake.Dataset[models.Item]
		artists *lake.Dataset[models.ItemGroup]
		events  *EventTables
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		songs, artists = CatalogTables(catalog)
		return nil
	})
	g.Go(func() error {
		rows, err := p.extract(gctx, p.Config.EventInput)
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		events, err = BuildEventTables(rows, t, catalog)
		if err != nil {
			return fmt.Errorf("transform events: %w", err)
		}
		logger.Debugw("non-play events skipped", "count", len(rows)-events.Plays)
		logger.Infof("Events: %d plays, %d without a catalog match", events.Plays, events.Unmatched)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &tables{
		byName: map[string]lake.Table{
			SongsTable:     songs,
			ArtistsTable:   artists,
			UsersTable:     events.Users,
			TimeTable:      events.Time,
			SongplaysTable: events.Songplays,
		},
		unmatched: events.Unmatched,
		dateMin:   events.DateMin,
		dateMax:   events.DateMax,
	}, nil
}

func (p *Pipeline) extract(ctx context.Context, pattern string) ([]Row, error) {
	store, err := p.Stores.Store(pattern)
	if err != nil {
		return nil, err
	}
	return NewJSONExtractor(store, p.Config.Workers).Extract(ctx, pattern)
}

// write stages every table, then publishes them in TableOrder. It returns
// the destinations that were replaced.
func (p *Pipeline) write(ctx context.Context, runID string, byName map[string]lake.Table) ([]string, error) {
	stageRoot := ""
	if !storage.IsObjectStore(p.Config.OutputRoot) {
		stageRoot = storage.LocalPath(p.Config.OutputRoot)
	}
	stage, err := lake.NewStage(stageRoot, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stage.Cleanup(); err != nil {
			logger.Warnf("Failed to remove staging dir %s: %v", stage.Root, err)
		}
	}()

	paths := p.Config.Tables.ByDataset()
	opts := lake.WriteOptions{
		RunID:          runID,
		Compression:    p.Config.Compression,
		MaxRowsPerFile: p.Config.MaxRowsPerFile,
		Workers:        p.Config.Workers,
	}
	for _, name := range TableOrder {
		stats, err := byName[name].Write(ctx, stage.Dir(paths[name]), opts)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		logger.Debugw("staged", "table", name, "rows", stats.Rows, "files", stats.Files, "partitions", stats.Partitions)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := p.Stores.Store(p.Config.OutputRoot)
	if err != nil {
		return nil, err
	}

	var published []string
	for _, name := range TableOrder {
		dest := p.destination(name)
		if err := out.Replace(ctx, dest, stage.Dir(paths[name])); err != nil {
			return published, fmt.Errorf("publish %s to %s: %w", name, dest, err)
		}
		published = append(published, dest)
		logger.Infof("Published %s (%d rows) to %s", name, byName[name].Len(), dest)
	}
	return published, nil
}

func (p *Pipeline) destination(name string) string {
	rel := p.Config.Tables.ByDataset()[name]
	root := p.Config.OutputRoot
	if storage.IsObjectStore(root) {
		return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(rel, "/")
	}
	return filepath.Join(storage.LocalPath(root), filepath.FromSlash(rel))
}
