package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/BartekS5/lake-etl/internal/config"
	"github.com/BartekS5/lake-etl/internal/etl"
	"github.com/BartekS5/lake-etl/internal/ledger"
	"github.com/BartekS5/lake-etl/internal/session"
	"github.com/BartekS5/lake-etl/pkg/database"
	"github.com/BartekS5/lake-etl/pkg/logger"
)

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	mapping, err := config.LoadMapping(opts.MappingFile)
	if err != nil {
		return err
	}

	sess, err := session.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	var led ledger.Ledger = ledger.Nop{}
	if !opts.DryRun {
		led, err = openLedger(cfg, sess)
		if err != nil {
			return err
		}
	}
	defer led.Close()

	var loaders []etl.Loader
	if !opts.DryRun {
		var closeLoaders func()
		loaders, closeLoaders, err = openLoaders(ctx, cfg, opts)
		if err != nil {
			return err
		}
		defer closeLoaders()
	}

	pipeline := etl.NewPipeline(cfg, mapping, sess, led, loaders, opts.DryRun)
	report, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	for _, name := range etl.TableOrder {
		logger.Infof("%-10s %d rows", name, report.Tables[name])
	}
	if report.Unmatched > 0 {
		logger.Infof("%d play events had no catalog match", report.Unmatched)
	}
	logger.Infof("Run %s finished in %s", report.RunID, report.Duration.Round(time.Millisecond))
	return nil
}

func openLedger(cfg *config.Config, sess *session.Session) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBadger:
		return ledger.OpenBadger(ledger.BadgerOptions{Path: cfg.Ledger.Path})
	case config.LedgerDynamoDB:
		client, err := sess.DynamoDB()
		if err != nil {
			return nil, err
		}
		return ledger.NewDynamo(client, cfg.Ledger.Table), nil
	case config.LedgerNone:
		return ledger.Nop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedBackend, cfg.Ledger.Backend)
	}
}

// openLoaders connects the requested warehouse loaders. The returned func
// closes every connection that was opened.
func openLoaders(ctx context.Context, cfg *config.Config, opts *Options) ([]etl.Loader, func(), error) {
	var (
		loaders []etl.Loader
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) ([]etl.Loader, func(), error) {
		closeAll()
		return nil, nil, err
	}

	if opts.LoadMongo {
		if cfg.MongoConnString == "" {
			return fail(fmt.Errorf("%w: MONGO_CONNECTION_STRING", config.ErrMissingCredential))
		}
		client, err := database.ConnectMongo(ctx, cfg.MongoConnString)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { database.DisconnectMongo(client) })
		loaders = append(loaders, etl.NewMongoLoader(client, cfg.MongoDatabase, cfg.BatchSize))
	}

	if opts.LoadSQL {
		if cfg.SQLConnString == "" {
			return fail(fmt.Errorf("%w: SQL_CONNECTION_STRING", config.ErrMissingCredential))
		}
		db, err := database.ConnectSQL(ctx, cfg.SQLConnString)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { db.Close() })
		loaders = append(loaders, etl.NewSQLLoader(db, cfg.BatchSize))
	}

	return loaders, closeAll, nil
}

func listRuns(ctx context.Context, w io.Writer, opts *Options, limit int) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	sess, err := session.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	led, err := openLedger(cfg, sess)
	if err != nil {
		return err
	}
	defer led.Close()

	runs, err := led.List(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return writeRuns(w, runs)
}

func writeRuns(w io.Writer, runs []ledger.Manifest) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tSONGPLAYS\tEVENT DATES\tERROR")
	for _, m := range runs {
		dates := ""
		if m.EventDateMin != "" {
			dates = m.EventDateMin + ".." + m.EventDateMax
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			m.RunID, m.StartedAt.Format(time.RFC3339), m.Status, m.Tables[etl.SongplaysTable], dates, m.Error)
	}
	return tw.Flush()
}
