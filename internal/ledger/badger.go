package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const runKeyPrefix = "run/"

// BadgerOptions configures the local ledger.
type BadgerOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path     string
	InMemory bool
}

// BadgerLedger keeps manifests in a local BadgerDB directory.
type BadgerLedger struct {
	db *badger.DB
}

func OpenBadger(opts BadgerOptions) (*BadgerLedger, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}
	return &BadgerLedger{db: db}, nil
}

func runKey(id string) []byte {
	return []byte(runKeyPrefix + id)
}

func (l *BadgerLedger) Begin(_ context.Context, m *Manifest) error {
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(runKey(m.RunID))
		if err == nil {
			return fmt.Errorf("%w: %s", ErrRunExists, m.RunID)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(runKey(m.RunID), val)
	})
}

func (l *BadgerLedger) Finish(_ context.Context, m *Manifest) error {
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(m.RunID), val)
	})
}

func (l *BadgerLedger) List(_ context.Context) ([]Manifest, error) {
	var out []Manifest
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m Manifest
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			})
			if err != nil {
				return fmt.Errorf("decode manifest %s: %w", it.Item().Key(), err)
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
