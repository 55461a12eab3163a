package etl

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/lake-etl/pkg/lake"
	"github.com/BartekS5/lake-etl/pkg/logger"
)

// MongoLoader overwrites one collection per table.
type MongoLoader struct {
	Client    *mongo.Client
	Database  string
	BatchSize int
}

func NewMongoLoader(client *mongo.Client, database string, batchSize int) *MongoLoader {
	return &MongoLoader{Client: client, Database: database, BatchSize: batchSize}
}

func (m *MongoLoader) Name() string { return "mongo" }

func (m *MongoLoader) Load(ctx context.Context, table lake.Table) error {
	coll := m.Client.Database(m.Database).Collection(table.Name())

	del, err := coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("clear collection %s: %w", table.Name(), err)
	}
	logger.Debugw("mongo collection cleared", "collection", table.Name(), "deleted", del.DeletedCount)

	batch := m.BatchSize
	if batch <= 0 {
		batch = 1000
	}

	writes := make([]mongo.WriteModel, 0, batch)
	inserted := int64(0)
	flush := func() error {
		if len(writes) == 0 {
			return nil
		}
		res, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return fmt.Errorf("bulk write %s: %w", table.Name(), err)
		}
		inserted += res.InsertedCount
		writes = writes[:0]
		return nil
	}

	for _, r := range table.Records() {
		writes = append(writes, mongo.NewInsertOneModel().SetDocument(ToDocument(r)))
		if len(writes) == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Infof("Mongo BulkWrite: %s inserted %d", table.Name(), inserted)
	return nil
}

// ToDocument renders a record as an ordered BSON document.
func ToDocument(r lake.Record) bson.D {
	cols, vals := r.Columns(), r.Values()
	doc := make(bson.D, len(cols))
	for i, c := range cols {
		doc[i] = bson.E{Key: c, Value: vals[i]}
	}
	return doc
}
