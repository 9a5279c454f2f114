package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/roach88/chatdb/internal/queryplan"
)

// Mongo wraps a client and database used as the document backend.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects to the given URI and selects a database. The
// connection is verified with a ping before returning.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to reach mongodb: %w", err)
	}

	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Collection returns a handle for schema inspection and execution.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Collections lists the collection names in the database.
func (m *Mongo) Collections(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Exec runs a compiled document-store op against a collection and
// materializes the result. Column order follows first appearance across
// the returned documents.
func (m *Mongo) Exec(ctx context.Context, collection string, op *queryplan.Op) (*Result, error) {
	coll := m.db.Collection(collection)

	switch op.Kind {
	case queryplan.OpAggregate:
		cursor, err := coll.Aggregate(ctx, op.Pipeline)
		if err != nil {
			return nil, fmt.Errorf("aggregate failed: %w", err)
		}
		return drainCursor(ctx, cursor)

	case queryplan.OpFind:
		findOpts := options.Find()
		if op.Projection != nil {
			findOpts.SetProjection(op.Projection)
		}
		cursor, err := coll.Find(ctx, op.Filter, findOpts)
		if err != nil {
			return nil, fmt.Errorf("find failed: %w", err)
		}
		return drainCursor(ctx, cursor)

	case queryplan.OpDistinct:
		values, err := coll.Distinct(ctx, op.Field, op.Filter)
		if err != nil {
			return nil, fmt.Errorf("distinct failed: %w", err)
		}
		result := &Result{Columns: []string{op.Field}}
		for _, v := range values {
			result.Rows = append(result.Rows, []any{v})
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported op kind %q", op.Kind)
	}
}

// ImportDataset replaces the collection named after the dataset with its
// rows, mirroring the relational importer's drop-and-reload semantics.
func (m *Mongo) ImportDataset(ctx context.Context, ds *Dataset) error {
	if len(ds.Columns) == 0 {
		return fmt.Errorf("dataset %q has no columns", ds.Name)
	}

	coll := m.db.Collection(ds.Name)
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}

	if len(ds.Rows) == 0 {
		return nil
	}

	docs := make([]any, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		doc := make(bson.D, 0, len(ds.Columns))
		for i, col := range ds.Columns {
			doc = append(doc, bson.E{Key: col.Name, Value: row[i]})
		}
		docs = append(docs, doc)
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

// drainCursor reads every document, preserving field order within each
// document and discovering columns in first-seen order across the set.
func drainCursor(ctx context.Context, cursor *mongo.Cursor) (*Result, error) {
	defer cursor.Close(ctx)

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	result := &Result{}
	index := make(map[string]int)
	for _, doc := range docs {
		for _, e := range doc {
			if _, ok := index[e.Key]; !ok {
				index[e.Key] = len(result.Columns)
				result.Columns = append(result.Columns, e.Key)
			}
		}
	}
	for _, doc := range docs {
		row := make([]any, len(result.Columns))
		for _, e := range doc {
			row[index[e.Key]] = flattenValue(e.Value)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// flattenValue converts nested push-lists ({value: x} documents) into
// plain slices so results print the way the relational backend's do.
func flattenValue(v any) any {
	arr, ok := v.(bson.A)
	if !ok {
		return v
	}
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		if doc, ok := item.(bson.D); ok && len(doc) == 1 && doc[0].Key == "value" {
			out = append(out, doc[0].Value)
			continue
		}
		out = append(out, item)
	}
	return out
}
