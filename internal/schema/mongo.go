package schema

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoInspector computes classification statistics for one collection.
//
// Field enumeration samples a single document, the same shortcut the CLI's
// exploratory use case tolerates: collections with heterogeneous documents
// classify only the fields of the sampled one.
type MongoInspector struct {
	coll *mongo.Collection
}

// NewMongoInspector creates an inspector bound to a collection.
func NewMongoInspector(coll *mongo.Collection) *MongoInspector {
	return &MongoInspector{coll: coll}
}

// numericBSONFilter matches values stored under any numeric BSON type,
// excluding NaN so bounds queries return usable numbers.
var numericBSONFilter = bson.D{
	{Key: "$type", Value: bson.A{"int", "long", "double", "decimal"}},
	{Key: "$not", Value: bson.D{{Key: "$eq", Value: math.NaN()}}},
}

// Columns enumerates fields from one sampled document.
func (mi *MongoInspector) Columns(ctx context.Context) ([]Column, error) {
	var doc bson.D
	err := mi.coll.FindOne(ctx, bson.D{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sample document: %w", err)
	}

	cols := make([]Column, 0, len(doc))
	for _, elem := range doc {
		if elem.Key == "_id" {
			continue
		}
		cols = append(cols, Column{Name: elem.Key, Type: bsonColumnType(elem.Value)})
	}
	return cols, nil
}

func bsonColumnType(v any) ColumnType {
	switch v.(type) {
	case int32, int64, float64, primitive.Decimal128:
		return TypeNumeric
	case primitive.DateTime:
		return TypeDate
	case string:
		return TypeText
	default:
		return TypeOther
	}
}

// RowCount returns the document count.
func (mi *MongoInspector) RowCount(ctx context.Context) (int64, error) {
	n, err := mi.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// DistinctCount returns the number of distinct values of a field.
func (mi *MongoInspector) DistinctCount(ctx context.Context, field string) (int64, error) {
	values, err := mi.coll.Distinct(ctx, field, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("distinct %s: %w", field, err)
	}
	return int64(len(values)), nil
}

// DistinctValues returns up to limit distinct values rendered as strings.
func (mi *MongoInspector) DistinctValues(ctx context.Context, field string, limit int) ([]string, error) {
	values, err := mi.coll.Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if len(out) >= limit {
			break
		}
		if v == nil {
			continue
		}
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out, nil
}

// NumericBounds finds min and max using sorted single-document queries
// restricted to numeric BSON types.
func (mi *MongoInspector) NumericBounds(ctx context.Context, field string) (float64, float64, error) {
	min, err := mi.boundNumeric(ctx, field, 1)
	if err != nil {
		return 0, 0, err
	}
	max, err := mi.boundNumeric(ctx, field, -1)
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

func (mi *MongoInspector) boundNumeric(ctx context.Context, field string, direction int) (float64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: field, Value: direction}}).
		SetProjection(bson.D{{Key: field, Value: 1}, {Key: "_id", Value: 0}})
	var doc bson.M
	err := mi.coll.FindOne(ctx, bson.D{{Key: field, Value: numericBSONFilter}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("numeric bound %s: %w", field, err)
	}
	switch v := doc[field].(type) {
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("numeric bound %s: unexpected type %T", field, doc[field])
	}
}

// StringBounds finds earliest and latest string values via sorted
// single-document queries restricted to string-typed values.
func (mi *MongoInspector) StringBounds(ctx context.Context, field string) (string, string, error) {
	earliest, err := mi.boundString(ctx, field, 1)
	if err != nil {
		return "", "", err
	}
	latest, err := mi.boundString(ctx, field, -1)
	if err != nil {
		return "", "", err
	}
	return earliest, latest, nil
}

func (mi *MongoInspector) boundString(ctx context.Context, field string, direction int) (string, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: field, Value: direction}}).
		SetProjection(bson.D{{Key: field, Value: 1}, {Key: "_id", Value: 0}})
	var doc bson.M
	err := mi.coll.FindOne(ctx,
		bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}}}}, opts).Decode(&doc)
	if err != nil {
		return "", fmt.Errorf("string bound %s: %w", field, err)
	}
	s, ok := doc[field].(string)
	if !ok {
		return "", fmt.Errorf("string bound %s: unexpected type %T", field, doc[field])
	}
	return s, nil
}

// Sample returns one non-null value of the field as a string.
func (mi *MongoInspector) Sample(ctx context.Context, field string) (string, error) {
	opts := options.FindOne().
		SetProjection(bson.D{{Key: field, Value: 1}, {Key: "_id", Value: 0}})
	var doc bson.M
	err := mi.coll.FindOne(ctx,
		bson.D{{Key: field, Value: bson.D{{Key: "$ne", Value: nil}}}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sample %s: %w", field, err)
	}
	if doc[field] == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", doc[field]), nil
}
