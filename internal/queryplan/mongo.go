package queryplan

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stage is one aggregation-pipeline stage. Sealed: only types in this
// package implement it, so Pipeline's type switch stays exhaustive.
type Stage interface {
	stageNode()
}

// Match filters documents; renders to a $match stage.
type Match struct {
	Filter bson.D
}

func (Match) stageNode() {}

// Group renders to a $group stage. Key "" groups the whole collection
// (_id: null); otherwise _id is "$<Key>".
type Group struct {
	Key    string
	Accums []Accumulator
}

func (Group) stageNode() {}

// Sort renders to a $sort stage over the listed keys.
type Sort struct {
	Keys []SortKey
}

func (Sort) stageNode() {}

// SortKey is one $sort term.
type SortKey struct {
	Name string
	Desc bool
}

// Limit renders to a $limit stage.
type Limit struct {
	N int
}

func (Limit) stageNode() {}

// Project renders to a $project stage including the named fields and,
// unless KeepID is set, suppressing _id.
type Project struct {
	Include []string
	KeepID  bool
}

func (Project) stageNode() {}

// ProjectExpr renders to a $project stage with explicit expressions,
// used by the collapsed-list pattern.
type ProjectExpr struct {
	Spec bson.D
}

func (ProjectExpr) stageNode() {}

// Accumulator is one $group accumulator. Sealed like Stage.
type Accumulator interface {
	accumulatorNode()
}

// SumField accumulates {$sum: "$field"}; an empty Field sums the
// constant 1 (a plain document count).
type SumField struct {
	As    string
	Field string
}

func (SumField) accumulatorNode() {}

// SumProductAcc accumulates {$sum: {$multiply: ["$a", "$b"]}}.
type SumProductAcc struct {
	As string
	A  string
	B  string
}

func (SumProductAcc) accumulatorNode() {}

// AvgField accumulates {$avg: "$field"}.
type AvgField struct {
	As    string
	Field string
}

func (AvgField) accumulatorNode() {}

// PushField accumulates {$push: {value: "$field"}}. Field "_id" pushes
// the group key, which is how grouped values are collapsed into a list.
type PushField struct {
	As    string
	Field string
}

func (PushField) accumulatorNode() {}

// Pipeline renders stages to a driver-native aggregation pipeline.
func Pipeline(stages ...Stage) mongo.Pipeline {
	p := make(mongo.Pipeline, 0, len(stages))
	for _, s := range stages {
		p = append(p, renderStage(s))
	}
	return p
}

func renderStage(s Stage) bson.D {
	switch st := s.(type) {
	case Match:
		return bson.D{{Key: "$match", Value: st.Filter}}
	case Group:
		doc := bson.D{}
		if st.Key == "" {
			doc = append(doc, bson.E{Key: "_id", Value: nil})
		} else {
			doc = append(doc, bson.E{Key: "_id", Value: "$" + st.Key})
		}
		for _, a := range st.Accums {
			doc = append(doc, renderAccumulator(a))
		}
		return bson.D{{Key: "$group", Value: doc}}
	case Sort:
		spec := bson.D{}
		for _, k := range st.Keys {
			dir := 1
			if k.Desc {
				dir = -1
			}
			spec = append(spec, bson.E{Key: k.Name, Value: dir})
		}
		return bson.D{{Key: "$sort", Value: spec}}
	case Limit:
		return bson.D{{Key: "$limit", Value: st.N}}
	case Project:
		spec := bson.D{}
		if !st.KeepID {
			spec = append(spec, bson.E{Key: "_id", Value: 0})
		}
		for _, f := range st.Include {
			spec = append(spec, bson.E{Key: f, Value: 1})
		}
		return bson.D{{Key: "$project", Value: spec}}
	case ProjectExpr:
		return bson.D{{Key: "$project", Value: st.Spec}}
	default:
		// Sealed interface: unreachable unless a variant is added
		// without a render case.
		panic("queryplan: unknown pipeline stage")
	}
}

func renderAccumulator(a Accumulator) bson.E {
	switch acc := a.(type) {
	case SumField:
		if acc.Field == "" {
			return bson.E{Key: acc.As, Value: bson.D{{Key: "$sum", Value: 1}}}
		}
		return bson.E{Key: acc.As, Value: bson.D{{Key: "$sum", Value: "$" + acc.Field}}}
	case SumProductAcc:
		return bson.E{Key: acc.As, Value: bson.D{{Key: "$sum", Value: bson.D{
			{Key: "$multiply", Value: bson.A{"$" + acc.A, "$" + acc.B}},
		}}}}
	case AvgField:
		return bson.E{Key: acc.As, Value: bson.D{{Key: "$avg", Value: "$" + acc.Field}}}
	case PushField:
		return bson.E{Key: acc.As, Value: bson.D{{Key: "$push", Value: bson.D{
			{Key: "value", Value: "$" + acc.Field},
		}}}}
	default:
		panic("queryplan: unknown accumulator")
	}
}

// OpKind selects the collection method an Op runs through.
type OpKind string

// Collection methods the execution adapter supports.
const (
	OpFind      OpKind = "find"
	OpAggregate OpKind = "aggregate"
	OpDistinct  OpKind = "distinct"
)

// Op is an executable document-store query descriptor. Exactly one shape
// is populated depending on Kind: Pipeline for aggregate, Filter and
// Projection for find, Filter and Field for distinct.
type Op struct {
	Kind       OpKind
	Pipeline   mongo.Pipeline
	Filter     bson.D
	Projection bson.D
	Field      string
}

// Aggregate wraps stages into an aggregate Op.
func Aggregate(stages ...Stage) *Op {
	return &Op{Kind: OpAggregate, Pipeline: Pipeline(stages...)}
}

// Find builds a find Op with filter and projection.
func Find(filter, projection bson.D) *Op {
	return &Op{Kind: OpFind, Filter: filter, Projection: projection}
}

// Distinct builds a distinct Op over one field.
func Distinct(field string, filter bson.D) *Op {
	if filter == nil {
		filter = bson.D{}
	}
	return &Op{Kind: OpDistinct, Field: field, Filter: filter}
}
