package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/chatdb/internal/pattern"
	"github.com/roach88/chatdb/internal/queryplan"
	"github.com/roach88/chatdb/internal/schema"
	"github.com/roach88/chatdb/internal/store"
)

// backendHandle bundles an open backend connection with the source it
// was pointed at. Exactly one of sqlite or mongo is set.
type backendHandle struct {
	kind   pattern.Backend
	source string
	sqlite *store.SQLite
	mongo  *store.Mongo
}

// openBackend connects per the resolved options and pins down the source
// table or collection. When --source is omitted and the database holds
// exactly one candidate, that candidate is used; multiple candidates are
// an error listing the choices.
func openBackend(ctx context.Context, opts *RootOptions) (*backendHandle, error) {
	switch opts.Backend {
	case "mongo":
		m, err := store.ConnectMongo(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		h := &backendHandle{kind: pattern.BackendDocument, mongo: m}
		if err := h.resolveSource(ctx, opts.Source); err != nil {
			h.Close(ctx)
			return nil, err
		}
		return h, nil
	default:
		s, err := store.OpenSQLite(opts.Database)
		if err != nil {
			return nil, err
		}
		h := &backendHandle{kind: pattern.BackendSQL, sqlite: s}
		if err := h.resolveSource(ctx, opts.Source); err != nil {
			h.Close(ctx)
			return nil, err
		}
		return h, nil
	}
}

func (h *backendHandle) resolveSource(ctx context.Context, requested string) error {
	if requested != "" {
		h.source = requested
		return nil
	}

	var candidates []string
	var err error
	if h.mongo != nil {
		candidates, err = h.mongo.Collections(ctx)
	} else {
		candidates, err = h.sqlite.Tables(ctx)
	}
	if err != nil {
		return err
	}

	switch len(candidates) {
	case 0:
		return fmt.Errorf("no tables or collections found: upload a dataset first")
	case 1:
		h.source = candidates[0]
		slog.Debug("source discovered", "source", h.source)
		return nil
	default:
		return fmt.Errorf("multiple sources available %v: pick one with --source", candidates)
	}
}

// Classify inspects the source and buckets its fields.
func (h *backendHandle) Classify(ctx context.Context, t schema.Thresholds) (*schema.Classification, error) {
	var insp schema.Inspector
	if h.mongo != nil {
		insp = schema.NewMongoInspector(h.mongo.Collection(h.source))
	} else {
		insp = schema.NewSQLiteInspector(h.sqlite.DB(), h.source)
	}
	return schema.Classify(ctx, h.source, insp, t)
}

// Exec runs a compiled query against whichever backend is open.
func (h *backendHandle) Exec(ctx context.Context, c *pattern.Compiled) (*store.Result, error) {
	if h.mongo != nil {
		if c.Doc == nil {
			return nil, fmt.Errorf("no document query compiled")
		}
		return h.mongo.Exec(ctx, h.source, c.Doc)
	}
	if c.SQL == nil {
		return nil, fmt.Errorf("no relational query compiled")
	}
	return h.sqlite.Exec(ctx, c.SQL)
}

// SampleRows fetches up to n rows of the source for display.
func (h *backendHandle) SampleRows(ctx context.Context, n int) (*store.Result, error) {
	if h.mongo != nil {
		return h.mongo.Exec(ctx, h.source, queryplan.Aggregate(queryplan.Limit{N: n}))
	}
	return h.sqlite.Sample(ctx, h.source, n)
}

// Import loads a dataset into the open backend.
func (h *backendHandle) Import(ctx context.Context, ds *store.Dataset) error {
	if h.mongo != nil {
		return h.mongo.ImportDataset(ctx, ds)
	}
	return h.sqlite.ImportDataset(ctx, ds)
}

// Close releases the backend connection.
func (h *backendHandle) Close(ctx context.Context) {
	if h.mongo != nil {
		if err := h.mongo.Close(ctx); err != nil {
			slog.Error("error closing mongo connection", "error", err)
		}
	}
	if h.sqlite != nil {
		if err := h.sqlite.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
}
