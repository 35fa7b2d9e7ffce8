package inspect

import (
	"context"
	"fmt"

	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/koustreak/dbinspect/internal/schema"
	"golang.org/x/sync/errgroup"
)

// ReadOptions tunes ReadSchema.
type ReadOptions struct {
	// Concurrency is the number of tables whose columns are loaded at once.
	// Values below 2 load them one after another.
	Concurrency int
}

// ReadSchema reads the full schema through insp. Tables appear in the order
// ListTableNames returned them. Any failure aborts the read and no snapshot
// is returned.
func ReadSchema(ctx context.Context, insp Inspector, opts ReadOptions) (*schema.Snapshot, error) {
	log := logger.FromContext(ctx)

	names, err := insp.ListTableNames(ctx)
	if err != nil {
		return nil, err
	}
	log.Debugf("found %d tables", len(names))

	tables := make([]schema.Table, len(names))
	if opts.Concurrency > 1 {
		err = loadParallel(ctx, insp, names, tables, opts.Concurrency)
	} else {
		err = loadSequential(ctx, insp, names, tables)
	}
	if err != nil {
		return nil, err
	}

	fks, err := insp.LoadForeignKeys(ctx)
	if err != nil {
		return nil, err
	}

	snap := schema.NewSnapshot(tables, fks)
	log.With().
		Int("tables", len(snap.Tables)).
		Int("foreign_keys", len(snap.ForeignKeys)).
		Logger().
		Info("schema read")
	return snap, nil
}

func loadSequential(ctx context.Context, insp Inspector, names []string, out []schema.Table) error {
	log := logger.FromContext(ctx)
	for i, name := range names {
		t, err := insp.LoadTableColumns(ctx, name)
		if err != nil {
			return err
		}
		log.Debugf("loaded %s (%d columns)", name, len(t.Columns))
		out[i] = t
	}
	return nil
}

// loadParallel writes each table to its own index of out, so completion
// order does not affect the result.
func loadParallel(ctx context.Context, insp Inspector, names []string, out []schema.Table, limit int) error {
	log := logger.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := insp.LoadTableColumns(gctx, name)
			if err != nil {
				return fmt.Errorf("table %s: %w", name, err)
			}
			log.Debugf("loaded %s (%d columns)", name, len(t.Columns))
			out[i] = t
			return nil
		})
	}
	return g.Wait()
}
