package gen

import (
	"context"

	"github.com/syssam/typegen/compiler/fetch"
	"github.com/syssam/typegen/compiler/load"
	"github.com/syssam/typegen/typesystem"
)

// Result describes a completed generation run.
type Result struct {
	// Files holds the assembled files in name order.
	Files []File
	// Written holds one outcome per file, in the order of Files.
	Written []FileResult
	// Skipped lists referenced URLs that were not generated because their
	// documents could not be retrieved or classified.
	Skipped []typesystem.VersionedURL
	Metrics *WriterMetrics
}

// Generate runs the pipeline for c: it collates every type reachable from the
// targets, normalizes and compiles them, assembles the target files and
// writes them to the output folder.
//
// When writing fails the returned Result still describes every file.
func Generate(ctx context.Context, c *Config) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	backend, err := NewBackend(c)
	if err != nil {
		return nil, err
	}
	gctx := NewContext(c, backend)
	gctx.Logger.Debug("generating", "language", c.Language, "files", len(c.Targets), "output", c.OutputFolder)

	collation, err := Initialize(ctx, gctx)
	if err != nil {
		return nil, err
	}
	if err := Preprocess(gctx); err != nil {
		return nil, err
	}
	if err := Compile(ctx, gctx); err != nil {
		return nil, err
	}
	if err := Postprocess(gctx); err != nil {
		return nil, err
	}

	res := &Result{Files: gctx.GeneratedFiles(), Skipped: collation.Skipped}
	res.Written, res.Metrics, err = WriteToFiles(ctx, gctx, res.Files)
	return res, err
}

// Initialize collates the types reachable from the configured targets into
// the context.
func Initialize(ctx context.Context, gctx *Context) (*load.Collation, error) {
	f := gctx.Config.Fetcher
	if f == nil {
		f = fetch.New(fetch.WithLogger(gctx.Logger))
	}
	opts := []load.Option{load.WithLogger(gctx.Logger)}
	if gctx.Config.HasFeature(FeatureStrict.Name) {
		opts = append(opts, load.Strict())
	}
	collation, err := load.Collate(ctx, f, gctx.Config.Roots(), opts...)
	if err != nil {
		return nil, NewGenerationError("initialize", "", "collate types", err)
	}
	if err := gctx.SetCollation(collation); err != nil {
		return nil, err
	}
	return collation, nil
}

// WriteToFiles writes the assembled files concurrently and then runs the
// cleanup of every enabled feature.
func WriteToFiles(ctx context.Context, gctx *Context, files []File) ([]FileResult, *WriterMetrics, error) {
	if err := gctx.expect(StagePostprocessed, "write"); err != nil {
		return nil, nil, err
	}
	w := NewFileWriter(gctx.Backend, gctx.Config.OutputFolder).
		WithWorkers(gctx.Config.Workers).
		WithAtomic(gctx.Config.HasFeature(FeatureAtomicWrite.Name)).
		WithLogger(gctx.Logger)
	results, err := w.WriteAll(ctx, files)
	if err != nil {
		return results, w.Metrics(), err
	}
	for _, f := range gctx.Config.Features {
		if f.cleanup == nil {
			continue
		}
		if err := f.cleanup(gctx.Config, results); err != nil {
			return results, w.Metrics(), NewGenerationError("cleanup", "", f.Name, err)
		}
	}
	m := w.Metrics()
	gctx.Logger.Debug("wrote files", "files", m.FilesGenerated, "bytes", m.TotalBytes)
	return results, m, nil
}
