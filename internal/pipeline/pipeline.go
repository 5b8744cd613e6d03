// Package pipeline runs the batch normalization of capacity reports: load
// every source, normalize them in parallel, merge, persist the canonical
// table and feed the secondary sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/output"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/source"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/store"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/couchcryptid/grid-capacity-etl/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Loader reads a source file into a raw table.
type Loader interface {
	Load(ctx context.Context, in source.Input, rec *domain.Reconciler) (domain.RawTable, error)
}

// RunStore persists a run and its records.
type RunStore interface {
	SaveRun(ctx context.Context, run store.Run, recs []domain.CanonicalRecord) error
}

// Publisher streams canonical records to consumers.
type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, recs []domain.CanonicalRecord) error
}

// Uploader copies the canonical table to remote storage.
type Uploader interface {
	Upload(ctx context.Context, runID uuid.UUID, at time.Time, localPath string) (string, error)
}

// Sinks are the optional destinations fed after the canonical table is
// written. Nil fields are skipped.
type Sinks struct {
	Store     RunStore
	Publisher Publisher
	Uploader  Uploader
}

// Options configures a Pipeline.
type Options struct {
	OutputPath string
	// XLSXPath enables a workbook export of the canonical table.
	XLSXPath  string
	Workers   int
	MinRadius float64
	MaxRadius float64
	// Force rebuilds the output even when it already exists.
	Force bool
}

// Pipeline orchestrates one batch run.
type Pipeline struct {
	loader      Loader
	transformer domain.CoordinateTransformer
	sinks       Sinks
	opts        Options
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline. transformer may be nil when every source is
// geographic.
func New(loader Loader, transformer domain.CoordinateTransformer, sinks Sinks, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		loader:      loader,
		transformer: transformer,
		sinks:       sinks,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
}

type sourceResult struct {
	set     domain.SourceSet
	rows    int
	dropped map[domain.DropReason]int
	err     error
}

// Run executes the pipeline over sources. Per-source failures skip the
// source; failing to write the canonical table, or having no usable
// source, fails the run. Secondary sink failures are recorded in the
// report only.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (Report, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := Report{
		RunID:     uuid.New(),
		StartedAt: domain.Now(),
		Dropped:   make(map[domain.DropReason]int),
	}
	start := time.Now()

	if !p.opts.Force {
		if recs, ok := p.existingOutput(); ok {
			report.Reused = true
			report.summarize(recs)
			report.FinishedAt = domain.Now()
			p.logger.Info("output exists, skipping run", "path", p.opts.OutputPath, "records", len(recs))
			return report, nil
		}
	}

	p.logger.Info("pipeline started", "run_id", report.RunID, "sources", len(sources), "workers", p.opts.Workers)

	results, err := p.normalizeAll(ctx, sources)
	if err != nil {
		p.metrics.LastRunSuccess.Set(0)
		return report, err
	}

	var sets []domain.SourceSet
	for i, res := range results {
		src := sources[i]
		report.Processed += res.rows
		for reason, n := range res.dropped {
			report.Dropped[reason] += n
		}
		if res.err != nil {
			kind := failureKind(res.err)
			p.metrics.SourceFailures.WithLabelValues(kind).Inc()
			p.logger.Warn("source skipped", "source", src.Path, "operator", src.Operator, "kind", kind, "error", res.err)
			report.SkippedSources = append(report.SkippedSources, SkippedSource{
				Operator: src.Operator,
				Path:     src.Path,
				Reason:   res.err.Error(),
			})
			continue
		}
		sets = append(sets, res.set)
	}
	if len(sets) == 0 {
		p.metrics.LastRunSuccess.Set(0)
		return report, fmt.Errorf("%w: %d configured, all skipped", domain.ErrNoSources, len(sources))
	}

	report.Sources = len(sets)
	merged := domain.Merge(sets, p.opts.MinRadius, p.opts.MaxRadius)
	report.summarize(merged)

	if err := output.WriteCSVFile(p.opts.OutputPath, merged); err != nil {
		p.metrics.LastRunSuccess.Set(0)
		p.logger.Error("canonical output write failed", "path", p.opts.OutputPath, "error", err)
		return report, err
	}
	p.metrics.RecordsWritten.Add(float64(len(merged)))

	report.FinishedAt = domain.Now()
	p.feedSinks(ctx, &report, merged)

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastRunSuccess.Set(1)
	p.logger.Info("pipeline finished",
		"run_id", report.RunID,
		"processed", report.Processed,
		"kept", report.Kept,
		"dropped", report.DroppedTotal(),
		"skipped_sources", len(report.SkippedSources),
	)
	return report, nil
}

// existingOutput loads the canonical table when it is already a regular
// file. A path that cannot be a file, or a table that does not decode, is
// rebuilt; write failures surface from the rebuild.
func (p *Pipeline) existingOutput() ([]domain.CanonicalRecord, bool) {
	fi, err := os.Stat(p.opts.OutputPath)
	if err != nil || !fi.Mode().IsRegular() {
		return nil, false
	}
	recs, err := output.ReadCSVFile(p.opts.OutputPath)
	if err != nil {
		p.logger.Warn("existing output unreadable, rebuilding", "path", p.opts.OutputPath, "error", err)
		return nil, false
	}
	return recs, true
}

// normalizeAll processes sources concurrently. Results keep the order of
// sources. Only context cancellation aborts the group.
func (p *Pipeline) normalizeAll(ctx context.Context, sources []Source) ([]sourceResult, error) {
	results := make([]sourceResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			res := p.normalizeSource(gctx, src)
			if res.err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) normalizeSource(ctx context.Context, src Source) sourceResult {
	schema, err := domain.LookupSchema(src.Schema)
	if err != nil {
		return sourceResult{err: &domain.SourceError{Source: src.Path, Err: err}}
	}

	table, err := p.loader.Load(ctx, source.Input{Path: src.Path, Encoding: src.Encoding}, schema.Reconciler())
	if err != nil {
		return sourceResult{err: &domain.SourceError{Source: src.Path, Err: err}}
	}
	p.metrics.RecordsIngested.WithLabelValues(src.Operator).Add(float64(len(table.Records)))

	n := domain.NewNormalizer(schema, p.transformer, p.logger, p.opts.MinRadius, p.opts.MaxRadius)
	res, err := n.Normalize(ctx, src.Operator, table)
	if err != nil {
		return sourceResult{rows: len(table.Records), err: &domain.SourceError{Source: src.Path, Err: err}}
	}
	for reason, count := range res.Dropped {
		p.metrics.RecordsDropped.WithLabelValues(string(reason)).Add(float64(count))
	}

	p.logger.Info("source normalized",
		"source", src.Path,
		"operator", src.Operator,
		"schema", schema.Name,
		"rows", len(table.Records),
		"kept", len(res.Records),
		"dropped", res.DroppedTotal(),
	)
	return sourceResult{
		set:     domain.SourceSet{Operator: src.Operator, Records: res.Records},
		rows:    len(table.Records),
		dropped: res.Dropped,
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingSource):
		return "missing"
	case errors.Is(err, domain.ErrSchemaMismatch), errors.Is(err, domain.ErrUnknownSchema):
		return "schema"
	default:
		return "read"
	}
}

func (p *Pipeline) feedSinks(ctx context.Context, report *Report, recs []domain.CanonicalRecord) {
	fail := func(sink string, err error) {
		p.metrics.SinkErrors.WithLabelValues(sink).Inc()
		p.logger.Warn("sink failed", "sink", sink, "error", err)
		if report.SinkErrors == nil {
			report.SinkErrors = make(map[string]string)
		}
		report.SinkErrors[sink] = err.Error()
	}

	if p.opts.XLSXPath != "" {
		if err := output.WriteXLSX(p.opts.XLSXPath, recs); err != nil {
			fail("xlsx", err)
		}
	}
	if p.sinks.Store != nil {
		run := store.Run{
			ID:         report.RunID,
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
			Sources:    report.Sources,
			Records:    len(recs),
			Dropped:    report.DroppedTotal(),
		}
		if err := p.sinks.Store.SaveRun(ctx, run, recs); err != nil {
			fail("store", err)
		}
	}
	if p.sinks.Publisher != nil {
		if err := p.sinks.Publisher.Publish(ctx, report.RunID, recs); err != nil {
			fail("kafka", err)
		}
	}
	if p.sinks.Uploader != nil {
		if _, err := p.sinks.Uploader.Upload(ctx, report.RunID, report.StartedAt, p.opts.OutputPath); err != nil {
			fail("objectstore", err)
		}
	}
}
