package batchwriter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"slices"
	"sync"

	"github.com/diwise/graph-batch-writer/internal/pkg/application/ontology"
	"github.com/diwise/graph-batch-writer/internal/pkg/application/schema"
	graphErrors "github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("graph-batch-writer/batchwriter")

var ErrWriterClosed = errors.New("writer is closed")

// Writer turns a stream of entities into one header file and a number of
// part files per entity type
type Writer struct {
	cfg      Config
	enc      encoder
	registry *schema.Registry
	ontology ontology.Ancestry
	metrics  *metrics

	mu           sync.Mutex
	sessions     map[string]*session
	skipped      []SkippedEntity
	skippedCount int64
	warnings     []string
	aborted      bool
	closed       bool
}

// New creates a writer and its output directory. A nil ancestry writes every
// type with only its own label in the header.
func New(cfg Config, registry *schema.Registry, ancestry ontology.Ancestry) (*Writer, error) {
	if registry == nil {
		return nil, fmt.Errorf("a schema registry is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}

	return &Writer{
		cfg:      cfg,
		enc:      encoder{delimiter: cfg.Delimiter, quote: cfg.Quote},
		registry: registry,
		ontology: ancestry,
		metrics:  newMetrics(cfg.Registerer),
		sessions: map[string]*session{},
	}, nil
}

// Write consumes the sequence until it is exhausted, the context is cancelled
// or a fatal error occurs. Files are left open for further calls to Write
// unless the run failed, in which case everything is closed and the writer
// can no longer be used. The returned report is never nil.
func (w *Writer) Write(ctx context.Context, entities iter.Seq[types.Entity]) (report *Report, err error) {
	ctx, span := tracer.Start(ctx, "write-entities")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	if w.isClosed() {
		return w.Report(), ErrWriterClosed
	}

	var count int64

	for e := range entities {
		if err = ctx.Err(); err != nil {
			break
		}

		if err = w.writeEntity(ctx, e); err != nil {
			break
		}

		count++
	}

	span.SetAttributes(attribute.Int64("entities", count))

	if err != nil {
		log.Error("aborting write", "entities", count, "err", err.Error())
		w.abort(ctx)
		return w.Report(), err
	}

	log.Debug("entities written", "entities", count)

	return w.Report(), nil
}

func (w *Writer) writeEntity(ctx context.Context, e types.Entity) error {
	if e == nil {
		return graphErrors.NewInvalidEntityError("nil entity in input")
	}

	entry, err := w.registry.Resolve(e.Label())
	if err != nil {
		return w.skipOrFail(ctx, e, "unknown_schema_label", err)
	}

	_, isEdge := e.(types.Edge)
	if isEdge != entry.IsEdge() {
		err = graphErrors.NewRepresentationMismatchError(fmt.Sprintf(
			"%s is represented as %s but was given as %s", e.Label(), entry.RepresentedAs, representationOf(isEdge),
		))
		return w.skipOrFail(ctx, e, "representation_mismatch", err)
	}

	s, err := w.session(entry)
	if err != nil {
		return err
	}

	return s.write(ctx, e)
}

func representationOf(isEdge bool) schema.Representation {
	if isEdge {
		return schema.RepresentedAsEdge
	}
	return schema.RepresentedAsNode
}

func (w *Writer) skipOrFail(ctx context.Context, e types.Entity, reason string, err error) error {
	if w.cfg.Strict() {
		return err
	}

	w.Skip(ctx, SkippedEntity{ID: e.ID(), Label: e.Label(), Reason: err.Error()}, reason)

	return nil
}

// Skip records an entity that was left out of the output. Collaborators that
// drop input before it reaches the writer use it to keep the report complete.
func (w *Writer) Skip(ctx context.Context, skipped SkippedEntity, reason string) {
	logging.GetFromContext(ctx).Warn("skipping entity", "id", skipped.ID, "label", skipped.Label, "err", skipped.Reason)
	w.metrics.entitiesSkipped.WithLabelValues(reason).Inc()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.skippedCount++
	if len(w.skipped) < maxSkippedDetails {
		w.skipped = append(w.skipped, skipped)
	}
}

func (w *Writer) session(entry schema.Entry) (*session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWriterClosed
	}

	s, ok := w.sessions[entry.Name]
	if !ok {
		s = newSession(w, entry)
		w.sessions[entry.Name] = s
	}

	return s, nil
}

func (w *Writer) warn(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.warnings = append(w.warnings, msg)
}

func (w *Writer) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.closed
}

// WriteHeaders writes the header of every type that declares its properties
// in the schema, whether or not any entities of that type follow
func (w *Writer) WriteHeaders(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "write-headers")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	g := new(errgroup.Group)

	for _, entry := range w.registry.Entries() {
		if len(entry.Properties) == 0 {
			continue
		}

		s, err := w.session(entry)
		if err != nil {
			return err
		}

		g.Go(func() error {
			return s.openHeader(ctx)
		})
	}

	return g.Wait()
}

// Close flushes and closes the files of every type concurrently. Closing an
// already closed writer returns the report again.
func (w *Writer) Close(ctx context.Context) (report *Report, err error) {
	ctx, span := tracer.Start(ctx, "close-writer")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = w.closeSessions(ctx, span)
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to close all types", "err", err.Error())
	}

	return w.Report(), err
}

func (w *Writer) abort(ctx context.Context) {
	w.mu.Lock()
	w.aborted = true
	w.mu.Unlock()

	if err := w.closeSessions(ctx, trace.SpanFromContext(ctx)); err != nil {
		logging.GetFromContext(ctx).Error("failed to close files after abort", "err", err.Error())
	}
}

func (w *Writer) closeSessions(ctx context.Context, span trace.Span) error {
	w.mu.Lock()
	w.closed = true
	sessions := make([]*session, 0, len(w.sessions))
	for _, s := range w.sessions {
		sessions = append(sessions, s)
	}
	w.mu.Unlock()

	span.SetAttributes(attribute.Int("types", len(sessions)))

	g := new(errgroup.Group)
	for _, s := range sessions {
		g.Go(s.close)
	}

	err := g.Wait()

	logging.GetFromContext(ctx).Debug("closed all types", "types", len(sessions))

	return err
}

// Report returns a snapshot of everything written so far
func (w *Writer) Report() *Report {
	w.mu.Lock()
	sessions := make([]*session, 0, len(w.sessions))
	for _, s := range w.sessions {
		sessions = append(sessions, s)
	}
	r := &Report{
		Skipped:      slices.Clone(w.skipped),
		SkippedCount: w.skippedCount,
		Warnings:     slices.Clone(w.warnings),
		Aborted:      w.aborted,
	}
	w.mu.Unlock()

	r.Types = make([]TypeReport, 0, len(sessions))
	for _, s := range sessions {
		r.Types = append(r.Types, s.report())
	}
	sortTypeReports(r.Types)

	return r
}
