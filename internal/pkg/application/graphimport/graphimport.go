package graphimport

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/diwise/graph-batch-writer/internal/pkg/application/batchwriter"
	"github.com/diwise/graph-batch-writer/internal/pkg/application/ontology"
	"github.com/diwise/graph-batch-writer/internal/pkg/application/schema"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/prometheus/client_golang/prometheus"
)

type GraphImport interface {
	// Import decodes json lines from the input and writes them as a complete import set
	Import(ctx context.Context, input io.Reader) (*batchwriter.Report, error)
	// ImportEntities writes the entities of a sequence as a complete import set
	ImportEntities(ctx context.Context, entities iter.Seq[types.Entity]) (*batchwriter.Report, error)
}

type graphImportApp struct {
	writer       *batchwriter.Writer
	strict       bool
	writeHeaders bool
}

// New builds the schema registry and the class hierarchy and prepares a
// writer for the configured output directory. The ontology may be nil.
func New(ctx context.Context, cfg *Config, ontologyData io.Reader, reg prometheus.Registerer) (GraphImport, error) {
	log := logging.GetFromContext(ctx)

	registry, err := schema.NewRegistry(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	var ancestry ontology.Ancestry
	if ontologyData != nil {
		h, err := ontology.Load(ontologyData)
		if err != nil {
			return nil, err
		}
		ancestry = h

		log.Info("loaded class hierarchy", "classes", h.Len(), "roots", len(h.Roots()))
	}

	wc, err := cfg.WriterConfig()
	if err != nil {
		return nil, err
	}
	wc.Registerer = reg

	w, err := batchwriter.New(wc, registry, ancestry)
	if err != nil {
		return nil, err
	}

	return &graphImportApp{
		writer:       w,
		strict:       wc.Strict(),
		writeHeaders: cfg.WriteHeaders,
	}, nil
}

func (app *graphImportApp) Import(ctx context.Context, input io.Reader) (*batchwriter.Report, error) {
	er := NewEntityReader(input, app.strict).OnSkip(func(line int, err error) {
		app.writer.Skip(ctx, batchwriter.SkippedEntity{
			ID:     fmt.Sprintf("line %d", line),
			Reason: err.Error(),
		}, "undecodable_input")
	})

	report, err := app.ImportEntities(ctx, er.All(ctx))
	if err != nil {
		return report, err
	}

	if er.Err() != nil {
		report.Aborted = true
		return report, fmt.Errorf("failed to read input: %w", er.Err())
	}

	return report, nil
}

func (app *graphImportApp) ImportEntities(ctx context.Context, entities iter.Seq[types.Entity]) (*batchwriter.Report, error) {
	log := logging.GetFromContext(ctx)

	if app.writeHeaders {
		if err := app.writer.WriteHeaders(ctx); err != nil {
			report, _ := app.writer.Close(ctx)
			return report, err
		}
	}

	report, err := app.writer.Write(ctx, entities)
	if err != nil {
		return report, err
	}

	report, err = app.writer.Close(ctx)
	if err != nil {
		return report, err
	}

	log.Info("import complete", "types", len(report.Types), "rows", report.TotalRows(), "skipped", report.SkippedCount)

	return report, nil
}
