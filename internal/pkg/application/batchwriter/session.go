package batchwriter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/diwise/graph-batch-writer/internal/pkg/application/schema"
	graphErrors "github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/diwise/graph-batch-writer/pkg/graph/types/properties"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type sessionState int

const (
	stateUnseen sessionState = iota
	stateHeaderWritten
	stateWriting
	statePartFull
	stateClosed
)

// session owns the output of a single entity type. Its column order and the
// kind of each column are frozen when the header is written.
type session struct {
	mu sync.Mutex

	w     *Writer
	entry schema.Entry
	state sessionState

	columns     []string
	columnIndex map[string]int
	kinds       []types.Kind
	kindFrozen  []bool
	ancestors   []string

	header      FileReport
	part        *partFile
	nextPart    int
	closedParts []FileReport

	dedup *dedupIndex

	rows       int64
	duplicates int64
	coerced    int64
	bytes      int64
}

func newSession(w *Writer, entry schema.Entry) *session {
	return &session{
		w:     w,
		entry: entry,
		dedup: newDedupIndex(),
	}
}

// open freezes the columns and writes the header. With a nil entity only
// columns declared in the schema can be used.
func (s *session) open(ctx context.Context, first types.Entity) error {
	name := s.entry.Name
	log := logging.GetFromContext(ctx)

	columns, ok := s.w.registry.ColumnsFor(name)
	if !ok {
		if first == nil {
			return fmt.Errorf("type %s declares no properties and has no entities yet", name)
		}
		columns = s.w.registry.Freeze(name, first.PropertyNames())
	}

	s.columns = columns
	s.columnIndex = make(map[string]int, len(columns))
	for idx, c := range columns {
		s.columnIndex[c] = idx
	}
	s.kinds = make([]types.Kind, len(columns))
	s.kindFrozen = make([]bool, len(columns))

	s.ancestors = []string{name}
	if s.w.ontology != nil && !s.entry.IsEdge() {
		ancestors, err := s.w.ontology.Ancestors(name)
		if err == nil {
			s.ancestors = ancestors
		} else if errors.Is(err, graphErrors.ErrUnknownLabel) {
			log.Warn("type is not part of the class hierarchy, writing it without ancestors", "type", name)
			s.w.warn(fmt.Sprintf("type %s: %s", name, err.Error()))
		} else {
			return err
		}
	}

	if err := removeStaleParts(s.w.cfg.OutputDir, name); err != nil {
		return err
	}

	header, err := writeHeaderFile(s.w.cfg.OutputDir, name, s.w.enc.header(s.headerFields()))
	s.header = header
	if err != nil {
		return err
	}

	s.state = stateHeaderWritten

	log.Debug("header written", "type", name, "columns", len(columns), "path", header.Path)

	return nil
}

func (s *session) headerFields() []string {
	enc := s.w.enc

	preferredID := s.entry.PreferredID
	if preferredID == "" {
		preferredID = "id"
	}

	fields := make([]string, 0, len(s.columns)+4)

	if s.entry.IsEdge() {
		fields = append(fields, ":START_ID", enc.bare(preferredID))
	} else {
		fields = append(fields, enc.bare(preferredID+":ID"))
	}

	for _, c := range s.columns {
		fields = append(fields, enc.bare(c))
	}

	if s.entry.IsEdge() {
		fields = append(fields, ":END_ID", enc.bare(s.entry.Name))
	} else {
		fields = append(fields, enc.bare(colonLabels(s.ancestors)))
	}

	return fields
}

func (s *session) openHeader(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateUnseen {
		return nil
	}

	return s.open(ctx, nil)
}

func (s *session) write(ctx context.Context, e types.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return fmt.Errorf("type %s has already been closed", s.entry.Name)
	}

	if s.state == stateUnseen {
		if err := s.open(ctx, e); err != nil {
			return err
		}
	}

	values, err := s.values(ctx, e)
	if err != nil {
		return err
	}

	key := nodeKey(e)
	if edge, ok := e.(types.Edge); ok {
		key = edgeKey(edge)
	}

	if !s.dedup.add(key) {
		s.duplicates++
		s.w.metrics.duplicatesSkipped.WithLabelValues(s.entry.Name).Inc()
		return nil
	}

	return s.append(s.w.enc.row(s.rowFields(e, values)))
}

// values encodes the properties of an entity in column order. Divergence from
// the frozen columns fails in strict mode and is coerced in lenient mode.
func (s *session) values(ctx context.Context, e types.Entity) ([]string, error) {
	values := make([]string, len(s.columns))
	present := make([]bool, len(s.columns))

	extra := []string{}
	wrongKind := []string{}

	e.ForEachProperty(func(name string, p types.Property) {
		idx, ok := s.columnIndex[name]
		if !ok {
			extra = append(extra, name)
			return
		}

		present[idx] = true

		if !s.kindFrozen[idx] {
			// an empty sequence leaves the column kind open
			if !properties.IsEmptyList(p) {
				s.kinds[idx] = p.Kind()
				s.kindFrozen[idx] = true
			}
		} else if s.kinds[idx] != p.Kind() {
			conformed, ok := properties.Conform(p, s.kinds[idx])
			if !ok {
				wrongKind = append(wrongKind, fmt.Sprintf("%s (%s, expected %s)", name, p.Kind(), s.kinds[idx]))
				return
			}
			p = conformed
		}

		values[idx] = s.w.enc.property(p)
	})

	missing := []string{}
	for idx, ok := range present {
		if !ok {
			missing = append(missing, s.columns[idx])
		}
	}

	if len(extra) == 0 && len(missing) == 0 && len(wrongKind) == 0 {
		return values, nil
	}

	var err error
	if len(extra) > 0 || len(missing) > 0 {
		err = graphErrors.NewPropertySetMismatchError(fmt.Sprintf(
			"%s %s of type %s: missing [%s], unexpected [%s]",
			s.kindName(), e.ID(), s.entry.Name, strings.Join(missing, ","), strings.Join(extra, ","),
		))
	} else {
		err = graphErrors.NewPropertyTypeMismatchError(fmt.Sprintf(
			"%s %s of type %s: %s", s.kindName(), e.ID(), s.entry.Name, strings.Join(wrongKind, ", "),
		))
	}

	if s.w.cfg.Strict() {
		return nil, err
	}

	s.coerced++
	s.w.metrics.entitiesCoerced.WithLabelValues(s.entry.Name).Inc()

	logging.GetFromContext(ctx).Warn("coercing entity to the frozen column set",
		"type", s.entry.Name, "id", e.ID(),
		"missing", missing, "dropped", extra, "blanked", wrongKind,
	)

	return values, nil
}

func (s *session) kindName() string {
	if s.entry.IsEdge() {
		return "edge"
	}
	return "node"
}

func (s *session) rowFields(e types.Entity, values []string) []string {
	enc := s.w.enc
	fields := make([]string, 0, len(values)+4)

	if edge, ok := e.(types.Edge); ok {
		fields = append(fields, enc.bare(edge.Source()), enc.bare(edge.ID()))
		fields = append(fields, values...)
		return append(fields, enc.bare(edge.Target()), enc.bare(s.entry.Name))
	}

	fields = append(fields, enc.bare(e.ID()))
	fields = append(fields, values...)

	var optional []string
	if node, ok := e.(types.Node); ok {
		optional = node.OptionalLabels()
	}

	var labels string
	if s.w.cfg.RowLabels == RowLabelsAncestors {
		labels = strings.Join(optional, labelSeparator)
		if len(optional) > 0 {
			labels += labelSeparator
		}
		labels += colonLabels(s.ancestors)
	} else {
		labels = strings.Join(append([]string{s.entry.Name}, optional...), labelSeparator)
	}

	return append(fields, enc.bare(labels))
}

func (s *session) append(row []byte) error {
	cfg := s.w.cfg

	if s.part != nil && s.part.exceeds(len(row), cfg.MaxRowsPerPart, cfg.MaxPartSize) {
		err := s.part.close()
		s.closedParts = append(s.closedParts, s.part.report())
		s.part = nil
		s.state = statePartFull

		if err != nil {
			return err
		}
	}

	if s.part == nil {
		p, err := createPart(cfg.OutputDir, s.entry.Name, s.nextPart)
		if err != nil {
			return err
		}

		s.nextPart++
		s.part = p
		s.w.metrics.partsCreated.WithLabelValues(s.entry.Name).Inc()
	}

	s.state = stateWriting

	if err := s.part.write(row); err != nil {
		return err
	}

	s.rows++
	s.bytes += int64(len(row))
	s.w.metrics.rowsWritten.WithLabelValues(s.entry.Name).Inc()

	return nil
}

func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return nil
	}

	var err error
	if s.part != nil {
		err = s.part.close()
		s.closedParts = append(s.closedParts, s.part.report())
		s.part = nil
	}

	s.state = stateClosed

	return err
}

func (s *session) report() TypeReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := TypeReport{
		Type:          s.entry.Name,
		RepresentedAs: s.entry.RepresentedAs,
		Rows:          s.rows,
		Parts:         s.nextPart,
		Duplicates:    s.duplicates,
		Coerced:       s.coerced,
		Bytes:         s.bytes,
		Header:        s.header,
		PartFiles:     slices.Clone(s.closedParts),
	}

	if s.part != nil {
		tr.PartFiles = append(tr.PartFiles, s.part.report())
	}

	tr.Complete = s.state == stateClosed && s.header.Complete
	for _, p := range tr.PartFiles {
		tr.Complete = tr.Complete && p.Complete
	}

	return tr
}
