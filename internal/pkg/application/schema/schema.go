package schema

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/diwise/graph-batch-writer/pkg/graph/errors"
	yaml "gopkg.in/yaml.v2"
)

type Representation string

const (
	RepresentedAsNode Representation = "node"
	RepresentedAsEdge Representation = "edge"
)

// Entry is the contract for one entity type. Name is the type name used for
// output files, LabelInInput is the label carried by incoming entities.
type Entry struct {
	Name          string         `yaml:"-"`
	RepresentedAs Representation `yaml:"represented_as"`
	PreferredID   string         `yaml:"preferred_id"`
	LabelInInput  string         `yaml:"label_in_input"`
	Properties    []string       `yaml:"properties,omitempty"`
}

func (e Entry) IsEdge() bool {
	return e.RepresentedAs == RepresentedAsEdge
}

type Registry struct {
	entries map[string]Entry
	byInput map[string]string

	mu      sync.RWMutex
	columns map[string][]string
}

// LoadEntries reads a yaml mapping from type name to schema entry
func LoadEntries(data io.Reader) (map[string]Entry, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	entries := map[string]Entry{}
	err = yaml.Unmarshal(buf, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	return entries, nil
}

func NewRegistry(entries map[string]Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]Entry, len(entries)),
		byInput: make(map[string]string, len(entries)),
		columns: map[string][]string{},
	}

	for name, entry := range entries {
		entry.Name = name

		if entry.RepresentedAs == "" {
			entry.RepresentedAs = RepresentedAsNode
		}
		if entry.RepresentedAs != RepresentedAsNode && entry.RepresentedAs != RepresentedAsEdge {
			return nil, fmt.Errorf("schema entry %s: unsupported representation \"%s\"", name, entry.RepresentedAs)
		}
		if entry.LabelInInput == "" {
			return nil, fmt.Errorf("schema entry %s has no label_in_input", name)
		}
		if other, exists := r.byInput[entry.LabelInInput]; exists {
			return nil, fmt.Errorf("schema entries %s and %s share the input label \"%s\"", other, name, entry.LabelInInput)
		}

		r.entries[name] = entry
		r.byInput[entry.LabelInInput] = name

		if len(entry.Properties) > 0 {
			r.columns[name] = slices.Clone(entry.Properties)
		}
	}

	return r, nil
}

func (r *Registry) Resolve(labelInInput string) (Entry, error) {
	name, ok := r.byInput[labelInInput]
	if !ok {
		return Entry{}, errors.NewUnknownSchemaLabelError(labelInInput)
	}
	return r.entries[name], nil
}

func (r *Registry) Lookup(typeName string) (Entry, bool) {
	e, ok := r.entries[typeName]
	return e, ok
}

// Entries returns all entries sorted by type name
func (r *Registry) Entries() []Entry {
	result := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b Entry) int {
		if a.Name < b.Name {
			return -1
		} else if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return result
}

// ColumnsFor returns the frozen column order of a type, if there is one
func (r *Registry) ColumnsFor(typeName string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	columns, ok := r.columns[typeName]
	if !ok {
		return nil, false
	}
	return slices.Clone(columns), true
}

// Freeze records the column order of a type unless one is already recorded,
// and returns the order that is in effect
func (r *Registry) Freeze(typeName string, columns []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.columns[typeName]; ok {
		return slices.Clone(existing)
	}

	r.columns[typeName] = slices.Clone(columns)
	return slices.Clone(columns)
}
