package ontology

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/diwise/graph-batch-writer/pkg/graph/errors"
	yaml "gopkg.in/yaml.v2"
)

// Ancestry is the lookup capability the batch writer needs from an ontology
type Ancestry interface {
	Ancestors(label string) ([]string, error)
}

// Class describes a single class of the hierarchy. IsA is the primary parent,
// mixins are additional parents.
type Class struct {
	IsA    string   `yaml:"is_a"`
	Mixins []string `yaml:"mixins"`
}

type Document struct {
	Classes map[string]Class `yaml:"classes"`
}

type cacheEntry struct {
	labels []string
	err    error
}

// Hierarchy is a class DAG addressed by integer indices. Ancestor closures are
// computed on first request and kept for the lifetime of the hierarchy.
type Hierarchy struct {
	names   []string
	index   map[string]int
	parents [][]int

	mu       sync.RWMutex
	closures map[int][]int
	cache    map[string]cacheEntry
}

func Load(data io.Reader) (*Hierarchy, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	doc := Document{}
	err = yaml.Unmarshal(buf, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse class hierarchy: %w", err)
	}

	return New(doc.Classes)
}

func New(classes map[string]Class) (*Hierarchy, error) {
	keys := make([]string, 0, len(classes))
	for name := range classes {
		keys = append(keys, name)
	}
	slices.Sort(keys)

	h := &Hierarchy{
		names:    make([]string, 0, len(keys)),
		index:    make(map[string]int, len(keys)),
		parents:  make([][]int, len(keys)),
		closures: map[int][]int{},
		cache:    map[string]cacheEntry{},
	}

	for idx, name := range keys {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("class names must not be empty")
		}
		if other, exists := h.index[key]; exists {
			return nil, fmt.Errorf("classes \"%s\" and \"%s\" have the same normalized name", keys[other], name)
		}
		h.index[key] = idx
		h.names = append(h.names, displayName(name))
	}

	for idx, name := range keys {
		class := classes[name]

		parentNames := []string{}
		if class.IsA != "" {
			parentNames = append(parentNames, class.IsA)
		}
		parentNames = append(parentNames, class.Mixins...)

		for _, parent := range parentNames {
			parentIdx, ok := h.index[normalize(parent)]
			if !ok {
				return nil, fmt.Errorf("class \"%s\" refers to unknown parent \"%s\"", name, parent)
			}
			if !slices.Contains(h.parents[idx], parentIdx) {
				h.parents[idx] = append(h.parents[idx], parentIdx)
			}
		}
	}

	if err := h.checkAcyclic(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Hierarchy) Len() int {
	return len(h.names)
}

// Roots returns the display names of all classes without parents
func (h *Hierarchy) Roots() []string {
	roots := []string{}
	for idx, p := range h.parents {
		if len(p) == 0 {
			roots = append(roots, h.names[idx])
		}
	}
	return roots
}

// Ancestors returns the label's class followed by all of its ancestors, most
// specific first and without duplicates. The primary parent chain comes first,
// followed by the ancestry of the mixins of each class along that chain.
func (h *Hierarchy) Ancestors(label string) ([]string, error) {
	h.mu.RLock()
	entry, ok := h.cache[label]
	h.mu.RUnlock()

	if !ok {
		entry = h.resolveAndCache(label)
	}

	if entry.err != nil {
		return nil, entry.err
	}

	return slices.Clone(entry.labels), nil
}

func (h *Hierarchy) resolveAndCache(label string) cacheEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, ok := h.cache[label]; ok {
		return entry
	}

	entry := h.resolve(label)
	h.cache[label] = entry

	return entry
}

// resolve must be called with the write lock held
func (h *Hierarchy) resolve(label string) cacheEntry {
	idx, ok := h.index[normalize(label)]
	if !ok {
		return cacheEntry{err: errors.NewUnknownLabelError(label)}
	}

	closure := h.closure(idx)
	labels := make([]string, 0, len(closure))
	for _, c := range closure {
		labels = append(labels, h.names[c])
	}

	return cacheEntry{labels: labels}
}

func (h *Hierarchy) closure(idx int) []int {
	if c, ok := h.closures[idx]; ok {
		return c
	}

	chain := []int{}
	for current := idx; ; current = h.parents[current][0] {
		chain = append(chain, current)
		if len(h.parents[current]) == 0 {
			break
		}
	}

	seen := make(map[int]bool, len(chain))
	result := make([]int, 0, len(chain))
	for _, c := range chain {
		seen[c] = true
		result = append(result, c)
	}

	for _, c := range chain {
		if len(h.parents[c]) < 2 {
			continue
		}
		for _, mixin := range h.parents[c][1:] {
			for _, a := range h.closure(mixin) {
				if !seen[a] {
					seen[a] = true
					result = append(result, a)
				}
			}
		}
	}

	h.closures[idx] = result
	return result
}

func (h *Hierarchy) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make([]int, len(h.names))

	var visit func(idx int) error
	visit = func(idx int) error {
		switch state[idx] {
		case visiting:
			return fmt.Errorf("class hierarchy contains a cycle through \"%s\"", h.names[idx])
		case done:
			return nil
		}

		state[idx] = visiting
		for _, p := range h.parents[idx] {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[idx] = done

		return nil
	}

	for idx := range h.names {
		if err := visit(idx); err != nil {
			return err
		}
	}

	return nil
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-'
}

func normalize(label string) string {
	var sb strings.Builder
	for _, r := range label {
		if isSeparator(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// displayName converts class names such as "noncoding RNA product" into the
// label form used by the database, i.e. NoncodingRNAProduct
func displayName(name string) string {
	var sb strings.Builder
	for _, word := range strings.FieldsFunc(name, isSeparator) {
		r, size := utf8.DecodeRuneInString(word)
		sb.WriteRune(unicode.ToUpper(r))
		sb.WriteString(word[size:])
	}
	return sb.String()
}
