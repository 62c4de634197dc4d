package ontology

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	graphErrors "github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/matryer/is"
)

func TestProteinAncestry(t *testing.T) {
	is, h := setupHierarchyTest(t)

	labels, err := h.Ancestors("Protein")
	is.NoErr(err)

	is.Equal(strings.Join(labels, "|"),
		"Protein|Polypeptide|BiologicalEntity|NamedThing|Entity|GeneProductMixin|GeneOrGeneProduct"+
			"|MacromolecularMachineMixin|ThingWithTaxon|ChemicalEntityOrGeneOrGeneProduct"+
			"|ChemicalEntityOrProteinOrPolypeptide")
}

func TestLookupIsNormalized(t *testing.T) {
	is, h := setupHierarchyTest(t)

	labels, err := h.Ancestors("microRNA")
	is.NoErr(err)

	is.Equal(labels[0], "MicroRNA") // should return the display name of the class
	is.Equal(labels[1], "NoncodingRNAProduct")
}

func TestAncestorsHaveNoDuplicates(t *testing.T) {
	is, h := setupHierarchyTest(t)

	labels, err := h.Ancestors("microRNA")
	is.NoErr(err)

	seen := map[string]bool{}
	for _, l := range labels {
		is.True(!seen[l]) // should not contain duplicates
		seen[l] = true
	}
	is.True(seen["ThingWithTaxon"]) // should include ancestors reached through mixins
}

func TestRepeatedQueriesAreIdempotent(t *testing.T) {
	is, h := setupHierarchyTest(t)

	first, err := h.Ancestors("Protein")
	is.NoErr(err)

	first[0] = "Changed"

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Ancestors("Protein")
		}()
	}
	wg.Wait()

	second, err := h.Ancestors("Protein")
	is.NoErr(err)
	is.Equal(second[0], "Protein") // should not be affected by callers modifying results
}

func TestUnknownLabel(t *testing.T) {
	is, h := setupHierarchyTest(t)

	_, err := h.Ancestors("spaceship")
	is.True(errors.Is(err, graphErrors.ErrUnknownLabel)) // should fail with unknown label

	_, err = h.Ancestors("spaceship")
	is.True(errors.Is(err, graphErrors.ErrUnknownLabel)) // should keep failing from the cache
}

func TestRoots(t *testing.T) {
	is, h := setupHierarchyTest(t)
	roots := h.Roots()
	is.True(len(roots) > 0)
	for _, r := range roots {
		labels, _ := h.Ancestors(r)
		is.Equal(labels, []string{r}) // roots should only have themselves as ancestors
	}
}

func TestRootClassResolvesToItself(t *testing.T) {
	is := is.New(t)
	h, err := New(map[string]Class{"entity": {}})
	is.NoErr(err)

	labels, err := h.Ancestors("entity")
	is.NoErr(err)
	is.Equal(labels, []string{"Entity"})

	labels, err = h.Ancestors("entity")
	is.NoErr(err)
	is.Equal(labels, []string{"Entity"}) // should resolve from the cache as well
}

func TestClassWithMixin(t *testing.T) {
	is := is.New(t)
	h, err := New(map[string]Class{
		"thing with taxon": {},
		"named thing":      {},
		"organism":         {IsA: "named thing", Mixins: []string{"thing with taxon"}},
	})
	is.NoErr(err)

	labels, err := h.Ancestors("organism")
	is.NoErr(err)
	is.Equal(labels, []string{"Organism", "NamedThing", "ThingWithTaxon"})
}

func TestCycleIsRejected(t *testing.T) {
	is := is.New(t)
	_, err := New(map[string]Class{
		"a": {IsA: "b"},
		"b": {Mixins: []string{"a"}},
	})
	is.True(err != nil) // should reject cycles
}

func TestDanglingParentIsRejected(t *testing.T) {
	is := is.New(t)
	_, err := New(map[string]Class{
		"a": {IsA: "missing"},
	})
	is.True(err != nil) // should reject unknown parents
}

func TestCollidingNamesAreRejected(t *testing.T) {
	is := is.New(t)
	_, err := New(map[string]Class{
		"named thing": {},
		"NamedThing":  {},
	})
	is.True(err != nil) // should reject names that normalize to the same key
}

func setupHierarchyTest(t *testing.T) (*is.I, *Hierarchy) {
	is := is.New(t)
	h, err := Load(bytes.NewBufferString(hierarchyFile))
	is.NoErr(err)
	return is, h
}

const hierarchyFile string = `
classes:
  entity: {}
  named thing:
    is_a: entity
  biological entity:
    is_a: named thing
  thing with taxon: {}
  macromolecular machine mixin: {}
  gene or gene product:
    is_a: macromolecular machine mixin
  gene product mixin:
    is_a: gene or gene product
  chemical entity or gene or gene product: {}
  chemical entity or protein or polypeptide: {}
  polypeptide:
    is_a: biological entity
    mixins:
      - chemical entity or gene or gene product
      - chemical entity or protein or polypeptide
  protein:
    is_a: polypeptide
    mixins:
      - gene product mixin
      - thing with taxon
  physical essence: {}
  molecular entity:
    is_a: named thing
    mixins:
      - physical essence
  nucleic acid entity:
    is_a: molecular entity
    mixins:
      - thing with taxon
  transcript:
    is_a: nucleic acid entity
  RNA product:
    is_a: transcript
    mixins:
      - gene product mixin
  noncoding RNA product:
    is_a: RNA product
  micro RNA:
    is_a: noncoding RNA product
`
