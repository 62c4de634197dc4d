package schema

import (
	"bytes"
	"errors"
	"testing"

	graphErrors "github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/matryer/is"
)

func TestResolveByInputLabel(t *testing.T) {
	is, r := setupRegistryTest(t)

	e, err := r.Resolve("miRNA")
	is.NoErr(err)
	is.Equal(e.Name, "microRNA")
	is.Equal(e.PreferredID, "MIR")
	is.Equal(e.RepresentedAs, RepresentedAsNode)
}

func TestResolveEdge(t *testing.T) {
	is, r := setupRegistryTest(t)

	e, err := r.Resolve("POST_TRANSLATIONAL")
	is.NoErr(err)
	is.True(e.IsEdge()) // should be represented as an edge
	is.Equal(e.PreferredID, "PLID")
}

func TestResolveUnknownLabel(t *testing.T) {
	is, r := setupRegistryTest(t)

	_, err := r.Resolve("Protein")
	is.True(errors.Is(err, graphErrors.ErrUnknownSchemaLabel)) // should only resolve input labels
}

func TestLookupByTypeName(t *testing.T) {
	is, r := setupRegistryTest(t)

	e, ok := r.Lookup("Protein")
	is.True(ok)
	is.Equal(e.LabelInInput, "protein")

	_, ok = r.Lookup("protein")
	is.True(!ok) // should only find type names
}

func TestEntriesAreSorted(t *testing.T) {
	is, r := setupRegistryTest(t)

	entries := r.Entries()
	is.Equal(len(entries), 4)
	is.Equal(entries[0].Name, "PostTranscriptionalInteraction")
	is.Equal(entries[3].Name, "microRNA")
}

func TestDeclaredPropertiesAreFrozen(t *testing.T) {
	is, r := setupRegistryTest(t)

	columns, ok := r.ColumnsFor("PostTranscriptionalInteraction")
	is.True(ok) // should have declared columns
	is.Equal(columns, []string{"p1", "p2"})

	_, ok = r.ColumnsFor("Protein")
	is.True(!ok) // should not have columns before the first entity
}

func TestFirstFreezeWins(t *testing.T) {
	is, r := setupRegistryTest(t)

	is.Equal(r.Freeze("Protein", []string{"a", "b"}), []string{"a", "b"})
	is.Equal(r.Freeze("Protein", []string{"c"}), []string{"a", "b"}) // should keep the first column order

	columns, _ := r.ColumnsFor("Protein")
	is.Equal(columns, []string{"a", "b"})
}

func TestDuplicateInputLabelsAreRejected(t *testing.T) {
	is := is.New(t)

	_, err := NewRegistry(map[string]Entry{
		"A": {LabelInInput: "x"},
		"B": {LabelInInput: "x"},
	})
	is.True(err != nil) // should reject shared input labels
}

func TestUnsupportedRepresentationIsRejected(t *testing.T) {
	is := is.New(t)

	_, err := NewRegistry(map[string]Entry{
		"A": {LabelInInput: "x", RepresentedAs: "hyperedge"},
	})
	is.True(err != nil)
}

func setupRegistryTest(t *testing.T) (*is.I, *Registry) {
	is := is.New(t)

	entries, err := LoadEntries(bytes.NewBufferString(schemaFile))
	is.NoErr(err)

	r, err := NewRegistry(entries)
	is.NoErr(err)

	return is, r
}

const schemaFile string = `
Protein:
  represented_as: node
  preferred_id: UniProtKB
  label_in_input: protein
microRNA:
  represented_as: node
  preferred_id: MIR
  label_in_input: miRNA
PostTranslationalInteraction:
  represented_as: edge
  preferred_id: PLID
  label_in_input: POST_TRANSLATIONAL
PostTranscriptionalInteraction:
  represented_as: edge
  preferred_id: PCID
  label_in_input: POST_TRANSCRIPTIONAL
  properties: [p1, p2]
`
