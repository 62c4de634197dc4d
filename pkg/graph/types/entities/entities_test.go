package entities

import (
	"errors"
	"testing"

	graphErrors "github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/matryer/is"
)

func TestNewNodeKeepsPropertyOrder(t *testing.T) {
	is := is.New(t)

	n, err := NewNode("p1", "protein",
		OptionalLabels("SubLabel1", "SubLabel2"),
		Text("name", "StringProperty1"),
		Number("score", 4.0),
		Integer("taxon", 9606),
		TextList("genes", []string{"gene1", "gene2"}),
	)
	is.NoErr(err)

	is.Equal(n.ID(), "p1")
	is.Equal(n.Label(), "protein")
	is.Equal(n.OptionalLabels(), []string{"SubLabel1", "SubLabel2"})
	is.Equal(n.PropertyNames(), []string{"name", "score", "taxon", "genes"})

	p, ok := n.Property("genes")
	is.True(ok)
	is.Equal(p.Canonical(), "gene1|gene2")
}

func TestResettingAPropertyKeepsItsPosition(t *testing.T) {
	is := is.New(t)

	n, err := NewNode("p1", "protein", Text("a", "1"), Text("b", "2"), Text("a", "3"))
	is.NoErr(err)

	is.Equal(n.PropertyNames(), []string{"a", "b"})
	p, _ := n.Property("a")
	is.Equal(p.Canonical(), "3")
}

func TestNodeWithoutIDFails(t *testing.T) {
	is := is.New(t)
	_, err := NewNode("", "protein")
	is.True(errors.Is(err, graphErrors.ErrInvalidEntity)) // should require an id
}

func TestNodeWithoutLabelFails(t *testing.T) {
	is := is.New(t)
	_, err := NewNode("p1", "")
	is.True(errors.Is(err, graphErrors.ErrInvalidEntity)) // should require a label
}

func TestInvalidPropertyFailsConstruction(t *testing.T) {
	is := is.New(t)
	_, err := NewNode("p1", "protein", P("nested", map[string]string{"a": "b"}))
	is.True(errors.Is(err, graphErrors.ErrInvalidPropertyType)) // should fail with invalid property type
}

func TestEdgeIDIsDerivedDeterministically(t *testing.T) {
	is := is.New(t)

	e1, err := NewEdge("p1", "p2", "POST_TRANSLATIONAL", Text("source", "signor"))
	is.NoErr(err)
	e2, err := NewEdge("p1", "p2", "POST_TRANSLATIONAL", Text("source", "signor"))
	is.NoErr(err)
	e3, err := NewEdge("p2", "p1", "POST_TRANSLATIONAL", Text("source", "signor"))
	is.NoErr(err)

	is.True(e1.ID() != "")      // should derive an id
	is.Equal(e1.ID(), e2.ID())  // should be stable for identical edges
	is.True(e1.ID() != e3.ID()) // should be direction sensitive
}

func TestExplicitEdgeID(t *testing.T) {
	is := is.New(t)
	e, err := NewEdge("p1", "p2", "POST_TRANSLATIONAL", EdgeID("rel-1"))
	is.NoErr(err)
	is.Equal(e.ID(), "rel-1")
	is.Equal(e.Source(), "p1")
	is.Equal(e.Target(), "p2")
}

func TestOptionalLabelsOnEdgeFails(t *testing.T) {
	is := is.New(t)
	_, err := NewEdge("p1", "p2", "POST_TRANSLATIONAL", OptionalLabels("x"))
	is.True(errors.Is(err, graphErrors.ErrInvalidEntity))
}

func TestNodeFromJSON(t *testing.T) {
	is := is.New(t)

	e, err := NewFromJSON([]byte(`{"id":"p1","label":"protein","optionalLabels":["SubLabel1"],"properties":{"taxon":9606,"score":4.0,"name":"n","genes":["gene1","gene2"]}}`))
	is.NoErr(err)

	n, ok := e.(types.Node)
	is.True(ok) // should decode a node
	is.Equal(n.OptionalLabels(), []string{"SubLabel1"})
	is.Equal(n.PropertyNames(), []string{"taxon", "score", "name", "genes"})

	taxon, _ := n.Property("taxon")
	is.Equal(taxon.Kind(), types.KindInteger)
	score, _ := n.Property("score")
	is.Equal(score.Kind(), types.KindFloat)
	genes, _ := n.Property("genes")
	is.Equal(genes.Kind(), types.KindTextList)
}

func TestEdgeFromJSON(t *testing.T) {
	is := is.New(t)

	e, err := NewFromJSON([]byte(`{"source":"p1","target":"p2","label":"POST_TRANSLATIONAL","id":"i1"}`))
	is.NoErr(err)

	edge, ok := e.(types.Edge)
	is.True(ok) // should decode an edge
	is.Equal(edge.ID(), "i1")
	is.Equal(len(edge.PropertyNames()), 0)
}

func TestJSONWithNestedObjectFails(t *testing.T) {
	is := is.New(t)
	_, err := NewFromJSON([]byte(`{"id":"p1","label":"protein","properties":{"x":{"y":1}}}`))
	is.True(errors.Is(err, graphErrors.ErrInvalidPropertyType))
}
