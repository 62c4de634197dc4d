package graphimport

import (
	"context"
	"strings"
	"testing"

	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/matryer/is"
)

func TestEntityReaderDecodesNodesAndEdges(t *testing.T) {
	is := is.New(t)
	er := NewEntityReader(strings.NewReader(inputFile), true)

	count := 0
	edges := 0
	for e := range er.All(context.Background()) {
		count++
		if _, ok := e.(types.Edge); ok {
			edges++
		}
	}

	is.NoErr(er.Err())
	is.Equal(count, 3) // should skip blank lines
	is.Equal(edges, 1)
}

func TestEntityReaderWithoutTrailingNewline(t *testing.T) {
	is := is.New(t)
	er := NewEntityReader(strings.NewReader(`{"id":"P1","label":"protein"}`), true)

	count := 0
	for range er.All(context.Background()) {
		count++
	}

	is.NoErr(er.Err())
	is.Equal(count, 1)
}

func TestEntityReaderStrictStopsAtFirstError(t *testing.T) {
	is := is.New(t)
	er := NewEntityReader(strings.NewReader("{\"id\":\"P1\",\"label\":\"protein\"}\n[]\n{\"id\":\"P2\",\"label\":\"protein\"}\n"), true)

	count := 0
	for range er.All(context.Background()) {
		count++
	}

	is.Equal(count, 1) // should stop at the undecodable line
	is.True(er.Err() != nil)
	is.True(strings.Contains(er.Err().Error(), "line 2"))
}

func TestEntityReaderLenientSkips(t *testing.T) {
	is := is.New(t)
	er := NewEntityReader(strings.NewReader("{\"id\":\"P1\",\"label\":\"protein\"}\n[]\n{\"id\":\"P2\",\"label\":\"protein\"}\n"), false)

	count := 0
	for range er.All(context.Background()) {
		count++
	}

	is.NoErr(er.Err())
	is.Equal(count, 2)
	is.Equal(er.Skipped(), 1)
}

func TestEntityReaderReportsSkippedLines(t *testing.T) {
	is := is.New(t)

	lines := []int{}
	er := NewEntityReader(strings.NewReader("[]\n{\"id\":\"P1\",\"label\":\"protein\"}\n{}\n"), false).
		OnSkip(func(line int, err error) {
			lines = append(lines, line)
		})

	for range er.All(context.Background()) {
	}

	is.Equal(lines, []int{1, 3}) // should pass the line number of every skipped line
	is.Equal(er.Skipped(), 2)
}

func TestEntityReaderStopsWhenConsumerStops(t *testing.T) {
	is := is.New(t)
	er := NewEntityReader(strings.NewReader(inputFile), true)

	for range er.All(context.Background()) {
		break
	}

	is.NoErr(er.Err())
}
