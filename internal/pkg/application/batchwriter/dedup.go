package batchwriter

import (
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
)

// dedupIndex remembers 64 bit digests of everything written for a type, so
// the memory held per row is constant regardless of the property sizes
type dedupIndex struct {
	seen map[uint64]struct{}
}

func newDedupIndex() *dedupIndex {
	return &dedupIndex{seen: map[uint64]struct{}{}}
}

// add returns false if the key has been added before
func (d *dedupIndex) add(key uint64) bool {
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

var fieldSeparator = []byte{0x1f}

func nodeKey(n types.Entity) uint64 {
	return xxhash.Sum64String(n.ID())
}

// edgeKey digests the direction sensitive endpoints and the property values.
// Edge ids do not take part, two edges only differing by id are duplicates.
func edgeKey(e types.Edge) uint64 {
	d := xxhash.New()

	d.WriteString(e.Source())
	d.Write(fieldSeparator)
	d.WriteString(e.Target())

	names := e.PropertyNames()
	slices.Sort(names)

	for _, name := range names {
		p, _ := e.Property(name)
		d.Write(fieldSeparator)
		d.WriteString(name)
		d.Write(fieldSeparator)
		d.WriteString(strconv.Itoa(int(p.Kind())))
		d.Write(fieldSeparator)
		d.WriteString(p.Canonical())
	}

	return d.Sum64()
}
