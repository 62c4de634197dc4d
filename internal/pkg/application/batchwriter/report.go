package batchwriter

import (
	"slices"
	"strings"

	"github.com/diwise/graph-batch-writer/internal/pkg/application/schema"
)

// TypeReport summarises what has been written for a single entity type
type TypeReport struct {
	Type          string                `json:"type"`
	RepresentedAs schema.Representation `json:"representedAs"`

	Rows       int64 `json:"rows"`
	Parts      int   `json:"parts"`
	Duplicates int64 `json:"duplicates"`
	Coerced    int64 `json:"coerced"`
	Bytes      int64 `json:"bytes"`

	Header    FileReport   `json:"header"`
	PartFiles []FileReport `json:"partFiles"`

	// Complete is true once the type has been closed and every file of it
	// was written without errors
	Complete bool `json:"complete"`
}

func (tr TypeReport) IncompleteFiles() []string {
	incomplete := []string{}
	if tr.Header.Path != "" && !tr.Header.Complete {
		incomplete = append(incomplete, tr.Header.Path)
	}
	for _, p := range tr.PartFiles {
		if !p.Complete {
			incomplete = append(incomplete, p.Path)
		}
	}
	return incomplete
}

type SkippedEntity struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// maxSkippedDetails bounds the skipped entities kept in a report, the count
// keeps growing past it
const maxSkippedDetails int = 1000

type Report struct {
	Types        []TypeReport    `json:"types"`
	Skipped      []SkippedEntity `json:"skipped"`
	SkippedCount int64           `json:"skippedCount"`
	Warnings     []string        `json:"warnings"`
	Aborted      bool            `json:"aborted"`
}

func (r *Report) Type(name string) (TypeReport, bool) {
	idx := slices.IndexFunc(r.Types, func(tr TypeReport) bool { return tr.Type == name })
	if idx < 0 {
		return TypeReport{}, false
	}
	return r.Types[idx], true
}

// Success is true if the run was not aborted and all types are complete
func (r *Report) Success() bool {
	if r.Aborted {
		return false
	}
	for _, tr := range r.Types {
		if !tr.Complete {
			return false
		}
	}
	return true
}

func (r *Report) TotalRows() int64 {
	var total int64
	for _, tr := range r.Types {
		total += tr.Rows
	}
	return total
}

func sortTypeReports(reports []TypeReport) {
	slices.SortFunc(reports, func(a, b TypeReport) int {
		return strings.Compare(a.Type, b.Type)
	})
}
