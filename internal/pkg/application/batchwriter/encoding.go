package batchwriter

import (
	"strings"

	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/diwise/graph-batch-writer/pkg/graph/types/properties"
)

const labelSeparator string = "|"

var newlineEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\n`)

type encoder struct {
	delimiter rune
	quote     rune
}

// disambiguationQuote is used for values that would break the row otherwise
func (enc encoder) disambiguationQuote() rune {
	if enc.quote != 0 {
		return enc.quote
	}
	return '"'
}

func (enc encoder) quoted(s string, q rune) string {
	qs := string(q)

	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteString(qs)
	sb.WriteString(strings.ReplaceAll(newlineEscaper.Replace(s), qs, qs+qs))
	sb.WriteString(qs)

	return sb.String()
}

// bare writes ids and labels as is unless they contain the delimiter, the
// quote character or a line break
func (enc encoder) bare(s string) string {
	q := enc.disambiguationQuote()
	if strings.ContainsRune(s, enc.delimiter) || strings.ContainsRune(s, q) || strings.ContainsAny(s, "\r\n") {
		return enc.quoted(s, q)
	}
	return s
}

func (enc encoder) text(s string) string {
	if enc.quote != 0 {
		return enc.quoted(s, enc.quote)
	}
	return enc.bare(s)
}

func (enc encoder) property(p types.Property) string {
	if properties.IsEmptyList(p) {
		return ""
	}
	if p.Kind().IsText() {
		return enc.text(p.Canonical())
	}
	return p.Canonical()
}

func (enc encoder) row(fields []string) []byte {
	size := len(fields)
	for _, f := range fields {
		size += len(f)
	}

	buf := make([]byte, 0, size)
	for idx, f := range fields {
		if idx > 0 {
			buf = append(buf, string(enc.delimiter)...)
		}
		buf = append(buf, f...)
	}

	return append(buf, '\n')
}

func (enc encoder) header(fields []string) []byte {
	row := enc.row(fields)
	return row[:len(row)-1]
}

func colonLabels(labels []string) string {
	prefixed := make([]string, 0, len(labels))
	for _, l := range labels {
		prefixed = append(prefixed, ":"+l)
	}
	return strings.Join(prefixed, labelSeparator)
}
