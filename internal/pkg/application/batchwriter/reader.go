package batchwriter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrMalformedRow = errors.New("malformed row")

// SplitRow splits a header or data row into its fields. Quoted fields are
// unwrapped and doubled quotes collapsed. Escaped line breaks are returned
// as the two characters \n since the encoding does not tell them apart from
// a literal backslash followed by n.
func SplitRow(line string, delimiter, quote rune) ([]string, error) {
	q := encoder{delimiter: delimiter, quote: quote}.disambiguationQuote()

	line = strings.TrimSuffix(line, "\n")

	fields := []string{}
	var field strings.Builder

	runes := []rune(line)
	pos := 0

	for {
		field.Reset()

		if pos < len(runes) && runes[pos] == q {
			pos++
			closed := false

			for pos < len(runes) {
				r := runes[pos]
				pos++

				if r != q {
					field.WriteRune(r)
					continue
				}

				if pos < len(runes) && runes[pos] == q {
					field.WriteRune(q)
					pos++
					continue
				}

				closed = true
				break
			}

			if !closed {
				return nil, fmt.Errorf("%w: unterminated quote in field %d", ErrMalformedRow, len(fields)+1)
			}

			if pos < len(runes) && runes[pos] != delimiter {
				return nil, fmt.Errorf("%w: unexpected %q after quoted field %d", ErrMalformedRow, runes[pos], len(fields)+1)
			}
		} else {
			for pos < len(runes) && runes[pos] != delimiter {
				field.WriteRune(runes[pos])
				pos++
			}
		}

		fields = append(fields, field.String())

		if pos >= len(runes) {
			return fields, nil
		}

		// skip the delimiter
		pos++
	}
}

type PartSet struct {
	Path string
	Rows [][]string
}

// TypeSet is the parsed content of the header and part files of one type
type TypeSet struct {
	Type   string
	Header []string
	Parts  []PartSet
}

func (ts *TypeSet) IsEdge() bool {
	return len(ts.Header) > 0 && ts.Header[0] == ":START_ID"
}

func (ts *TypeSet) RowCount() int {
	count := 0
	for _, p := range ts.Parts {
		count += len(p.Rows)
	}
	return count
}

// Columns returns the property columns of the header, leaving out the id,
// label, start and end columns
func (ts *TypeSet) Columns() []string {
	if ts.IsEdge() {
		if len(ts.Header) < 4 {
			return nil
		}
		return ts.Header[2 : len(ts.Header)-2]
	}

	if len(ts.Header) < 2 {
		return nil
	}
	return ts.Header[1 : len(ts.Header)-1]
}

// Properties maps the property columns of a row to their encoded values
func (ts *TypeSet) Properties(row []string) map[string]string {
	offset := 1
	if ts.IsEdge() {
		offset = 2
	}

	result := map[string]string{}
	for idx, c := range ts.Columns() {
		if offset+idx < len(row) {
			result[c] = row[offset+idx]
		}
	}

	return result
}

// Rows returns the rows of all parts in order
func (ts *TypeSet) Rows() [][]string {
	rows := make([][]string, 0, ts.RowCount())
	for _, p := range ts.Parts {
		rows = append(rows, p.Rows...)
	}
	return rows
}

// ReadTypeSet reads the header and every part of a type from a directory and
// verifies that each row has as many fields as the header
func ReadTypeSet(dir, typeName string, delimiter, quote rune) (*TypeSet, error) {
	headerPath := filepath.Join(dir, headerFileName(typeName))

	buf, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", typeName, err)
	}

	header, err := SplitRow(strings.TrimRight(string(buf), "\r\n"), delimiter, quote)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", headerPath, err)
	}

	ts := &TypeSet{
		Type:   typeName,
		Header: header,
	}

	parts, err := existingParts(dir, typeName)
	if err != nil {
		return nil, err
	}

	for idx, path := range parts {
		if filepath.Base(path) != partFileName(typeName, idx) {
			return nil, fmt.Errorf("part %d of %s is missing, found %s", idx, typeName, filepath.Base(path))
		}

		rows, err := readPart(path, len(header), delimiter, quote)
		if err != nil {
			return nil, err
		}

		ts.Parts = append(ts.Parts, PartSet{Path: path, Rows: rows})
	}

	return ts, nil
}

func readPart(path string, columns int, delimiter, quote rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := [][]string{}
	r := bufio.NewReaderSize(f, partBufferSize)
	lineNo := 0

	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}

		if line != "" {
			lineNo++

			if !strings.HasSuffix(line, "\n") {
				return nil, fmt.Errorf("%s:%d: %w: row is not terminated", path, lineNo, ErrMalformedRow)
			}

			fields, splitErr := SplitRow(line, delimiter, quote)
			if splitErr != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, splitErr)
			}

			if len(fields) != columns {
				return nil, fmt.Errorf("%s:%d: %w: %d fields, header has %d", path, lineNo, ErrMalformedRow, len(fields), columns)
			}

			rows = append(rows, fields)
		}

		if errors.Is(err, io.EOF) {
			return rows, nil
		}
	}
}
