package batchwriter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/diwise/graph-batch-writer/pkg/graph/errors"
)

const partBufferSize int = 64 * 1024

func headerFileName(typeName string) string {
	return typeName + "-header.csv"
}

func partFileName(typeName string, index int) string {
	return fmt.Sprintf("%s-part%03d.csv", typeName, index)
}

type FileReport struct {
	Path     string `json:"path"`
	Rows     int64  `json:"rows"`
	Bytes    int64  `json:"bytes"`
	Complete bool   `json:"complete"`
}

type partFile struct {
	path string
	f    *os.File
	w    *bufio.Writer

	rows   int64
	bytes  int64
	failed bool
	closed bool
	err    error
}

func createPart(dir, typeName string, index int) (*partFile, error) {
	path := filepath.Join(dir, partFileName(typeName, index))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.NewPartitionWriteFailure(path, err)
	}

	return &partFile{
		path: path,
		f:    f,
		w:    bufio.NewWriterSize(f, partBufferSize),
	}, nil
}

// exceeds reports whether appending a row of the given size would break one
// of the ceilings. An empty part accepts any row.
func (p *partFile) exceeds(rowSize int, maxRows, maxBytes int64) bool {
	if p.rows == 0 {
		return false
	}
	if maxRows > 0 && p.rows >= maxRows {
		return true
	}
	if maxBytes > 0 && p.bytes+int64(rowSize) > maxBytes {
		return true
	}
	return false
}

func (p *partFile) write(row []byte) error {
	if p.failed || p.closed {
		return errors.NewPartitionWriteFailure(p.path, fmt.Errorf("part is no longer writable"))
	}

	_, err := p.w.Write(row)
	if err != nil {
		p.failed = true
		p.err = errors.NewPartitionWriteFailure(p.path, err)
		return p.err
	}

	p.rows++
	p.bytes += int64(len(row))

	return nil
}

// close flushes and closes the part. It is safe to call more than once.
func (p *partFile) close() error {
	if p.closed {
		return p.err
	}
	p.closed = true

	if !p.failed {
		if err := p.w.Flush(); err != nil {
			p.failed = true
			p.err = errors.NewPartitionWriteFailure(p.path, err)
		}
	}

	if err := p.f.Close(); err != nil && p.err == nil {
		p.failed = true
		p.err = errors.NewPartitionWriteFailure(p.path, err)
	}

	return p.err
}

func (p *partFile) report() FileReport {
	return FileReport{
		Path:     p.path,
		Rows:     p.rows,
		Bytes:    p.bytes,
		Complete: p.closed && !p.failed,
	}
}

func writeHeaderFile(dir, typeName string, header []byte) (FileReport, error) {
	path := filepath.Join(dir, headerFileName(typeName))

	fr := FileReport{Path: path, Bytes: int64(len(header))}

	if err := os.WriteFile(path, header, 0o644); err != nil {
		return fr, errors.NewPartitionWriteFailure(path, err)
	}

	fr.Complete = true
	return fr, nil
}

// existingParts lists the part files of a type in the directory, ordered by
// their part number
func existingParts(dir, typeName string) ([]string, error) {
	candidates, err := filepath.Glob(filepath.Join(dir, globEscape(typeName)+"-part*.csv"))
	if err != nil {
		return nil, err
	}

	prefix := typeName + "-part"
	parts := make([]string, 0, len(candidates))

	for _, path := range candidates {
		number := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), ".csv")
		if number == "" || strings.Trim(number, "0123456789") != "" {
			continue
		}
		parts = append(parts, path)
	}

	slices.SortFunc(parts, func(a, b string) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return strings.Compare(a, b)
	})

	return parts, nil
}

// removeStaleParts deletes part files of a type left behind by an earlier run
// so that the part set in the directory always matches the current header
func removeStaleParts(dir, typeName string) error {
	stale, err := existingParts(dir, typeName)
	if err != nil {
		return err
	}

	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return errors.NewPartitionWriteFailure(path, err)
		}
	}

	return nil
}

func globEscape(s string) string {
	escaped := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return string(escaped)
}
