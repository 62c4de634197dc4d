package graphimport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/diwise/graph-batch-writer/pkg/graph/types/entities"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// EntityReader decodes a stream of JSON documents, one entity per line. In
// strict mode the first undecodable line stops the stream and is reported
// by Err, otherwise such lines are logged and skipped.
type EntityReader struct {
	r      *bufio.Reader
	strict bool

	line    int
	skipped int
	err     error

	onSkip func(line int, err error)
}

func NewEntityReader(r io.Reader, strict bool) *EntityReader {
	return &EntityReader{
		r:      bufio.NewReaderSize(r, 256*1024),
		strict: strict,
	}
}

// OnSkip registers a callback for every line skipped in lenient mode
func (er *EntityReader) OnSkip(fn func(line int, err error)) *EntityReader {
	er.onSkip = fn
	return er
}

func (er *EntityReader) All(ctx context.Context) iter.Seq[types.Entity] {
	log := logging.GetFromContext(ctx)

	return func(yield func(types.Entity) bool) {
		for {
			buf, readErr := er.r.ReadBytes('\n')
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				er.err = readErr
				return
			}

			if len(buf) > 0 {
				er.line++
			}

			buf = bytes.TrimSpace(buf)

			if len(buf) > 0 {
				e, err := entities.NewFromJSON(buf)
				if err != nil {
					if er.strict {
						er.err = fmt.Errorf("line %d: %w", er.line, err)
						return
					}

					er.skipped++
					if er.onSkip != nil {
						er.onSkip(er.line, err)
					} else {
						log.Warn("skipping undecodable entity", "line", er.line, "err", err.Error())
					}
				} else if !yield(e) {
					return
				}
			}

			if readErr != nil {
				return
			}
		}
	}
}

func (er *EntityReader) Err() error {
	return er.err
}

// Skipped returns the number of lines that could not be decoded
func (er *EntityReader) Skipped() int {
	return er.skipped
}
