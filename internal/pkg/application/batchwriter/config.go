package batchwriter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type Mode string

const (
	StrictMode  Mode = "strict"
	LenientMode Mode = "lenient"
)

// RowLabelMode selects what goes into the label column of node rows. The
// header label column always holds the colon prefixed ancestor chain.
type RowLabelMode string

const (
	// RowLabelsDeclared writes the type name followed by the optional labels, i.e. Protein|SubLabel1
	RowLabelsDeclared RowLabelMode = "declared"
	// RowLabelsAncestors writes the optional labels followed by the ancestor chain, i.e. SubLabel1|:Protein|:Polypeptide
	RowLabelsAncestors RowLabelMode = "ancestors"
)

const (
	DefaultDelimiter rune = ';'
	DefaultQuote     rune = '\''
)

type Config struct {
	OutputDir string

	Delimiter rune
	// Quote wraps text values. A zero value disables quoting, text is then
	// only wrapped in double quotes when it would otherwise be ambiguous.
	Quote rune

	// MaxRowsPerPart and MaxPartSize bound each part file, zero means unbounded
	MaxRowsPerPart int64
	MaxPartSize    int64

	Mode      Mode
	RowLabels RowLabelMode

	// Registerer receives the writer metrics, nil disables registration
	Registerer prometheus.Registerer
}

func DefaultConfig(outputDir string) Config {
	return Config{
		OutputDir: outputDir,
		Delimiter: DefaultDelimiter,
		Quote:     DefaultQuote,
		Mode:      StrictMode,
		RowLabels: RowLabelsDeclared,
	}
}

func (c Config) Strict() bool {
	return c.Mode != LenientMode
}

func (c *Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("an output directory is required")
	}

	if c.Delimiter == 0 {
		c.Delimiter = DefaultDelimiter
	}
	if c.Mode == "" {
		c.Mode = StrictMode
	}
	if c.RowLabels == "" {
		c.RowLabels = RowLabelsDeclared
	}

	switch c.Delimiter {
	case '|', '\n', '\r', '"':
		return fmt.Errorf("%q can not be used as delimiter", c.Delimiter)
	}
	switch c.Quote {
	case '|', '\n', '\r':
		return fmt.Errorf("%q can not be used as quote", c.Quote)
	}
	if c.Quote == c.Delimiter {
		return fmt.Errorf("delimiter and quote must differ")
	}
	if c.Mode != StrictMode && c.Mode != LenientMode {
		return fmt.Errorf("unsupported mode \"%s\"", c.Mode)
	}
	if c.RowLabels != RowLabelsDeclared && c.RowLabels != RowLabelsAncestors {
		return fmt.Errorf("unsupported row label mode \"%s\"", c.RowLabels)
	}
	if c.MaxRowsPerPart < 0 || c.MaxPartSize < 0 {
		return fmt.Errorf("part ceilings must not be negative")
	}

	return nil
}
