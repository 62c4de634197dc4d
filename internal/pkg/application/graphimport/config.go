package graphimport

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/diwise/graph-batch-writer/internal/pkg/application/batchwriter"
	"github.com/diwise/graph-batch-writer/internal/pkg/application/schema"
	"github.com/dustin/go-humanize"
	yaml "gopkg.in/yaml.v2"
)

type OutputConfig struct {
	Directory string `yaml:"directory"`
	Delimiter string `yaml:"delimiter"`

	// Quote is left out to use the default quote, an empty string disables quoting
	Quote          *string `yaml:"quote"`
	MaxRowsPerPart int64   `yaml:"maxRowsPerPart"`
	MaxPartSize    string  `yaml:"maxPartSize"`
	RowLabels      string  `yaml:"rowLabels"`
}

type Config struct {
	Output       OutputConfig            `yaml:"output"`
	Mode         string                  `yaml:"mode"`
	WriteHeaders bool                    `yaml:"writeHeaders"`
	Schema       map[string]schema.Entry `yaml:"schema"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}

// WriterConfig translates the output section into a batch writer configuration
func (c *Config) WriterConfig() (batchwriter.Config, error) {
	wc := batchwriter.DefaultConfig(c.Output.Directory)

	if c.Output.Delimiter != "" {
		r, err := singleRune("delimiter", c.Output.Delimiter)
		if err != nil {
			return wc, err
		}
		wc.Delimiter = r
	}

	if c.Output.Quote != nil {
		wc.Quote = 0
		if *c.Output.Quote != "" {
			r, err := singleRune("quote", *c.Output.Quote)
			if err != nil {
				return wc, err
			}
			wc.Quote = r
		}
	}

	if c.Output.MaxPartSize != "" {
		size, err := humanize.ParseBytes(c.Output.MaxPartSize)
		if err != nil {
			return wc, fmt.Errorf("invalid maxPartSize \"%s\": %w", c.Output.MaxPartSize, err)
		}
		wc.MaxPartSize = int64(size)
	}

	wc.MaxRowsPerPart = c.Output.MaxRowsPerPart

	if c.Mode != "" {
		wc.Mode = batchwriter.Mode(c.Mode)
	}
	if c.Output.RowLabels != "" {
		wc.RowLabels = batchwriter.RowLabelMode(c.Output.RowLabels)
	}

	return wc, nil
}

func singleRune(name, value string) (rune, error) {
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got \"%s\"", name, value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}
