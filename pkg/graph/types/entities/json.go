package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diwise/graph-batch-writer/pkg/graph/types"
)

// entityDocument is the JSON form of an entity as produced by upstream
// adapters. Documents with a source and a target are edges.
type entityDocument struct {
	ID             string          `json:"id"`
	Label          string          `json:"label"`
	OptionalLabels []string        `json:"optionalLabels"`
	Source         string          `json:"source"`
	Target         string          `json:"target"`
	Properties     json.RawMessage `json:"properties"`
}

// NewFromJSON decodes a single node or edge. Property order follows the
// order of the keys in the document.
func NewFromJSON(body []byte) (types.Entity, error) {
	doc := entityDocument{}
	err := json.Unmarshal(body, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	decorators, err := propertyDecorators(doc.Properties)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}

	if doc.Source != "" || doc.Target != "" {
		if doc.ID != "" {
			decorators = append(decorators, EdgeID(doc.ID))
		}
		return NewEdge(doc.Source, doc.Target, doc.Label, decorators...)
	}

	if len(doc.OptionalLabels) > 0 {
		decorators = append([]EntityDecoratorFunc{OptionalLabels(doc.OptionalLabels...)}, decorators...)
	}

	return NewNode(doc.ID, doc.Label, decorators...)
}

func propertyDecorators(raw json.RawMessage) ([]EntityDecoratorFunc, error) {
	decorators := []EntityDecoratorFunc{}

	if len(raw) == 0 || string(raw) == "null" {
		return decorators, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("properties must be an object")
	}

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}

		name, _ := tok.(string)

		var value any
		if err = dec.Decode(&value); err != nil {
			return nil, err
		}

		decorators = append(decorators, P(name, fromJSONValue(value)))
	}

	return decorators, nil
}

// fromJSONValue turns json.Number into int64 or float64 so that integers
// survive the round trip through the decoder
func fromJSONValue(value any) any {
	switch typedValue := value.(type) {
	case json.Number:
		if !strings.ContainsAny(typedValue.String(), ".eE") {
			if i, err := typedValue.Int64(); err == nil {
				return i
			}
		}
		f, err := typedValue.Float64()
		if err != nil {
			return typedValue.String()
		}
		return f
	case []any:
		values := make([]any, 0, len(typedValue))
		for _, v := range typedValue {
			values = append(values, fromJSONValue(v))
		}
		return values
	default:
		return value
	}
}
