package entities

import (
	"github.com/diwise/graph-batch-writer/pkg/graph/types/properties"
)

func Text(name string, value string) EntityDecoratorFunc {
	return P(name, properties.NewTextProperty(value))
}

func TextList(name string, value []string) EntityDecoratorFunc {
	return P(name, properties.NewTextListProperty(value))
}

func Integer(name string, value int64) EntityDecoratorFunc {
	return P(name, properties.NewIntegerProperty(value))
}

func Number(name string, value float64) EntityDecoratorFunc {
	return P(name, properties.NewNumberProperty(value))
}

func Boolean(name string, value bool) EntityDecoratorFunc {
	return P(name, properties.NewBooleanProperty(value))
}
