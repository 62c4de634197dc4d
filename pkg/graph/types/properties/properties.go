package properties

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
)

// ListSeparator joins the elements of list values in their canonical form
const ListSeparator string = "|"

// TextProperty holds a string value
type TextProperty struct {
	Val string
}

func (tp TextProperty) Kind() types.Kind  { return types.KindText }
func (tp TextProperty) Value() any        { return tp.Val }
func (tp TextProperty) Canonical() string { return tp.Val }

// IntegerProperty holds an int64 value
type IntegerProperty struct {
	Val int64
}

func (ip IntegerProperty) Kind() types.Kind  { return types.KindInteger }
func (ip IntegerProperty) Value() any        { return ip.Val }
func (ip IntegerProperty) Canonical() string { return strconv.FormatInt(ip.Val, 10) }

// NumberProperty holds a float64 value
type NumberProperty struct {
	Val float64
}

func (np NumberProperty) Kind() types.Kind { return types.KindFloat }
func (np NumberProperty) Value() any       { return np.Val }

// Canonical always keeps a fractional part so that whole numbers stay
// distinguishable from integers, i.e. 4 is written as 4.0
func (np NumberProperty) Canonical() string {
	s := strconv.FormatFloat(np.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// BooleanProperty holds a bool value
type BooleanProperty struct {
	Val bool
}

func (bp BooleanProperty) Kind() types.Kind  { return types.KindBoolean }
func (bp BooleanProperty) Value() any        { return bp.Val }
func (bp BooleanProperty) Canonical() string { return strconv.FormatBool(bp.Val) }

// ListProperty holds a homogeneous sequence of scalar values
type ListProperty struct {
	kind  types.Kind
	items []types.Property
}

func (lp ListProperty) Kind() types.Kind { return lp.kind }

func (lp ListProperty) Value() any {
	values := make([]any, 0, len(lp.items))
	for _, item := range lp.items {
		values = append(values, item.Value())
	}
	return values
}

func (lp ListProperty) Canonical() string {
	parts := make([]string, 0, len(lp.items))
	for _, item := range lp.items {
		parts = append(parts, item.Canonical())
	}
	return strings.Join(parts, ListSeparator)
}

// NewTextProperty accepts a value as a string and returns a new TextProperty
func NewTextProperty(value string) TextProperty {
	return TextProperty{Val: value}
}

func NewIntegerProperty(value int64) IntegerProperty {
	return IntegerProperty{Val: value}
}

// NewNumberProperty is a convenience function for creating NumberProperty instances
func NewNumberProperty(value float64) NumberProperty {
	return NumberProperty{Val: value}
}

func NewBooleanProperty(value bool) BooleanProperty {
	return BooleanProperty{Val: value}
}

// NewTextListProperty accepts a value as a string array and returns a new list property
func NewTextListProperty(values []string) ListProperty {
	lp := ListProperty{kind: types.KindTextList, items: make([]types.Property, 0, len(values))}
	for _, v := range values {
		lp.items = append(lp.items, NewTextProperty(v))
	}
	return lp
}

var listKinds = map[types.Kind]types.Kind{
	types.KindText:    types.KindTextList,
	types.KindInteger: types.KindIntegerList,
	types.KindFloat:   types.KindFloatList,
	types.KindBoolean: types.KindBooleanList,
}

// New validates a loosely typed value and converts it into a Property. Only
// strings, integers, floats, booleans and homogeneous sequences of those are
// accepted, anything else fails with ErrInvalidPropertyType.
func New(value any) (types.Property, error) {
	switch typedValue := value.(type) {
	case types.Property:
		return typedValue, nil
	case string:
		return NewTextProperty(typedValue), nil
	case bool:
		return NewBooleanProperty(typedValue), nil
	case int:
		return NewIntegerProperty(int64(typedValue)), nil
	case int8:
		return NewIntegerProperty(int64(typedValue)), nil
	case int16:
		return NewIntegerProperty(int64(typedValue)), nil
	case int32:
		return NewIntegerProperty(int64(typedValue)), nil
	case int64:
		return NewIntegerProperty(typedValue), nil
	case uint:
		return newUnsigned(uint64(typedValue))
	case uint8:
		return NewIntegerProperty(int64(typedValue)), nil
	case uint16:
		return NewIntegerProperty(int64(typedValue)), nil
	case uint32:
		return NewIntegerProperty(int64(typedValue)), nil
	case uint64:
		return newUnsigned(typedValue)
	case float32:
		return NewNumberProperty(float64(typedValue)), nil
	case float64:
		return NewNumberProperty(typedValue), nil
	case []string:
		return NewTextListProperty(typedValue), nil
	case []int:
		return newList(typedValue)
	case []int64:
		return newList(typedValue)
	case []float64:
		return newList(typedValue)
	case []bool:
		return newList(typedValue)
	case []any:
		return newList(typedValue)
	case nil:
		return nil, errors.NewInvalidPropertyTypeError("nil is not a valid property value")
	default:
		return nil, errors.NewInvalidPropertyTypeError(fmt.Sprintf("support for type %T not implemented", typedValue))
	}
}

func newUnsigned(value uint64) (types.Property, error) {
	if value > math.MaxInt64 {
		return nil, errors.NewInvalidPropertyTypeError(fmt.Sprintf("unsigned value %d overflows int64", value))
	}
	return NewIntegerProperty(int64(value)), nil
}

func newList[T any](values []T) (types.Property, error) {
	// an empty sequence carries no element kind, it is treated as text
	lp := ListProperty{kind: types.KindTextList, items: make([]types.Property, 0, len(values))}

	for idx, v := range values {
		item, err := New(v)
		if err != nil {
			return nil, err
		}

		if item.Kind().IsList() {
			return nil, errors.NewInvalidPropertyTypeError("nested sequences are not supported")
		}

		if idx == 0 {
			lp.kind = listKinds[item.Kind()]
		} else if listKinds[item.Kind()] != lp.kind {
			return nil, errors.NewInvalidPropertyTypeError(
				fmt.Sprintf("sequence mixes %s and %s elements", lp.kind, item.Kind()),
			)
		}

		lp.items = append(lp.items, item)
	}

	return lp, nil
}

// IsEmptyList reports whether p is a sequence without elements. Such values
// carry no element kind of their own.
func IsEmptyList(p types.Property) bool {
	if !p.Kind().IsList() {
		return false
	}
	values, ok := p.Value().([]any)
	return ok && len(values) == 0
}

// Conform converts p into a property of the given kind when that can be done
// without losing information. Integers widen to floats, element wise for
// sequences, and an empty sequence takes any list kind.
func Conform(p types.Property, kind types.Kind) (types.Property, bool) {
	if p.Kind() == kind {
		return p, true
	}

	if kind.IsList() && IsEmptyList(p) {
		return ListProperty{kind: kind, items: []types.Property{}}, true
	}

	switch {
	case p.Kind() == types.KindInteger && kind == types.KindFloat:
		i, ok := p.Value().(int64)
		if !ok {
			return nil, false
		}
		return NewNumberProperty(float64(i)), true
	case p.Kind() == types.KindIntegerList && kind == types.KindFloatList:
		values, ok := p.Value().([]any)
		if !ok {
			return nil, false
		}
		lp := ListProperty{kind: types.KindFloatList, items: make([]types.Property, 0, len(values))}
		for _, v := range values {
			i, ok := v.(int64)
			if !ok {
				return nil, false
			}
			lp.items = append(lp.items, NewNumberProperty(float64(i)))
		}
		return lp, true
	}

	return nil, false
}
