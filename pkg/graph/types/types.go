package types

// Kind is the closed set of value kinds a property may hold
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindBoolean

	KindTextList
	KindIntegerList
	KindFloatList
	KindBooleanList
)

var kindNames = map[Kind]string{
	KindText:        "text",
	KindInteger:     "integer",
	KindFloat:       "float",
	KindBoolean:     "boolean",
	KindTextList:    "text list",
	KindIntegerList: "integer list",
	KindFloatList:   "float list",
	KindBooleanList: "boolean list",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k Kind) IsList() bool {
	return k >= KindTextList
}

// IsText reports whether values of this kind are written as string literals
func (k Kind) IsText() bool {
	return k == KindText || k == KindTextList
}

// Property is a validated property value. Implementations live in the
// properties package and are the only values an entity can carry.
type Property interface {
	Kind() Kind
	Value() any
	// Canonical returns the unquoted text form of the value. List elements
	// are joined with a pipe.
	Canonical() string
}

type Entity interface {
	ID() string
	Label() string

	PropertyNames() []string
	Property(name string) (Property, bool)
	ForEachProperty(callback func(name string, p Property))
}

type Node interface {
	Entity

	OptionalLabels() []string
}

type Edge interface {
	Entity

	Source() string
	Target() string
}
