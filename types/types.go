package types

// Kind discriminates the type representations without reflection.
type Kind int

const (
	VoidKind Kind = iota
	IntKind
	BoolKind
	StrKind
	NullKind
	ArrayKind
	ClassKind
)

// Type is the semantic type of an expression or declaration. Class types
// are compared by name; everything else is structural.
type Type interface {
	Kind() Kind
	String() string
}

type Void struct{}

func (Void) Kind() Kind     { return VoidKind }
func (Void) String() string { return "void" }

type Int struct{}

func (Int) Kind() Kind     { return IntKind }
func (Int) String() string { return "int" }

type Bool struct{}

func (Bool) Kind() Kind     { return BoolKind }
func (Bool) String() string { return "boolean" }

type Str struct{}

func (Str) Kind() Kind     { return StrKind }
func (Str) String() string { return "string" }

// Null is the type of the null literal before it is coerced into a
// concrete reference type.
type Null struct{}

func (Null) Kind() Kind     { return NullKind }
func (Null) String() string { return "null" }

type Array struct {
	Elem Type
}

func (a Array) Kind() Kind     { return ArrayKind }
func (a Array) String() string { return a.Elem.String() + "[]" }

type Class struct {
	Name string
}

func (c Class) Kind() Kind     { return ClassKind }
func (c Class) String() string { return c.Name }

// Equal reports structural type identity. Subtyping is not considered;
// assignability lives with the class hierarchy.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case Array:
		return Equal(at.Elem, b.(Array).Elem)
	case Class:
		return at.Name == b.(Class).Name
	}
	return true
}

// IsReference reports whether values of t are pointers at runtime, and so
// accept null.
func IsReference(t Type) bool {
	switch t.Kind() {
	case StrKind, NullKind, ArrayKind, ClassKind:
		return true
	}
	return false
}
