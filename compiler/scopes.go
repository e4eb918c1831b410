package compiler

// Scope is one lexical frame of the checker's symbol stack.
type Scope[T any] struct {
	Elems map[string]T
}

func NewScope[T any]() Scope[T] {
	return Scope[T]{Elems: make(map[string]T)}
}

func PushScope[T any](scopes *[]Scope[T]) {
	*scopes = append(*scopes, NewScope[T]())
}

func PopScope[T any](scopes *[]Scope[T]) {
	if len(*scopes) == 1 {
		panic("cannot pop function scope")
	}
	*scopes = (*scopes)[:len(*scopes)-1]
}

// Put does not need a pointer, as it modifies the map within a scope, not
// the slice itself.
func Put[T any](scopes []Scope[T], name string, elem T) {
	scopes[len(scopes)-1].Elems[name] = elem
}

// Get searches from the innermost scope outward.
func Get[T any](scopes []Scope[T], name string) (T, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if e, ok := scopes[i].Elems[name]; ok {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// GetCurrent looks only in the innermost scope. Declarations may shadow
// outer names but not redeclare within the same block.
func GetCurrent[T any](scopes []Scope[T], name string) (T, bool) {
	e, ok := scopes[len(scopes)-1].Elems[name]
	return e, ok
}
