package symbol

import (
	"sort"
	"strings"
)

// Scalar atom tags recognized by the type-string arithmetic. Anything else
// is treated as an FQN.
const (
	TypeInt      = "int"
	TypeString   = "string"
	TypeBool     = "bool"
	TypeFloat    = "float"
	TypeArray    = "array"
	TypeMixed    = "mixed"
	TypeVoid     = "void"
	TypeNull     = "null"
	TypeSelf     = "self"
	TypeStatic   = "static"
	TypeThis     = "$this"
	TypeCallable = "callable"
	TypeIterable = "iterable"
	TypeObject   = "object"
	TypeResource = "resource"
)

var scalarTags = map[string]bool{
	TypeInt: true, TypeString: true, TypeBool: true, TypeFloat: true,
	TypeArray: true, TypeMixed: true, TypeVoid: true, TypeNull: true,
	TypeSelf: true, TypeStatic: true, TypeThis: true, TypeCallable: true,
	TypeIterable: true, TypeObject: true, TypeResource: true,
}

// IsScalarTag reports whether atom is one of the reserved scalar tags
// rather than an FQN.
func IsScalarTag(atom string) bool {
	return scalarTags[strings.ToLower(atom)]
}

// arrayElementPrefix marks an atom as carrying an array/iterable element
// type, e.g. an `X[]` or `array<X>` docblock tag. No FQN can start with it,
// so it is unambiguous alongside scalar tags and FQNs in the same union.
const arrayElementPrefix = "[]"

// ArrayOf builds the element-type atom for elem, for use alongside the
// plain "array" atom in a docblock-derived TypeStr.
func ArrayOf(elem string) string {
	return arrayElementPrefix + elem
}

// ArrayElementOf reports the element type carried by atom, if atom was
// built by ArrayOf.
func ArrayElementOf(atom string) (string, bool) {
	if !strings.HasPrefix(atom, arrayElementPrefix) {
		return "", false
	}
	return atom[len(arrayElementPrefix):], true
}

// TypeStr is an unordered union of atomic type literals. The zero value is
// the empty union, distinct from a union containing "mixed".
type TypeStr struct {
	atoms map[string]struct{}
}

// NewTypeStr builds a union from the given atoms, normalizing each.
func NewTypeStr(atoms ...string) TypeStr {
	t := TypeStr{}
	for _, a := range atoms {
		t.add(a)
	}
	return t
}

func normalizeAtom(atom string) string {
	atom = strings.TrimSpace(atom)
	atom = strings.TrimPrefix(atom, "\\")
	return atom
}

func (t *TypeStr) add(atom string) {
	atom = normalizeAtom(atom)
	if atom == "" {
		return
	}
	if t.atoms == nil {
		t.atoms = make(map[string]struct{})
	}
	if IsScalarTag(atom) {
		atom = strings.ToLower(atom)
	}
	t.atoms[atom] = struct{}{}
}

// IsEmpty reports whether the union carries no atoms at all. This is
// distinct from a union of exactly {"mixed"}.
func (t TypeStr) IsEmpty() bool {
	return len(t.atoms) == 0
}

// Merge returns the union of t and other. Merge is commutative,
// associative and idempotent, and merge(T, empty) == T.
func (t TypeStr) Merge(other TypeStr) TypeStr {
	out := TypeStr{atoms: make(map[string]struct{}, len(t.atoms)+len(other.atoms))}
	for a := range t.atoms {
		out.atoms[a] = struct{}{}
	}
	for a := range other.atoms {
		out.atoms[a] = struct{}{}
	}
	return out
}

// Atoms returns the sorted list of every atom in the union, scalar tags
// and FQNs alike.
func (t TypeStr) Atoms() []string {
	out := make([]string, 0, len(t.atoms))
	for a := range t.atoms {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// AtomicClasses returns only the atoms that are FQNs, i.e. not one of the
// reserved scalar tags or an array-element-type marker.
func (t TypeStr) AtomicClasses() []string {
	out := make([]string, 0, len(t.atoms))
	for a := range t.atoms {
		if _, isArrayOf := ArrayElementOf(a); isArrayOf {
			continue
		}
		if !IsScalarTag(a) {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether the union contains atom (case sensitivity follows
// scalar-tag normalization: scalar tags fold, FQNs do not).
func (t TypeStr) Has(atom string) bool {
	atom = normalizeAtom(atom)
	if IsScalarTag(atom) {
		atom = strings.ToLower(atom)
	}
	_, ok := t.atoms[atom]
	return ok
}

// String renders the union as a pipe-joined, sorted textual type, e.g.
// "Foo\Bar|int|null". Parsing this string reproduces an equal TypeStr.
func (t TypeStr) String() string {
	if t.IsEmpty() {
		return ""
	}
	return strings.Join(t.Atoms(), "|")
}

// ParseTypeStr parses a pipe-delimited textual type, e.g. from a docblock
// tag, back into a TypeStr. Round-trips with String.
func ParseTypeStr(s string) TypeStr {
	parts := strings.Split(s, "|")
	return NewTypeStr(parts...)
}

// Equal reports whether t and other contain exactly the same atoms.
func (t TypeStr) Equal(other TypeStr) bool {
	if len(t.atoms) != len(other.atoms) {
		return false
	}
	for a := range t.atoms {
		if _, ok := other.atoms[a]; !ok {
			return false
		}
	}
	return true
}
