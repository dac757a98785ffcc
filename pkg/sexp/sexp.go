// Package sexp implements the DocEngine: a round-trip parser, mutator and
// serializer for KiCad's nested S-expression file format (kicad_pcb,
// kicad_sch, kicad_symbol_lib).
package sexp

import "fmt"

// Node is either an Atom (string | integer | float) or a List of child
// Nodes with an optional leading name symbol. A Node never satisfies both
// AsAtom and AsList with a non-nil result.
type Node interface {
	// AsList returns the node as a *List if it is one, else nil.
	AsList() *List
	// AsAtom returns the node as an *Atom if it is one, else nil.
	AsAtom() *Atom
}

// AtomKind distinguishes the three atom value kinds the grammar admits.
type AtomKind int

// Atom kinds.
const (
	AtomInt AtomKind = iota
	AtomFloat
	AtomString
)

// Atom is a terminal S-expression value. For AtomInt and AtomFloat, Raw
// holds the original textual form so numeric literals survive an
// edit-free round trip exactly.
type Atom struct {
	Kind     AtomKind
	Str      string
	IntVal   int64
	FloatVal float64
	// Raw is the verbatim input text for a numeric atom, or "" if the atom
	// was constructed programmatically (in which case a fresh textual form
	// is generated at serialization time).
	Raw string
}

// AsList implements Node.
func (a *Atom) AsList() *List { return nil }

// AsAtom implements Node.
func (a *Atom) AsAtom() *Atom { return a }

var _ Node = (*Atom)(nil)

// NewString builds a fresh string atom with no preserved raw form.
func NewString(s string) *Atom { return &Atom{Kind: AtomString, Str: s} }

// NewInt builds a fresh integer atom with no preserved raw form.
func NewInt(v int64) *Atom { return &Atom{Kind: AtomInt, IntVal: v} }

// NewFloat builds a fresh float atom with no preserved raw form.
func NewFloat(v float64) *Atom { return &Atom{Kind: AtomFloat, FloatVal: v} }

// List is an ordered sequence of child nodes with an optional leading name.
// A List with Name == "" is anonymous (its first child, whatever it is,
// carries the former "head token").
type List struct {
	Name     string
	Children []Node
}

// AsList implements Node.
func (l *List) AsList() *List { return l }

// AsAtom implements Node.
func (l *List) AsAtom() *Atom { return nil }

var _ Node = (*List)(nil)

// NewList constructs a named list from the given children.
func NewList(name string, children ...Node) *List {
	return &List{Name: name, Children: children}
}

// Len returns the number of children.
func (l *List) Len() int { return len(l.Children) }

// ---------------------------------------------------------------------
// Access API
// ---------------------------------------------------------------------

// FindFirst returns the first child list whose Name matches, or nil.
func (l *List) FindFirst(name string) *List {
	for _, c := range l.Children {
		if cl := c.AsList(); cl != nil && cl.Name == name {
			return cl
		}
	}
	return nil
}

// FindAll returns every direct child list whose Name matches.
func (l *List) FindAll(name string) []*List {
	var out []*List
	for _, c := range l.Children {
		if cl := c.AsList(); cl != nil && cl.Name == name {
			out = append(out, cl)
		}
	}
	return out
}

// FindWithAttribute walks the subtree rooted at l (l included) looking for
// the first descendant list named `name` that has a named child list
// `attrName` whose key/value pair (e.g. `(property "Reference" "U1")`) has
// a value atom at index 1 equal to `attrValue`. This mirrors the "find
// footprint with Reference == U1" idiom used throughout DesignModel.
func (l *List) FindWithAttribute(name, attrName, attrValue string) *List {
	if l.Name == name {
		for _, attr := range l.FindAll(attrName) {
			if len(attr.Children) > 1 {
				if at := attr.Children[1].AsAtom(); at != nil && atomText(at) == attrValue {
					return l
				}
			}
		}
	}
	for _, c := range l.Children {
		if cl := c.AsList(); cl != nil {
			if found := cl.FindWithAttribute(name, attrName, attrValue); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetAtom returns the ith child as an atom, or ok=false if out of range or
// not an atom.
func (l *List) GetAtom(i int) (*Atom, bool) {
	if i < 0 || i >= len(l.Children) {
		return nil, false
	}
	a := l.Children[i].AsAtom()
	return a, a != nil
}

// SetAtom overwrites the ith child with a new atom value, clearing any
// preserved raw text so the new value is reformatted fresh.
func (l *List) SetAtom(i int, a *Atom) error {
	if i < 0 || i >= len(l.Children) {
		return fmt.Errorf("sexp: index %d out of range (len %d)", i, len(l.Children))
	}
	l.Children[i] = a
	return nil
}

// Floats returns every atom child interpretable as a float, in order,
// skipping non-numeric children. Used for position tuples like `(xy 1 2)`.
func (l *List) Floats() []float64 {
	var out []float64
	for _, c := range l.Children {
		if a := c.AsAtom(); a != nil {
			switch a.Kind {
			case AtomFloat:
				out = append(out, a.FloatVal)
			case AtomInt:
				out = append(out, float64(a.IntVal))
			}
		}
	}
	return out
}

// InsertChild inserts a node at position i, shifting subsequent children
// right.
func (l *List) InsertChild(i int, n Node) {
	if i < 0 || i > len(l.Children) {
		i = len(l.Children)
	}
	l.Children = append(l.Children, nil)
	copy(l.Children[i+1:], l.Children[i:])
	l.Children[i] = n
}

// AppendChild appends a node as the new last child.
func (l *List) AppendChild(n Node) {
	l.Children = append(l.Children, n)
}

// RemoveFirst removes the first direct child list named `name`. Reports
// whether a child was removed.
func (l *List) RemoveFirst(name string) bool {
	for i, c := range l.Children {
		if cl := c.AsList(); cl != nil && cl.Name == name {
			l.Children = append(l.Children[:i], l.Children[i+1:]...)
			return true
		}
	}
	return false
}

func atomText(a *Atom) string {
	switch a.Kind {
	case AtomString:
		return a.Str
	case AtomInt:
		return fmt.Sprintf("%d", a.IntVal)
	case AtomFloat:
		return fmt.Sprintf("%g", a.FloatVal)
	}
	return ""
}
