package sexp

import "os"

// Document owns a parsed S-expression tree and the path it was loaded
// from. It is the sole authority over mutation: callers reach the tree
// only through Root (read-only browsing) or Edit (mutation), never by
// holding their own separate reference to internal nodes across a save.
type Document struct {
	path string
	root *List
}

// Load parses path's contents as a document and checks its root tag. An
// empty expectRoot accepts any named root list.
func Load(path string, expectRoot string) (*Document, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	node, err := Parse(string(bytes))
	if err != nil {
		return nil, err
	}

	root := node.AsList()
	if root == nil {
		return nil, &SchemaError{Expected: expectRoot, Got: "<atom>"}
	}

	if expectRoot != "" && root.Name != expectRoot {
		return nil, &SchemaError{Expected: expectRoot, Got: root.Name}
	}

	return &Document{path: path, root: root}, nil
}

// NewDocument wraps an already-parsed root list, e.g. for tests that build
// a tree in memory rather than from disk.
func NewDocument(path string, root *List) *Document {
	return &Document{path: path, root: root}
}

// Path returns the source path this document was loaded from.
func (d *Document) Path() string { return d.path }

// Root returns the read-only root of the tree. Callers must not mutate the
// returned list directly; use Edit instead so intent stays localized.
func (d *Document) Root() *List { return d.root }

// Edit runs visitor against the document's root list, granting it
// exclusive access to mutate the tree.
func (d *Document) Edit(visitor func(root *List)) {
	visitor(d.root)
}

// Serialize renders the document's current tree using KiCad's formatting
// conventions.
func (d *Document) Serialize() string {
	return Format(d.root, DefaultSerializeOptions())
}

// Save serializes the document and writes it back to its source path.
func (d *Document) Save() error {
	return os.WriteFile(d.path, []byte(d.Serialize()), 0o644)
}

// SaveAs serializes the document and writes it to a new path, without
// changing the document's recorded source path.
func (d *Document) SaveAs(path string) error {
	return os.WriteFile(path, []byte(d.Serialize()), 0o644)
}
