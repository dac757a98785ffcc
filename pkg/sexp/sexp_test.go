package sexp

import "testing"

func TestParseAtomInt(t *testing.T) {
	n, err := Parse("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := n.AsAtom()
	if a == nil || a.Kind != AtomInt || a.IntVal != 42 {
		t.Fatalf("expected int atom 42, got %#v", n)
	}
}

func TestParseAtomFloat(t *testing.T) {
	n, err := Parse("1.270")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := n.AsAtom()
	if a == nil || a.Kind != AtomFloat || a.Raw != "1.270" {
		t.Fatalf("expected preserved raw float text, got %#v", n)
	}
}

func TestParseEmptyList(t *testing.T) {
	n, err := Parse("()")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l := n.AsList()
	if l == nil || l.Name != "" || len(l.Children) != 0 {
		t.Fatalf("expected empty anonymous list, got %#v", n)
	}
}

func TestParseNamedList(t *testing.T) {
	n, err := Parse(`(at 1.5 2.5 90)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l := n.AsList()
	if l == nil || l.Name != "at" || len(l.Children) != 3 {
		t.Fatalf("expected named 'at' list with 3 children, got %#v", n)
	}

	floats := l.Floats()
	if len(floats) != 3 || floats[0] != 1.5 || floats[2] != 90 {
		t.Fatalf("unexpected floats: %v", floats)
	}
}

func TestParseQuotedStringWithEscapes(t *testing.T) {
	n, err := Parse(`"hello \"world\"\n"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := n.AsAtom()
	if a == nil || a.Kind != AtomString || a.Str != "hello \"world\"\n" {
		t.Fatalf("unexpected string atom: %#v", n)
	}
}

func TestParseUnbalancedListIsParseError(t *testing.T) {
	_, err := Parse("(version 1")

	var perr *ParseError
	if err == nil {
		t.Fatal("expected parse error")
	}

	if pe, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	} else {
		perr = pe
	}

	if perr.Message == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestParseUnterminatedStringIsParseError(t *testing.T) {
	_, err := Parse(`"unterminated`)
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

// A version/generator pair round-trips verbatim.
func TestSerializeVersionGeneratorVerbatim(t *testing.T) {
	src := `(kicad_pcb (version 20231120) (generator "eeschema"))`

	n, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := Format(n, DefaultSerializeOptions())
	if !contains(out, "(version 20231120)") {
		t.Fatalf("expected literal version clause in output, got:\n%s", out)
	}
}

func TestNumericPreservationUnmutated(t *testing.T) {
	src := `(at 1.0000 2.50 0)`

	n, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := Format(n, DefaultSerializeOptions())
	if out != src+"\n" {
		t.Fatalf("expected exact round trip, got %q want %q", out, src+"\n")
	}
}

func TestRoundTripIdempotent(t *testing.T) {
	src := `(kicad_pcb (version 20231120) (generator "eeschema") (layers (0 "F.Cu" signal)))`

	n1, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out1 := Format(n1, DefaultSerializeOptions())

	n2, err := Parse(out1)
	if err != nil {
		t.Fatalf("unexpected error on reparse: %v", err)
	}

	out2 := Format(n2, DefaultSerializeOptions())

	if out1 != out2 {
		t.Fatalf("serialize(parse(s)) != serialize(parse(serialize(parse(s))))\n%q\n%q", out1, out2)
	}
}

func TestFindWithAttribute(t *testing.T) {
	src := `(kicad_pcb
		(footprint (property "Reference" "U1"))
		(footprint (property "Reference" "U2")))`

	n, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root := n.AsList()

	found := root.FindWithAttribute("footprint", "property", "U1")
	if found == nil {
		t.Fatal("expected to find footprint with Reference U1")
	}
}

func TestDocumentEditAppendAndRemove(t *testing.T) {
	root := NewList("kicad_pcb")
	doc := NewDocument("board.kicad_pcb", root)

	doc.Edit(func(r *List) {
		r.AppendChild(NewList("segment", NewList("net", NewInt(1))))
	})

	if len(doc.Root().Children) != 1 {
		t.Fatalf("expected 1 child after append, got %d", len(doc.Root().Children))
	}

	doc.Edit(func(r *List) {
		if !r.RemoveFirst("segment") {
			t.Fatal("expected to remove segment")
		}
	})

	if len(doc.Root().Children) != 0 {
		t.Fatalf("expected 0 children after remove, got %d", len(doc.Root().Children))
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
