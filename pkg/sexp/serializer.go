package sexp

import (
	"strconv"
	"strings"
)

// forceInline lists the node names that always render on a single line
// regardless of width: position tuples, stroke/font/effects primitives,
// UUIDs, and other compact constructs.
var forceInline = map[string]bool{
	"at": true, "xy": true, "start": true, "end": true, "mid": true,
	"pts": true, "center": true, "size": true, "pts_xy": true,
	"stroke": true, "font": true, "effects": true, "justify": true,
	"uuid": true, "color": true, "offset": true, "scale": true,
	"thickness": true, "width": true, "layer": true, "layers": true,
	"net": true, "drill": true, "fill": true,
}

// forceMultiline lists the node names that always render as structural
// containers, one child per indented line, even when they would fit on one
// line.
var forceMultiline = map[string]bool{
	"kicad_pcb": true, "kicad_sch": true, "kicad_symbol_lib": true,
	"lib_symbols": true, "symbol": true, "footprint": true,
	"property": true, "wire": true, "segment": true, "via": true,
	"pad": true, "zone": true, "net_class": true, "setup": true,
	"general": true, "sheet": true, "label": true,
}

// knownKeywords is the set of bare words the serializer never quotes, even
// though they parse as (and came from) a string atom.
var knownKeywords = map[string]bool{
	"yes": true, "no": true,
	// layer keywords
	"F.Cu": true, "B.Cu": true, "F.Mask": true, "B.Mask": true,
	"F.SilkS": true, "B.SilkS": true, "F.Paste": true, "B.Paste": true,
	"Edge.Cuts": true, "Dwgs.User": true, "Cmts.User": true,
	"In1.Cu": true, "In2.Cu": true, "In3.Cu": true, "In4.Cu": true,
	// pin-type keywords
	"input": true, "output": true, "bidirectional": true, "tri_state": true,
	"passive": true, "free": true, "unspecified": true, "power_in": true,
	"power_out": true, "open_collector": true, "open_emitter": true,
	"no_connect": true,
	// pad-type / shape keywords
	"thru_hole": true, "smd": true, "connect": true, "np_thru_hole": true,
	"circle": true, "rect": true, "oval": true, "trapezoid": true,
	"roundrect": true, "custom": true,
	// justify keywords
	"left": true, "right": true, "top": true, "bottom": true, "mirror": true,
}

const maxInlineWidth = 80

// SerializeOptions controls the whitespace conventions of Format.
type SerializeOptions struct {
	IndentUnit string
}

// DefaultSerializeOptions matches KiCad's own authoring convention: two
// spaces per nesting level.
func DefaultSerializeOptions() SerializeOptions {
	return SerializeOptions{IndentUnit: "  "}
}

// Format renders n using KiCad's formatting conventions.
func Format(n Node, opts SerializeOptions) string {
	var sb strings.Builder
	writeNode(&sb, n, 0, opts)
	sb.WriteString("\n")

	return sb.String()
}

func writeNode(sb *strings.Builder, n Node, depth int, opts SerializeOptions) {
	if a := n.AsAtom(); a != nil {
		sb.WriteString(formatAtom(a))
		return
	}

	writeList(sb, n.AsList(), depth, opts)
}

func writeList(sb *strings.Builder, l *List, depth int, opts SerializeOptions) {
	if isInline(l, depth, opts) {
		sb.WriteString(renderInline(l))
		return
	}

	sb.WriteString("(")

	if l.Name != "" {
		sb.WriteString(l.Name)
	}

	childIndent := strings.Repeat(opts.IndentUnit, depth+1)

	for i, c := range l.Children {
		if l.Name != "" || i != 0 {
			sb.WriteString("\n")
			sb.WriteString(childIndent)
		}

		writeNode(sb, c, depth+1, opts)
	}

	sb.WriteString(")")
}

// isInline decides whether l should be rendered on a single line: force
// rules take priority, otherwise a list of only atoms under the width
// budget stays inline.
func isInline(l *List, depth int, opts SerializeOptions) bool {
	if forceInline[l.Name] {
		return true
	}

	if forceMultiline[l.Name] {
		return false
	}

	for _, c := range l.Children {
		if c.AsList() != nil {
			return false
		}
	}

	width := len(strings.Repeat(opts.IndentUnit, depth)) + len(renderInline(l))

	return width < maxInlineWidth
}

func renderInline(l *List) string {
	var sb strings.Builder

	sb.WriteString("(")

	if l.Name != "" {
		sb.WriteString(l.Name)
	}

	for i, c := range l.Children {
		if l.Name != "" || i != 0 {
			sb.WriteString(" ")
		}

		if a := c.AsAtom(); a != nil {
			sb.WriteString(formatAtom(a))
		} else {
			sb.WriteString(renderInline(c.AsList()))
		}
	}

	sb.WriteString(")")

	return sb.String()
}

func formatAtom(a *Atom) string {
	switch a.Kind {
	case AtomInt:
		if a.Raw != "" {
			return a.Raw
		}

		return strconv.FormatInt(a.IntVal, 10)
	case AtomFloat:
		if a.Raw != "" {
			return a.Raw
		}

		return strconv.FormatFloat(a.FloatVal, 'f', -1, 64)
	default:
		if knownKeywords[a.Str] || strings.HasPrefix(a.Str, "0x") {
			return a.Str
		}

		return quoteString(a.Str)
	}
}

func quoteString(s string) string {
	var sb strings.Builder

	sb.WriteString("\"")

	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}

	sb.WriteString("\"")

	return sb.String()
}
