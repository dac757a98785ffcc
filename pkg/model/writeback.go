package model

import (
	"math"
	"strings"

	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

// AddSegment appends a new trace segment as a top-level child of the
// document root.
func AddSegment(doc *sexp.Document, t Trace) {
	doc.Edit(func(root *sexp.List) {
		root.AppendChild(sexp.NewList("segment",
			sexp.NewList("start", sexp.NewFloat(t.Start.X), sexp.NewFloat(t.Start.Y)),
			sexp.NewList("end", sexp.NewFloat(t.End.X), sexp.NewFloat(t.End.Y)),
			sexp.NewList("width", sexp.NewFloat(t.Width)),
			sexp.NewList("layer", sexp.NewString(t.Layer)),
			sexp.NewList("net", sexp.NewInt(int64(t.Net))),
		))
	})
}

// AddVia appends a new via as a top-level child of the document root.
func AddVia(doc *sexp.Document, v Via) {
	doc.Edit(func(root *sexp.List) {
		root.AppendChild(sexp.NewList("via",
			sexp.NewList("at", sexp.NewFloat(v.Center.X), sexp.NewFloat(v.Center.Y)),
			sexp.NewList("size", sexp.NewFloat(v.Diameter)),
			sexp.NewList("drill", sexp.NewFloat(v.Drill)),
			sexp.NewList("layers", sexp.NewString(v.LayerA), sexp.NewString(v.LayerB)),
			sexp.NewList("net", sexp.NewInt(int64(v.Net))),
		))
	})
}

// SetComponentPlacement rewrites a footprint's position, rotation, and
// side in place: the "at" list's x/y/rotation atoms are overwritten
// and, if the side changed, the footprint's "layer" atom and
// every pad's "layers" front/back pair are flipped to match. Returns
// false if no footprint with the given reference exists.
func SetComponentPlacement(doc *sexp.Document, ref string, x, y float64, rot geometry.Rotation, side geometry.Side) bool {
	found := false

	doc.Edit(func(root *sexp.List) {
		for _, fp := range root.FindAll("footprint") {
			if footprintReference(fp) != ref {
				continue
			}

			found = true
			writeFootprintPlacement(fp, x, y, rot, side)

			return
		}
	})

	return found
}

func footprintReference(fp *sexp.List) string {
	for _, prop := range fp.FindAll("property") {
		if len(prop.Children) < 2 {
			continue
		}

		keyAtom, ok1 := prop.GetAtom(0)
		valAtom, ok2 := prop.GetAtom(1)

		if ok1 && ok2 && keyAtom.Str == "Reference" {
			return valAtom.Str
		}
	}

	return ""
}

func writeFootprintPlacement(fp *sexp.List, x, y float64, rot geometry.Rotation, side geometry.Side) {
	at := fp.FindFirst("at")
	if at == nil {
		at = sexp.NewList("at", sexp.NewFloat(x), sexp.NewFloat(y))
		fp.InsertChild(1, at)
	}

	degrees := float64((int(rot)%4+4)%4) * 90

	switch {
	case len(at.Children) >= 3:
		at.SetAtom(0, sexp.NewFloat(x))  //nolint:errcheck
		at.SetAtom(1, sexp.NewFloat(y))  //nolint:errcheck
		at.SetAtom(2, sexp.NewFloat(degrees)) //nolint:errcheck
	case len(at.Children) == 2:
		at.SetAtom(0, sexp.NewFloat(x)) //nolint:errcheck
		at.SetAtom(1, sexp.NewFloat(y)) //nolint:errcheck

		if degrees != 0 {
			at.AppendChild(sexp.NewFloat(degrees))
		}
	}

	layer := fp.FindFirst("layer")
	if layer == nil {
		return
	}

	current, ok := layer.GetAtom(0)
	if !ok {
		return
	}

	wasBack := current.Str == "B.Cu"
	if wasBack == (side == geometry.Back) {
		return
	}

	if side == geometry.Back {
		layer.SetAtom(0, sexp.NewString("B.Cu")) //nolint:errcheck
	} else {
		layer.SetAtom(0, sexp.NewString("F.Cu")) //nolint:errcheck
	}

	flipPadLayers(fp, side == geometry.Back)
}

// flipPadLayers mirrors every pad's copper/paste/mask layer assignment to
// the new side, leaving wildcard entries (e.g. "*.Cu" on a through-hole
// pad, already valid on either side) untouched.
func flipPadLayers(fp *sexp.List, toBack bool) {
	for _, pad := range fp.FindAll("pad") {
		layers := pad.FindFirst("layers")
		if layers == nil {
			continue
		}

		for i, child := range layers.Children {
			a := child.AsAtom()
			if a == nil || a.Kind != sexp.AtomString {
				continue
			}

			if flipped, changed := flipLayerName(a.Str, toBack); changed {
				layers.SetAtom(i, sexp.NewString(flipped)) //nolint:errcheck
			}
		}
	}
}

// flipLayerName swaps a layer name's F./B. side prefix to match toBack.
// Names without that prefix (wildcards, inner layers) are reported
// unchanged.
func flipLayerName(name string, toBack bool) (flipped string, changed bool) {
	switch {
	case strings.HasPrefix(name, "F.") && toBack:
		return "B." + name[len("F."):], true
	case strings.HasPrefix(name, "B.") && !toBack:
		return "F." + name[len("B."):], true
	default:
		return name, false
	}
}

// RemoveNetRouting removes every segment and via belonging to netID,
// leaving pads, zones, and other nets untouched.
func RemoveNetRouting(doc *sexp.Document, netID uint32) {
	doc.Edit(func(root *sexp.List) {
		root.Children = filterChildren(root.Children, func(n sexp.Node) bool {
			l := n.AsList()
			if l == nil || (l.Name != "segment" && l.Name != "via") {
				return true
			}

			return !listHasNet(l, netID)
		})
	})
}

// RemoveNear removes segments within radius mm of point, optionally
// filtered to a specific net id (netFilter >= 0) and/or layer
// (layerFilter != "").
func RemoveNear(doc *sexp.Document, point geometry.Point, radius float64, netFilter int64, layerFilter string) {
	doc.Edit(func(root *sexp.List) {
		root.Children = filterChildren(root.Children, func(n sexp.Node) bool {
			l := n.AsList()
			if l == nil || l.Name != "segment" {
				return true
			}

			if netFilter >= 0 && !listHasNet(l, uint32(netFilter)) {
				return true
			}

			if layerFilter != "" {
				if layer := l.FindFirst("layer"); layer == nil {
					return true
				} else if a, ok := layer.GetAtom(0); !ok || a.Str != layerFilter {
					return true
				}
			}

			start := l.FindFirst("start")
			end := l.FindFirst("end")

			if start == nil || end == nil {
				return true
			}

			sf, ef := start.Floats(), end.Floats()
			if len(sf) < 2 || len(ef) < 2 {
				return true
			}

			if segmentNearPoint(geometry.Point{X: sf[0], Y: sf[1]}, geometry.Point{X: ef[0], Y: ef[1]}, point, radius) {
				return false
			}

			return true
		})
	})
}

func listHasNet(l *sexp.List, netID uint32) bool {
	n := l.FindFirst("net")
	if n == nil {
		return false
	}

	a, ok := n.GetAtom(0)

	return ok && a.Kind == sexp.AtomInt && uint32(a.IntVal) == netID
}

func segmentNearPoint(a, b, p geometry.Point, radius float64) bool {
	// Distance from p to segment a-b.
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy

	if lenSq == 0 {
		return a.EuclideanDistance(p) <= radius
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	closest := geometry.Point{X: a.X + t*dx, Y: a.Y + t*dy}

	return closest.EuclideanDistance(p) <= radius
}

func filterChildren(children []sexp.Node, keep func(sexp.Node) bool) []sexp.Node {
	out := children[:0]

	for _, c := range children {
		if keep(c) {
			out = append(out, c)
		}
	}

	return out
}
