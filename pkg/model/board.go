package model

import (
	"github.com/rjwalters/kicad-tools-sub002/pkg/geometry"
	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

// Board is a materialized typed view over a kicad_pcb document. It
// borrows from the Document's tree; mutation happens only through the
// Writeback helpers in writeback.go.
type Board struct {
	doc        *sexp.Document
	Components []*Component
	Nets       map[uint32]*Net
	netsByName map[string]uint32
	Traces     []Trace
	Vias       []Via
	Zones      []Zone
	Outline    BoardOutline
	Rules      DesignRules
}

// NetByName looks up a net id by name.
func (b *Board) NetByName(name string) (uint32, bool) {
	id, ok := b.netsByName[name]
	return id, ok
}

// ComponentByReference finds a component by its reference designator.
func (b *Board) ComponentByReference(ref string) *Component {
	for _, c := range b.Components {
		if c.Reference == ref {
			return c
		}
	}

	return nil
}

// LoadBoard materializes a Board view from a parsed kicad_pcb document.
func LoadBoard(doc *sexp.Document) (*Board, error) {
	root := doc.Root()
	if root.Name != "kicad_pcb" {
		return nil, &sexp.SchemaError{Expected: "kicad_pcb", Got: root.Name}
	}

	b := &Board{
		doc:        doc,
		Nets:       map[uint32]*Net{},
		netsByName: map[string]uint32{},
		Rules:      DefaultDesignRules(),
	}

	for _, netList := range root.FindAll("net") {
		id, name, ok := parseNetDecl(netList)
		if !ok {
			continue
		}

		n := ClassifyNet(id, name)
		b.Nets[id] = &n
		b.netsByName[name] = id
	}

	for _, fp := range root.FindAll("footprint") {
		comp := parseFootprint(fp)
		b.Components = append(b.Components, comp)

		for _, p := range comp.Pads {
			if net, ok := b.Nets[p.Net]; ok {
				net.PadRefs = append(net.PadRefs, PadRef{ComponentRef: comp.Reference, PadName: p.Name})
			}
		}
	}

	for _, seg := range root.FindAll("segment") {
		if t, ok := parseSegment(seg); ok {
			b.Traces = append(b.Traces, t)
		}
	}

	for _, v := range root.FindAll("via") {
		if via, ok := parseVia(v); ok {
			b.Vias = append(b.Vias, via)
		}
	}

	for _, z := range root.FindAll("zone") {
		b.Zones = append(b.Zones, parseZone(z))
	}

	b.Outline = parseOutline(root)

	return b, nil
}

func parseNetDecl(l *sexp.List) (id uint32, name string, ok bool) {
	if len(l.Children) < 2 {
		return 0, "", false
	}

	idAtom, ok1 := l.GetAtom(0)
	nameAtom, ok2 := l.GetAtom(1)

	if !ok1 || !ok2 || idAtom.Kind != sexp.AtomInt {
		return 0, "", false
	}

	return uint32(idAtom.IntVal), nameAtom.Str, true
}

func parseFootprint(fp *sexp.List) *Component {
	comp := &Component{Rotation: 0, Side: geometry.Front}

	if fpNameAtom, ok := fp.GetAtom(0); ok {
		comp.Footprint = fpNameAtom.Str
	}

	if at := fp.FindFirst("at"); at != nil {
		floats := at.Floats()
		if len(floats) >= 2 {
			comp.X, comp.Y = floats[0], floats[1]
		}

		if len(floats) >= 3 {
			comp.Rotation = geometry.Rotation(int(floats[2]/90) % 4)
		}
	}

	if layer := fp.FindFirst("layer"); layer != nil {
		if a, ok := layer.GetAtom(0); ok && a.Str == "B.Cu" {
			comp.Side = geometry.Back
		}
	}

	for _, prop := range fp.FindAll("property") {
		if len(prop.Children) < 2 {
			continue
		}

		keyAtom, ok1 := prop.GetAtom(0)
		valAtom, ok2 := prop.GetAtom(1)

		if ok1 && ok2 && keyAtom.Str == "Reference" {
			comp.Reference = valAtom.Str
		}
	}

	for _, fpText := range fp.FindAll("fp_text") {
		if len(fpText.Children) >= 2 {
			kindAtom, ok1 := fpText.GetAtom(0)
			valAtom, ok2 := fpText.GetAtom(1)

			if ok1 && ok2 && kindAtom.Str == "reference" && comp.Reference == "" {
				comp.Reference = valAtom.Str
			}
		}
	}

	for _, pad := range fp.FindAll("pad") {
		comp.Pads = append(comp.Pads, parsePad(pad))
	}

	return comp
}

func parsePad(pad *sexp.List) Pad {
	p := Pad{}

	if nameAtom, ok := pad.GetAtom(0); ok {
		p.Name = nameAtom.Str
	}

	if at := pad.FindFirst("at"); at != nil {
		floats := at.Floats()
		if len(floats) >= 2 {
			p.LocalX, p.LocalY = floats[0], floats[1]
		}
	}

	if size := pad.FindFirst("size"); size != nil {
		floats := size.Floats()
		if len(floats) >= 2 {
			p.SizeX, p.SizeY = floats[0], floats[1]
		}
	}

	if drill := pad.FindFirst("drill"); drill != nil {
		floats := drill.Floats()
		if len(floats) >= 1 {
			p.Drill = floats[0]
		}
	}

	if layers := pad.FindFirst("layers"); layers != nil {
		if a, ok := layers.GetAtom(0); ok {
			p.Layer = a.Str
		}
	}

	if net := pad.FindFirst("net"); net != nil {
		if a, ok := net.GetAtom(0); ok && a.Kind == sexp.AtomInt {
			p.Net = uint32(a.IntVal)
		}
	}

	return p
}

func parseSegment(seg *sexp.List) (Trace, bool) {
	var t Trace

	start := seg.FindFirst("start")
	end := seg.FindFirst("end")

	if start == nil || end == nil {
		return t, false
	}

	sf, ef := start.Floats(), end.Floats()
	if len(sf) < 2 || len(ef) < 2 {
		return t, false
	}

	t.Start = geometry.Point{X: sf[0], Y: sf[1]}
	t.End = geometry.Point{X: ef[0], Y: ef[1]}

	if w := seg.FindFirst("width"); w != nil {
		if floats := w.Floats(); len(floats) >= 1 {
			t.Width = floats[0]
		}
	}

	if l := seg.FindFirst("layer"); l != nil {
		if a, ok := l.GetAtom(0); ok {
			t.Layer = a.Str
		}
	}

	if n := seg.FindFirst("net"); n != nil {
		if a, ok := n.GetAtom(0); ok && a.Kind == sexp.AtomInt {
			t.Net = uint32(a.IntVal)
		}
	}

	return t, true
}

func parseVia(v *sexp.List) (Via, bool) {
	var via Via

	at := v.FindFirst("at")
	if at == nil {
		return via, false
	}

	floats := at.Floats()
	if len(floats) < 2 {
		return via, false
	}

	via.Center = geometry.Point{X: floats[0], Y: floats[1]}

	if size := v.FindFirst("size"); size != nil {
		if sf := size.Floats(); len(sf) >= 1 {
			via.Diameter = sf[0]
		}
	}

	if drill := v.FindFirst("drill"); drill != nil {
		if sf := drill.Floats(); len(sf) >= 1 {
			via.Drill = sf[0]
		}
	}

	if layers := v.FindFirst("layers"); layers != nil {
		if a0, ok := layers.GetAtom(0); ok {
			via.LayerA = a0.Str
		}

		if a1, ok := layers.GetAtom(1); ok {
			via.LayerB = a1.Str
		}
	}

	if n := v.FindFirst("net"); n != nil {
		if a, ok := n.GetAtom(0); ok && a.Kind == sexp.AtomInt {
			via.Net = uint32(a.IntVal)
		}
	}

	return via, true
}

func parseZone(z *sexp.List) Zone {
	var zone Zone

	if n := z.FindFirst("net"); n != nil {
		if a, ok := n.GetAtom(0); ok && a.Kind == sexp.AtomInt {
			zone.Net = uint32(a.IntVal)
		}
	}

	if l := z.FindFirst("layer"); l != nil {
		if a, ok := l.GetAtom(0); ok {
			zone.Layer = a.Str
		}
	}

	if poly := z.FindFirst("polygon"); poly != nil {
		if pts := poly.FindFirst("pts"); pts != nil {
			for _, xy := range pts.FindAll("xy") {
				floats := xy.Floats()
				if len(floats) >= 2 {
					zone.Polygon = append(zone.Polygon, geometry.Point{X: floats[0], Y: floats[1]})
				}
			}
		}
	}

	zone.Bounds = boundingRect(zone.Polygon)

	return zone
}

func parseOutline(root *sexp.List) BoardOutline {
	var points []geometry.Point

	for _, line := range root.FindAll("gr_line") {
		if layer := line.FindFirst("layer"); layer == nil {
			continue
		} else if a, ok := layer.GetAtom(0); !ok || a.Str != "Edge.Cuts" {
			continue
		}

		if start := line.FindFirst("start"); start != nil {
			if f := start.Floats(); len(f) >= 2 {
				points = append(points, geometry.Point{X: f[0], Y: f[1]})
			}
		}

		if end := line.FindFirst("end"); end != nil {
			if f := end.Floats(); len(f) >= 2 {
				points = append(points, geometry.Point{X: f[0], Y: f[1]})
			}
		}
	}

	return BoardOutline{Bounds: boundingRect(points)}
}

func boundingRect(points []geometry.Point) geometry.Rect {
	if len(points) == 0 {
		return geometry.Rect{}
	}

	r := geometry.Rect{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}

	for _, p := range points[1:] {
		if p.X < r.MinX {
			r.MinX = p.X
		}
		if p.X > r.MaxX {
			r.MaxX = p.X
		}
		if p.Y < r.MinY {
			r.MinY = p.Y
		}
		if p.Y > r.MaxY {
			r.MaxY = p.Y
		}
	}

	return r
}
