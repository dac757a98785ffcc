package model

import (
	"testing"

	"github.com/rjwalters/kicad-tools-sub002/pkg/sexp"
)

const sampleBoard = `(kicad_pcb
  (net 0 "")
  (net 1 "GND")
  (net 2 "+3V3")
  (net 3 "NET_U1_1")
  (footprint "Resistor_SMD:R_0402" (layer "F.Cu") (at 10 20 90)
    (property "Reference" "R1")
    (pad "1" smd rect (at -0.5 0) (size 0.6 0.3) (layers "F.Cu") (net 1 "GND"))
    (pad "2" smd rect (at 0.5 0) (size 0.6 0.3) (layers "F.Cu") (net 3 "NET_U1_1")))
  (gr_line (start 0 0) (end 50 0) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 50 0) (end 50 50) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 50 50) (end 0 50) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 0 50) (end 0 0) (layer "Edge.Cuts") (width 0.1))
)`

func loadSample(t *testing.T) *Board {
	t.Helper()

	node, err := sexp.Parse(sampleBoard)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	doc := sexp.NewDocument("test.kicad_pcb", node.AsList())

	board, err := LoadBoard(doc)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	return board
}

func TestLoadBoardComponents(t *testing.T) {
	board := loadSample(t)

	if len(board.Components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(board.Components))
	}

	r1 := board.Components[0]
	if r1.Reference != "R1" {
		t.Fatalf("expected reference R1, got %q", r1.Reference)
	}

	if len(r1.Pads) != 2 {
		t.Fatalf("expected 2 pads, got %d", len(r1.Pads))
	}
}

func TestLoadBoardNetClassification(t *testing.T) {
	board := loadSample(t)

	gnd := board.Nets[1]
	if gnd == nil || !gnd.IsGround || gnd.Priority != PriorityGround {
		t.Fatalf("expected net 1 classified as ground, got %+v", gnd)
	}

	pwr := board.Nets[2]
	if pwr == nil || !pwr.IsPower || pwr.Priority != PriorityPower {
		t.Fatalf("expected net 2 classified as power, got %+v", pwr)
	}

	sig := board.Nets[3]
	if sig == nil || sig.Priority != PrioritySignal {
		t.Fatalf("expected net 3 classified as signal, got %+v", sig)
	}
}

func TestLoadBoardOutline(t *testing.T) {
	board := loadSample(t)

	if board.Outline.Width() != 50 || board.Outline.Height() != 50 {
		t.Fatalf("expected 50x50 outline, got %vx%v", board.Outline.Width(), board.Outline.Height())
	}
}

func TestAbsolutePadsRotated(t *testing.T) {
	board := loadSample(t)
	r1 := board.Components[0]

	pads := r1.AbsolutePads()
	if len(pads) != 2 {
		t.Fatalf("expected 2 transformed pads, got %d", len(pads))
	}
	// rot=90 (index 1): local (-0.5,0) -> rotated (0,-0.5) -> translated (10,19.5)
	if pads[0].X != 10 || pads[0].Y != 19.5 {
		t.Fatalf("unexpected transformed pad 1 position: (%v, %v)", pads[0].X, pads[0].Y)
	}
}

func TestWritebackAddAndRemoveSegment(t *testing.T) {
	node, err := sexp.Parse(`(kicad_pcb)`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	doc := sexp.NewDocument("test.kicad_pcb", node.AsList())

	AddSegment(doc, Trace{Net: 3, Layer: "F.Cu", Width: 0.25})

	if len(doc.Root().FindAll("segment")) != 1 {
		t.Fatal("expected 1 segment after AddSegment")
	}

	RemoveNetRouting(doc, 3)

	if len(doc.Root().FindAll("segment")) != 0 {
		t.Fatal("expected 0 segments after RemoveNetRouting")
	}
}
