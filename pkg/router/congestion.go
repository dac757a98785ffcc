package router

import (
	log "github.com/sirupsen/logrus"

	"github.com/rjwalters/kicad-tools-sub002/pkg/model"
)

// negotiatedCongestionLoop wraps the per-net router in an outer iteration:
// each pass routes every net from scratch over a reset grid,
// then raises the cost of every cell shared by more than one net before
// the next pass. Nets still sharing cells after MaxPasses are reported as
// unroutable under the current placement.
func negotiatedCongestionLoop(board *model.Board, layers []string, order []*model.Net, cfg RouterConfig) RunResult {
	var run RunResult

	for pass := 0; pass < cfg.MaxPasses; pass++ {
		grid := NewGrid(board.Outline, board.Rules.GridResolution, layers)
		PopulateObstacles(grid, board, board.Rules, nil)

		owners := make([][]uint32, len(grid.cells))

		run = RunResult{}

		for _, net := range order {
			nr := routeNet(grid, board, net, cfg.AStar)
			run.Nets = append(run.Nets, nr)

			for _, seg := range nr.Segments {
				markOwners(grid, owners, seg, net.ID)
			}
		}

		shared := applyCongestionPenalty(grid, owners, cfg.CongestionPenalty)

		log.Debug("negotiated-congestion pass ", pass+1, ": ", shared, " shared cells")

		if shared == 0 {
			break
		}
	}

	return run
}

func markOwners(grid *Grid, owners [][]uint32, seg Segment, net uint32) {
	layer := grid.LayerIndex(seg.Layer)
	if layer < 0 {
		return
	}

	startRow, startCol := grid.PointToCell(seg.Start)
	endRow, endCol := grid.PointToCell(seg.End)

	steps := maxInt(absInt(endRow-startRow), absInt(endCol-startCol)) + 1

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		row := startRow + int(t*float64(endRow-startRow))
		col := startCol + int(t*float64(endCol-startCol))

		if !grid.InBounds(layer, row, col) {
			continue
		}

		idx := grid.index(layer, row, col)
		owners[idx] = appendIfMissing(owners[idx], net)
	}
}

func appendIfMissing(nets []uint32, net uint32) []uint32 {
	for _, n := range nets {
		if n == net {
			return nets
		}
	}

	return append(nets, net)
}

// applyCongestionPenalty increments the congestion counter of every cell
// touched by more than one net, raising its effective traversal cost for
// the next pass. Returns the number of shared cells found.
func applyCongestionPenalty(grid *Grid, owners [][]uint32, penaltyFactor float64) int {
	shared := 0

	for idx, nets := range owners {
		if len(nets) < 2 {
			continue
		}

		shared++

		cell := grid.cells[idx]
		if cell.Congestion < 255 {
			cell.Congestion++
		}

		cell.Cost = uint16(float64(cell.Cost) + float64(cell.Congestion)*penaltyFactor*float64(BaseCost))
		grid.cells[idx] = cell
	}

	return shared
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
