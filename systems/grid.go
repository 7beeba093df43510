package systems

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// gridOffsets is the deliberate ±2-cell neighborhood search order per axis,
// preserved from the reference implementation. The order matters: when a
// cell bucket or a particle's neighbor list saturates, whichever offset is
// visited first determines which neighbors survive the cap.
var gridOffsets = [5]int{0, 1, -1, 2, -2}

// NeighborIndex is a uniform spatial grid that, once built for a tick,
// answers "who is near particle i" in roughly constant time. It stores
// particle indices, not entities, matching the particle store's stable
// []ecs.Entity index slice.
type NeighborIndex struct {
	min      r3.Vec
	cellSize r3.Vec
	cells    [3]int // Cx, Cy, Cz

	queryRadius   float64
	queryRadiusSq float64

	maxPerCell   int
	buckets      []int32 // len(cells) * maxPerCell, -1 = empty slot
	bucketCounts []int32 // len(cells)

	maxNeighbors int
	neighbors    []int32 // len(particleCount) * maxNeighbors
	neighborLen  []int32 // len(particleCount)

	overflowCells     int          // insertions dropped because their cell was full during the last BuildTable
	overflowNeighbors atomic.Int64 // particles that hit maxNeighbors during the last BuildNeighborTable pass
}

// NewNeighborIndex sizes a grid for particleCount particles of common
// radius, over box, with a query radius of queryRadius (the source's
// R = 5*r) and a per-particle neighbor cap of maxNeighbors.
//
// Grid geometry matches the reference NNS::init: target cell edge is
// 2*queryRadius*cellEdgeFactor (cellEdgeFactor = 1/3 in the source), cell
// counts are ceil(extent/targetEdge) per axis, and the edge is then
// recomputed so cells exactly tile the box. Because the recomputed edge can
// end up larger than queryRadius, buildNeighborTable must search a 5x5x5
// neighborhood, not just the 27 adjacent cells. maxPerCellSafety scales the
// per-cell capacity estimate derived from cell volume and particle radius.
func NewNeighborIndex(box *BoundingBox, particleCount int, radius, queryRadius float64, maxNeighbors int, cellEdgeFactor, maxPerCellSafety float64) *NeighborIndex {
	min := r3.Vec{X: box.MinX, Y: box.MinY, Z: box.MinZ}
	extent := r3.Vec{X: box.MaxX - box.MinX, Y: box.MaxY - box.MinY, Z: box.MaxZ - box.MinZ}

	targetEdge := 2 * queryRadius * cellEdgeFactor
	cx := int(math.Ceil(extent.X / targetEdge))
	cy := int(math.Ceil(extent.Y / targetEdge))
	cz := int(math.Ceil(extent.Z / targetEdge))
	if cx < 1 {
		cx = 1
	}
	if cy < 1 {
		cy = 1
	}
	if cz < 1 {
		cz = 1
	}

	cellSize := r3.Vec{X: extent.X / float64(cx), Y: extent.Y / float64(cy), Z: extent.Z / float64(cz)}
	cellVolume := cellSize.X * cellSize.Y * cellSize.Z
	maxPerCell := int(math.Ceil(maxPerCellSafety*cellVolume/(radius*radius*radius))) + 1

	numCells := cx * cy * cz

	n := &NeighborIndex{
		min:           min,
		cellSize:      cellSize,
		cells:         [3]int{cx, cy, cz},
		queryRadius:   queryRadius,
		queryRadiusSq: queryRadius * queryRadius,
		maxPerCell:    maxPerCell,
		buckets:       make([]int32, numCells*maxPerCell),
		bucketCounts:  make([]int32, numCells),
		maxNeighbors:  maxNeighbors,
		neighbors:     make([]int32, particleCount*maxNeighbors),
		neighborLen:   make([]int32, particleCount),
	}
	n.resetBuckets()
	return n
}

func (n *NeighborIndex) resetBuckets() {
	for i := range n.buckets {
		n.buckets[i] = -1
	}
	for i := range n.bucketCounts {
		n.bucketCounts[i] = 0
	}
}

// cellCoords returns the integer cell coordinates for point p, or ok=false
// if p falls outside the grid.
func (n *NeighborIndex) cellCoords(p r3.Vec) (x, y, z int, ok bool) {
	x = int(math.Floor((p.X - n.min.X) / n.cellSize.X))
	y = int(math.Floor((p.Y - n.min.Y) / n.cellSize.Y))
	z = int(math.Floor((p.Z - n.min.Z) / n.cellSize.Z))
	if x < 0 || x >= n.cells[0] || y < 0 || y >= n.cells[1] || z < 0 || z >= n.cells[2] {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

// cellID linearizes cell coordinates. This expression is reproduced
// verbatim from the reference implementation and is not the correct
// row-major linearisation for a non-cubic grid — it is kept for behavioral
// parity rather than fixed, see the design notes.
func (n *NeighborIndex) cellID(x, y, z int) int {
	cy, cz := n.cells[1], n.cells[2]
	return x + y*cy + z*cz*cz
}

// BuildTable clears the grid and inserts every particle at its entry in
// positions. This step runs single-threaded, ahead of the per-particle
// parallel phases. Particles that fall outside the grid, or whose cell is
// already full, are left out of the buckets and so are found by no other
// particle this tick; a particle outside the grid also gets no neighbors of
// its own from BuildNeighborTable.
func (n *NeighborIndex) BuildTable(positions []r3.Vec) {
	n.resetBuckets()
	n.overflowCells = 0
	n.overflowNeighbors.Store(0)

	for i, p := range positions {
		x, y, z, ok := n.cellCoords(p)
		if !ok {
			continue
		}
		id := n.cellID(x, y, z)
		if id < 0 || id >= len(n.bucketCounts) {
			continue
		}
		count := n.bucketCounts[id]
		if int(count) >= n.maxPerCell {
			n.overflowCells++
			continue
		}
		n.buckets[id*n.maxPerCell+int(count)] = int32(i)
		n.bucketCounts[id]++
	}
}

// BuildNeighborTable populates the neighbor list for particle i by
// searching the 5x5x5 neighborhood of offsets {0,+1,-1,+2,-2} per axis
// (x outermost) around i's cell, in that order, and keeping every particle
// found within queryRadius until maxNeighbors is reached.
//
// This method is safe to call concurrently for disjoint index ranges: it
// only reads the grid built by BuildTable and writes to n.neighbors[i*...].
func (n *NeighborIndex) BuildNeighborTable(i int, positions []r3.Vec) {
	n.neighborLen[i] = 0

	x, y, z, ok := n.cellCoords(positions[i])
	if !ok {
		return
	}

	base := i * n.maxNeighbors
	count := int32(0)

	for _, dx := range gridOffsets {
		cx := x + dx
		if cx < 0 || cx >= n.cells[0] {
			continue
		}
		for _, dy := range gridOffsets {
			cy := y + dy
			if cy < 0 || cy >= n.cells[1] {
				continue
			}
			for _, dz := range gridOffsets {
				cz := z + dz
				if cz < 0 || cz >= n.cells[2] {
					continue
				}

				id := n.cellID(cx, cy, cz)
				if id < 0 || id >= len(n.bucketCounts) {
					continue
				}

				bucketCount := n.bucketCounts[id]
				bucketBase := id * n.maxPerCell
				for k := int32(0); k < bucketCount; k++ {
					j := n.buckets[bucketBase+int(k)]
					if int(j) == i {
						continue
					}

					d := r3.Sub(positions[i], positions[int(j)])
					distSq := r3.Dot(d, d)
					if distSq < n.queryRadiusSq {
						if count >= int32(n.maxNeighbors) {
							n.overflowNeighbors.Add(1)
							n.neighborLen[i] = count
							return
						}
						n.neighbors[base+int(count)] = j
						count++
					}
				}
			}
		}
	}

	n.neighborLen[i] = count
}

// Neighbors returns the neighbor indices found for particle i by the last
// BuildNeighborTable call. The returned slice aliases internal storage and
// is only valid until the next BuildNeighborTable(i, ...) call.
func (n *NeighborIndex) Neighbors(i int) []int32 {
	base := i * n.maxNeighbors
	return n.neighbors[base : base+int(n.neighborLen[i])]
}

// MaxNeighbors returns the configured per-particle neighbor cap.
func (n *NeighborIndex) MaxNeighbors() int {
	return n.maxNeighbors
}

// OverflowCells returns how many bucket insertions were dropped because
// their cell had already reached maxPerCell during the last BuildTable call.
func (n *NeighborIndex) OverflowCells() int {
	return n.overflowCells
}

// OverflowNeighbors returns how many particles hit maxNeighbors before
// exhausting the search neighborhood during the last BuildNeighborTable
// pass.
func (n *NeighborIndex) OverflowNeighbors() int {
	return int(n.overflowNeighbors.Load())
}
