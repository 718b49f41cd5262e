package core

import (
	"math"
	"sort"
)

// Wall is a directed segment derived from the boundary of the union of
// all building rectangles. Walls are run-scoped: they are rebuilt from
// the building set at the start of every simulation.
type Wall struct {
	Line Line

	// Permittivity is the relative permittivity of the wall material.
	// A single process-wide value applies to every wall.
	Permittivity float64
}

// NormalAngleTo returns the angle made by the line to the normal of the
// wall, folded into [0, π/2].
func (w *Wall) NormalAngleTo(l Line) float64 {
	theta := math.Abs(math.Pi/2 - w.Line.AngleTo(l))

	// Fold onto the normal pointing to the other side of the wall.
	if theta > math.Pi/2 {
		theta = math.Abs(theta - math.Pi)
	}
	return theta
}

// Corner is a point where exactly two walls meet. It keeps the two
// adjacent walls and the far endpoint of each, which diffraction and
// the coverage optimizer both need.
type Corner struct {
	Position Point

	// FarEnds[i] is the endpoint of Walls[i] that is not the corner.
	FarEnds [2]Point
	Walls   [2]*Wall
}

// AdjacentLines returns the two wall segments re-anchored at the
// corner, running toward the far endpoints.
func (c *Corner) AdjacentLines() [2]Line {
	return [2]Line{
		{P1: c.Position, P2: c.FarEnds[0]},
		{P1: c.Position, P2: c.FarEnds[1]},
	}
}

// BuildingWalls derives the wall list from the building rectangles: the
// boundary of the planar union, deduplicated and oriented with the
// covered side on the left. Shared edges between merged buildings
// disappear and no wall lies inside the merged footprint.
//
// The union is computed on a compressed grid: every rectangle boundary
// contributes a grid line, cells are marked covered, and the
// covered/uncovered transitions are chained into closed loops. Collinear
// runs collapse so each polygon edge becomes exactly one wall.
func BuildingWalls(rects []Rect, permittivity float64) []*Wall {
	edges := unionBoundaryEdges(rects)
	if len(edges) == 0 {
		return nil
	}

	var walls []*Wall
	for _, loop := range chainLoops(edges) {
		for _, seg := range collapseCollinear(loop) {
			walls = append(walls, &Wall{Line: seg, Permittivity: permittivity})
		}
	}
	return walls
}

// FilterAreaWalls drops walls lying exactly on the simulation area
// boundary, which the bounded-area variants of the enumerator and the
// optimizer must not reflect on.
func FilterAreaWalls(walls []*Wall, area Rect) []*Wall {
	kept := make([]*Wall, 0, len(walls))
	for _, w := range walls {
		if w.Line.Dy() == 0 {
			y := w.Line.P1.Y
			if y == area.Top() || y == area.Bottom() {
				continue
			}
		}
		if w.Line.Dx() == 0 {
			x := w.Line.P1.X
			if x == area.Left() || x == area.Right() {
				continue
			}
		}
		kept = append(kept, w)
	}
	return kept
}

// WallsCorners derives the corner list: one corner per unordered wall
// pair sharing exactly one endpoint. Points where more than two walls
// meet are degenerate (buildings touching at a single point) and
// produce no corner.
func WallsCorners(walls []*Wall) []*Corner {
	// Count the walls incident to every endpoint first.
	incident := make(map[Point]int)
	for _, w := range walls {
		incident[w.Line.P1]++
		incident[w.Line.P2]++
	}

	var corners []*Corner
	for i := 0; i < len(walls); i++ {
		for j := i + 1; j < len(walls); j++ {
			wi, wj := walls[i], walls[j]

			shared, farI, farJ, ok := sharedEndpoint(wi.Line, wj.Line)
			if !ok {
				continue
			}
			if incident[shared] != 2 {
				continue
			}

			corners = append(corners, &Corner{
				Position: shared,
				FarEnds:  [2]Point{farI, farJ},
				Walls:    [2]*Wall{wi, wj},
			})
		}
	}
	return corners
}

// sharedEndpoint reports the single endpoint two segments have in
// common, with the far endpoint of each. Segments sharing both
// endpoints (duplicates) yield ok == false.
func sharedEndpoint(a, b Line) (shared, farA, farB Point, ok bool) {
	matches := 0
	for _, pa := range [2]Point{a.P1, a.P2} {
		for _, pb := range [2]Point{b.P1, b.P2} {
			if pa == pb {
				matches++
				shared = pa
			}
		}
	}
	if matches != 1 {
		return Point{}, Point{}, Point{}, false
	}

	farA = a.P1
	if shared == a.P1 {
		farA = a.P2
	}
	farB = b.P1
	if shared == b.P1 {
		farB = b.P2
	}
	return shared, farA, farB, true
}

// IsObstructed reports whether the ray has a bounded intersection with
// any wall other than the origin wall (where the ray starts by
// reflection) and the target wall (where it ends). Excluding those two
// avoids spurious self-intersections at the reflection points.
func IsObstructed(ray Line, walls []*Wall, origin, target *Wall) bool {
	for _, w := range walls {
		if w == origin || w == target {
			continue
		}
		if _, kind := ray.Intersect(w.Line); kind == BoundedIntersection {
			return true
		}
	}
	return false
}

// directed boundary edge of the union grid.
type boundaryEdge struct {
	from, to Point
}

// unionBoundaryEdges produces the unit grid edges of the covered /
// uncovered boundary, directed so the covered side is on the left.
func unionBoundaryEdges(rects []Rect) []boundaryEdge {
	var xs, ys []float64
	for _, r := range rects {
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		xs = append(xs, r.Left(), r.Right())
		ys = append(ys, r.Top(), r.Bottom())
	}
	xs = compressCoords(xs)
	ys = compressCoords(ys)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}

	nx, ny := len(xs)-1, len(ys)-1
	covered := make([][]bool, nx)
	for i := range covered {
		covered[i] = make([]bool, ny)
		for j := range covered[i] {
			cx := (xs[i] + xs[i+1]) / 2
			cy := (ys[j] + ys[j+1]) / 2
			for _, r := range rects {
				if cx > r.Left() && cx < r.Right() && cy > r.Top() && cy < r.Bottom() {
					covered[i][j] = true
					break
				}
			}
		}
	}

	cellCovered := func(i, j int) bool {
		if i < 0 || i >= nx || j < 0 || j >= ny {
			return false
		}
		return covered[i][j]
	}

	var edges []boundaryEdge

	// Vertical grid lines: the covered side on the left means an edge
	// points +y when the cell to its left is covered, -y otherwise.
	for i := 0; i <= nx; i++ {
		for j := 0; j < ny; j++ {
			left := cellCovered(i-1, j)
			right := cellCovered(i, j)
			if left == right {
				continue
			}
			lo := Point{X: xs[i], Y: ys[j]}
			hi := Point{X: xs[i], Y: ys[j+1]}
			if left {
				edges = append(edges, boundaryEdge{from: lo, to: hi})
			} else {
				edges = append(edges, boundaryEdge{from: hi, to: lo})
			}
		}
	}

	// Horizontal grid lines: +x when the cell above is covered.
	for j := 0; j <= ny; j++ {
		for i := 0; i < nx; i++ {
			below := cellCovered(i, j-1)
			above := cellCovered(i, j)
			if below == above {
				continue
			}
			lo := Point{X: xs[i], Y: ys[j]}
			hi := Point{X: xs[i+1], Y: ys[j]}
			if above {
				edges = append(edges, boundaryEdge{from: lo, to: hi})
			} else {
				edges = append(edges, boundaryEdge{from: hi, to: lo})
			}
		}
	}

	return edges
}

func compressCoords(vals []float64) []float64 {
	sort.Float64s(vals)
	out := vals[:0]
	for i, v := range vals {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// chainLoops assembles the directed edges into closed vertex loops. At
// degree-4 vertices (rectangles touching at a point) the loop takes the
// most counter-clockwise continuation, which keeps the two touching
// outlines in distinct loops.
func chainLoops(edges []boundaryEdge) [][]Point {
	outgoing := make(map[Point][]int)
	for idx, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], idx)
	}

	used := make([]bool, len(edges))
	var loops [][]Point

	for start := range edges {
		if used[start] {
			continue
		}

		var loop []Point
		cur := start
		for {
			used[cur] = true
			loop = append(loop, edges[cur].from)

			next := -1
			bestTurn := math.Inf(-1)
			inAngle := Line{P1: edges[cur].from, P2: edges[cur].to}.Angle()
			for _, cand := range outgoing[edges[cur].to] {
				if used[cand] {
					continue
				}
				outAngle := Line{P1: edges[cand].from, P2: edges[cand].to}.Angle()
				turn := normalizeTurn(outAngle - inAngle)
				if turn > bestTurn {
					bestTurn = turn
					next = cand
				}
			}
			if next < 0 {
				// Loop closed back onto its first edge.
				break
			}
			cur = next
		}
		loops = append(loops, loop)
	}
	return loops
}

// normalizeTurn folds a direction change into (-π, π].
func normalizeTurn(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// collapseCollinear removes loop vertices whose incoming and outgoing
// directions coincide, then emits one segment per remaining vertex
// pair.
func collapseCollinear(loop []Point) []Line {
	n := len(loop)
	if n < 3 {
		return nil
	}

	var verts []Point
	for i := 0; i < n; i++ {
		prev := loop[(i+n-1)%n]
		cur := loop[i]
		next := loop[(i+1)%n]

		inDir := Line{P1: prev, P2: cur}
		outDir := Line{P1: cur, P2: next}
		if sameDirection(inDir, outDir) {
			continue
		}
		verts = append(verts, cur)
	}

	segs := make([]Line, 0, len(verts))
	for i := range verts {
		segs = append(segs, Line{P1: verts[i], P2: verts[(i+1)%len(verts)]})
	}
	return segs
}

func sameDirection(a, b Line) bool {
	ua := a.UnitVector()
	ub := b.UnitVector()
	return math.Abs(ua.X-ub.X) < parallelEps && math.Abs(ua.Y-ub.Y) < parallelEps
}
