package core

import (
	"math"
	"testing"
)

func wallLines(walls []*Wall) map[Line]bool {
	set := make(map[Line]bool, len(walls))
	for _, w := range walls {
		set[w.Line] = true
	}
	return set
}

// hasWallBetween reports whether some wall connects the two points, in
// either direction.
func hasWallBetween(walls []*Wall, a, b Point) bool {
	for _, w := range walls {
		if (w.Line.P1 == a && w.Line.P2 == b) || (w.Line.P1 == b && w.Line.P2 == a) {
			return true
		}
	}
	return false
}

func TestBuildingWalls_SingleRect(t *testing.T) {
	walls := BuildingWalls([]Rect{{X: 0, Y: 0, Width: 10, Height: 5}}, 5.0)

	if len(walls) != 4 {
		t.Fatalf("got %d walls for a single rectangle, want 4", len(walls))
	}
	for _, w := range walls {
		if w.Permittivity != 5.0 {
			t.Errorf("wall permittivity %g, want 5", w.Permittivity)
		}
	}

	corners := [][2]Point{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 10, Y: 0}, {X: 10, Y: 5}},
		{{X: 10, Y: 5}, {X: 0, Y: 5}},
		{{X: 0, Y: 5}, {X: 0, Y: 0}},
	}
	for _, c := range corners {
		if !hasWallBetween(walls, c[0], c[1]) {
			t.Errorf("missing wall between %v and %v", c[0], c[1])
		}
	}
}

func TestBuildingWalls_AdjacentRectsMerge(t *testing.T) {
	// Two rectangles sharing the edge x=10 merge into one 20x10
	// footprint: the shared wall disappears and the flush horizontal
	// edges fuse.
	walls := BuildingWalls([]Rect{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 10, Y: 0, Width: 10, Height: 10},
	}, 5.0)

	if len(walls) != 4 {
		t.Fatalf("got %d walls after merging adjacent rects, want 4", len(walls))
	}
	for l := range wallLines(walls) {
		if l.P1.X == 10 && l.P2.X == 10 {
			t.Errorf("interior wall %v survived the union", l)
		}
	}
	if !hasWallBetween(walls, Point{X: 0, Y: 0}, Point{X: 20, Y: 0}) {
		t.Errorf("bottom edge did not fuse into a single wall")
	}
}

func TestBuildingWalls_PartialOverlap(t *testing.T) {
	// Offset overlap produces an L-ish outline with 8 walls and no
	// wall inside the union.
	walls := BuildingWalls([]Rect{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: 10},
	}, 5.0)

	if len(walls) != 8 {
		t.Fatalf("got %d walls for overlapping rects, want 8", len(walls))
	}
	for _, w := range walls {
		mid := Point{
			X: (w.Line.P1.X + w.Line.P2.X) / 2,
			Y: (w.Line.P1.Y + w.Line.P2.Y) / 2,
		}
		inA := Rect{X: 0, Y: 0, Width: 10, Height: 10}.Contains(mid)
		inB := Rect{X: 5, Y: 5, Width: 10, Height: 10}.Contains(mid)
		if inA || inB {
			t.Errorf("wall %v lies inside the merged footprint", w.Line)
		}
	}
}

func TestBuildingWalls_SeparateRects(t *testing.T) {
	walls := BuildingWalls([]Rect{
		{X: 0, Y: 0, Width: 5, Height: 5},
		{X: 20, Y: 0, Width: 5, Height: 5},
	}, 5.0)

	if len(walls) != 8 {
		t.Fatalf("got %d walls for two separate rects, want 8", len(walls))
	}
}

func TestFilterAreaWalls(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 20, Height: 20}
	walls := []*Wall{
		{Line: Line{P1: Point{X: 0, Y: 0}, P2: Point{X: 20, Y: 0}}},   // on area top
		{Line: Line{P1: Point{X: 0, Y: 20}, P2: Point{X: 20, Y: 20}}}, // on area bottom
		{Line: Line{P1: Point{X: 0, Y: 0}, P2: Point{X: 0, Y: 20}}},   // on area left
		{Line: Line{P1: Point{X: 5, Y: 5}, P2: Point{X: 15, Y: 5}}},   // interior
	}

	kept := FilterAreaWalls(walls, area)
	if len(kept) != 1 {
		t.Fatalf("got %d walls after filtering, want 1", len(kept))
	}
	if kept[0].Line.P1.Y != 5 {
		t.Errorf("kept the wrong wall: %v", kept[0].Line)
	}
}

func TestWallsCorners_SingleRect(t *testing.T) {
	walls := BuildingWalls([]Rect{{X: 0, Y: 0, Width: 10, Height: 10}}, 5.0)
	corners := WallsCorners(walls)

	if len(corners) != 4 {
		t.Fatalf("got %d corners for a rectangle, want 4", len(corners))
	}

	for _, c := range corners {
		for i := 0; i < 2; i++ {
			l := c.Walls[i].Line
			if l.P1 != c.Position && l.P2 != c.Position {
				t.Errorf("corner %v references wall %v that does not touch it", c.Position, l)
			}
			if c.FarEnds[i] == c.Position {
				t.Errorf("corner %v has its own position as a far endpoint", c.Position)
			}
		}
		lines := c.AdjacentLines()
		turn := math.Abs(normalizeTurn(lines[0].Angle() - lines[1].Angle()))
		if math.Abs(turn-math.Pi/2) > 1e-9 {
			t.Errorf("rectangle corner %v walls not perpendicular (turn %g)", c.Position, turn)
		}
	}
}

func TestWallsCorners_MergedRects(t *testing.T) {
	// The merged 20x10 footprint has exactly its 4 outer corners.
	walls := BuildingWalls([]Rect{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 10, Y: 0, Width: 10, Height: 10},
	}, 5.0)
	corners := WallsCorners(walls)

	if len(corners) != 4 {
		t.Fatalf("got %d corners for merged rects, want 4", len(corners))
	}
}

func TestNormalAngleTo(t *testing.T) {
	wall := &Wall{Line: Line{P1: Point{X: 0, Y: 0}, P2: Point{X: 10, Y: 0}}}

	cases := []struct {
		name string
		ray  Line
		want float64
	}{
		{"normal incidence", Line{P1: Point{X: 5, Y: 5}, P2: Point{X: 5, Y: 0}}, 0},
		{"45 degrees", Line{P1: Point{X: 0, Y: 5}, P2: Point{X: 5, Y: 0}}, math.Pi / 4},
		{"grazing", Line{P1: Point{X: 0, Y: 0}, P2: Point{X: 10, Y: 0}}, math.Pi / 2},
	}
	for _, tc := range cases {
		if got := wall.NormalAngleTo(tc.ray); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: got %g, want %g", tc.name, got, tc.want)
		}
	}
}

func TestIsObstructed(t *testing.T) {
	blocker := &Wall{Line: Line{P1: Point{X: 5, Y: -5}, P2: Point{X: 5, Y: 5}}}
	walls := []*Wall{blocker}

	ray := Line{P1: Point{X: 0, Y: 0}, P2: Point{X: 10, Y: 0}}
	if !IsObstructed(ray, walls, nil, nil) {
		t.Errorf("ray through a wall should be obstructed")
	}
	if IsObstructed(ray, walls, blocker, nil) {
		t.Errorf("origin wall must be excluded from the obstruction test")
	}
	if IsObstructed(ray, walls, nil, blocker) {
		t.Errorf("target wall must be excluded from the obstruction test")
	}

	clear := Line{P1: Point{X: 0, Y: 10}, P2: Point{X: 10, Y: 10}}
	if IsObstructed(clear, walls, nil, nil) {
		t.Errorf("ray clear of all walls reported as obstructed")
	}
}
