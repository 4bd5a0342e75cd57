package spatial

import (
	"math/rand/v2"
	"testing"

	"arena-server/geom"
)

func contains(refs []Ref, want Ref) bool {
	for _, r := range refs {
		if r == want {
			return true
		}
	}
	return false
}

func TestGridInsertAndQuery(t *testing.T) {
	grid := NewGrid(5000, 5000, DefaultCellSize)

	ref := Ref{Kind: KindFood, Idx: 0}
	grid.Insert(ref, 100, 100, 10)

	if !contains(grid.QueryRadius(100, 100, 50, nil), ref) {
		t.Error("expected to find entity at (100,100)")
	}
	if contains(grid.QueryRadius(3000, 3000, 50, nil), ref) {
		t.Error("should not find entity at (3000,3000)")
	}
}

func TestGridClear(t *testing.T) {
	grid := NewGrid(5000, 5000, DefaultCellSize)
	grid.Insert(Ref{Kind: KindVirus}, 500, 500, 60)
	grid.Clear()

	if res := grid.QueryRadius(500, 500, 100, nil); len(res) != 0 {
		t.Errorf("expected 0 results after clear, got %d", len(res))
	}
	if grid.Len() != 0 {
		t.Errorf("expected empty grid, got %d", grid.Len())
	}
}

func TestGridLargeRadiusReachesQuery(t *testing.T) {
	grid := NewGrid(5000, 5000, DefaultCellSize)
	// Centre several cells away, but the circle reaches the query point
	big := Ref{Kind: KindCell, Idx: 3}
	grid.Insert(big, 1000, 1000, 400)

	if !contains(grid.QueryRadius(1350, 1000, 1, nil), big) {
		t.Error("large entity overlapping the query point must be returned")
	}
}

func TestGridNoteRadius(t *testing.T) {
	grid := NewGrid(5000, 5000, DefaultCellSize)
	ref := Ref{Kind: KindCell, Idx: 0}
	grid.Insert(ref, 1000, 1000, 10)
	if contains(grid.QueryRadius(1300, 1000, 1, nil), ref) {
		t.Fatal("small entity should not reach the query yet")
	}
	grid.NoteRadius(400)
	if !contains(grid.QueryRadius(1300, 1000, 1, nil), ref) {
		t.Error("grown entity must be returned after NoteRadius")
	}
}

func TestGridBoundaryClamp(t *testing.T) {
	grid := NewGrid(1000, 1000, DefaultCellSize)

	out := Ref{Kind: KindCell, Idx: 7}
	grid.Insert(out, -40, -40, 10)
	far := Ref{Kind: KindCell, Idx: 8}
	grid.Insert(far, 5000, 5000, 10)

	if !contains(grid.QueryRadius(0, 0, 50, nil), out) {
		t.Error("negative coords should be found near the origin")
	}
	if !contains(grid.QueryRadius(4990, 4990, 20, nil), far) {
		t.Error("entity past the far edge should be found at its real position")
	}
	// Clamped into the corner cell but far from this query
	if contains(grid.QueryRadius(990, 990, 5, nil), far) {
		t.Error("clamped entity must be filtered by real coordinates")
	}
}

func TestGridQueryRegion(t *testing.T) {
	grid := NewGrid(2000, 2000, DefaultCellSize)
	grid.Build([]Entry{
		{Ref: Ref{Kind: KindFood, Idx: 0}, X: 100, Y: 100, R: 10},
		{Ref: Ref{Kind: KindFood, Idx: 1}, X: 900, Y: 900, R: 10},
		{Ref: Ref{Kind: KindVirus, Idx: 0}, X: 1500, Y: 1500, R: 60},
	})

	res := grid.QueryRegion(geom.Rect{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}, nil)
	if !contains(res, Ref{Kind: KindFood, Idx: 0}) || !contains(res, Ref{Kind: KindFood, Idx: 1}) {
		t.Errorf("expected both food entries, got %v", res)
	}
	if contains(res, Ref{Kind: KindVirus, Idx: 0}) {
		t.Error("virus outside region returned")
	}
}

func TestGridBuildKeepsInsertionOrder(t *testing.T) {
	grid := NewGrid(1000, 1000, DefaultCellSize)
	var entries []Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, Entry{Ref: Ref{Kind: KindCell, Idx: i}, X: 50, Y: 50, R: 5})
	}
	grid.Build(entries)

	res := grid.QueryRadius(50, 50, 1, nil)
	if len(res) != 5 {
		t.Fatalf("expected 5 results, got %d", len(res))
	}
	for i, r := range res {
		if r.Idx != i {
			t.Errorf("position %d holds idx %d", i, r.Idx)
		}
	}
}

func TestGridQueryBufReuse(t *testing.T) {
	grid := NewGrid(1000, 1000, DefaultCellSize)
	grid.Insert(Ref{Kind: KindFood, Idx: 0}, 100, 100, 10)

	buf := make([]Ref, 0, 16)
	buf = grid.QueryRadius(100, 100, 10, buf[:0])
	buf = grid.QueryRadius(100, 100, 10, buf[:0])
	if len(buf) != 1 {
		t.Errorf("expected 1 result after reuse, got %d", len(buf))
	}
}

// Every overlapping pair found by brute force must be among the candidates.
func TestGridSupersetOfBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	grid := NewGrid(3000, 3000, DefaultCellSize)
	entries := make([]Entry, 300)
	for i := range entries {
		entries[i] = Entry{
			Ref: Ref{Kind: KindCell, Idx: i},
			X:   rng.Float64()*3200 - 100,
			Y:   rng.Float64()*3200 - 100,
			R:   5 + rng.Float64()*150,
		}
	}
	grid.Build(entries)

	var buf []Ref
	for _, q := range entries {
		buf = grid.QueryRadius(q.X, q.Y, q.R, buf[:0])
		for _, e := range entries {
			if !geom.Overlaps(q.X, q.Y, q.R, e.X, e.Y, e.R) {
				continue
			}
			if !contains(buf, e.Ref) {
				t.Fatalf("query around %d missed overlapping %d", q.Ref.Idx, e.Ref.Idx)
			}
		}
	}
}
