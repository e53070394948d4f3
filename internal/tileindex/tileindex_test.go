package tileindex

import "testing"

func TestTileBoundsRoot(t *testing.T) {
	b := TileBounds(0, 0, 0)
	if b.MinX != -180 || b.MaxX != 0 || b.MinY != -90 || b.MaxY != 90 {
		t.Fatalf("unexpected root west bounds: %+v", b)
	}

	b = TileBounds(0, 1, 0)
	if b.MinX != 0 || b.MaxX != 180 {
		t.Fatalf("unexpected root east bounds: %+v", b)
	}
}

func TestNeighborsInterior(t *testing.T) {
	ns := Neighbors(10, 528, 336)
	if len(ns) != 8 {
		t.Fatalf("expected 8 neighbors for an interior tile, got %d", len(ns))
	}
}

func TestNeighborsAntiMeridianWraps(t *testing.T) {
	width := rootTilesX * (1 << uint(10))
	ns := Neighbors(10, 0, 300)

	var sawWest, sawNorthWest, sawSouthWest bool
	for _, n := range ns {
		if n.X == width-1 {
			switch n.Y {
			case 301:
				sawNorthWest = true
			case 300:
				sawWest = true
			case 299:
				sawSouthWest = true
			}
		}
	}
	if !sawWest || !sawNorthWest || !sawSouthWest {
		t.Fatalf("expected west-side neighbors to wrap to column %d, got %+v", width-1, ns)
	}
}

func TestNeighborsPolarDropsRows(t *testing.T) {
	ns := Neighbors(3, 4, 0)
	for _, n := range ns {
		if n.Y < 0 {
			t.Fatalf("south neighbor should have been dropped at the bottom row, got %+v", n)
		}
	}

	height := rootTilesY * (1 << uint(3))
	ns = Neighbors(3, 4, height-1)
	for _, n := range ns {
		if n.Y >= height {
			t.Fatalf("north neighbor should have been dropped at the top row, got %+v", n)
		}
	}
}

func TestCesiumTMSRoundTrip(t *testing.T) {
	for z := 0; z <= 5; z++ {
		height := rootTilesY * (1 << uint(z))
		width := rootTilesX * (1 << uint(z))
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				tms := CesiumToTMS(z, x, y)
				back := TMSToCesium(tms.Z, tms.X, tms.Y)
				if back.X != x || back.Y != y || back.Z != z {
					t.Fatalf("round trip failed for (%d,%d,%d): got %+v via %+v", z, x, y, back, tms)
				}
			}
		}
	}
}

func TestTileAtIsInverseOfTileBounds(t *testing.T) {
	for z := 0; z <= 4; z++ {
		width := rootTilesX * (1 << uint(z))
		height := rootTilesY * (1 << uint(z))
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				b := TileBounds(z, x, y)
				cx := (b.MinX + b.MaxX) / 2
				cy := (b.MinY + b.MaxY) / 2
				gotX, gotY := TileAt(cx, cy, z)
				if gotX != x || gotY != y {
					t.Fatalf("TileAt(%v,%v,%d) = (%d,%d), want (%d,%d)", cx, cy, z, gotX, gotY, x, y)
				}
			}
		}
	}
}

func TestTileAtClampsOuterEdges(t *testing.T) {
	x, y := TileAt(180, 90, 2)
	if x != 2*4-1 || y != 4-1 {
		t.Fatalf("expected the far corner to clamp into the last tile, got (%d,%d)", x, y)
	}
}

func TestRescalePreservesHeight(t *testing.T) {
	b := Bounds{MinX: 4, MinY: 50, MaxX: 6, MaxY: 52}
	positions := [][3]float64{{0, 0, 123}, {256, 256, 456}}

	out := Rescale(positions, 256, b, false)
	if out[0][0] != 4 || out[0][1] != 50 || out[0][2] != 123 {
		t.Fatalf("unexpected rescale of origin: %+v", out[0])
	}
	if out[1][0] != 6 || out[1][1] != 52 || out[1][2] != 456 {
		t.Fatalf("unexpected rescale of far corner: %+v", out[1])
	}
}
