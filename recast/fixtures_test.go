package recast

import "github.com/go-gl/mathgl/mgl32"

// buildFlatHeightfield constructs a CompactHeightfield representing a flat,
// fully walkable w x h grid: one span per cell, area 1, each cell connected
// to its four in-bounds neighbours. This is what a voxelizer would produce
// for level, obstacle-free terrain; the voxelizer itself is out of scope, so
// tests build the heightfield by hand, the way the teacher's own
// recast_test.go builds small fixtures directly.
func buildFlatHeightfield(w, h int) *CompactHeightfield {
	chf := &CompactHeightfield{
		Width:     w,
		Height:    h,
		Cs:        1,
		Ch:        1,
		BMin:      mgl32.Vec3{0, 0, 0},
		BMax:      mgl32.Vec3{float32(w), 10, float32(h)},
		SpanCount: w * h,
	}
	chf.Cells = make([]CompactCell, w*h)
	chf.Spans = make([]CompactSpan, w*h)
	chf.Areas = make([]int, w*h)

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			i := x + z*w
			chf.Cells[i] = CompactCell{Index: i, Count: 1}
			chf.Areas[i] = 1

			s := &chf.Spans[i]
			s.Y = 0
			s.H = 10
			for dir := 0; dir < 4; dir++ {
				setCon(s, dir, NotConnected)
			}
			for dir := 0; dir < 4; dir++ {
				nx := x + getDirOffsetX(dir)
				nz := z + getDirOffsetZ(dir)
				if nx >= 0 && nx < w && nz >= 0 && nz < h {
					// Every column has exactly one span at offset 0.
					setCon(s, dir, 0)
				}
			}
		}
	}
	return chf
}

// punchHole clears a rectangular sub-region of the grid to NullArea,
// carving an island-with-a-hole shape out of an otherwise flat heightfield.
func punchHole(chf *CompactHeightfield, minx, maxx, minz, maxz int) {
	w := chf.Width
	for z := minz; z < maxz; z++ {
		for x := minx; x < maxx; x++ {
			i := x + z*w
			chf.Areas[i] = NullArea
			s := &chf.Spans[i]
			for dir := 0; dir < 4; dir++ {
				setCon(s, dir, NotConnected)
			}
		}
	}
	// Disconnect the surviving ring from the hole.
	for z := 0; z < chf.Height; z++ {
		for x := 0; x < w; x++ {
			i := x + z*w
			if chf.Areas[i] == NullArea {
				continue
			}
			s := &chf.Spans[i]
			for dir := 0; dir < 4; dir++ {
				nx := x + getDirOffsetX(dir)
				nz := z + getDirOffsetZ(dir)
				if nx < 0 || nx >= w || nz < 0 || nz >= chf.Height {
					continue
				}
				if chf.Areas[nx+nz*w] == NullArea {
					setCon(s, dir, NotConnected)
				}
			}
		}
	}
}

// restoreSpan reinstates a single NullArea cell as walkable terrain and
// reconnects it to any already-walkable neighbours, bidirectionally. Used to
// carve a small isolated walkable patch out of an otherwise-holed grid.
func restoreSpan(chf *CompactHeightfield, x, z int) {
	w, h := chf.Width, chf.Height
	i := x + z*w
	chf.Areas[i] = 1
	s := &chf.Spans[i]
	for dir := 0; dir < 4; dir++ {
		nx := x + getDirOffsetX(dir)
		nz := z + getDirOffsetZ(dir)
		if nx < 0 || nx >= w || nz < 0 || nz >= h {
			continue
		}
		ni := nx + nz*w
		if chf.Areas[ni] == NullArea {
			continue
		}
		setCon(s, dir, 0)
		setCon(&chf.Spans[ni], (dir+2)&0x3, 0)
	}
}

func defaultBuildConfig() BuildConfig {
	return BuildConfig{
		BorderSize:             0,
		MinRegionArea:          0,
		MaxSimplificationError: 1.3,
		MaxEdgeLen:             0,
		MaxVertsPerPoly:        6,
		ContourTessWallEdges:   true,
	}
}
