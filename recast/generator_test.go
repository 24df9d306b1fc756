package recast

import (
	"reflect"
	"testing"
)

func TestGeneratorBuildEndToEnd(t *testing.T) {
	chf := buildFlatHeightfield(20, 20)
	cfg := defaultBuildConfig()

	g := NewGenerator(nil)
	mesh, report, err := g.Build(chf, cfg)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if mesh.NVerts == 0 || mesh.NPolys == 0 {
		t.Fatal("expected a non-empty mesh from a flat walkable grid")
	}
	if report.RegionCount != 1 {
		t.Fatalf("expected 1 region, got %d", report.RegionCount)
	}
	if report.ContourCount != 1 {
		t.Fatalf("expected 1 contour, got %d", report.ContourCount)
	}
	if report.PolygonCount != mesh.NPolys {
		t.Fatalf("report.PolygonCount (%d) must match mesh.NPolys (%d)", report.PolygonCount, mesh.NPolys)
	}
}

func TestGeneratorBuildIsDeterministic(t *testing.T) {
	cfg := defaultBuildConfig()

	build := func() *PolyMesh {
		chf := buildFlatHeightfield(24, 16)
		punchHole(chf, 5, 9, 5, 9)
		g := NewGenerator(nil)
		mesh, _, err := g.Build(chf, cfg)
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		return mesh
	}

	a := build()
	b := build()

	if !reflect.DeepEqual(a.Verts, b.Verts) {
		t.Fatal("Verts differ across identical runs; pipeline must be bitwise deterministic")
	}
	if !reflect.DeepEqual(a.Polys, b.Polys) {
		t.Fatal("Polys differ across identical runs; pipeline must be bitwise deterministic")
	}
	if !reflect.DeepEqual(a.Areas, b.Areas) || !reflect.DeepEqual(a.Regs, b.Regs) {
		t.Fatal("Areas/Regs differ across identical runs; pipeline must be bitwise deterministic")
	}
}

func TestGeneratorBuildEmptyHeightfield(t *testing.T) {
	chf := &CompactHeightfield{Width: 4, Height: 4}
	cfg := defaultBuildConfig()

	g := NewGenerator(nil)
	mesh, report, err := g.Build(chf, cfg)
	if err != nil {
		t.Fatalf("Build returned error for empty heightfield: %v", err)
	}
	if mesh.NVerts != 0 || mesh.NPolys != 0 {
		t.Fatal("expected an empty mesh for a heightfield with no spans")
	}
	if report.SpanCount != 0 {
		t.Fatalf("expected report.SpanCount=0, got %d", report.SpanCount)
	}
}

func TestGeneratorBuildRejectsBadConfig(t *testing.T) {
	chf := buildFlatHeightfield(4, 4)
	cfg := defaultBuildConfig()
	cfg.MaxVertsPerPoly = 2

	g := NewGenerator(nil)
	if _, _, err := g.Build(chf, cfg); err == nil {
		t.Fatal("expected an error for MaxVertsPerPoly < 3")
	}
}

func TestGeneratorBuildAdjacentRegionsShareEdge(t *testing.T) {
	// Two 10x10 blocks stacked along z, walkable on both sides of z=10 but
	// with Con severed across that row so the region sweep never merges
	// them: two distinct regions sharing one literal edge, the way
	// mergeAndFilterLayerRegions's connection-based flood merge treats any
	// Con-disconnected neighbour as outside the layer (same as a true void
	// boundary).
	w, h := 10, 20
	chf := buildFlatHeightfield(w, h)
	for x := 0; x < w; x++ {
		setCon(&chf.Spans[x+9*w], 1, NotConnected)
		setCon(&chf.Spans[x+10*w], 3, NotConnected)
	}
	cfg := defaultBuildConfig()

	g := NewGenerator(nil)
	mesh, report, err := g.Build(chf, cfg)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if report.RegionCount != 2 {
		t.Fatalf("expected 2 regions, got %d", report.RegionCount)
	}
	if mesh.NPolys != 2 {
		t.Fatalf("expected 2 polygons (one per region), got %d", mesh.NPolys)
	}

	nvp := mesh.MaxVertsPerPoly
	p0 := mesh.Polys[0*nvp*2 : 0*nvp*2+nvp*2]
	p1 := mesh.Polys[1*nvp*2 : 1*nvp*2+nvp*2]

	find := func(p []int, target int) bool {
		for j := 0; j < nvp; j++ {
			if p[j] == MeshNullIdx {
				break
			}
			if p[nvp+j] == target {
				return true
			}
		}
		return false
	}
	if !find(p0, 1) || !find(p1, 0) {
		t.Fatal("expected the two regions' polygons to carry mutual adjacency across their shared edge")
	}
}

func TestGeneratorBuildSmallRegionRetainedByBorderTouch(t *testing.T) {
	// A 3-span core region, isolated from everything else, but directly
	// touching the heightfield border band: the border-touch exemption must
	// retain it even though MinRegionArea (5) exceeds its span count (3).
	w, h := 10, 10
	chf := buildFlatHeightfield(w, h)
	punchHole(chf, 2, w-2, 2, h-2)
	restoreSpan(chf, 2, 2)
	restoreSpan(chf, 3, 2)
	restoreSpan(chf, 4, 2)

	cfg := defaultBuildConfig()
	cfg.BorderSize = 2
	cfg.MinRegionArea = 5

	g := NewGenerator(nil)
	mesh, report, err := g.Build(chf, cfg)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if report.RegionCount != 1 {
		t.Fatalf("expected the border-touching region to be retained, got RegionCount=%d", report.RegionCount)
	}
	if report.FilteredRegions != 0 {
		t.Fatalf("expected no filtered regions, got %d", report.FilteredRegions)
	}
	if mesh.NPolys != 1 {
		t.Fatalf("expected 1 polygon from the retained region, got %d", mesh.NPolys)
	}
}

func TestGeneratorBuildTessellatesLongRegion(t *testing.T) {
	// A 1x100 region with maxEdgeLen=16 and wallEdges tessellation must split
	// its two long sides into ~16-cell segments instead of collapsing them
	// to single long edges.
	chf := buildFlatHeightfield(3, 100)
	for z := 0; z < 100; z++ {
		chf.Areas[0+z*3] = NullArea
		chf.Areas[2+z*3] = NullArea
	}
	for z := 0; z < 100; z++ {
		i := 1 + z*3
		s := &chf.Spans[i]
		for dir := 0; dir < 4; dir++ {
			nx := 1 + getDirOffsetX(dir)
			if nx != 1 {
				setCon(s, dir, NotConnected)
			}
		}
	}

	cfg := defaultBuildConfig()
	cfg.MaxEdgeLen = 16
	cfg.ContourTessWallEdges = true

	rb := NewRegionBuilder(nil)
	report := &BuildReport{}
	if !rb.BuildLayerRegions(chf, cfg, report) {
		t.Fatal("BuildLayerRegions failed")
	}
	if report.RegionCount != 1 {
		t.Fatalf("expected a single long region, got %d", report.RegionCount)
	}

	cb := NewContourBuilder(nil)
	cset, err := cb.BuildContours(chf, cfg, report)
	if err != nil {
		t.Fatalf("BuildContours returned error: %v", err)
	}
	if len(cset.Conts) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(cset.Conts))
	}

	cont := cset.Conts[0]
	// Two long sides of ~100 cells tessellated at maxEdgeLen=16 yield roughly
	// 2*(100/16) extra vertices beyond the 4 rectangle corners.
	if cont.NVerts < 16 {
		t.Fatalf("expected long-edge tessellation to add vertices well beyond the 4 corners, got %d", cont.NVerts)
	}
}

func TestGeneratorBuildTagsPortalEdgesAtBorder(t *testing.T) {
	// A single flat region with BorderSize>0 exercises the portal-tagging
	// pass: every outer edge of the core region (unconnected to any other
	// polygon) must be tagged with the 0x8000|side portal flag once it
	// touches the border-adjusted bounds.
	chf := buildFlatHeightfield(20, 20)
	cfg := defaultBuildConfig()
	cfg.BorderSize = 2

	g := NewGenerator(nil)
	mesh, report, err := g.Build(chf, cfg)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if report.RegionCount != 1 {
		t.Fatalf("expected a single core region, got %d", report.RegionCount)
	}
	if mesh.NPolys == 0 {
		t.Fatal("expected at least one polygon")
	}

	nvp := mesh.MaxVertsPerPoly
	portalCount := 0
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp*2]
		for j := 0; j < nvp; j++ {
			if p[j] == MeshNullIdx {
				break
			}
			if p[nvp+j] != MeshNullIdx && p[nvp+j]&0x8000 != 0 {
				portalCount++
			}
		}
	}
	if portalCount == 0 {
		t.Fatal("expected at least one polygon edge to be tagged as a tile-border portal")
	}
}

func TestGeneratorBuildRejectsOversizedMaxVertsPerPoly(t *testing.T) {
	chf := buildFlatHeightfield(4, 4)
	cfg := defaultBuildConfig()
	cfg.MaxVertsPerPoly = 13

	g := NewGenerator(nil)
	if _, _, err := g.Build(chf, cfg); err == nil {
		t.Fatal("expected an error for MaxVertsPerPoly > 12")
	}
}
