package recast

import "testing"

func buildSingleContourSet(nverts int, verts []int, reg, area int) *ContourSet {
	return &ContourSet{
		Conts: []*Contour{
			{Verts: verts, NVerts: nverts, Reg: reg, Area: area},
		},
		Width:  10,
		Height: 10,
		Cs:     1,
		Ch:     1,
	}
}

func TestBuildPolyMeshSingleRectangle(t *testing.T) {
	// A single CCW rectangle, (x,y,z,flag) quadruples.
	verts := []int{
		0, 0, 0, 0,
		0, 0, 10, 0,
		10, 0, 10, 0,
		10, 0, 0, 0,
	}
	cset := buildSingleContourSet(4, verts, 1, 1)
	cfg := defaultBuildConfig()
	report := &BuildReport{}

	pb := NewPolyMeshBuilder(nil)
	mesh, err := pb.BuildPolyMesh(cset, cfg, report)
	if err != nil {
		t.Fatalf("BuildPolyMesh returned error: %v", err)
	}
	if mesh.NVerts != 4 {
		t.Fatalf("expected 4 deduped vertices, got %d", mesh.NVerts)
	}
	if mesh.NPolys != 1 {
		t.Fatalf("expected the rectangle to merge into 1 polygon, got %d", mesh.NPolys)
	}
	if mesh.Regs[0] != 1 || mesh.Areas[0] != 1 {
		t.Fatalf("expected region/area to carry through from the contour, got reg=%d area=%d", mesh.Regs[0], mesh.Areas[0])
	}
	if report.PolygonCount != 1 {
		t.Fatalf("expected report.PolygonCount=1, got %d", report.PolygonCount)
	}

	nvp := mesh.MaxVertsPerPoly
	p := mesh.Polys[:nvp]
	nv := countPolyVerts(p, nvp)
	if nv != 4 {
		t.Fatalf("expected merged polygon to retain 4 vertices, got %d", nv)
	}
}

func TestBuildPolyMeshRejectsOversizedVertexBudget(t *testing.T) {
	// A single (fabricated) contour whose vertex count alone reaches the
	// 16-bit index ceiling must fail fast, before any allocation.
	cset := &ContourSet{
		Conts: []*Contour{
			{NVerts: 0xfffe, Reg: 1, Area: 1},
		},
		Width:  10,
		Height: 10,
		Cs:     1,
		Ch:     1,
	}
	cfg := defaultBuildConfig()
	pb := NewPolyMeshBuilder(nil)
	if _, err := pb.BuildPolyMesh(cset, cfg, &BuildReport{}); err == nil {
		t.Fatal("expected an error when the contour vertex budget reaches 0xfffe")
	}
}

func TestAddVertexDedupesWithinYSlack(t *testing.T) {
	pb := NewPolyMeshBuilder(nil)
	pb.firstVert = make([]int, vertexBucketCount)
	for i := range pb.firstVert {
		pb.firstVert[i] = -1
	}
	pb.nextVert = make([]int, 8)
	verts := make([]int, 8*3)

	var nv, a, b, c int
	verts, nv, a = pb.addVertex(5, 10, 5, verts, nv)
	verts, nv, b = pb.addVertex(5, 11, 5, verts, nv) // within +-2 y-slack, dedups
	verts, nv, c = pb.addVertex(5, 14, 5, verts, nv) // outside slack, new vertex

	if a != b {
		t.Fatalf("expected vertex within y-slack to dedupe to the same index, got %d vs %d", a, b)
	}
	if a == c {
		t.Fatal("expected vertex outside y-slack to get a distinct index")
	}
	if nv != 2 {
		t.Fatalf("expected 2 distinct vertices after dedup, got %d", nv)
	}
}

func TestTriangulateConvexPentagon(t *testing.T) {
	// Convex pentagon, (x,y,z,flag) quadruples, wound the same way BuildContours
	// produces its rectangles (verified by TestBuildPolyMeshSingleRectangle).
	cverts := []int{
		0, 0, 0, 0,
		0, 0, 6, 0,
		2, 0, 8, 0,
		4, 0, 6, 0,
		4, 0, 0, 0,
	}
	indices := []int{0, 1, 2, 3, 4}
	tris := make([]int, 3*3)
	ntris := triangulate(5, cverts, indices, tris)
	if ntris != 3 {
		t.Fatalf("expected a pentagon to triangulate into 3 triangles, got %d", ntris)
	}
}

func TestCanRemoveVertexRejectsPinchPoint(t *testing.T) {
	nvp := 4
	mesh := &PolyMesh{
		MaxVertsPerPoly: nvp,
		NPolys:          2,
		Polys: []int{
			0, 1, 2, MeshNullIdx, MeshNullIdx, MeshNullIdx, MeshNullIdx, MeshNullIdx,
			2, 3, 4, MeshNullIdx, MeshNullIdx, MeshNullIdx, MeshNullIdx, MeshNullIdx,
		},
	}
	// Vertex 2 is the sole shared vertex between two otherwise-disjoint
	// triangles: removing it would leave two separate fans joined at a
	// single point, which canRemoveVertex must reject.
	if canRemoveVertex(mesh, 2) {
		t.Fatal("expected canRemoveVertex to reject a pinch-point vertex")
	}
}
