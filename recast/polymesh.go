package recast

import (
	"fmt"

	"go.uber.org/zap"
)

// multipleRegs marks a merged polygon that now straddles more than one
// source region; there is no single region id left to report for it.
const multipleRegs = 0xfffe

// PolyMeshBuilder triangulates each contour, greedily merges triangles into
// convex polygons up to MaxVertsPerPoly, removes heightfield-border
// artefact vertices, and resolves polygon adjacency. Grounded on the
// teacher's recast_mesh.go helpers (triangulate, getPolyMergeValue/
// mergePolyVerts, canRemoveVertex, buildMeshAdjacency, addVertex), which
// exist there but are never assembled into a top-level builder or given a
// removeVertex/portal-tagging step — those are new code here, following the
// same published Recast algorithm shape spec.md §4.3 describes.
type PolyMeshBuilder struct {
	logger *zap.Logger

	firstVert []int
	nextVert  []int
}

// NewPolyMeshBuilder constructs a PolyMeshBuilder. A nil logger is replaced
// with a no-op logger.
func NewPolyMeshBuilder(logger *zap.Logger) *PolyMeshBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolyMeshBuilder{logger: logger}
}

func countPolyVerts(p []int, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[i] == MeshNullIdx {
			return i
		}
	}
	return nvp
}

func vertAt(verts []int, i int) pt  { return pt{verts[i*3+0], verts[i*3+2]} }
func cvertAt(verts []int, i int) pt { return pt{verts[i*4+0], verts[i*4+2]} }

func diagonalie(i, j, n int, cverts []int, indices []int) bool {
	d0 := cvertAt(cverts, indices[i]&0x0fffffff)
	d1 := cvertAt(cverts, indices[j]&0x0fffffff)
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := cvertAt(cverts, indices[k]&0x0fffffff)
		p1 := cvertAt(cverts, indices[k1]&0x0fffffff)
		if ptEqual(d0, p0) || ptEqual(d1, p0) || ptEqual(d0, p1) || ptEqual(d1, p1) {
			continue
		}
		if segIntersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

func diagonalieLoose(i, j, n int, cverts []int, indices []int) bool {
	d0 := cvertAt(cverts, indices[i]&0x0fffffff)
	d1 := cvertAt(cverts, indices[j]&0x0fffffff)
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := cvertAt(cverts, indices[k]&0x0fffffff)
		p1 := cvertAt(cverts, indices[k1]&0x0fffffff)
		if ptEqual(d0, p0) || ptEqual(d1, p0) || ptEqual(d0, p1) || ptEqual(d1, p1) {
			continue
		}
		if intersectProp(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

func inConeIdx(i, j, n int, cverts []int, indices []int) bool {
	pi := cvertAt(cverts, indices[i]&0x0fffffff)
	pj := cvertAt(cverts, indices[j]&0x0fffffff)
	pi1 := cvertAt(cverts, indices[next(i, n)]&0x0fffffff)
	pin1 := cvertAt(cverts, indices[prev(i, n)]&0x0fffffff)
	return inCone(pi, pj, pi1, pin1)
}

func inConeLooseIdx(i, j, n int, cverts []int, indices []int) bool {
	pi := cvertAt(cverts, indices[i]&0x0fffffff)
	pj := cvertAt(cverts, indices[j]&0x0fffffff)
	pi1 := cvertAt(cverts, indices[next(i, n)]&0x0fffffff)
	pin1 := cvertAt(cverts, indices[prev(i, n)]&0x0fffffff)
	if leftOn(pin1, pi, pi1) {
		return leftOn(pi, pj, pin1) && leftOn(pj, pi, pi1)
	}
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func diagonal(i, j, n int, cverts []int, indices []int) bool {
	return inConeIdx(i, j, n, cverts, indices) && diagonalie(i, j, n, cverts, indices)
}

func diagonalLoose(i, j, n int, cverts []int, indices []int) bool {
	return inConeLooseIdx(i, j, n, cverts, indices) && diagonalieLoose(i, j, n, cverts, indices)
}

// triangulate ear-clips the n-vertex contour ring (indices into cverts, a
// 4-stride contour vertex buffer) into triangles of indices, written to
// tris (3 ints per triangle). Returns the triangle count, negated if the
// ring was malformed enough to require the loosened fallback and still
// failed (mirrors the teacher's sign convention).
func triangulate(n int, cverts []int, indices []int, tris []int) int {
	ntris := 0
	dst := 0

	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, cverts, indices) {
			indices[i1] |= 0x80000000
		}
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&0x80000000 != 0 {
				p0 := cvertAt(cverts, indices[i]&0x0fffffff)
				p2 := cvertAt(cverts, indices[next(i1, n)]&0x0fffffff)
				dx := p2.x - p0.x
				dz := p2.z - p0.z
				length := dx*dx + dz*dz
				if minLen < 0 || length < minLen {
					minLen = length
					mini = i
				}
			}
		}

		if mini == -1 {
			minLen = -1
			mini = -1
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if diagonalLoose(i, i2, n, cverts, indices) {
					p0 := cvertAt(cverts, indices[i]&0x0fffffff)
					p2 := cvertAt(cverts, indices[next(i2, n)]&0x0fffffff)
					dx := p2.x - p0.x
					dz := p2.z - p0.z
					length := dx*dx + dz*dz
					if minLen < 0 || length < minLen {
						minLen = length
						mini = i
					}
				}
			}
			if mini == -1 {
				return -ntris
			}
		}

		i := mini
		i1 := next(i, n)
		i2 := next(i1, n)

		tris[dst] = indices[i] & 0x0fffffff
		dst++
		tris[dst] = indices[i1] & 0x0fffffff
		dst++
		tris[dst] = indices[i2] & 0x0fffffff
		dst++
		ntris++

		n--
		for k := i1; k < n; k++ {
			indices[k] = indices[k+1]
		}
		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)

		if diagonal(prev(i, n), i1, n, cverts, indices) {
			indices[i] |= 0x80000000
		} else {
			indices[i] &^= 0x80000000
		}
		if diagonal(i, next(i1, n), n, cverts, indices) {
			indices[i1] |= 0x80000000
		} else {
			indices[i1] &^= 0x80000000
		}
	}

	tris[dst] = indices[0] & 0x0fffffff
	dst++
	tris[dst] = indices[1] & 0x0fffffff
	dst++
	tris[dst] = indices[2] & 0x0fffffff
	dst++
	ntris++

	return ntris
}

func computeVertexHash(x, z int) int {
	h1, h2 := 0x8da6b343, 0xcb1ab31f
	n := h1*x + h2*z
	return n & (vertexBucketCount - 1)
}

func (pb *PolyMeshBuilder) addVertex(x, y, z int, verts []int, nv int) ([]int, int, int) {
	bucket := computeVertexHash(x, z)
	i := pb.firstVert[bucket]
	for i != -1 {
		if verts[i*3+0] == x && iabs(verts[i*3+1]-y) <= 2 && verts[i*3+2] == z {
			return verts, nv, i
		}
		i = pb.nextVert[i]
	}

	i = nv
	verts[i*3+0] = x
	verts[i*3+1] = y
	verts[i*3+2] = z
	pb.nextVert[i] = pb.firstVert[bucket]
	pb.firstVert[bucket] = i
	return verts, nv + 1, i
}

func getPolyMergeValue(pa, pb []int, verts []int, nvp int) (val, ea, eb int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)
	if na+nb-2 > nvp {
		return -1, -1, -1
	}

	ea, eb = -1, -1
	for i := 0; i < na; i++ {
		va0, va1 := pa[i], pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0, vb1 := pb[j], pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea, eb = i, j
				break
			}
		}
	}
	if ea == -1 || eb == -1 {
		return -1, -1, -1
	}

	va := pa[(ea+na-1)%na]
	vb := pa[ea]
	vc := pb[(eb+2)%nb]
	if !left(vertAt(verts, va), vertAt(verts, vb), vertAt(verts, vc)) {
		return -1, -1, -1
	}

	va = pb[(eb+nb-1)%nb]
	vb = pb[eb]
	vc = pa[(ea+2)%na]
	if !left(vertAt(verts, va), vertAt(verts, vb), vertAt(verts, vc)) {
		return -1, -1, -1
	}

	va = pa[ea]
	vb = pa[(ea+1)%na]
	dx := verts[va*3+0] - verts[vb*3+0]
	dz := verts[va*3+2] - verts[vb*3+2]
	return dx*dx + dz*dz, ea, eb
}

func mergePolyVerts(pa, pb []int, ea, eb int, nvp int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)
	tmp := make([]int, nvp)
	for i := range tmp {
		tmp[i] = MeshNullIdx
	}
	n := 0
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa, tmp)
}

func pushFront(v int, arr *[]int) { *arr = append([]int{v}, *arr...) }
func pushBack(v int, arr *[]int)  { *arr = append(*arr, v) }

// canRemoveVertex reports whether removing vertex rem would leave a
// retriangulatable hole: at least 3 remaining boundary edges, and no more
// than 2 open edges among the edges incident to rem (edges used by only one
// polygon), since more would mean two disjoint polygon fans meet only at rem.
func canRemoveVertex(mesh *PolyMesh, rem int) bool {
	nvp := mesh.MaxVertsPerPoly
	numTouchedVerts := 0
	numRemainingEdges := 0
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp]
		nv := countPolyVerts(p, nvp)
		numRemoved := 0
		for j := 0; j < nv; j++ {
			if p[j] == rem {
				numTouchedVerts++
				numRemoved++
			}
		}
		if numRemoved > 0 {
			numRemainingEdges += nv - (numRemoved + 1)
		}
	}
	if numRemainingEdges <= 2 {
		return false
	}

	type edgeCount struct{ a, b, n int }
	var edges []edgeCount
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp]
		nv := countPolyVerts(p, nvp)
		k := nv - 1
		for j := 0; j < nv; k, j = j, j+1 {
			if p[j] == rem || p[k] == rem {
				a, b := p[j], p[k]
				if b == rem {
					a, b = b, a
				}
				found := false
				for e := range edges {
					if edges[e].b == b {
						edges[e].n++
						found = true
					}
				}
				if !found {
					edges = append(edges, edgeCount{a: a, b: b, n: 1})
				}
			}
		}
	}

	numOpenEdges := 0
	for _, e := range edges {
		if e.n < 2 {
			numOpenEdges++
		}
	}
	return numOpenEdges <= 2
}

type holeEdge struct{ a, b, reg, area int }

// removeVertex deletes vertex rem, retriangulates the hole its removal
// leaves behind, and re-merges the fragments into the largest legal convex
// polygons. mesh.NVerts is decremented in place, same as the teacher's
// (absent) equivalent would need to behave so the caller's loop can walk
// remaining candidates without an index needing re-derivation.
func (pb *PolyMeshBuilder) removeVertex(mesh *PolyMesh, rem, maxPolys int, report *BuildReport) {
	nvp := mesh.MaxVertsPerPoly

	var edges []holeEdge
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp]
		nv := countPolyVerts(p, nvp)
		hasRem := false
		for j := 0; j < nv; j++ {
			if p[j] == rem {
				hasRem = true
				break
			}
		}
		if !hasRem {
			continue
		}
		k := nv - 1
		for j := 0; j < nv; k, j = j, j+1 {
			if p[j] != rem && p[k] != rem {
				edges = append(edges, holeEdge{a: p[k], b: p[j], reg: mesh.Regs[i], area: mesh.Areas[i]})
			}
		}

		last := mesh.NPolys - 1
		if i != last {
			copy(mesh.Polys[i*nvp*2:i*nvp*2+nvp*2], mesh.Polys[last*nvp*2:last*nvp*2+nvp*2])
			mesh.Regs[i] = mesh.Regs[last]
			mesh.Areas[i] = mesh.Areas[last]
		}
		mesh.NPolys--
		i--
	}

	for i := rem; i < mesh.NVerts-1; i++ {
		mesh.Verts[i*3+0] = mesh.Verts[(i+1)*3+0]
		mesh.Verts[i*3+1] = mesh.Verts[(i+1)*3+1]
		mesh.Verts[i*3+2] = mesh.Verts[(i+1)*3+2]
	}
	mesh.NVerts--

	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp]
		nv := countPolyVerts(p, nvp)
		for j := 0; j < nv; j++ {
			if p[j] > rem {
				p[j]--
			}
		}
	}
	for i := range edges {
		if edges[i].a > rem {
			edges[i].a--
		}
		if edges[i].b > rem {
			edges[i].b--
		}
	}

	if len(edges) == 0 {
		return
	}

	var hole, hreg, harea []int
	pushBack(edges[0].a, &hole)
	pushBack(edges[0].reg, &hreg)
	pushBack(edges[0].area, &harea)
	edges = edges[1:]

	for len(edges) > 0 {
		matched := false
		for i := 0; i < len(edges); i++ {
			e := edges[i]
			added := false
			if hole[0] == e.b {
				pushFront(e.a, &hole)
				pushFront(e.reg, &hreg)
				pushFront(e.area, &harea)
				added = true
			} else if hole[len(hole)-1] == e.a {
				pushBack(e.b, &hole)
				pushBack(e.reg, &hreg)
				pushBack(e.area, &harea)
				added = true
			}
			if added {
				edges[i] = edges[len(edges)-1]
				edges = edges[:len(edges)-1]
				matched = true
				i--
			}
		}
		if !matched {
			break
		}
	}

	nhole := len(hole)
	tverts := make([]int, nhole*4)
	thole := make([]int, nhole)
	for i := 0; i < nhole; i++ {
		tverts[i*4+0] = mesh.Verts[hole[i]*3+0]
		tverts[i*4+1] = mesh.Verts[hole[i]*3+1]
		tverts[i*4+2] = mesh.Verts[hole[i]*3+2]
		thole[i] = i
	}

	tris := make([]int, nhole*3)
	ntris := triangulate(nhole, tverts, thole, tris)
	if ntris < 0 {
		if pb.logger != nil {
			pb.logger.Warn("removeVertex: bad hole triangulation", zap.Int("vertex", rem))
		}
		if report != nil {
			report.BadTriangulation++
		}
		ntris = -ntris
	}
	if ntris == 0 {
		return
	}

	polys := make([]int, ntris*nvp)
	for i := range polys {
		polys[i] = MeshNullIdx
	}
	pregs := make([]int, ntris)
	pareas := make([]int, ntris)
	npolys := 0
	for j := 0; j < ntris; j++ {
		t := tris[j*3 : j*3+3]
		if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
			p := polys[npolys*nvp : npolys*nvp+nvp]
			p[0] = hole[t[0]]
			p[1] = hole[t[1]]
			p[2] = hole[t[2]]
			if hreg[t[0]] != hreg[t[1]] || hreg[t[1]] != hreg[t[2]] {
				pregs[npolys] = multipleRegs
			} else {
				pregs[npolys] = hreg[t[0]]
			}
			pareas[npolys] = harea[t[0]]
			npolys++
		}
	}
	if npolys == 0 {
		return
	}

	if nvp > 3 {
		for {
			bestMergeVal, bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0, 0
			for j := 0; j < npolys-1; j++ {
				pj := polys[j*nvp : j*nvp+nvp]
				for k := j + 1; k < npolys; k++ {
					pk := polys[k*nvp : k*nvp+nvp]
					v, ea, eb := getPolyMergeValue(pj, pk, mesh.Verts, nvp)
					if v > bestMergeVal {
						bestMergeVal, bestPa, bestPb, bestEa, bestEb = v, j, k, ea, eb
					}
				}
			}
			if bestMergeVal <= 0 {
				break
			}
			pa := polys[bestPa*nvp : bestPa*nvp+nvp]
			pbv := polys[bestPb*nvp : bestPb*nvp+nvp]
			mergePolyVerts(pa, pbv, bestEa, bestEb, nvp)
			if pregs[bestPa] != pregs[bestPb] {
				pregs[bestPa] = multipleRegs
			}
			lastIdx := npolys - 1
			if bestPb != lastIdx {
				copy(polys[bestPb*nvp:bestPb*nvp+nvp], polys[lastIdx*nvp:lastIdx*nvp+nvp])
			}
			pregs[bestPb] = pregs[lastIdx]
			pareas[bestPb] = pareas[lastIdx]
			npolys--
		}
	}

	for i := 0; i < npolys; i++ {
		if mesh.NPolys >= maxPolys {
			if pb.logger != nil {
				pb.logger.Warn("removeVertex: polygon limit reached", zap.Int("maxPolys", maxPolys))
			}
			if report != nil {
				report.OverflowWarning = true
			}
			return
		}
		base := mesh.NPolys * nvp * 2
		for k := 0; k < nvp*2; k++ {
			mesh.Polys[base+k] = MeshNullIdx
		}
		copy(mesh.Polys[base:base+nvp], polys[i*nvp:i*nvp+nvp])
		mesh.Regs[mesh.NPolys] = pregs[i]
		mesh.Areas[mesh.NPolys] = pareas[i]
		mesh.NPolys++
	}
	if report != nil {
		report.RemovedVertices++
	}
	return
}

type edge struct {
	vert     [2]int
	polyEdge [2]int
	poly     [2]int
}

// buildMeshAdjacency resolves, for every polygon edge, the neighbouring
// polygon sharing it (or leaves MeshNullIdx if the edge is a true
// boundary). Adapted from Eric Lengyel's edge-list technique, as ported in
// the teacher's buildMeshAdjacency.
func buildMeshAdjacency(polys []int, npolys, nverts, nvp int) {
	maxEdgeCount := npolys * nvp
	firstEdge := make([]int, nverts)
	for i := range firstEdge {
		firstEdge[i] = MeshNullIdx
	}
	nextEdge := make([]int, maxEdgeCount)
	edges := make([]edge, 0, maxEdgeCount)

	for i := 0; i < npolys; i++ {
		t := polys[i*nvp*2 : i*nvp*2+nvp]
		for j := 0; j < nvp; j++ {
			if t[j] == MeshNullIdx {
				break
			}
			v0 := t[j]
			v1 := t[0]
			if j+1 < nvp && t[j+1] != MeshNullIdx {
				v1 = t[j+1]
			}
			if v0 < v1 {
				e := edge{vert: [2]int{v0, v1}, poly: [2]int{i, i}, polyEdge: [2]int{j, 0}}
				nextEdge[len(edges)] = firstEdge[v0]
				firstEdge[v0] = len(edges)
				edges = append(edges, e)
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*nvp*2 : i*nvp*2+nvp]
		for j := 0; j < nvp; j++ {
			if t[j] == MeshNullIdx {
				break
			}
			v0 := t[j]
			v1 := t[0]
			if j+1 < nvp && t[j+1] != MeshNullIdx {
				v1 = t[j+1]
			}
			if v0 > v1 {
				for e := firstEdge[v1]; e != MeshNullIdx; e = nextEdge[e] {
					edg := &edges[e]
					if edg.vert[1] == v0 && edg.poly[0] == edg.poly[1] {
						edg.poly[1] = i
						edg.polyEdge[1] = j
						break
					}
				}
			}
		}
	}

	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			p0 := polys[e.poly[0]*nvp*2 : e.poly[0]*nvp*2+nvp*2]
			p1 := polys[e.poly[1]*nvp*2 : e.poly[1]*nvp*2+nvp*2]
			p0[nvp+e.polyEdge[0]] = e.poly[1]
			p1[nvp+e.polyEdge[1]] = e.poly[0]
		}
	}
}

// BuildPolyMesh triangulates and merges every contour in cset into a single
// PolyMesh, removes heightfield-border vertices, and resolves adjacency
// (including portal-edge tagging on tile borders, when cset.BorderSize > 0).
func (pb *PolyMeshBuilder) BuildPolyMesh(cset *ContourSet, cfg BuildConfig, report *BuildReport) (*PolyMesh, error) {
	nvp := cfg.MaxVertsPerPoly

	maxVertices, maxTris, maxVertsPerCont := 0, 0, 0
	for _, cont := range cset.Conts {
		if cont.NVerts < 3 {
			continue
		}
		maxVertices += cont.NVerts
		maxTris += cont.NVerts - 2
		maxVertsPerCont = imax(maxVertsPerCont, cont.NVerts)
	}
	if maxVertices == 0 {
		return &PolyMesh{MaxVertsPerPoly: nvp, Cs: cset.Cs, Ch: cset.Ch, BorderSize: cset.BorderSize}, nil
	}
	if maxVertices >= 0xfffe {
		return nil, fmt.Errorf("recast: contour vertex budget %d exceeds 16-bit index space (0xfffe)", maxVertices)
	}

	mesh := &PolyMesh{
		Verts:           make([]int, maxVertices*3),
		Polys:           make([]int, maxTris*nvp*2),
		Regs:            make([]int, maxTris),
		Areas:           make([]int, maxTris),
		MaxVertsPerPoly: nvp,
		BorderSize:      cset.BorderSize,
		Cs:              cset.Cs,
		Ch:              cset.Ch,
	}
	for i := range mesh.Polys {
		mesh.Polys[i] = MeshNullIdx
	}

	if cap(pb.firstVert) < vertexBucketCount {
		pb.firstVert = make([]int, vertexBucketCount)
	} else {
		pb.firstVert = pb.firstVert[:vertexBucketCount]
	}
	for i := range pb.firstVert {
		pb.firstVert[i] = -1
	}
	if cap(pb.nextVert) < maxVertices {
		pb.nextVert = make([]int, maxVertices)
	} else {
		pb.nextVert = pb.nextVert[:maxVertices]
	}

	vflags := make([]bool, maxVertices)
	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]int, (maxVertsPerCont+1)*nvp)

	for _, cont := range cset.Conts {
		if cont.NVerts < 3 {
			continue
		}

		for j := 0; j < cont.NVerts; j++ {
			indices[j] = j
		}

		ntris := triangulate(cont.NVerts, cont.Verts, indices[:cont.NVerts], tris)
		if ntris <= 0 {
			if pb.logger != nil {
				pb.logger.Warn("bad contour triangulation", zap.Int("region", cont.Reg))
			}
			if report != nil {
				report.BadTriangulation++
			}
			ntris = -ntris
		}

		for j := 0; j < cont.NVerts; j++ {
			v := cont.Verts[j*4 : j*4+4]
			var idx int
			mesh.Verts, mesh.NVerts, idx = pb.addVertex(v[0], v[1], v[2], mesh.Verts, mesh.NVerts)
			indices[j] = idx
			if v[3]&BorderVertex != 0 {
				vflags[idx] = true
			}
		}

		npolys := 0
		for i := range polys {
			polys[i] = MeshNullIdx
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3 : j*3+3]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				p := polys[npolys*nvp : npolys*nvp+nvp]
				p[0] = indices[t[0]]
				p[1] = indices[t[1]]
				p[2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		if nvp > 3 {
			for {
				bestMergeVal, bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0, 0
				for j := 0; j < npolys-1; j++ {
					pj := polys[j*nvp : j*nvp+nvp]
					for k := j + 1; k < npolys; k++ {
						pk := polys[k*nvp : k*nvp+nvp]
						v, ea, eb := getPolyMergeValue(pj, pk, mesh.Verts, nvp)
						if v > bestMergeVal {
							bestMergeVal, bestPa, bestPb, bestEa, bestEb = v, j, k, ea, eb
						}
					}
				}
				if bestMergeVal <= 0 {
					break
				}
				pa := polys[bestPa*nvp : bestPa*nvp+nvp]
				pbv := polys[bestPb*nvp : bestPb*nvp+nvp]
				mergePolyVerts(pa, pbv, bestEa, bestEb, nvp)
				lastIdx := npolys - 1
				if bestPb != lastIdx {
					copy(polys[bestPb*nvp:bestPb*nvp+nvp], polys[lastIdx*nvp:lastIdx*nvp+nvp])
				}
				npolys--
			}
		}

		for j := 0; j < npolys; j++ {
			if mesh.NPolys >= maxTris {
				return nil, fmt.Errorf("recast: polygon count exceeds allocation (%d)", maxTris)
			}
			base := mesh.NPolys * nvp * 2
			copy(mesh.Polys[base:base+nvp], polys[j*nvp:j*nvp+nvp])
			mesh.Regs[mesh.NPolys] = cont.Reg
			mesh.Areas[mesh.NPolys] = cont.Area
			mesh.NPolys++
		}
	}

	for i := 0; i < mesh.NVerts; i++ {
		if !vflags[i] {
			continue
		}
		if !canRemoveVertex(mesh, i) {
			continue
		}
		pb.removeVertex(mesh, i, maxTris, report)
		for j := i; j < len(vflags)-1; j++ {
			vflags[j] = vflags[j+1]
		}
		i--
	}

	buildMeshAdjacency(mesh.Polys, mesh.NPolys, mesh.NVerts, nvp)

	if mesh.BorderSize > 0 {
		w, h := cset.Width, cset.Height
		for i := 0; i < mesh.NPolys; i++ {
			p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp*2]
			for j := 0; j < nvp; j++ {
				if p[j] == MeshNullIdx {
					break
				}
				if p[nvp+j] != MeshNullIdx {
					continue
				}
				nj := j + 1
				if nj >= nvp || p[nj] == MeshNullIdx {
					nj = 0
				}
				va := mesh.Verts[p[j]*3 : p[j]*3+3]
				vb := mesh.Verts[p[nj]*3 : p[nj]*3+3]
				switch {
				case va[0] == 0 && vb[0] == 0:
					p[nvp+j] = 0x8000 | 0
				case va[2] == h && vb[2] == h:
					p[nvp+j] = 0x8000 | 1
				case va[0] == w && vb[0] == w:
					p[nvp+j] = 0x8000 | 2
				case va[2] == 0 && vb[2] == 0:
					p[nvp+j] = 0x8000 | 3
				}
			}
		}
	}

	if report != nil {
		report.PolygonCount = mesh.NPolys
	}
	if mesh.NVerts > 0xffff {
		if pb.logger != nil {
			pb.logger.Warn("mesh vertex count exceeds 16-bit index range", zap.Int("nverts", mesh.NVerts))
		}
		if report != nil {
			report.OverflowWarning = true
		}
	}

	return mesh, nil
}
