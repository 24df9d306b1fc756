package recast

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ContourBuilder traces the boundary of every region in a CompactHeightfield,
// simplifies it to a minimal vertex set within a tolerance, and splices any
// holes into their enclosing outline. Grounded on recast_contour.go in the
// teacher (gorustyt-gonavmesh).
type ContourBuilder struct {
	logger *zap.Logger

	raw []int // scratch raw walk buffer, 4 ints/vertex
}

// NewContourBuilder constructs a ContourBuilder. A nil logger is replaced
// with a no-op logger.
func NewContourBuilder(logger *zap.Logger) *ContourBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContourBuilder{logger: logger}
}

func getCornerHeight(x, z, i, dir int, chf *CompactHeightfield, isBorderVertex *bool) int {
	s := &chf.Spans[i]
	ch := s.Y
	dirp := (dir + 1) & 0x3

	var regs [4]int
	regs[0] = chf.Spans[i].Reg | (chf.Areas[i] << 16)

	if getCon(s, dir) != NotConnected {
		ax := x + getDirOffsetX(dir)
		az := z + getDirOffsetZ(dir)
		ai := chf.Cells[ax+az*chf.Width].Index + getCon(s, dir)
		as := &chf.Spans[ai]
		ch = imax(ch, as.Y)
		regs[1] = chf.Spans[ai].Reg | (chf.Areas[ai] << 16)
		if getCon(as, dirp) != NotConnected {
			ax2 := ax + getDirOffsetX(dirp)
			az2 := az + getDirOffsetZ(dirp)
			ai2 := chf.Cells[ax2+az2*chf.Width].Index + getCon(as, dirp)
			as2 := &chf.Spans[ai2]
			ch = imax(ch, as2.Y)
			regs[2] = chf.Spans[ai2].Reg | (chf.Areas[ai2] << 16)
		}
	}
	if getCon(s, dirp) != NotConnected {
		ax := x + getDirOffsetX(dirp)
		az := z + getDirOffsetZ(dirp)
		ai := chf.Cells[ax+az*chf.Width].Index + getCon(s, dirp)
		as := &chf.Spans[ai]
		ch = imax(ch, as.Y)
		regs[3] = chf.Spans[ai].Reg | (chf.Areas[ai] << 16)
		if getCon(as, dir) != NotConnected {
			ax2 := ax + getDirOffsetX(dir)
			az2 := az + getDirOffsetZ(dir)
			ai2 := chf.Cells[ax2+az2*chf.Width].Index + getCon(as, dir)
			as2 := &chf.Spans[ai2]
			ch = imax(ch, as2.Y)
			regs[2] = chf.Spans[ai2].Reg | (chf.Areas[ai2] << 16)
		}
	}

	for j := 0; j < 4; j++ {
		a, b, c, d := j, (j+1)&0x3, (j+2)&0x3, (j+3)&0x3
		twoSameExts := (regs[a]&regs[b]&BorderReg) != 0 && regs[a] == regs[b]
		twoInts := ((regs[c] | regs[d]) & BorderReg) == 0
		intsSameArea := (regs[c] >> 16) == (regs[d] >> 16)
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			*isBorderVertex = true
			break
		}
	}
	return ch
}

func walkContour(x, z, i int, chf *CompactHeightfield, flags []int, out []int) []int {
	dir := 0
	for (flags[i] & (1 << uint(dir))) == 0 {
		dir++
	}
	startDir, starti := dir, i
	area := chf.Areas[i]

	for iter := 0; iter < maxContourWalkSteps; iter++ {
		if flags[i]&(1<<uint(dir)) != 0 {
			isBorderVertex := false
			isAreaBorder := false
			px := x
			py := getCornerHeight(x, z, i, dir, chf, &isBorderVertex)
			pz := z
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}
			r := 0
			s := &chf.Spans[i]
			if getCon(s, dir) != NotConnected {
				ax := x + getDirOffsetX(dir)
				az := z + getDirOffsetZ(dir)
				ai := chf.Cells[ax+az*chf.Width].Index + getCon(s, dir)
				r = chf.Spans[ai].Reg
				if area != chf.Areas[ai] {
					isAreaBorder = true
				}
			}
			if isBorderVertex {
				r |= BorderVertex
			}
			if isAreaBorder {
				r |= AreaBorder
			}
			out = append(out, px, py, pz, r)

			flags[i] &^= 1 << uint(dir)
			dir = (dir + 1) & 0x3 // rotate CW
		} else {
			ni := -1
			nx := x + getDirOffsetX(dir)
			nz := z + getDirOffsetZ(dir)
			s := &chf.Spans[i]
			if getCon(s, dir) != NotConnected {
				nc := chf.Cells[nx+nz*chf.Width]
				ni = nc.Index + getCon(s, dir)
			}
			if ni == -1 {
				return out
			}
			x, z, i = nx, nz, ni
			dir = (dir + 3) & 0x3 // rotate CCW
		}

		if starti == i && startDir == dir {
			break
		}
	}
	return out
}

func distancePtSeg(x, z, px, pz, qx, qz int) float64 {
	pqx := float64(qx - px)
	pqz := float64(qz - pz)
	dx := float64(x - px)
	dz := float64(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = float64(px) + t*pqx - float64(x)
	dz = float64(pz) + t*pqz - float64(z)
	return dx*dx + dz*dz
}

// insertVertex splices a new (x,y,z,flag) quadruple into buf right after
// vertex index idx, preserving the vertices that follow it.
func insertVertex(buf []int, idx, x, y, z, flag int) []int {
	n := len(buf) / 4
	buf = append(buf, 0, 0, 0, 0)
	for j := n; j > idx+1; j-- {
		copy(buf[j*4:j*4+4], buf[(j-1)*4:(j-1)*4+4])
	}
	buf[(idx+1)*4+0] = x
	buf[(idx+1)*4+1] = y
	buf[(idx+1)*4+2] = z
	buf[(idx+1)*4+3] = flag
	return buf
}

// simplifyContour reduces the raw walk `points` to a minimal vertex set:
// mandatory vertices at every region/area-border change, then a
// lexicographic Douglas-Peucker pass bounded by maxError, then optional
// long-edge tessellation. Grounded on simplifyContour in the teacher; the
// lexicographic traversal order and lowest-leftmost-vertex bootstrap are
// load-bearing for determinism (SPEC_FULL.md §9).
func simplifyContour(points []int, maxError float64, maxEdgeLen, buildFlags int) []int {
	var simplified []int

	hasConnections := false
	for i := 0; i < len(points); i += 4 {
		if points[i+3]&ContourRegMask != 0 {
			hasConnections = true
			break
		}
	}

	if hasConnections {
		ni := len(points) / 4
		for i := 0; i < ni; i++ {
			ii := (i + 1) % ni
			differentRegs := (points[i*4+3] & ContourRegMask) != (points[ii*4+3] & ContourRegMask)
			areaBorders := (points[i*4+3] & AreaBorder) != (points[ii*4+3] & AreaBorder)
			if differentRegs || areaBorders {
				simplified = append(simplified, points[i*4+0], points[i*4+1], points[i*4+2], i)
			}
		}
	}

	if len(simplified) == 0 {
		llx, lly, llz, lli := points[0], points[1], points[2], 0
		urx, ury, urz, uri := points[0], points[1], points[2], 0
		for i := 0; i < len(points); i += 4 {
			x, y, z := points[i+0], points[i+1], points[i+2]
			if x < llx || (x == llx && z < llz) {
				llx, lly, llz, lli = x, y, z, i/4
			}
			if x > urx || (x == urx && z > urz) {
				urx, ury, urz, uri = x, y, z, i/4
			}
		}
		simplified = append(simplified, llx, lly, llz, lli, urx, ury, urz, uri)
	}

	pn := len(points) / 4
	for i := 0; i < len(simplified)/4; {
		ii := (i + 1) % (len(simplified) / 4)

		ax, az, ai := simplified[i*4+0], simplified[i*4+2], simplified[i*4+3]
		bx, bz, bi := simplified[ii*4+0], simplified[ii*4+2], simplified[ii*4+3]

		maxd := 0.0
		maxi := -1
		var ci, cinc, endi int

		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}

		if (points[ci*4+3]&ContourRegMask) == 0 || (points[ci*4+3]&AreaBorder) != 0 {
			for ci != endi {
				d := distancePtSeg(points[ci*4+0], points[ci*4+2], ax, az, bx, bz)
				if d > maxd {
					maxd = d
					maxi = ci
				}
				ci = (ci + cinc) % pn
			}
		}

		if maxi != -1 && maxd > maxError*maxError {
			simplified = insertVertex(simplified, i, points[maxi*4+0], points[maxi*4+1], points[maxi*4+2], maxi)
		} else {
			i++
		}
	}

	if maxEdgeLen > 0 && (buildFlags&(TessWallEdges|TessAreaEdges)) != 0 {
		for i := 0; i < len(simplified)/4; {
			ii := (i + 1) % (len(simplified) / 4)

			ax, az, ai := simplified[i*4+0], simplified[i*4+2], simplified[i*4+3]
			bx, bz, bi := simplified[ii*4+0], simplified[ii*4+2], simplified[ii*4+3]

			maxi := -1
			ci := (ai + 1) % pn

			tess := false
			if (buildFlags&TessWallEdges) != 0 && (points[ci*4+3]&ContourRegMask) == 0 {
				tess = true
			}
			if (buildFlags&TessAreaEdges) != 0 && (points[ci*4+3]&AreaBorder) != 0 {
				tess = true
			}

			if tess {
				dx := bx - ax
				dz := bz - az
				if dx*dx+dz*dz > maxEdgeLen*maxEdgeLen {
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxi = (ai + n/2) % pn
						} else {
							maxi = (ai + (n+1)/2) % pn
						}
					}
				}
			}

			if maxi != -1 {
				simplified = insertVertex(simplified, i, points[maxi*4+0], points[maxi*4+1], points[maxi*4+2], maxi)
			} else {
				i++
			}
		}
	}

	for i := 0; i < len(simplified)/4; i++ {
		ai := (simplified[i*4+3] + 1) % pn
		bi := simplified[i*4+3]
		v := (points[ai*4+3] & (ContourRegMask | AreaBorder)) | (points[bi*4+3] & BorderVertex)
		simplified[i*4+3] = v
	}

	return simplified
}

func removeDegenerateSegments(simplified []int) []int {
	npts := len(simplified) / 4
	for i := 0; i < npts; i++ {
		ni := next(i, npts)
		a := pt{simplified[i*4+0], simplified[i*4+2]}
		b := pt{simplified[ni*4+0], simplified[ni*4+2]}
		if ptEqual(a, b) {
			copy(simplified[i*4:], simplified[(i+1)*4:])
			simplified = simplified[:len(simplified)-4]
			npts--
			i--
		}
	}
	return simplified
}

func calcAreaOfPolygon2D(verts []int, nverts int) int {
	area := 0
	j := nverts - 1
	for i := 0; i < nverts; i++ {
		vi := verts[i*4 : i*4+3]
		vj := verts[j*4 : j*4+3]
		area += vi[0]*vj[2] - vj[0]*vi[2]
		j = i
	}
	return (area + 1) / 2
}

// mergeContours splices hole ring cb into outline ring ca, starting at
// vertex ia on ca and ib on cb, producing a single ring that visits both
// join vertices twice (the duplicated seam is required by downstream
// triangulation, per SPEC_FULL.md §9).
func mergeContours(ca, cb *Contour, ia, ib int) {
	maxVerts := ca.NVerts + cb.NVerts + 2
	verts := make([]int, maxVerts*4)
	nv := 0

	for i := 0; i <= ca.NVerts; i++ {
		src := ca.Verts[((ia+i)%ca.NVerts)*4 : ((ia+i)%ca.NVerts)*4+4]
		copy(verts[nv*4:nv*4+4], src)
		nv++
	}
	for i := 0; i <= cb.NVerts; i++ {
		src := cb.Verts[((ib+i)%cb.NVerts)*4 : ((ib+i)%cb.NVerts)*4+4]
		copy(verts[nv*4:nv*4+4], src)
		nv++
	}

	ca.Verts = verts[:nv*4]
	ca.NVerts = nv
	cb.Verts = nil
	cb.NVerts = 0
}

type contourHole struct {
	contour         *Contour
	minx, minz      int
	leftmost        int
}

type contourRegion struct {
	outline *Contour
	holes   []*contourHole
}

type potentialDiagonal struct {
	vert int
	dist int
}

func findLeftMostVertex(c *Contour) (minx, minz, leftmost int) {
	minx, minz = c.Verts[0], c.Verts[2]
	for i := 1; i < c.NVerts; i++ {
		x, z := c.Verts[i*4+0], c.Verts[i*4+2]
		if x < minx || (x == minx && z < minz) {
			minx, minz, leftmost = x, z, i
		}
	}
	return
}

func contourInCone(i, n int, verts []int, corner []int) bool {
	pi := pt{verts[i*4+0], verts[i*4+2]}
	pi1 := pt{verts[next(i, n)*4+0], verts[next(i, n)*4+2]}
	pin1 := pt{verts[prev(i, n)*4+0], verts[prev(i, n)*4+2]}
	pj := pt{corner[0], corner[2]}
	return inCone(pi, pj, pi1, pin1)
}

// intersectSegContour reports whether segment (d0,d1) crosses any edge of
// the polygon `verts`, ignoring edges incident to vertex skip.
func intersectSegContour(d0, d1 []int, skip, n int, verts []int) bool {
	a := pt{d0[0], d0[2]}
	b := pt{d1[0], d1[2]}
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if skip == k || skip == k1 {
			continue
		}
		p0 := pt{verts[k*4+0], verts[k*4+2]}
		p1 := pt{verts[k1*4+0], verts[k1*4+2]}
		if ptEqual(a, p0) || ptEqual(b, p0) || ptEqual(a, p1) || ptEqual(b, p1) {
			continue
		}
		if segIntersect(a, b, p0, p1) {
			return true
		}
	}
	return false
}

func compareHoles(a, b *contourHole) bool {
	if a.minx == b.minx {
		return a.minz < b.minz
	}
	return a.minx < b.minx
}

// mergeRegionHoles sorts a region's holes leftmost-first and, for each hole
// in turn, finds the shortest non-intersecting diagonal from some outline
// vertex into the hole's current candidate vertex, splicing it in via
// mergeContours. Grounded on mergeRegionHoles in the teacher, with two
// transcription bugs present there corrected: the inner intersection test
// must skip edges incident to the *candidate* outline vertex (diags[j].vert,
// not the outer hole-loop index i), and mergeContours must copy contour B's
// own vertex ring (cb.Verts), not contour A's.
func (cb *ContourBuilder) mergeRegionHoles(region *contourRegion, report *BuildReport) {
	for _, h := range region.holes {
		h.minx, h.minz, h.leftmost = findLeftMostVertex(h.contour)
	}
	sort.SliceStable(region.holes, func(i, j int) bool {
		return compareHoles(region.holes[i], region.holes[j])
	})

	outline := region.outline

	for hi, h := range region.holes {
		hole := h.contour
		index := -1
		bestVertex := h.leftmost

		for iter := 0; iter < hole.NVerts; iter++ {
			corner := hole.Verts[bestVertex*4 : bestVertex*4+4]

			var diags []potentialDiagonal
			for j := 0; j < outline.NVerts; j++ {
				if contourInCone(j, outline.NVerts, outline.Verts, corner) {
					dx := outline.Verts[j*4+0] - corner[0]
					dz := outline.Verts[j*4+2] - corner[2]
					diags = append(diags, potentialDiagonal{vert: j, dist: dx*dx + dz*dz})
				}
			}
			sort.SliceStable(diags, func(i, j int) bool { return diags[i].dist < diags[j].dist })

			index = -1
			for _, d := range diags {
				pvert := outline.Verts[d.vert*4 : d.vert*4+4]
				crosses := intersectSegContour(pvert, corner, d.vert, outline.NVerts, outline.Verts)
				for k := hi; k < len(region.holes) && !crosses; k++ {
					if intersectSegContour(pvert, corner, -1, region.holes[k].contour.NVerts, region.holes[k].contour.Verts) {
						crosses = true
					}
				}
				if !crosses {
					index = d.vert
					break
				}
			}
			if index != -1 {
				break
			}
			bestVertex = (bestVertex + 1) % hole.NVerts
		}

		if index == -1 {
			if cb.logger != nil {
				cb.logger.Warn("abandoned unreachable hole", zap.Int("region", hole.Reg))
			}
			if report != nil {
				report.AbandonedHoles++
			}
			continue
		}
		mergeContours(region.outline, hole, index, bestVertex)
	}
}

// BuildContours traces, simplifies, and hole-merges the boundary of every
// surviving region in chf. Returns an empty ContourSet (not nil) if the
// heightfield has no walkable regions. A region with holes but no outline
// is a malformed input (the outline must have self-overlapped away under
// the current simplification settings) and is a fatal error, not a
// recoverable one: there is nothing to splice the holes into.
func (cb *ContourBuilder) BuildContours(chf *CompactHeightfield, cfg BuildConfig, report *BuildReport) (*ContourSet, error) {
	w, h := chf.Width, chf.Height
	borderSize := chf.BorderSize

	cset := &ContourSet{
		BMin:       [3]float64{float64(chf.BMin.X()), float64(chf.BMin.Y()), float64(chf.BMin.Z())},
		BMax:       [3]float64{float64(chf.BMax.X()), float64(chf.BMax.Y()), float64(chf.BMax.Z())},
		Cs:         chf.Cs,
		Ch:         chf.Ch,
		Width:      chf.Width - chf.BorderSize*2,
		Height:     chf.Height - chf.BorderSize*2,
		BorderSize: chf.BorderSize,
		MaxError:   cfg.MaxSimplificationError,
	}
	if borderSize > 0 {
		pad := float64(borderSize) * chf.Cs
		cset.BMin[0] += pad
		cset.BMin[2] += pad
		cset.BMax[0] -= pad
		cset.BMax[2] -= pad
	}

	flags := make([]int, chf.SpanCount)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if s.Reg == 0 || s.Reg&BorderReg != 0 {
					flags[i] = 0
					continue
				}
				res := 0
				for dir := 0; dir < 4; dir++ {
					r := 0
					if getCon(s, dir) != NotConnected {
						ax := x + getDirOffsetX(dir)
						az := z + getDirOffsetZ(dir)
						ai := chf.Cells[ax+az*w].Index + getCon(s, dir)
						r = chf.Spans[ai].Reg
					}
					if r == s.Reg {
						res |= 1 << uint(dir)
					}
				}
				flags[i] = res ^ 0xf
			}
		}
	}

	buildFlags := cfg.tessFlags()

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if flags[i] == 0 || flags[i] == 0xf {
					flags[i] = 0
					continue
				}
				reg := chf.Spans[i].Reg
				if reg == 0 || reg&BorderReg != 0 {
					continue
				}
				area := chf.Areas[i]

				cb.raw = walkContour(x, z, i, chf, flags, cb.raw[:0])
				simp := simplifyContour(cb.raw, cfg.MaxSimplificationError, cfg.MaxEdgeLen, buildFlags)
				simp = removeDegenerateSegments(simp)

				if len(simp)/4 < 3 {
					continue
				}

				cont := &Contour{
					NVerts: len(simp) / 4,
					Verts:  append([]int(nil), simp...),
					Reg:    reg,
					Area:   area,
				}
				if borderSize > 0 {
					for j := 0; j < cont.NVerts; j++ {
						cont.Verts[j*4+0] -= borderSize
						cont.Verts[j*4+2] -= borderSize
					}
				}
				cont.NRVerts = len(cb.raw) / 4
				cont.RVerts = append([]int(nil), cb.raw...)
				if borderSize > 0 {
					for j := 0; j < cont.NRVerts; j++ {
						cont.RVerts[j*4+0] -= borderSize
						cont.RVerts[j*4+2] -= borderSize
					}
				}
				cset.Conts = append(cset.Conts, cont)
			}
		}
	}

	if report != nil {
		report.ContourCount = len(cset.Conts)
	}

	if len(cset.Conts) > 0 {
		winding := make([]int, len(cset.Conts))
		nholes := 0
		for i, cont := range cset.Conts {
			winding[i] = 1
			if calcAreaOfPolygon2D(cont.Verts, cont.NVerts) < 0 {
				winding[i] = -1
				nholes++
			}
		}

		if nholes > 0 {
			nregions := chf.MaxRegions + 1
			regions := make([]*contourRegion, nregions)
			for i := range regions {
				regions[i] = &contourRegion{}
			}
			for i, cont := range cset.Conts {
				if winding[i] > 0 {
					regions[cont.Reg].outline = cont
				}
			}
			for i, cont := range cset.Conts {
				if winding[i] < 0 {
					regions[cont.Reg].holes = append(regions[cont.Reg].holes, &contourHole{contour: cont})
				}
			}
			for i := range regions {
				reg := regions[i]
				if len(reg.holes) == 0 {
					continue
				}
				if reg.outline == nil {
					if cb.logger != nil {
						cb.logger.Error("region has holes but no outline", zap.Int("region", i), zap.Int("holes", len(reg.holes)))
					}
					return nil, fmt.Errorf("recast: region %d has %d hole contour(s) but no outline contour", i, len(reg.holes))
				}
				cb.mergeRegionHoles(reg, report)
			}

			// Drop the hole contours that were spliced into their outline.
			kept := cset.Conts[:0]
			for _, cont := range cset.Conts {
				if cont.NVerts > 0 {
					kept = append(kept, cont)
				}
			}
			cset.Conts = kept
		}
	}

	return cset, nil
}
