package recast

import "go.uber.org/zap"

// RegionBuilder assigns every walkable span a region id via monotone-sweep
// row labelling, then merges same-row sweep regions into non-overlapping
// layers and filters layers too small to matter. Grounded on
// recast_region.go's rcBuildLayerRegions/mergeAndFilterLayerRegions in the
// teacher (gorustyt-gonavmesh).
type RegionBuilder struct {
	logger *zap.Logger

	// scratch, grown monotonically across Build calls (SPEC_FULL.md §5).
	srcReg []int
	sweeps []sweepSpan
	prev   []int
}

// NewRegionBuilder constructs a RegionBuilder. A nil logger is replaced
// with a no-op logger.
func NewRegionBuilder(logger *zap.Logger) *RegionBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionBuilder{logger: logger}
}

type sweepSpan struct {
	id  int // final region id assigned to this row-sweep run
	ns  int // number of spans in this run connected to nei
	nei int // -y neighbour region, or 0/NullNei
}

func paintRectRegion(minx, maxx, minz, maxz, regID int, chf *CompactHeightfield, srcReg []int) {
	w := chf.Width
	for z := minz; z < maxz; z++ {
		for x := minx; x < maxx; x++ {
			c := chf.Cells[x+z*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if chf.Areas[i] != NullArea {
					srcReg[i] = regID
				}
			}
		}
	}
}

// BuildLayerRegions assigns every walkable span a region id, updates
// chf.MaxRegions, and returns false only if the input is malformed enough
// that allocation would overflow the 16-bit region id space. A pathological
// input that leaves zero surviving regions is not a failure: downstream
// stages simply produce an empty mesh (SPEC_FULL.md §7).
func (rb *RegionBuilder) BuildLayerRegions(chf *CompactHeightfield, cfg BuildConfig, report *BuildReport) bool {
	w, h := chf.Width, chf.Height
	borderSize := cfg.BorderSize
	chf.BorderSize = borderSize

	if cap(rb.srcReg) < chf.SpanCount {
		rb.srcReg = make([]int, chf.SpanCount)
	} else {
		rb.srcReg = rb.srcReg[:chf.SpanCount]
		for i := range rb.srcReg {
			rb.srcReg[i] = 0
		}
	}
	srcReg := rb.srcReg

	id := 1
	if borderSize > 0 {
		bw := imin(w, borderSize)
		bh := imin(h, borderSize)
		paintRectRegion(0, bw, 0, h, id|BorderReg, chf, srcReg)
		id++
		paintRectRegion(w-bw, w, 0, h, id|BorderReg, chf, srcReg)
		id++
		paintRectRegion(0, w, 0, bh, id|BorderReg, chf, srcReg)
		id++
		paintRectRegion(0, w, h-bh, h, id|BorderReg, chf, srcReg)
		id++
	}

	nsweeps := imax(w, h) + 1
	if cap(rb.sweeps) < nsweeps {
		rb.sweeps = make([]sweepSpan, nsweeps)
	}
	sweeps := rb.sweeps[:nsweeps]

	for z := borderSize; z < h-borderSize; z++ {
		if cap(rb.prev) < id+1 {
			rb.prev = make([]int, id+1)
		} else {
			rb.prev = rb.prev[:id+1]
			for i := range rb.prev {
				rb.prev[i] = 0
			}
		}
		prevCount := rb.prev
		rid := 1

		for x := borderSize; x < w-borderSize; x++ {
			c := chf.Cells[x+z*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == NullArea {
					continue
				}

				previd := 0
				if getCon(s, 0) != NotConnected {
					ax := x + getDirOffsetX(0)
					az := z + getDirOffsetZ(0)
					ai := chf.Cells[ax+az*w].Index + getCon(s, 0)
					if (srcReg[ai]&BorderReg) == 0 && chf.Areas[i] == chf.Areas[ai] {
						previd = srcReg[ai]
					}
				}

				if previd == 0 {
					previd = rid
					rid++
					sweeps[previd] = sweepSpan{}
				}

				// -z neighbour.
				if getCon(s, 3) != NotConnected {
					ax := x + getDirOffsetX(3)
					az := z + getDirOffsetZ(3)
					ai := chf.Cells[ax+az*w].Index + getCon(s, 3)
					if srcReg[ai] > 0 && (srcReg[ai]&BorderReg) == 0 && chf.Areas[i] == chf.Areas[ai] {
						nr := srcReg[ai]
						if sweeps[previd].nei == 0 || sweeps[previd].nei == nr {
							sweeps[previd].nei = nr
							sweeps[previd].ns++
							if nr < len(prevCount) {
								prevCount[nr]++
							}
						} else {
							sweeps[previd].nei = NullNei
						}
					}
				}

				srcReg[i] = previd
			}
		}

		// Assign each row-sweep run its final id.
		for i := 1; i < rid; i++ {
			if sweeps[i].nei != NullNei && sweeps[i].nei != 0 && prevCount[sweeps[i].nei] == sweeps[i].ns {
				sweeps[i].id = sweeps[i].nei
			} else {
				sweeps[i].id = id
				id++
			}
		}

		for x := borderSize; x < w-borderSize; x++ {
			c := chf.Cells[x+z*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if srcReg[i] > 0 && srcReg[i] < rid {
					srcReg[i] = sweeps[srcReg[i]].id
				}
			}
		}
	}

	if id >= BorderReg {
		rb.logger.Error("region id space overflow", zap.Int("regions", id))
		return false
	}

	chf.MaxRegions = id
	if !rb.mergeAndFilterLayerRegions(cfg.MinRegionArea, chf, srcReg, report) {
		return false
	}

	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return true
}

type regionLayer struct {
	id               int
	spanCount        int
	connectsToBorder bool
	connections      []int
	floors           []int
}

func addUniqueInt(s []int, v int) []int {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

func (rb *RegionBuilder) mergeAndFilterLayerRegions(minRegionArea int, chf *CompactHeightfield, srcReg []int, report *BuildReport) bool {
	w, h := chf.Width, chf.Height
	nreg := chf.MaxRegions + 1

	regions := make([]regionLayer, nreg)
	for i := range regions {
		regions[i].id = i
	}
	regArea := make([]int, nreg)

	var lregs []int
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			lregs = lregs[:0]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				ri := srcReg[i]
				if ri == 0 || ri >= nreg {
					continue
				}
				reg := &regions[ri]
				reg.spanCount++
				regArea[ri] = chf.Areas[i]
				lregs = append(lregs, ri)

				for dir := 0; dir < 4; dir++ {
					if getCon(s, dir) != NotConnected {
						ax := x + getDirOffsetX(dir)
						az := z + getDirOffsetZ(dir)
						ai := chf.Cells[ax+az*w].Index + getCon(s, dir)
						rai := srcReg[ai]
						if rai > 0 && rai < nreg && rai != ri {
							reg.connections = addUniqueInt(reg.connections, rai)
						}
						if rai&BorderReg != 0 {
							reg.connectsToBorder = true
						}
					}
				}
			}

			for i := 0; i < len(lregs)-1; i++ {
				for j := i + 1; j < len(lregs); j++ {
					if lregs[i] != lregs[j] {
						regions[lregs[i]].floors = addUniqueInt(regions[lregs[i]].floors, lregs[j])
						regions[lregs[j]].floors = addUniqueInt(regions[lregs[j]].floors, lregs[i])
					}
				}
			}
		}
	}

	// Flood-merge same-row sweep regions into layers: connected, same area
	// (each sweep region holds a single area label, but neighbouring regions
	// may differ), and not overlapping per the floor set. Region ids that
	// hold no spans are left out of the layers.
	layerID := 1
	for i := range regions {
		regions[i].id = 0
	}
	var stack []int
	for i := 1; i < nreg; i++ {
		root := &regions[i]
		if root.id != 0 || root.spanCount == 0 {
			continue
		}
		root.id = layerID
		stack = append(stack[:0], i)

		for len(stack) > 0 {
			cur := stack[0]
			stack = stack[1:]
			reg := &regions[cur]
			for _, nei := range reg.connections {
				regn := &regions[nei]
				if regn.id != 0 {
					continue
				}
				if regArea[nei] != regArea[cur] {
					continue
				}
				overlap := false
				for _, f := range root.floors {
					if f == nei {
						overlap = true
						break
					}
				}
				if overlap {
					continue
				}
				stack = append(stack, nei)
				regn.id = layerID
				for _, f := range regn.floors {
					root.floors = addUniqueInt(root.floors, f)
				}
				root.spanCount += regn.spanCount
				regn.spanCount = 0
				root.connectsToBorder = root.connectsToBorder || regn.connectsToBorder
			}
		}
		layerID++
	}

	filtered := 0
	for i := range regions {
		if regions[i].spanCount > 0 && regions[i].spanCount < minRegionArea && !regions[i].connectsToBorder {
			dead := regions[i].id
			for j := range regions {
				if regions[j].id == dead {
					regions[j].id = 0
					filtered++
				}
			}
		}
	}
	if report != nil {
		report.FilteredRegions += filtered
	}

	// Compress surviving (non-border) ids to a dense 1..N space.
	remap := make([]bool, nreg)
	for i := range regions {
		if regions[i].id == 0 || regions[i].id&BorderReg != 0 {
			continue
		}
		remap[i] = true
	}
	genID := 0
	for i := range regions {
		if !remap[i] {
			continue
		}
		old := regions[i].id
		genID++
		for j := i; j < nreg; j++ {
			if regions[j].id == old {
				regions[j].id = genID
				remap[j] = false
			}
		}
	}
	chf.MaxRegions = genID
	if report != nil {
		report.RegionCount = genID
	}

	for i := range srcReg {
		if srcReg[i]&BorderReg == 0 {
			srcReg[i] = regions[srcReg[i]].id
		}
	}
	return true
}
