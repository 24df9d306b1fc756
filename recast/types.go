// Package recast implements the navigation mesh generation pipeline: region
// labelling, contour tracing/simplification, and polygon mesh building over
// a compact heightfield produced upstream by a voxelizer.
package recast

import "github.com/go-gl/mathgl/mgl32"

const (
	// NotConnected marks a CompactSpan direction with no walkable neighbour.
	NotConnected = 0x3f
	// NullArea marks a span as non-walkable.
	NullArea = 0
	// BorderReg flags a region id as heightfield border padding.
	BorderReg = 0x8000
	// NullNei marks a sweep span with no (or ambiguous) neighbour region.
	NullNei = 0xffff

	// MeshNullIdx pads unused vertex/adjacency slots in a PolyMesh.
	MeshNullIdx = 0xffff

	// ContourRegMask extracts the neighbour region id from a contour vertex flag word.
	ContourRegMask = 0xffff
	// AreaBorder flags a contour vertex as lying between two different area labels.
	AreaBorder = 0x20000
	// BorderVertex flags a contour vertex as a heightfield-border artefact,
	// a removal candidate during poly mesh building.
	BorderVertex = 0x10000

	// TessWallEdges tessellates solid (impassable) edges during simplification.
	TessWallEdges = 0x01
	// TessAreaEdges tessellates edges between differing area labels.
	TessAreaEdges = 0x02

	maxContourWalkSteps = 40000

	vertexBucketCount = 1 << 12
)

// dirOffsetX/dirOffsetZ give the grid offset for each of the 4 cardinal
// directions: 0:(-1,0) 1:(0,1) 2:(1,0) 3:(0,-1). Direction indices increase
// counter-clockwise; contour/region walks rotate through them accordingly.
var dirOffsetX = [4]int{-1, 0, 1, 0}
var dirOffsetZ = [4]int{0, 1, 0, -1}

func getDirOffsetX(dir int) int { return dirOffsetX[dir&0x3] }
func getDirOffsetZ(dir int) int { return dirOffsetZ[dir&0x3] }

// CompactCell indexes the run of spans stored at one (x,z) grid column.
type CompactCell struct {
	Index int
	Count int
}

// CompactSpan is one vertical walkable slab within a grid column.
type CompactSpan struct {
	Y   int // floor height, in cell units
	Reg int // region id, 0 = unassigned
	Con int // 4 packed 6-bit neighbour span offsets, NotConnected if absent
	H   int // span height above Y
}

func getCon(s *CompactSpan, dir int) int {
	return (s.Con >> uint(dir*6)) & NotConnected
}

func setCon(s *CompactSpan, dir, value int) {
	shift := uint(dir * 6)
	s.Con = (s.Con &^ (NotConnected << shift)) | ((value & NotConnected) << shift)
}

// CompactHeightfield is the read-only input to the pipeline: a 2D grid of
// cells, each indexing a run of walkable spans annotated with area labels
// and 4-directional neighbour connectivity. Produced upstream by a
// voxelizer; this package never constructs one from raw geometry.
type CompactHeightfield struct {
	Width, Height int
	BorderSize    int
	Cs, Ch        float64
	BMin, BMax    mgl32.Vec3

	SpanCount  int
	MaxRegions int

	Cells []CompactCell
	Spans []CompactSpan
	Areas []int // area label per span, NullArea if unwalkable
}

// BuildConfig collects the tunable knobs of the pipeline. It carries no
// world-space bounds: those live on the CompactHeightfield that is the
// pipeline's actual input, and on the PolyMesh it produces.
type BuildConfig struct {
	BorderSize             int
	MinRegionArea          int
	MaxSimplificationError float64
	MaxEdgeLen             int
	MaxVertsPerPoly        int // 3..12

	ContourTessWallEdges bool
	ContourTessAreaEdges bool
}

func (c BuildConfig) tessFlags() int {
	f := 0
	if c.ContourTessWallEdges {
		f |= TessWallEdges
	}
	if c.ContourTessAreaEdges {
		f |= TessAreaEdges
	}
	return f
}

// Contour is the simplified integer-coordinate boundary polyline of one
// region, plus the raw (unsimplified) walk it was derived from. Vertices
// are packed (x, y, z, flags) quadruples; flags holds the neighbour region
// id in its low 16 bits, ORed with BorderVertex / AreaBorder.
type Contour struct {
	Verts  []int // simplified ring, 4 ints per vertex
	NVerts int
	RVerts []int // raw ring, 4 ints per vertex
	NRVerts int

	Reg  int
	Area int
}

// ContourSet is the output of ContourBuilder: one Contour per surviving
// region (holes already spliced into their enclosing outline).
type ContourSet struct {
	Conts  []*Contour
	BMin, BMax [3]float64
	Cs, Ch     float64
	Width, Height int
	BorderSize    int
	MaxError      float64
}

// PolyMesh is the final output, transferred to the caller. Polys is laid
// out per-polygon as MaxVertsPerPoly vertex indices followed by
// MaxVertsPerPoly adjacency entries, both padded with MeshNullIdx.
type PolyMesh struct {
	Verts []int // 3 ints (x,y,z) per vertex, grid units
	Polys []int // NPolys * 2*MaxVertsPerPoly
	Areas []int // per-polygon area label
	Regs  []int // per-polygon region id

	NVerts, NPolys  int
	MaxVertsPerPoly int

	BorderSize int
	BMin, BMax mgl32.Vec3
	Cs, Ch     float64
}

// BuildReport accumulates diagnostics for a single Generator.Build call.
// It is not a wire format and never round-trips back into the pipeline —
// see SPEC_FULL.md's Non-goals on navmesh serialization.
type BuildReport struct {
	SpanCount        int
	RegionCount      int
	FilteredRegions  int
	ContourCount     int
	AbandonedHoles   int
	BadTriangulation int
	PolygonCount     int
	RemovedVertices  int
	OverflowWarning  bool
}

func imin(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func iabs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
