// Package debug provides one-way export helpers for inspecting pipeline
// output in external 3D tools. Nothing in this package is read back by the
// pipeline; it is a human-facing dump, not an interchange format.
package debug

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rastermesh/navgen/recast"
)

// WritePolyMeshOBJ writes pm as a triangulated Wavefront OBJ, one face per
// triangle fanned from each polygon's first vertex. Adapted from the
// teacher's DuDumpPolyMeshToObj: same per-vertex/per-triangle emission
// order, ported from its bespoke ReaderWriter onto io.Writer.
func WritePolyMeshOBJ(w io.Writer, pm *recast.PolyMesh, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pm == nil || pm.NVerts == 0 {
		logger.Warn("debug: WritePolyMeshOBJ called with an empty poly mesh")
		return nil
	}

	nvp := pm.MaxVertsPerPoly
	cs, ch := pm.Cs, pm.Ch
	ox, oy, oz := pm.BMin.X(), pm.BMin.Y(), pm.BMin.Z()

	if _, err := io.WriteString(w, "# navgen poly mesh\no NavMesh\n\n"); err != nil {
		return fmt.Errorf("debug: write header: %w", err)
	}

	for i := 0; i < pm.NVerts; i++ {
		v := pm.Verts[i*3 : i*3+3]
		x := ox + float32(v[0])*float32(cs)
		y := oy + float32(v[1]+1)*float32(ch) + 0.1
		z := oz + float32(v[2])*float32(cs)
		if _, err := fmt.Fprintf(w, "v %f %f %f\n", x, y, z); err != nil {
			return fmt.Errorf("debug: write vertex %d: %w", i, err)
		}
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("debug: write separator: %w", err)
	}

	for i := 0; i < pm.NPolys; i++ {
		p := pm.Polys[i*nvp*2 : i*nvp*2+nvp]
		for j := 2; j < nvp; j++ {
			if p[j] == recast.MeshNullIdx {
				break
			}
			if _, err := fmt.Fprintf(w, "f %d %d %d\n", p[0]+1, p[j-1]+1, p[j]+1); err != nil {
				return fmt.Errorf("debug: write face for poly %d: %w", i, err)
			}
		}
	}

	return nil
}
