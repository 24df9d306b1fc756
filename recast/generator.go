package recast

import (
	"fmt"

	"go.uber.org/zap"
)

// Generator is the single entry point chaining RegionBuilder, ContourBuilder
// and PolyMeshBuilder into one navigation mesh build. It owns the three
// builders so their scratch buffers are reused across repeated Build calls
// rather than reallocated per tile, per SPEC_FULL.md §5. A Generator is not
// safe for concurrent use by multiple goroutines; run one per goroutine.
type Generator struct {
	logger *zap.Logger

	regions  *RegionBuilder
	contours *ContourBuilder
	polys    *PolyMeshBuilder
}

// NewGenerator constructs a Generator. A nil logger is replaced with a
// no-op logger, matching the builders it wraps.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		logger:   logger,
		regions:  NewRegionBuilder(logger),
		contours: NewContourBuilder(logger),
		polys:    NewPolyMeshBuilder(logger),
	}
}

// Build runs the full region -> contour -> polygon mesh pipeline over chf,
// mutating chf.Spans[*].Reg in place and returning the resulting PolyMesh
// plus a BuildReport of per-stage diagnostics. A non-nil error means a fatal
// condition (SPEC_FULL.md §7); recoverable conditions are instead logged and
// tallied on the returned report while the build continues.
func (g *Generator) Build(chf *CompactHeightfield, cfg BuildConfig) (*PolyMesh, *BuildReport, error) {
	report := &BuildReport{SpanCount: chf.SpanCount}

	if cfg.MaxVertsPerPoly < 3 || cfg.MaxVertsPerPoly > 12 {
		return nil, report, fmt.Errorf("recast: MaxVertsPerPoly must be in [3, 12], got %d", cfg.MaxVertsPerPoly)
	}
	if chf.SpanCount == 0 {
		g.logger.Warn("recast: empty compact heightfield, producing empty mesh")
		return &PolyMesh{MaxVertsPerPoly: cfg.MaxVertsPerPoly, BMin: chf.BMin, BMax: chf.BMax, Cs: chf.Cs, Ch: chf.Ch}, report, nil
	}

	if !g.regions.BuildLayerRegions(chf, cfg, report) {
		return nil, report, fmt.Errorf("recast: BuildLayerRegions failed (region id space overflow, width=%d height=%d)", chf.Width, chf.Height)
	}
	g.logger.Info("recast: regions built",
		zap.Int("regionCount", report.RegionCount),
		zap.Int("filteredRegions", report.FilteredRegions),
	)

	cset, err := g.contours.BuildContours(chf, cfg, report)
	if err != nil {
		return nil, report, fmt.Errorf("recast: BuildContours: %w", err)
	}
	if cset == nil || len(cset.Conts) == 0 {
		g.logger.Warn("recast: contour build produced no contours")
		return &PolyMesh{MaxVertsPerPoly: cfg.MaxVertsPerPoly, BMin: chf.BMin, BMax: chf.BMax, Cs: chf.Cs, Ch: chf.Ch}, report, nil
	}
	g.logger.Info("recast: contours built",
		zap.Int("contourCount", len(cset.Conts)),
		zap.Int("abandonedHoles", report.AbandonedHoles),
	)

	mesh, err := g.polys.BuildPolyMesh(cset, cfg, report)
	if err != nil {
		return nil, report, fmt.Errorf("recast: BuildPolyMesh: %w", err)
	}
	mesh.BMin, mesh.BMax = chf.BMin, chf.BMax
	mesh.Cs, mesh.Ch = chf.Cs, chf.Ch

	g.logger.Info("recast: poly mesh built",
		zap.Int("polygonCount", report.PolygonCount),
		zap.Int("removedVertices", report.RemovedVertices),
		zap.Bool("overflowWarning", report.OverflowWarning),
	)

	return mesh, report, nil
}
