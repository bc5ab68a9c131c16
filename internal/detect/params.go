package detect

import (
	"stereogrid/internal/components"
	"stereogrid/internal/refine"
)

// Params is the configuration surface exposed through Engine.Configure,
// aggregating the per-stage tunables spec.md 6 groups under "configure".
type Params struct {
	DiameterMin float64
	DiameterMax float64
	GridRows    int
	GridCols    int

	Gates        components.Gates
	RefineParams refine.Params
}

// DefaultParams returns the nominal configuration: 78px circles (67-90px
// range per spec.md 1), 4x10 grid, default gates and refinement thresholds.
func DefaultParams() Params {
	return Params{
		DiameterMin:  67,
		DiameterMax:  90,
		GridRows:     4,
		GridCols:     10,
		Gates:        components.DefaultGates(),
		RefineParams: refine.DefaultParams(),
	}
}

// NominalDiameter is the mid-range d_nom spec.md 4.1 and 4.3-4.4 key all
// their kernel/ROI/walk sizing off.
func (p Params) NominalDiameter() float64 {
	return (p.DiameterMin + p.DiameterMax) / 2
}
