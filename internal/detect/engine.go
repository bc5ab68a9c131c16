// Package detect ties the five detection-pipeline stages (flatten,
// components, split, refine, order) into the engine API spec.md 6 names,
// owns the per-instance cached resources spec.md 5 describes, and classifies
// failures per spec.md 7.
package detect

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"stereogrid/internal/components"
	"stereogrid/internal/flatten"
	"stereogrid/internal/frame"
	"stereogrid/internal/order"
	"stereogrid/internal/refine"
	"stereogrid/internal/split"
	"stereogrid/pkg/geometry"
)

// Result is the engine's success output: 40 ordered sub-pixel centers and
// their refinement tags, indexed identically (spec.md 3's OrderedCenters).
type Result struct {
	Centers [order.N]geometry.Point2D
	Tags    [order.N]refine.Tag
}

// Engine is a single-threaded, deterministic detector instance. Per spec.md
// 5, an instance must be used by exactly one goroutine at a time; DetectPair
// gives the left and right eyes independent instances rather than sharing
// one, since no locking is implemented here.
type Engine struct {
	params Params
	dNom   float64

	precomputed refine.Precomputed

	thresholdSet  bool
	baseThreshold int

	lastSeeds []split.Seed
	lastTags  [order.N]refine.Tag

	log *slog.Logger
}

// NewEngine constructs an engine with the given configuration and logger.
// A nil logger disables structured logging.
func NewEngine(params Params, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	e := &Engine{params: params, log: log}
	e.rebuildPrecomputed()
	return e
}

// Configure updates the diameter range and grid shape, invalidating
// precomputed resources (spec.md 6). The cached triangle threshold is left
// untouched — it tracks illumination, not circle size.
func (e *Engine) Configure(diameterMin, diameterMax float64, gridRows, gridCols int) {
	e.params.DiameterMin = diameterMin
	e.params.DiameterMax = diameterMax
	e.params.GridRows = gridRows
	e.params.GridCols = gridCols
	e.rebuildPrecomputed()
}

func (e *Engine) rebuildPrecomputed() {
	e.dNom = e.params.NominalDiameter()
	e.precomputed = refine.Build(e.dNom)
}

// LastRefineTags returns the refinement tag each of the last successful
// detection's 40 centers carried (spec.md 6's optional diagnostic).
func (e *Engine) LastRefineTags() [order.N]refine.Tag {
	return e.lastTags
}

// LastSeeds returns the raw seeds from the most recent Detect call, for
// DebugRender's orange overlay.
func (e *Engine) LastSeeds() []split.Seed {
	return e.lastSeeds
}

// Detect runs the full five-stage pipeline on a single frame.
func (e *Engine) Detect(f frame.Frame) (Result, error) {
	if err := validateShape(f); err != nil {
		return Result{}, err
	}

	flattened := flatten.Flatten(f, e.dNom)

	if !e.thresholdSet {
		hist := components.Histogram256(flattened.Pix)
		e.baseThreshold = components.TriangleThreshold(hist)
		e.thresholdSet = true
		e.log.Info("detect: cached base threshold", "threshold", e.baseThreshold)
	}

	tHi := e.baseThreshold + 25
	tLo := tHi - 60
	if tLo < 10 {
		tLo = 10
	}

	comps, usedThreshold := e.gateAtThreshold(flattened, tHi)
	if components.EstimatedSeedCount(comps, e.dNom) < order.N {
		e.log.Info("detect: t_hi underproduced, retrying with t_lo", "t_hi", tHi, "t_lo", tLo)
		comps, usedThreshold = e.gateAtThreshold(flattened, tLo)
	}

	var seeds []split.Seed
	splitShortfall := false
	for _, c := range comps {
		if !c.IsSplitCandidate {
			seeds = append(seeds, split.Seed{Center: c.Centroid, ExpectedRadius: e.dNom / 2})
			continue
		}
		peaks := split.Peaks(flattened, c, usedThreshold, e.dNom)
		kEst := int(math.Round(float64(c.Area) / components.NominalArea(e.dNom)))
		if kEst < 2 {
			kEst = 2
		}
		if kEst > 25 {
			kEst = 25
		}
		if len(peaks) < kEst {
			splitShortfall = true
		}
		seeds = append(seeds, peaks...)
	}
	e.lastSeeds = seeds

	if len(seeds) < order.N {
		if splitShortfall {
			return Result{}, &Error{Code: SplitUnderproduced, Msg: fmt.Sprintf("got %d seeds, need %d", len(seeds), order.N)}
		}
		return Result{}, &Error{Code: TooFewCandidates, Msg: fmt.Sprintf("got %d seeds, need %d", len(seeds), order.N)}
	}

	refined := make([]refine.RefinedCenter, len(seeds))
	for i, s := range seeds {
		refined[i] = refine.Seed(f, flattened, s, e.precomputed, e.params.RefineParams, e.log)
	}

	ordered, err := order.Order(refined)
	if err != nil {
		return Result{}, mapOrderError(err, len(seeds))
	}

	e.lastTags = ordered.Tags
	return Result{Centers: ordered.Centers, Tags: ordered.Tags}, nil
}

// DetectPair runs left and right detection concurrently on independent
// engine instances, per spec.md 5: the two eyes share no mutable state, so
// each needs its own Engine rather than one shared instance.
func DetectPair(left, right *Engine, leftFrame, rightFrame frame.Frame) (Result, Result, error) {
	var wg sync.WaitGroup
	var leftRes, rightRes Result
	var leftErr, rightErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		leftRes, leftErr = left.Detect(leftFrame)
	}()
	go func() {
		defer wg.Done()
		rightRes, rightErr = right.Detect(rightFrame)
	}()
	wg.Wait()

	if leftErr != nil {
		return Result{}, Result{}, fmt.Errorf("left eye: %w", leftErr)
	}
	if rightErr != nil {
		return Result{}, Result{}, fmt.Errorf("right eye: %w", rightErr)
	}
	return leftRes, rightRes, nil
}

func (e *Engine) gateAtThreshold(flattened frame.Frame, threshold int) ([]components.Component, int) {
	return components.Extract(flattened, threshold, e.params.Gates, e.dNom), threshold
}

func mapOrderError(err error, seedCount int) error {
	switch err {
	case order.ErrWrongCount:
		if seedCount < order.N {
			return &Error{Code: TooFewCandidates, Msg: "fewer than 40 refined centers", Err: err}
		}
		return &Error{Code: OrderingAmbiguous, Msg: "more than 40 refined centers", Err: err}
	case order.ErrOrientationAmbiguous:
		return &Error{Code: OrderingAmbiguous, Msg: "eigenvalue ratio too high", Err: err}
	case order.ErrColumnLeak:
		return &Error{Code: ColumnLeak, Msg: "column x' spread exceeded tolerance", Err: err}
	default:
		return &Error{Code: InternalNumeric, Msg: "ordering failed", Err: err}
	}
}

func validateShape(f frame.Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("detect: invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return fmt.Errorf("detect: frame pixel buffer length %d does not match %dx%d", len(f.Pix), f.Width, f.Height)
	}
	return nil
}

// DebugRender overlays raw seeds (orange), ordered centers (green), and
// their indices (blue) onto a clone of f, per spec.md 6. Operating on a
// clone keeps this idempotent with Detect (spec.md 8's round-trip property).
func (e *Engine) DebugRender(f frame.Frame, seeds []split.Seed, res Result) (image.Image, error) {
	clone := f.Clone()
	src := clone.ToMat()
	defer src.Close()

	color := gocv.NewMat()
	defer color.Close()
	gocv.CvtColor(src, &color, gocv.ColorGrayToBGR)

	orange := gocv.NewScalar(0, 140, 255, 0)
	green := gocv.NewScalar(0, 200, 0, 0)
	blue := gocv.NewScalar(255, 80, 0, 0)

	for _, s := range seeds {
		pt := image.Pt(int(math.Round(s.Center.X)), int(math.Round(s.Center.Y)))
		gocv.Circle(&color, pt, 4, orange, 2)
	}
	for i, c := range res.Centers {
		pt := image.Pt(int(math.Round(c.X)), int(math.Round(c.Y)))
		gocv.Circle(&color, pt, 6, green, 2)
		gocv.PutText(&color, strconv.Itoa(i), image.Pt(pt.X+6, pt.Y-6),
			gocv.FontHersheyPlain, 1.0, blue, 1)
	}

	img, err := color.ToImage()
	if err != nil {
		return nil, fmt.Errorf("debug render: %w", err)
	}
	return img, nil
}
