package order

import (
	"math/rand"
	"testing"

	"stereogrid/internal/refine"
	"stereogrid/pkg/geometry"
)

// gridCenters builds 40 refined centers on an unrotated rectangular 4x10
// grid with no alternate-row offset (columns 120px apart, rows 150px apart so
// the grid is clearly longer along columns than rows) all tagged DtFast.
func gridCenters() []refine.RefinedCenter {
	var out []refine.RefinedCenter
	for col := 0; col < 10; col++ {
		for row := 0; row < 4; row++ {
			out = append(out, refine.RefinedCenter{
				Center: geometry.Point2D{X: float64(col) * 120, Y: float64(row) * 150},
				Tag:    refine.DtFast,
			})
		}
	}
	return out
}

func TestOrderCanonicalIndex(t *testing.T) {
	centers := gridCenters()
	result, err := Order(centers)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}

	// Column 0 (largest x') should be the grid's highest-x column (col=9
	// in the generator, since e_major sign convention is disambiguated to
	// positive x, and columns are sorted by x' descending -> physically
	// rightmost column first... the exact mapping to physical column index
	// isn't asserted here; what's asserted is internal self-consistency:
	// each output column's 4 rows are sorted by increasing y'.
	for col := 0; col < Cols; col++ {
		var prevY float64
		for row := 0; row < Rows; row++ {
			idx := 4*col + row
			y := result.Centers[idx].Y
			if row > 0 && y < prevY-1e-6 {
				t.Fatalf("column %d rows not sorted by y: row %d y=%v < prev %v", col, row, y, prevY)
			}
			prevY = y
		}
	}
}

func TestOrderWrongCount(t *testing.T) {
	centers := gridCenters()[:39]
	if _, err := Order(centers); err != ErrWrongCount {
		t.Fatalf("Order(39 centers) error = %v, want ErrWrongCount", err)
	}
}

func TestOrderSquareGridAmbiguous(t *testing.T) {
	var centers []refine.RefinedCenter
	for row := 0; row < 4; row++ {
		for col := 0; col < 10; col++ {
			// Near-square overall extent: columns and rows spaced so the
			// eigenvalue ratio exceeds 0.5.
			centers = append(centers, refine.RefinedCenter{
				Center: geometry.Point2D{X: float64(col) * 30, Y: float64(row) * 90},
			})
		}
	}
	if _, err := Order(centers); err != ErrOrientationAmbiguous {
		t.Fatalf("Order(near-square grid) error = %v, want ErrOrientationAmbiguous", err)
	}
}

// TestOrderStabilityUnderShuffle is property P6: shuffling the input before
// ordering must not change the output.
func TestOrderStabilityUnderShuffle(t *testing.T) {
	base := gridCenters()
	want, err := Order(base)
	if err != nil {
		t.Fatalf("Order(base) error = %v", err)
	}

	shuffled := make([]refine.RefinedCenter, len(base))
	copy(shuffled, base)
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	got, err := Order(shuffled)
	if err != nil {
		t.Fatalf("Order(shuffled) error = %v", err)
	}
	if got.Centers != want.Centers {
		t.Fatalf("Order(shuffled) = %+v, want %+v", got.Centers, want.Centers)
	}
}
