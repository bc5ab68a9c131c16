package components

import "testing"

func TestTriangleThresholdBimodal(t *testing.T) {
	var hist [256]int
	for i := 0; i < 50; i++ {
		hist[i] = 100 // background lobe
	}
	for i := 200; i < 230; i++ {
		hist[i] = 40 // foreground lobe
	}
	th := TriangleThreshold(hist)
	if th <= 0 || th >= 255 {
		t.Fatalf("TriangleThreshold() = %d, want a split strictly inside the histogram range", th)
	}
	if th >= 200 || th <= 50 {
		t.Fatalf("TriangleThreshold() = %d, want a value between the two lobes", th)
	}
}

func TestTriangleThresholdEmptyHistogram(t *testing.T) {
	var hist [256]int
	if got := TriangleThreshold(hist); got != 0 {
		t.Fatalf("TriangleThreshold(empty) = %d, want 0 (peak default)", got)
	}
}

func TestHistogram256(t *testing.T) {
	pix := []uint8{0, 0, 255, 128}
	h := Histogram256(pix)
	if h[0] != 2 || h[255] != 1 || h[128] != 1 {
		t.Fatalf("Histogram256() = %v, unexpected counts", h)
	}
}
