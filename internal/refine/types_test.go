package refine

import "testing"

func TestTagString(t *testing.T) {
	cases := map[Tag]string{
		DtFast:    "dt-fast",
		DtEdge:    "dt-edge",
		RadialFit: "radial-fit",
		Failed:    "failed",
		Tag(99):   "unknown",
	}
	for tag, want := range cases {
		if got := tag.String(); got != want {
			t.Errorf("Tag(%d).String() = %q, want %q", tag, got, want)
		}
	}
}
