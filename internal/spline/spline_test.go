package spline

import (
	"math"
	"testing"
)

func TestCatmullRom_PassesThroughPoints(t *testing.T) {
	pts := []Point{{0, 10}, {10, 30}, {20, 5}, {30, 25}}
	segs := CatmullRom(pts, 0.5)
	if len(segs) != len(pts)-1 {
		t.Fatalf("expected %d segments, got %d", len(pts)-1, len(segs))
	}
	for i, s := range segs {
		if s.End != pts[i+1] {
			t.Fatalf("segment %d ends at %v, expected %v", i, s.End, pts[i+1])
		}
	}
	samples := Sample(pts, 0.5, 8)
	if samples[0] != pts[0] {
		t.Fatalf("expected first sample %v, got %v", pts[0], samples[0])
	}
	last := samples[len(samples)-1]
	if math.Abs(last.X-30) > 1e-9 || math.Abs(last.Y-25) > 1e-9 {
		t.Fatalf("expected last sample at end point, got %v", last)
	}
}

func TestCatmullRom_ZeroTensionIsStraight(t *testing.T) {
	pts := []Point{{0, 0}, {10, 10}, {20, 0}}
	for _, p := range Sample(pts, 0, 4)[1:5] {
		if math.Abs(p.X-p.Y) > 1e-9 {
			t.Fatalf("expected point on the line y=x, got %v", p)
		}
	}
}

func TestCatmullRom_CollinearStaysOnLine(t *testing.T) {
	pts := []Point{{0, 0}, {10, 20}, {20, 40}, {30, 60}}
	for _, p := range Sample(pts, 0.5, 6) {
		if math.Abs(p.Y-2*p.X) > 1e-9 {
			t.Fatalf("expected collinear sample, got %v", p)
		}
	}
}

func TestCatmullRom_Degenerate(t *testing.T) {
	if CatmullRom(nil, 0.5) != nil {
		t.Fatal("expected nil for no points")
	}
	if CatmullRom([]Point{{1, 1}}, 0.5) != nil {
		t.Fatal("expected nil for a single point")
	}
	if got := Sample([]Point{{1, 1}}, 0.5, 4); len(got) != 1 {
		t.Fatalf("expected the single point back, got %v", got)
	}
}
