package scale

import (
	"math"
	"testing"
	"time"
)

func TestIndex_StepAndInverse(t *testing.T) {
	s := NewIndex(10, 200, 5) // step = 50
	if s.Step != 50 {
		t.Fatalf("expected step=50, got %v", s.Step)
	}
	if x := s.X(3); x != 160 {
		t.Fatalf("expected X(3)=160, got %v", x)
	}
	if i := s.IndexAt(160 + 20); i != 3 {
		t.Fatalf("expected IndexAt=3, got %d", i)
	}
	if i := s.IndexAt(-500); i != 0 {
		t.Fatalf("expected clamp to 0, got %d", i)
	}
	if i := s.IndexAt(5000); i != 4 {
		t.Fatalf("expected clamp to 4, got %d", i)
	}
}

func TestIndex_SingleAndEmpty(t *testing.T) {
	one := NewIndex(0, 300, 1)
	if one.Step != 300 {
		t.Fatalf("expected full width step, got %v", one.Step)
	}
	if NewIndex(0, 300, 0).IndexAt(10) != -1 {
		t.Fatal("expected -1 for empty scale")
	}
}

func TestTime_ForecastDomainExtendsPastNow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	d0, d1 := ForecastDomain(start, now, 30)
	if d0 != start {
		t.Fatalf("expected domain start %d, got %d", start, d0)
	}
	if want := now + 30*DayMs(); d1 != want {
		t.Fatalf("expected domain end %d, got %d", want, d1)
	}
	s := NewTime(d0, d1, 0, 1000)
	if x := s.X(now); x <= 0 || x >= 1000 {
		t.Fatalf("now should map inside the range, got %v", x)
	}
	if got := s.T(s.X(now)); math.Abs(float64(got-now)) > float64(DayMs())/100 {
		t.Fatalf("round trip drifted: %d vs %d", got, now)
	}
}

func TestTime_DegenerateDomain(t *testing.T) {
	s := NewTime(500, 500, 0, 100)
	x := s.X(500)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		t.Fatalf("expected finite x, got %v", x)
	}
}

func TestLinear_PaddingAndZeroSpan(t *testing.T) {
	l := NewLinear(100, 200, 400, 0, true)
	if math.Abs(l.D0-92) > 1e-9 || math.Abs(l.D1-208) > 1e-9 {
		t.Fatalf("expected 8%% padding, got [%v,%v]", l.D0, l.D1)
	}
	flat := NewLinear(50, 50, 400, 0, false)
	if flat.D1-flat.D0 < Epsilon {
		t.Fatalf("expected widened span, got [%v,%v]", flat.D0, flat.D1)
	}
	y := flat.Map(50)
	if math.IsNaN(y) || y < 0 || y > 400 {
		t.Fatalf("expected mid pixel, got %v", y)
	}
}

func TestY_ModesShareGeometry(t *testing.T) {
	price := NewPrice(90, 110, 500, 0)
	norm := NewNormalized(100, 90, 110, 500, 0)
	pct := NewPercentFromCurrent(100, 90, 110, 500, 0)

	for _, p := range []float64{90, 95, 100, 110} {
		a, b, c := price.Price(p), norm.Price(p), pct.Price(p)
		if math.Abs(a-b) > 1e-6 || math.Abs(a-c) > 1e-6 {
			t.Fatalf("price %v mapped differently: %v %v %v", p, a, b, c)
		}
	}
	if v := pct.ValueAt(pct.Price(110)); math.Abs(v-10) > 1e-9 {
		t.Fatalf("expected +10%%, got %v", v)
	}
	if v := norm.ValueAt(norm.Price(95)); math.Abs(v-95) > 1e-9 {
		t.Fatalf("expected index 95, got %v", v)
	}
	if p := pct.PriceAt(pct.Price(104)); math.Abs(p-104) > 1e-9 {
		t.Fatalf("expected price 104, got %v", p)
	}
}

func TestY_NonPositiveRefFallsBackToPrice(t *testing.T) {
	y := NewNormalized(0, 10, 20, 100, 0)
	if y.Mode() != ModePrice {
		t.Fatalf("expected fallback to price mode, got %v", y.Mode())
	}
}

func TestY_TicksInsideDomain(t *testing.T) {
	y := NewPrice(58000, 66000, 400, 0)
	ticks := y.Ticks(6)
	if len(ticks) < 2 {
		t.Fatalf("expected ticks, got %v", ticks)
	}
	lo, hi := y.Domain()
	for _, v := range ticks {
		if v < lo || v > hi {
			t.Fatalf("tick %v outside domain [%v,%v]", v, lo, hi)
		}
	}
}

func TestPriceRange_SkipsNonFinite(t *testing.T) {
	lo, hi, ok := PriceRange([]float64{3, math.NaN(), 1}, []float64{math.Inf(1), 7})
	if !ok || lo != 1 || hi != 7 {
		t.Fatalf("expected [1,7], got [%v,%v] ok=%v", lo, hi, ok)
	}
	if _, _, ok := PriceRange(nil); ok {
		t.Fatal("expected ok=false for empty input")
	}
}

func TestTimeTicks_StepBySpan(t *testing.T) {
	day := DayMs()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	cases := []struct {
		name      string
		days      int64
		width     float64
		wantLabel string
	}{
		{"two weeks", 14, 2000, "2 Jan"},
		{"two months", 50, 2000, "2 Jan"},
		{"quarter", 100, 2000, "Jan 2"},
		{"year", 365, 1200, "Jan 2"},
		{"multi-year", 1500, 1200, "Jan 2006"},
	}
	for _, tc := range cases {
		s := NewTime(start, start+tc.days*day, 0, tc.width)
		ticks := TimeTicks(s, MinLabelPx)
		if len(ticks) < 2 {
			t.Fatalf("%s: expected at least 2 ticks, got %d", tc.name, len(ticks))
		}
		for i := 1; i < len(ticks); i++ {
			if gap := ticks[i].X - ticks[i-1].X; gap < MinLabelPx-1 {
				t.Fatalf("%s: labels %d/%d only %.1fpx apart", tc.name, i-1, i, gap)
			}
		}
		want := time.UnixMilli(ticks[0].T).UTC().Format(tc.wantLabel)
		if ticks[0].Label != want {
			t.Fatalf("%s: expected label %q, got %q", tc.name, want, ticks[0].Label)
		}
	}
}

func TestTimeTicks_NarrowWidthWidensStep(t *testing.T) {
	day := DayMs()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	s := NewTime(start, start+14*day, 0, 300)
	ticks := TimeTicks(s, 80)
	for i := 1; i < len(ticks); i++ {
		if ticks[i].X-ticks[i-1].X < 79 {
			t.Fatalf("ticks too dense: %+v", ticks)
		}
	}
}

func TestNiceTicks(t *testing.T) {
	ticks := NiceTicks(0, 100, 6)
	if len(ticks) < 2 {
		t.Fatalf("expected ticks, got %v", ticks)
	}
	step := ticks[1] - ticks[0]
	if step != 20 && step != 25 {
		t.Fatalf("expected nice step 20 or 25, got %v", step)
	}
	if NiceTicks(math.NaN(), 1, 5) != nil {
		t.Fatal("expected nil for NaN bounds")
	}
}

func TestFormat_Sentinel(t *testing.T) {
	if FormatPrice(math.NaN()) != Sentinel || FormatPercent(math.Inf(1)) != Sentinel {
		t.Fatal("expected sentinel for non-finite input")
	}
	if got := FormatPrice(64800); got != "64,800" {
		t.Fatalf("expected 64,800, got %s", got)
	}
	if got := FormatPercent(3.21); got != "+3.2%" {
		t.Fatalf("expected +3.2%%, got %s", got)
	}
	if got := FormatReturn(-0.05); got != "-5.0%" {
		t.Fatalf("expected -5.0%%, got %s", got)
	}
}
