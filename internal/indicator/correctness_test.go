package indicator

import (
	"math"
	"testing"

	"trading-chartv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func candles(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{T: int64(i) * 86_400_000, O: c, H: c + 0.5, L: c - 0.5, C: c}
	}
	return out
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after candle 3: (100+102+104)/3 = 102.0000
	// SMA after candle 4: (102+104+103)/3 = 103.0000
	// SMA after candle 5: (104+103+105)/3 = 104.0000

	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 0.0001)
		}
	}
}

func TestSMA_Reset(t *testing.T) {
	sma := NewSMA(2)
	sma.Update(10)
	sma.Update(20)
	sma.Reset()
	if sma.Ready() || sma.Value() != 0 {
		t.Fatalf("expected cleared SMA, got ready=%v value=%f", sma.Ready(), sma.Value())
	}
	sma.Update(4)
	sma.Update(6)
	assertClose(t, "SMA after reset", sma.Value(), 5, 1e-12)
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Candle 3: seed = 306/3 = 102.0
	// Candle 4: EMA = 103*0.5 + 102.0*0.5 = 102.5
	// Candle 5: EMA = 105*0.5 + 102.5*0.5 = 103.75

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.5, 103.75}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		ema.Update(p)
		if ema.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 0.0001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// SMMA Correctness (Wilder's Smoothing)
// ────────────────────────────────────────────────────────────

func TestSMMA_Correctness_Period3(t *testing.T) {
	// Candle 1-3: seed = (100+102+104)/3 = 102.0
	// Candle 4: SMMA = (102.0 * 2 + 103) / 3 = 102.3333
	// Candle 5: SMMA = (102.3333 * 2 + 105) / 3 = 103.2222

	smma := NewSMMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.3333, 103.2222}

	for i, p := range prices {
		smma.Update(p)
		if i >= 2 {
			assertClose(t, "SMMA(3)", smma.Value(), expected[i], 0.001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Series helper
// ────────────────────────────────────────────────────────────

func TestMovingAverage_NaNUntilReady(t *testing.T) {
	ma := MovingAverage(candles(100, 102, 104, 103, 105), KindSMA, 3)
	if len(ma) != 5 {
		t.Fatalf("expected 5 values, got %d", len(ma))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(ma[i]) {
			t.Errorf("index %d: expected NaN before ready, got %f", i, ma[i])
		}
	}
	assertClose(t, "SMA[4]", ma[4], 104, 1e-9)
}

func TestMovingAverage_SkipsNonFiniteCloses(t *testing.T) {
	for _, kind := range []Kind{KindSMA, KindEMA, KindSMMA} {
		ma := MovingAverage(candles(100, 102, math.NaN(), 104, math.Inf(1), 103, 105), kind, 3)
		if !math.IsNaN(ma[2]) || !math.IsNaN(ma[4]) {
			t.Errorf("%s: expected gaps at bad closes, got %v", kind, ma)
		}
		want := MovingAverage(candles(100, 102, 104, 103, 105), kind, 3)
		assertClose(t, string(kind)+" after gaps", ma[6], want[4], 1e-9)
	}
}

func TestSMA_LongSeriesMatchesWindowMean(t *testing.T) {
	sma := NewSMA(7)
	var last []float64
	for i := 0; i < 10_000; i++ {
		p := 1e6 + math.Sin(float64(i))*1e3 + 0.1
		sma.Update(p)
		last = append(last, p)
		if len(last) > 7 {
			last = last[1:]
		}
	}
	var sum float64
	for _, v := range last {
		sum += v
	}
	assertClose(t, "SMA(7) after 10k updates", sma.Value(), sum/7, 1e-6)
}

func TestMovingAverage_InvalidPeriod(t *testing.T) {
	for _, v := range MovingAverage(candles(1, 2, 3), KindEMA, 0) {
		if !math.IsNaN(v) {
			t.Fatalf("expected all NaN for period 0, got %f", v)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{"ema": KindEMA, " SMMA ": KindSMMA, "sma": KindSMA, "": KindSMA, "wma": KindSMA}
	for in, want := range tests {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", in, got, want)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Cross-indicator: same data → correct ordering
// ────────────────────────────────────────────────────────────

func TestIndicators_TrendingUp_Ordering(t *testing.T) {
	sma5 := NewSMA(5)
	sma20 := NewSMA(20)
	ema5 := NewEMA(5)

	for i := 0; i < 30; i++ {
		p := 100 + float64(i) // steadily rising
		sma5.Update(p)
		sma20.Update(p)
		ema5.Update(p)
	}

	if sma5.Value() <= sma20.Value() {
		t.Errorf("SMA(5) should be > SMA(20) in uptrend: SMA5=%.2f, SMA20=%.2f", sma5.Value(), sma20.Value())
	}
	if ema5.Value() <= sma20.Value() {
		t.Errorf("EMA(5) should be > SMA(20) in uptrend: EMA5=%.2f, SMA20=%.2f", ema5.Value(), sma20.Value())
	}
}

func TestEMA_MoreResponsiveThanSMA(t *testing.T) {
	sma := NewSMA(10)
	ema := NewEMA(10)

	for i := 0; i < 20; i++ {
		sma.Update(100)
		ema.Update(100)
	}

	// Sudden jump to 120
	sma.Update(120)
	ema.Update(120)

	if ema.Value() <= sma.Value() {
		t.Errorf("EMA should react more than SMA to sudden price jump: EMA=%.4f, SMA=%.4f", ema.Value(), sma.Value())
	}
}
