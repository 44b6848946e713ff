// Package forecast turns anchor returns and a historical template trajectory
// into a calibrated forecast path with asymmetric uncertainty bands.
//
// Build is pure and deterministic: no I/O, no shared state. It never fails;
// degenerate inputs select a fallback path instead.
package forecast

import (
	"math"
	"strconv"

	"trading-chartv1/internal/model"
)

const (
	// MinTemplateLen is the shortest aftermath template that is calibrated.
	MinTemplateLen = 7

	// DefaultHorizon is the fallback path length in days.
	DefaultHorizon = 30
)

// Input holds the calibration inputs.
type Input struct {
	CurrentPrice float64 // P0

	// Anchor returns (fractions) at day 7, 14 and 30.
	R7, R14, R30 float64

	// Aftermath is the template percent path (base ≈ 100). Index i is day i+1.
	Aftermath []float64

	WorkingDrawdown float64 // fraction, drives band width
	TailDrawdownP95 float64 // fraction, drives the tail floor
	Confidence      float64 // [0,1]

	// Horizon, when positive, truncates the template and sets the fallback
	// path length. Zero means DefaultHorizon for the fallback.
	Horizon int
}

// FromRequest builds an Input from the wire request and the current price.
func FromRequest(req *model.ForecastRequest, currentPrice float64) Input {
	if req == nil {
		return Input{CurrentPrice: currentPrice}
	}
	return Input{
		CurrentPrice:    currentPrice,
		R7:              req.R7,
		R14:             req.R14,
		R30:             req.R30,
		Aftermath:       req.Aftermath,
		WorkingDrawdown: req.WorkingDrawdown,
		TailDrawdownP95: req.TailDrawdownP95,
		Confidence:      req.Confidence,
		Horizon:         req.HorizonDays,
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// usableTemplate reports whether the aftermath can be calibrated: at least
// MinTemplateLen finite points and a positive base.
func usableTemplate(a []float64) bool {
	if len(a) < MinTemplateLen || a[0] <= 0 {
		return false
	}
	return finite(a...)
}

// Build computes the forecast. A current price that is not a positive finite
// number yields an empty output, which renderers treat as missing data.
func Build(in Input) model.ForecastOutput {
	p0 := in.CurrentPrice
	if !finite(p0) || p0 <= 0 {
		return model.ForecastOutput{Type: model.ForecastFallbackExp}
	}
	r7, r14, r30 := sanitizeReturn(in.R7), sanitizeReturn(in.R14), sanitizeReturn(in.R30)

	template := in.Aftermath
	if in.Horizon > 0 && len(template) > in.Horizon {
		template = template[:in.Horizon]
	}

	var (
		returns []float64
		replay  []float64
		typ     model.ForecastType
	)
	if usableTemplate(template) {
		raw := RawReturns(template)
		returns = Calibrate(raw, r7, r14, r30)
		replay = raw
		typ = model.ForecastCalibrated
	} else {
		n := in.Horizon
		if n <= 0 {
			n = DefaultHorizon
		}
		returns = ExponentialReturns(r30, n)
		typ = model.ForecastFallbackExp
	}

	price := make([]float64, len(returns))
	for i, r := range returns {
		price[i] = p0 * (1 + r)
		if price[i] <= 0 {
			price[i] = p0 * minPriceRatio
		}
	}
	upper, lower := Bands(price, in.WorkingDrawdown, in.Confidence)

	out := model.ForecastOutput{
		PricePath:       price,
		UpperBand:       upper,
		LowerBand:       lower,
		TailFloor:       TailFloor(p0, in.TailDrawdownP95),
		Markers:         KeyDayMarkers(price),
		ConfidenceDecay: ConfidenceDecay(in.Confidence, len(price)),
		Type:            typ,
	}
	var replayPrice []float64
	if replay != nil {
		replayPrice = make([]float64, len(replay))
		for i, r := range replay {
			replayPrice[i] = p0 * (1 + r)
		}
	}
	out.Unified = Unify(p0, price, upper, lower, replayPrice)
	return out
}

// minPriceRatio keeps prices positive when an anchor return is ≤ −100 %.
const minPriceRatio = 1e-3

// sanitizeReturn maps non-finite returns to 0.
func sanitizeReturn(r float64) float64 {
	if !finite(r) {
		return 0
	}
	return r
}

// ExponentialReturns returns n daily returns of a constant-rate path whose
// day-30 return equals r30: k = ln(1+r30)/30, ret[i] = e^{k(i+1)} − 1.
func ExponentialReturns(r30 float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	g := 1 + r30
	if g < minPriceRatio {
		g = minPriceRatio
	}
	k := math.Log(g) / Day30
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(k*float64(i+1)) - 1
	}
	return out
}

// TailFloor returns the day-independent worst-case level P0·(1 − p95).
func TailFloor(p0, tailDrawdownP95 float64) float64 {
	dd := tailDrawdownP95
	if !finite(dd) || dd < 0 {
		dd = 0
	}
	if dd > 1 {
		dd = 1
	}
	return p0 * (1 - dd)
}

// KeyDayMarkers labels days 7, 14 and the final day of the path.
func KeyDayMarkers(price []float64) []model.Marker {
	n := len(price)
	var out []model.Marker
	for _, d := range []int{Day7, Day14} {
		if d < n {
			out = append(out, model.Marker{Day: d, Label: dayLabel(d), Price: price[d-1]})
		}
	}
	if n > 0 {
		out = append(out, model.Marker{Day: n, Label: dayLabel(n), Price: price[n-1]})
	}
	return out
}

func dayLabel(d int) string { return "D" + strconv.Itoa(d) }

// ConfidenceDecay returns confidence·e^{−t/n} for days t = 1..n.
func ConfidenceDecay(confidence float64, n int) []float64 {
	c := clampConfidence(confidence)
	out := make([]float64, n)
	for i := range out {
		out[i] = c * math.Exp(-float64(i+1)/float64(n))
	}
	return out
}
