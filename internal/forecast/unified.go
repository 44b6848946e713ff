package forecast

import (
	"math"
	"sort"

	"trading-chartv1/internal/model"
)

// Unify builds the canonical per-day path: day 0 is the anchor p0 (with a
// zero-width band), day i is index i−1 of the series. replay may be nil or
// shorter than price; missing replay days are NaN. A non-nil replay starts at
// p0 on day 0 so both lines share the anchor.
func Unify(p0 float64, price, upper, lower, replay []float64) model.UnifiedPath {
	pts := make([]model.PathPoint, 0, len(price)+1)
	day0 := model.PathPoint{Day: 0, Price: p0, Upper: p0, Lower: p0, Replay: math.NaN()}
	if replay != nil {
		day0.Replay = p0
	}
	pts = append(pts, day0)
	for i, p := range price {
		pt := model.PathPoint{Day: i + 1, Price: p, Upper: p, Lower: p, Replay: math.NaN()}
		if i < len(upper) {
			pt.Upper = upper[i]
		}
		if i < len(lower) {
			pt.Lower = lower[i]
		}
		if i < len(replay) {
			pt.Replay = replay[i]
		}
		pts = append(pts, pt)
	}
	return model.UnifiedPath{Points: pts}
}

// Normalize resolves an external payload into the canonical output once, at
// the engine boundary, so renderers never branch on payload shape. The
// modern unified_path wins over the legacy price_path when both are present.
// Band ordering is repaired and non-finite prices are carried forward from
// the previous day (or p0). A nil or empty payload yields an empty output.
func Normalize(p *model.ForecastPayload, p0 float64) model.ForecastOutput {
	out := model.ForecastOutput{Type: model.ForecastPayloadType}
	if p == nil {
		return out
	}

	var price, upper, lower, replay []float64
	anchor := p0
	if len(p.UnifiedPath) > 0 {
		days := append([]model.PayloadDay(nil), p.UnifiedPath...)
		sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })
		hasReplay := false
		for _, d := range days {
			if d.Day <= 0 {
				if finite(d.Price) && d.Price > 0 {
					anchor = d.Price
				}
				continue
			}
			price = append(price, d.Price)
			upper = append(upper, d.Upper)
			lower = append(lower, d.Lower)
			r := math.NaN()
			if d.Replay != nil {
				r = *d.Replay
				hasReplay = true
			}
			replay = append(replay, r)
		}
		if !hasReplay {
			replay = nil
		}
	} else {
		price = append(price, p.PricePath...)
		upper = padTo(p.UpperBand, len(price))
		lower = padTo(p.LowerBand, len(price))
	}
	if len(price) == 0 {
		return out
	}
	if !finite(anchor) || anchor <= 0 {
		anchor = price[0]
	}

	prev := anchor
	for i := range price {
		if !finite(price[i]) {
			price[i] = prev
		}
		if !finite(upper[i]) {
			upper[i] = price[i]
		}
		if !finite(lower[i]) {
			lower[i] = price[i]
		}
		upper[i] = math.Max(upper[i], price[i])
		lower[i] = math.Min(lower[i], price[i])
		prev = price[i]
	}

	out.PricePath = price
	out.UpperBand = upper
	out.LowerBand = lower
	out.TailFloor = p.TailFloor
	out.Markers = append([]model.Marker(nil), p.Markers...)
	if len(out.Markers) == 0 {
		out.Markers = KeyDayMarkers(price)
	}
	out.ConfidenceDecay = append([]float64(nil), p.ConfidenceDecay...)
	out.Unified = Unify(anchor, price, upper, lower, replay)
	return out
}

// padTo copies s and pads it with NaN up to n entries.
func padTo(s []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(s) {
			out[i] = s[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
