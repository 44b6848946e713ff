package model

import "math"

// ForecastType tags how a forecast path was produced.
type ForecastType string

const (
	ForecastCalibrated  ForecastType = "calibrated"
	ForecastFallbackExp ForecastType = "fallback-exponential"
	ForecastPayloadType ForecastType = "payload"
)

// Marker labels a key forecast day (day is 1-based, day 0 is the anchor).
type Marker struct {
	Day   int     `json:"day"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// PathPoint is one day of the canonical forecast path. Replay is NaN when
// there is no historical replay for that day.
type PathPoint struct {
	Day    int     `json:"day"`
	Price  float64 `json:"price"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
	Replay float64 `json:"replay"`
}

// HasReplay reports whether the point carries a replay price.
func (p PathPoint) HasReplay() bool { return !math.IsNaN(p.Replay) }

// UnifiedPath is the canonical per-day path: Points[0] is day 0 (the current
// price) and Points[i] is forecast day i.
type UnifiedPath struct {
	Points []PathPoint `json:"points"`
}

// Len returns the number of points including day 0.
func (u UnifiedPath) Len() int { return len(u.Points) }

// HasReplay reports whether any forecast day has a replay price.
func (u UnifiedPath) HasReplay() bool {
	for _, p := range u.Points {
		if p.Day > 0 && p.HasReplay() {
			return true
		}
	}
	return false
}

// ForecastOutput is the engine result consumed by the overlay renderers.
// Invariant: LowerBand[i] ≤ PricePath[i] ≤ UpperBand[i] and
// len(PricePath) equals the horizon in days.
type ForecastOutput struct {
	PricePath       []float64    `json:"pricePath"`
	UpperBand       []float64    `json:"upperBand"`
	LowerBand       []float64    `json:"lowerBand"`
	TailFloor       float64      `json:"tailFloor"`
	Markers         []Marker     `json:"markers"`
	ConfidenceDecay []float64    `json:"confidenceDecay"`
	Type            ForecastType `json:"type"`
	Unified         UnifiedPath  `json:"unified"`
}

// Horizon returns the number of forecast days.
func (f *ForecastOutput) Horizon() int {
	if f == nil {
		return 0
	}
	return len(f.PricePath)
}

// ForecastPayload is the external wire contract produced by an upstream
// forecasting service. UnifiedPath is the modern shape, PricePath the legacy
// one; both may be present.
type ForecastPayload struct {
	PricePath       []float64    `json:"price_path"`
	UpperBand       []float64    `json:"upper_band"`
	LowerBand       []float64    `json:"lower_band"`
	TailFloor       float64      `json:"tail_floor"`
	Markers         []Marker     `json:"markers"`
	ConfidenceDecay []float64    `json:"confidence_decay"`
	UnifiedPath     []PayloadDay `json:"unified_path,omitempty"`
}

// PayloadDay is one entry of a payload's unified_path. Replay is optional.
type PayloadDay struct {
	Day    int      `json:"day"`
	Price  float64  `json:"price"`
	Upper  float64  `json:"upper"`
	Lower  float64  `json:"lower"`
	Replay *float64 `json:"replay,omitempty"`
}
