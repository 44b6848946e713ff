package frame

import (
	"time"

	"trading-chartv1/internal/forecast"
	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/render"
)

// Scene is the data half of a frame: the candles and the options derived
// from a snapshot. The viewport and crosshair come from the controller.
// A Scene is immutable once submitted.
type Scene struct {
	Symbol  string
	Candles []model.Candle
	Options render.Options
}

// SceneFromSnapshot resolves the overlays of snap on top of base. A forecast
// payload from upstream wins over calibration inputs; calibration anchors on
// the last close. m may be nil.
func SceneFromSnapshot(snap *model.Snapshot, base render.Options, m *metrics.Metrics) Scene {
	sc := Scene{Options: base}
	if snap == nil {
		return sc
	}
	sc.Symbol = snap.Symbol
	sc.Candles = snap.Candles
	if len(snap.Phases) > 0 {
		sc.Options.Phases = model.NormalizeZones(snap.Phases)
	}
	if snap.Match != nil {
		sc.Options.Match = snap.Match
	}
	if snap.Distribution != nil {
		sc.Options.Distribution = snap.Distribution
	}

	p0 := model.LastClose(snap.Candles)
	var out *model.ForecastOutput
	start := time.Now()
	switch {
	case snap.ForecastPayload != nil:
		f := forecast.Normalize(snap.ForecastPayload, p0)
		out = &f
	case snap.ForecastInput != nil:
		in := forecast.FromRequest(snap.ForecastInput, p0)
		if in.Horizon == 0 && base.HorizonDays > 0 {
			in.Horizon = base.HorizonDays
		}
		f := forecast.Build(in)
		out = &f
	}
	if out == nil {
		return sc
	}
	sc.Options.Forecast = out
	if m != nil {
		typ := string(out.Type)
		if out.Horizon() == 0 {
			typ = "empty"
		}
		m.ForecastBuilds.WithLabelValues(typ).Inc()
		m.ForecastDur.Observe(time.Since(start).Seconds())
	}
	return sc
}
