package model

// Match is a historical analog of the current window. Both series are
// base-100 indexed: the first point of WindowNormalized is 100.
type Match struct {
	WindowNormalized    []float64 `json:"windowNormalized"`
	AftermathNormalized []float64 `json:"aftermathNormalized"`
	Similarity          float64   `json:"similarity"`
	Stability           float64   `json:"stability"`
	Phase               Phase     `json:"phase"`
}

// Empty reports whether the match has nothing to draw.
func (m *Match) Empty() bool {
	return m == nil || len(m.WindowNormalized) == 0
}

// DistributionSeries holds per-day percentile arrays of the aftermath horizon.
type DistributionSeries struct {
	P10 []float64 `json:"p10"`
	P25 []float64 `json:"p25"`
	P50 []float64 `json:"p50"`
	P75 []float64 `json:"p75"`
	P90 []float64 `json:"p90"`
}

// Len returns the shortest percentile length, so every index below it is
// addressable in all five arrays.
func (d *DistributionSeries) Len() int {
	if d == nil {
		return 0
	}
	n := len(d.P10)
	for _, s := range [][]float64{d.P25, d.P50, d.P75, d.P90} {
		if len(s) < n {
			n = len(s)
		}
	}
	return n
}

// Valid reports whether there is at least one day of percentiles.
func (d *DistributionSeries) Valid() bool { return d.Len() > 0 }
