package forecast

import "math"

// Band asymmetry: the downside is weighted heavier than the upside.
const (
	UpsideWeight   = 0.85
	DownsideWeight = 1.35
)

func clampConfidence(c float64) float64 {
	if !finite(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ConfidenceScale widens bands as confidence drops:
// clamp(1 + (1−confidence)·1.5, 0.6, 2.0).
func ConfidenceScale(confidence float64) float64 {
	s := 1 + (1-clampConfidence(confidence))*1.5
	return math.Max(0.6, math.Min(2.0, s))
}

// BandWidth returns workingDrawdown·sqrt(t/n)·ConfidenceScale for day t of n.
func BandWidth(workingDrawdown float64, t, n int, confidence float64) float64 {
	if n <= 0 || t <= 0 {
		return 0
	}
	wd := workingDrawdown
	if !finite(wd) || wd < 0 {
		wd = 0
	}
	return wd * math.Sqrt(float64(t)/float64(n)) * ConfidenceScale(confidence)
}

// Bands returns the asymmetric upper and lower bands around price.
// upper = p·(1 + 0.85·w), lower = p·(1 − 1.35·w), with the lower band
// floored at zero.
func Bands(price []float64, workingDrawdown, confidence float64) (upper, lower []float64) {
	n := len(price)
	upper = make([]float64, n)
	lower = make([]float64, n)
	for i, p := range price {
		w := BandWidth(workingDrawdown, i+1, n, confidence)
		upper[i] = p * (1 + UpsideWeight*w)
		lower[i] = math.Max(0, p*(1-DownsideWeight*w))
	}
	return upper, lower
}
