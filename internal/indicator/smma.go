package indicator

// SMMA is Wilder's smoothed average: an EMA with alpha = 1/period, seeded
// with the mean of the first period finite closes.
type SMMA struct {
	EMA
}

// NewSMMA returns an SMMA over period prices.
func NewSMMA(period int) *SMMA {
	return &SMMA{EMA{period: period, alpha: 1 / float64(period)}}
}

func (s *SMMA) Name() string { return string(KindSMMA) }
