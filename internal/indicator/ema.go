package indicator

// EMA weights recent closes by alpha = 2/(period+1). The first period finite
// closes seed it with their mean; non-finite prices are skipped.
type EMA struct {
	period int
	alpha  float64
	seed   float64
	seen   int
	value  float64
}

// NewEMA returns an EMA over period prices.
func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2 / float64(period+1)}
}

func (e *EMA) Name() string { return string(KindEMA) }

func (e *EMA) Update(price float64) {
	if !finite(price) {
		return
	}
	e.seen++
	switch {
	case e.seen < e.period:
		e.seed += price
	case e.seen == e.period:
		e.value = (e.seed + price) / float64(e.period)
	default:
		e.value += e.alpha * (price - e.value)
	}
}

func (e *EMA) Value() float64 { return e.value }
func (e *EMA) Ready() bool    { return e.seen >= e.period }

func (e *EMA) Reset() { e.seed, e.seen, e.value = 0, 0, 0 }
