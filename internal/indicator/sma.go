package indicator

// SMA is the arithmetic mean of the last period finite closes. Non-finite
// prices are skipped, so one bad bar leaves a gap instead of poisoning the
// window. The running sum is rebuilt from the window on every wrap to keep
// float drift bounded over long series.
type SMA struct {
	period int
	window []float64
	next   int
	seen   int
	sum    float64
}

// NewSMA returns an SMA over period prices.
func NewSMA(period int) *SMA {
	return &SMA{period: period, window: make([]float64, period)}
}

func (s *SMA) Name() string { return string(KindSMA) }

func (s *SMA) Update(price float64) {
	if !finite(price) {
		return
	}
	if s.seen >= s.period {
		s.sum -= s.window[s.next]
	}
	s.window[s.next] = price
	s.sum += price
	s.seen++
	s.next++
	if s.next == s.period {
		s.next = 0
		if s.seen > s.period {
			s.sum = 0
			for _, v := range s.window {
				s.sum += v
			}
		}
	}
}

func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.sum / float64(s.period)
}

func (s *SMA) Ready() bool { return s.seen >= s.period }

func (s *SMA) Reset() {
	clear(s.window)
	s.next, s.seen, s.sum = 0, 0, 0
}
