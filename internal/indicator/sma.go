package indicator

// SMA — simple moving average over a fixed window. Ready once the window is
// full.
type SMA struct {
	period int
	window []float64
	sum    float64
}

func NewSMA(period int) *SMA {
	if period <= 0 {
		period = 14
	}
	return &SMA{period: period}
}

func (s *SMA) Update(v float64) {
	s.window = append(s.window, v)
	s.sum += v
	if len(s.window) > s.period {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

func (s *SMA) Ready() bool { return len(s.window) >= s.period }

func (s *SMA) Value() float64 {
	if len(s.window) == 0 {
		return 0
	}
	return s.sum / float64(len(s.window))
}
