package indicator

import "sync"

// Store — per-symbol indicator state shared by the scanner (which warms it)
// and the engine (which reads ATR for trailing). One ATR on daily bars plus
// one SMA of first-N-minutes volume per symbol.
type Store struct {
	mu     sync.Mutex
	period int
	atrs   map[string]*ATR
	volSMA map[string]*SMA
}

func NewStore(period int) *Store {
	return &Store{
		period: period,
		atrs:   make(map[string]*ATR),
		volSMA: make(map[string]*SMA),
	}
}

func (s *Store) ATR(symbol string) *ATR {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.atrs[symbol]
	if !ok {
		a = NewATR(s.period)
		s.atrs[symbol] = a
	}
	return a
}

func (s *Store) VolumeSMA(symbol string) *SMA {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.volSMA[symbol]
	if !ok {
		m = NewSMA(s.period)
		s.volSMA[symbol] = m
	}
	return m
}
