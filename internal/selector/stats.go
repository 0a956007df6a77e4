package selector

import (
	"sync"

	"github.com/org/authgate/pkg/models"
)

// neutralRate is the assumed success rate for a method before any outcome
// has been observed.
const neutralRate = 0.5

// SuccessStats tracks an exponentially-weighted success rate per method.
// Rates stay within [0,1] and move only on completed outcomes, never on
// in-flight attempts. Safe for concurrent use.
type SuccessStats struct {
	mu    sync.Mutex
	alpha float64
	rates map[models.Method]float64
}

// NewSuccessStats creates stats with the given EWMA smoothing factor.
// alpha must be in (0,1]; larger values weight recent outcomes more.
func NewSuccessStats(alpha float64) *SuccessStats {
	return &SuccessStats{
		alpha: alpha,
		rates: make(map[models.Method]float64),
	}
}

// Record folds one completed outcome into the method's rate.
func (s *SuccessStats) Record(m models.Method, succeeded bool) {
	sample := 0.0
	if succeeded {
		sample = 1.0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.rates[m]
	if !ok {
		prev = neutralRate
	}
	s.rates[m] = prev + s.alpha*(sample-prev)
}

// Rate returns the method's current success rate, or the neutral prior if
// no outcome has been recorded yet.
func (s *SuccessStats) Rate(m models.Method) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rates[m]; ok {
		return r
	}
	return neutralRate
}
