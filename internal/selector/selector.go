// Package selector chooses the primary authentication method and fallback
// order for a request via weighted multi-factor scoring.
package selector

import (
	"sort"
	"time"

	"github.com/org/authgate/internal/cache"
	"github.com/org/authgate/pkg/models"
)

// Weights configure the contribution of each selection factor. They are
// configuration, not constants: any non-negative mix with a positive sum
// is accepted.
type Weights struct {
	Signal     float64 `yaml:"signal"`
	Affinity   float64 `yaml:"affinity"`
	History    float64 `yaml:"history"`
	Confidence float64 `yaml:"confidence"`
}

// DefaultWeights is the shipped factor mix.
var DefaultWeights = Weights{Signal: 0.4, Affinity: 0.3, History: 0.2, Confidence: 0.1}

// Validate reports invalid weight configurations.
func (w Weights) Validate() error {
	for field, v := range map[string]float64{
		"signal": w.Signal, "affinity": w.Affinity,
		"history": w.History, "confidence": w.Confidence,
	} {
		if v < 0 {
			return &models.ConfigError{Field: "weights." + field, Reason: "must not be negative"}
		}
	}
	if w.Signal+w.Affinity+w.History+w.Confidence <= 0 {
		return &models.ConfigError{Field: "weights", Reason: "must sum to a positive value"}
	}
	return nil
}

// typeAffinities maps how well each method suits a client type. Mobile
// clients carry the API affinities: mobile is a labeling refinement on top
// of API treatment.
var typeAffinities = map[models.ClientType]map[models.Method]float64{
	models.ClientAPI:     {models.MethodJWT: 1.0, models.MethodSession: 0.2},
	models.ClientMobile:  {models.MethodJWT: 1.0, models.MethodSession: 0.2},
	models.ClientBrowser: {models.MethodJWT: 0.2, models.MethodSession: 1.0},
	models.ClientSPA:     {models.MethodJWT: 0.6, models.MethodSession: 0.8},
	models.ClientHybrid:  {models.MethodJWT: 0.7, models.MethodSession: 0.7},
}

func typeAffinity(t models.ClientType, m models.Method) float64 {
	if row, ok := typeAffinities[t]; ok {
		return row[m]
	}
	return 0
}

func signalStrength(s models.SignalSet, m models.Method) float64 {
	switch m {
	case models.MethodJWT:
		if s.HasBearerToken {
			return 1.0
		}
	case models.MethodSession:
		if s.HasSessionCookie {
			return 1.0
		}
	}
	return 0
}

// Selector scores candidate methods and caches decisions per
// (fingerprint, route class).
type Selector struct {
	weights       Weights
	defaultMethod models.Method
	decisions     *cache.TTLCache[models.Decision]
	now           func() time.Time
}

// New creates a Selector. ttl bounds the decision cache lifetime;
// defaultMethod is the primary when every candidate scores zero.
func New(weights Weights, defaultMethod models.Method, ttl time.Duration) (*Selector, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if !defaultMethod.Valid() {
		return nil, &models.ConfigError{Field: "default_method", Reason: "unknown method"}
	}
	return &Selector{
		weights:       weights,
		defaultMethod: defaultMethod,
		decisions:     cache.New[models.Decision](ttl),
		now:           time.Now,
	}, nil
}

func decisionKey(fingerprint, routeClass string) string {
	return fingerprint + "|" + routeClass
}

// Cached returns a live prior decision for the fingerprint and route class.
func (s *Selector) Cached(fingerprint, routeClass string) (models.Decision, bool) {
	return s.decisions.Get(decisionKey(fingerprint, routeClass))
}

// Invalidate drops any cached decision for the fingerprint and route class.
func (s *Selector) Invalidate(fingerprint, routeClass string) {
	s.decisions.Delete(decisionKey(fingerprint, routeClass))
}

// Select scores every method for the request, picks the primary, orders the
// fallbacks, caches the decision, and returns it. Identical inputs always
// produce the identical decision; there is no hidden randomness.
func (s *Selector) Select(fingerprint, routeClass string, sig models.SignalSet, verdict models.Verdict, stats *SuccessStats) models.Decision {
	scores := make(map[models.Method]float64, len(models.AllMethods))
	for _, m := range models.AllMethods {
		scores[m] = s.weights.Signal*signalStrength(sig, m) +
			s.weights.Affinity*typeAffinity(verdict.Type, m) +
			s.weights.History*stats.Rate(m) +
			s.weights.Confidence*verdict.Confidence
	}

	// Argmax in declared priority order: strict improvement wins, so ties
	// resolve to the earlier method.
	primary := models.AllMethods[0]
	for _, m := range models.AllMethods[1:] {
		if scores[m] > scores[primary] {
			primary = m
		}
	}
	if scores[primary] == 0 {
		primary = s.defaultMethod
	}

	fallback := make([]models.Method, 0, len(models.AllMethods)-1)
	for _, m := range models.AllMethods {
		if m != primary {
			fallback = append(fallback, m)
		}
	}
	sort.SliceStable(fallback, func(i, j int) bool {
		return scores[fallback[i]] > scores[fallback[j]]
	})

	d := models.Decision{
		Primary:       primary,
		FallbackOrder: fallback,
		Breakdown: map[string]float64{
			"signal":     s.weights.Signal * signalStrength(sig, primary),
			"affinity":   s.weights.Affinity * typeAffinity(verdict.Type, primary),
			"history":    s.weights.History * stats.Rate(primary),
			"confidence": s.weights.Confidence * verdict.Confidence,
		},
		DecidedAt: s.now().UTC(),
	}
	s.decisions.Set(decisionKey(fingerprint, routeClass), d)
	return d
}
