// Package classify maps request signal sets to client-type verdicts.
// The rule list is priority-ordered; the first matching rule governs.
package classify

import (
	"time"

	"github.com/org/authgate/internal/cache"
	"github.com/org/authgate/pkg/models"
)

// rule is one classification pattern. Rules never overlap in outcome:
// evaluation stops at the first match.
type rule struct {
	name       string
	clientType models.ClientType
	confidence float64
	match      func(s models.SignalSet) bool
}

var rules = []rule{
	{
		name:       "bearer-only-api-lib",
		clientType: models.ClientAPI,
		confidence: 0.95,
		match: func(s models.SignalSet) bool {
			return s.HasBearerToken && !s.HasSessionCookie && s.UserAgentClass == models.UAAPILib
		},
	},
	{
		// Native mobile apps are labeled Mobile but treated as API clients
		// by the selector; the label is a refinement, not a routing policy.
		name:       "mobile-app",
		clientType: models.ClientMobile,
		confidence: 0.9,
		match: func(s models.SignalSet) bool {
			return s.UserAgentClass == models.UAMobile
		},
	},
	{
		name:       "cookie-browser",
		clientType: models.ClientBrowser,
		confidence: 0.9,
		match: func(s models.SignalSet) bool {
			return s.HasSessionCookie && s.UserAgentClass == models.UABrowser && !s.AcceptsJSON
		},
	},
	{
		name:       "cookie-spa",
		clientType: models.ClientSPA,
		confidence: 0.8,
		match: func(s models.SignalSet) bool {
			return s.HasSessionCookie && s.AcceptsJSON && s.OriginHeaderPresent
		},
	},
	{
		name:       "dual-credential",
		clientType: models.ClientHybrid,
		confidence: 0.6,
		match: func(s models.SignalSet) bool {
			return s.HasBearerToken && s.HasSessionCookie
		},
	},
}

// defaultVerdict is the safe fallthrough: unauthenticated-looking traffic is
// treated as API to avoid session-fixation assumptions.
const (
	defaultType       = models.ClientAPI
	defaultConfidence = 0.4
)

// Classifier evaluates the rule list and caches verdicts per client
// fingerprint so repeat clients skip the work.
type Classifier struct {
	verdicts *cache.TTLCache[models.Verdict]
	now      func() time.Time
}

// New creates a Classifier whose verdict cache holds entries for ttl.
func New(ttl time.Duration) *Classifier {
	return &Classifier{
		verdicts: cache.New[models.Verdict](ttl),
		now:      time.Now,
	}
}

// Cached returns a prior verdict for the fingerprint if one is still live.
func (c *Classifier) Cached(fingerprint string) (models.Verdict, bool) {
	return c.verdicts.Get(fingerprint)
}

// Classify evaluates the rules for the signal set, stores the verdict under
// the fingerprint, and returns it. Always terminates with a verdict.
func (c *Classifier) Classify(fingerprint string, s models.SignalSet) models.Verdict {
	clientType, confidence := evaluate(s)
	v := models.Verdict{
		Type:       clientType,
		Confidence: confidence,
		ComputedAt: c.now().UTC(),
	}
	c.verdicts.Set(fingerprint, v)
	return v
}

// evaluate runs the priority-ordered rule list. Pure and deterministic.
func evaluate(s models.SignalSet) (models.ClientType, float64) {
	for _, r := range rules {
		if r.match(s) {
			return r.clientType, r.confidence
		}
	}
	return defaultType, defaultConfidence
}
