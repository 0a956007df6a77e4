package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/org/authgate/pkg/models"
)

func TestOutcomeCounters(t *testing.T) {
	a := New()
	a.RecordOutcome(models.Outcome{Method: models.MethodJWT, Succeeded: true})
	a.RecordOutcome(models.Outcome{Method: models.MethodJWT, Succeeded: false})
	a.RecordOutcome(models.Outcome{Method: models.MethodSession, Succeeded: true, FellBack: true})

	snap := a.Snapshot()
	jwt := snap.Methods["jwt"]
	if jwt.Attempts != 2 || jwt.Successes != 1 || jwt.SuccessRate != 0.5 {
		t.Errorf("unexpected jwt stats %+v", jwt)
	}
	sess := snap.Methods["session"]
	if sess.Attempts != 1 || sess.Successes != 1 || sess.SuccessRate != 1.0 {
		t.Errorf("unexpected session stats %+v", sess)
	}
	if snap.Fallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", snap.Fallbacks)
	}
}

func TestCacheCounters(t *testing.T) {
	a := New()
	a.RecordCacheHit(CacheDecision)
	a.RecordCacheHit(CacheDecision)
	a.RecordCacheMiss(CacheDecision)
	a.RecordCacheMiss(CacheCapability)

	snap := a.Snapshot()
	dec := snap.Caches[CacheDecision]
	if dec.Hits != 2 || dec.Misses != 1 {
		t.Errorf("unexpected decision cache stats %+v", dec)
	}
	if dec.HitRate < 0.66 || dec.HitRate > 0.67 {
		t.Errorf("unexpected hit rate %f", dec.HitRate)
	}
	cap := snap.Caches[CacheCapability]
	if cap.Hits != 0 || cap.Misses != 1 || cap.HitRate != 0 {
		t.Errorf("unexpected capability cache stats %+v", cap)
	}
}

func TestDecisionLatency(t *testing.T) {
	a := New()
	a.RecordDecision(2 * time.Millisecond)
	a.RecordDecision(4 * time.Millisecond)

	snap := a.Snapshot()
	if snap.Decisions != 2 {
		t.Fatalf("expected 2 decisions, got %d", snap.Decisions)
	}
	if snap.AvgDecisionLatencyMs != 3.0 {
		t.Errorf("expected 3ms average, got %f", snap.AvgDecisionLatencyMs)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	a := New()
	a.RecordClientType(models.ClientAPI)
	snap := a.Snapshot()
	snap.ClientTypes["api"] = 999

	if got := a.Snapshot().ClientTypes["api"]; got != 1 {
		t.Errorf("snapshot mutation leaked into aggregator: %d", got)
	}
}

func TestConcurrentRecording(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				a.RecordOutcome(models.Outcome{Method: models.MethodJWT, Succeeded: true})
				a.RecordCacheHit(CacheCapability)
				a.RecordEvent(models.EventRateLimited)
			}
		}()
	}
	wg.Wait()

	snap := a.Snapshot()
	if snap.Methods["jwt"].Attempts != 2000 {
		t.Errorf("expected 2000 attempts, got %d", snap.Methods["jwt"].Attempts)
	}
	if snap.Caches[CacheCapability].Hits != 2000 {
		t.Errorf("expected 2000 hits, got %d", snap.Caches[CacheCapability].Hits)
	}
	if snap.Events[string(models.EventRateLimited)] != 2000 {
		t.Errorf("expected 2000 events, got %d", snap.Events[string(models.EventRateLimited)])
	}
}
