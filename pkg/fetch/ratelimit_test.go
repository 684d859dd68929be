package fetch

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestRateLimiter() *RateLimiter {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewRateLimiter(100*time.Millisecond, log)
}

func TestApplyDelay_NoDelayOnFirstRequest(t *testing.T) {
	rl := newTestRateLimiter()

	start := time.Now()
	rl.ApplyDelay("fresh-host.test", 5*time.Second)
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("first request to a host should not be delayed, took %v", elapsed)
	}
}

func TestApplyDelay_SleepsForExpectedDuration(t *testing.T) {
	rl := newTestRateLimiter()
	host := "records.test"

	// Simulate a recent request so delay is needed
	rl.UpdateLastRequestTime(host)

	start := time.Now()
	rl.ApplyDelay(host, 100*time.Millisecond)
	elapsed := time.Since(start)

	// Allow for jitter (+/- 10%) and timer imprecision
	if elapsed < 50*time.Millisecond {
		t.Errorf("ApplyDelay returned too quickly: %v, expected ~100ms", elapsed)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("ApplyDelay took too long: %v, expected ~100ms", elapsed)
	}
}

func TestApplyDelay_ZeroMinDelayUsesDefault(t *testing.T) {
	rl := newTestRateLimiter()
	host := "records.test"
	rl.UpdateLastRequestTime(host)

	start := time.Now()
	rl.ApplyDelay(host, 0) // falls back to the 100ms default
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("expected fallback to default delay, returned after %v", elapsed)
	}
}

func TestApplyDelay_NoDelayAfterElapsed(t *testing.T) {
	rl := newTestRateLimiter()
	host := "records.test"
	rl.UpdateLastRequestTime(host)

	time.Sleep(150 * time.Millisecond) // let the politeness window pass

	start := time.Now()
	rl.ApplyDelay(host, 100*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("delay window already elapsed, but ApplyDelay slept %v", elapsed)
	}
}
