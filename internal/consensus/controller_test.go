package consensus

import (
	"testing"
	"time"
)

func goodRound() RoundSummary {
	return RoundSummary{SuccessRate: 1.0, MeanLatency: time.Second}
}

func badRound() RoundSummary {
	return RoundSummary{SuccessRate: 0.0}
}

func TestControllerGrowsBatchOnHighSuccess(t *testing.T) {
	c := NewController(testConsensusCfg())

	c.Observe(goodRound())
	if got := c.NextBatchSize(); got != 7 {
		t.Fatalf("batch size after one good round: got %d, want 7", got)
	}
	c.Observe(goodRound())
	if got := c.NextBatchSize(); got != 9 {
		t.Fatalf("batch size after two good rounds: got %d, want 9", got)
	}
}

func TestControllerShrinksBatchOnLowSuccess(t *testing.T) {
	c := NewController(testConsensusCfg())

	c.Observe(badRound())
	if got := c.NextBatchSize(); got != 3 {
		t.Fatalf("batch size after one failed round: got %d, want 3", got)
	}
	c.Observe(badRound())
	if got := c.NextBatchSize(); got != 2 {
		t.Fatalf("batch size after two failed rounds: got %d, want 2", got)
	}
}

func TestControllerBatchClampedRegardlessOfInput(t *testing.T) {
	c := NewController(testConsensusCfg())

	for i := 0; i < 50; i++ {
		c.Observe(goodRound())
		if got := c.NextBatchSize(); got > 10 {
			t.Fatalf("batch size exceeded max: %d", got)
		}
	}
	for i := 0; i < 50; i++ {
		c.Observe(badRound())
		if got := c.NextBatchSize(); got < 2 {
			t.Fatalf("batch size fell below min: %d", got)
		}
	}
}

func TestControllerBatchStepIsBounded(t *testing.T) {
	c := NewController(testConsensusCfg())

	prev := c.NextBatchSize()
	inputs := []RoundSummary{goodRound(), goodRound(), badRound(), goodRound(), badRound(), badRound()}
	for _, s := range inputs {
		c.Observe(s)
		cur := c.NextBatchSize()
		if diff := cur - prev; diff > 2 || diff < -2 {
			t.Fatalf("batch size moved %d in one round", diff)
		}
		prev = cur
	}
}

func TestControllerTimeoutScalesUpWhenSlow(t *testing.T) {
	cfg := testConsensusCfg()
	cfg.BatchTimeoutInitial = 30 * time.Second
	c := NewController(cfg)

	// mean latency above 60% of the current timeout pushes it up by 1.2
	c.Observe(RoundSummary{SuccessRate: 1.0, MeanLatency: 25 * time.Second})
	if got := c.NextTimeout(); got != 36*time.Second {
		t.Fatalf("timeout after slow round: got %v, want 36s", got)
	}

	// cap at 1.5x initial
	for i := 0; i < 20; i++ {
		c.Observe(RoundSummary{SuccessRate: 1.0, MeanLatency: 60 * time.Second})
	}
	if got := c.NextTimeout(); got != 45*time.Second {
		t.Fatalf("timeout cap: got %v, want 45s", got)
	}
}

func TestControllerTimeoutScalesDownWhenFast(t *testing.T) {
	cfg := testConsensusCfg()
	cfg.BatchTimeoutInitial = 30 * time.Second
	c := NewController(cfg)

	// mean latency below 20% of the current timeout pulls it down by 0.9
	c.Observe(RoundSummary{SuccessRate: 1.0, MeanLatency: time.Second})
	if got := c.NextTimeout(); got != 27*time.Second {
		t.Fatalf("timeout after fast round: got %v, want 27s", got)
	}

	// floor at 0.8x initial
	for i := 0; i < 20; i++ {
		c.Observe(RoundSummary{SuccessRate: 1.0, MeanLatency: time.Second})
	}
	if got := c.NextTimeout(); got != 24*time.Second {
		t.Fatalf("timeout floor: got %v, want 24s", got)
	}
}

func TestControllerTimeoutOneStepPerRound(t *testing.T) {
	cfg := testConsensusCfg()
	cfg.BatchTimeoutInitial = 30 * time.Second
	c := NewController(cfg)

	// slow latency and low success would compose to 1.44x; the guard limits
	// the move to a single 1.2x step
	c.Observe(RoundSummary{SuccessRate: 0.0, MeanLatency: 25 * time.Second})
	if got := c.NextTimeout(); got != 36*time.Second {
		t.Fatalf("timeout moved more than one step: got %v", got)
	}
}

func TestControllerFrozenWhenAdaptiveDisabled(t *testing.T) {
	cfg := testConsensusCfg()
	cfg.AdaptiveBatch = false
	c := NewController(cfg)

	for i := 0; i < 10; i++ {
		c.Observe(goodRound())
	}
	if got := c.NextBatchSize(); got != cfg.BatchSizeInitial {
		t.Fatalf("frozen batch size changed: %d", got)
	}
	if got := c.NextTimeout(); got != cfg.BatchTimeoutInitial {
		t.Fatalf("frozen timeout changed: %v", got)
	}
}

func TestControllerWindowIsBounded(t *testing.T) {
	c := NewController(testConsensusCfg())

	// five failed rounds fill the window; one good round cannot outvote them
	for i := 0; i < 5; i++ {
		c.Observe(badRound())
	}
	size := c.NextBatchSize()
	c.Observe(goodRound())
	if got := c.NextBatchSize(); got > size {
		t.Fatalf("single good round flipped the rolling mean: %d -> %d", size, got)
	}
}
