package consensus

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/config"
)

const (
	controllerWindow = 5

	highSuccess = 0.80
	lowSuccess  = 0.50

	batchStep = 2

	slowLatencyRatio = 0.6 // of current timeout
	fastLatencyRatio = 0.2 // of current timeout
)

// Controller tunes batch size and per-batch timeout from a rolling window of
// round summaries. Updates apply to the next round only and move at most one
// step per round so noisy feedback cannot make the parameters oscillate.
type Controller struct {
	adaptive bool

	window []RoundSummary // ring of the most recent summaries
	next   int
	filled int

	batchSize int
	minBatch  int
	maxBatch  int

	timeout        time.Duration
	initialBatch   int
	initialTimeout time.Duration
}

func NewController(cfg config.ConsensusEnvConfig) *Controller {
	return &Controller{
		adaptive:       cfg.AdaptiveBatch,
		window:         make([]RoundSummary, controllerWindow),
		batchSize:      cfg.BatchSizeInitial,
		minBatch:       cfg.BatchSizeMin,
		maxBatch:       cfg.BatchSizeMax,
		timeout:        cfg.BatchTimeoutInitial,
		initialBatch:   cfg.BatchSizeInitial,
		initialTimeout: cfg.BatchTimeoutInitial,
	}
}

// Observe records one finished round and recomputes the parameters for the
// next round.
func (c *Controller) Observe(s RoundSummary) {
	c.window[c.next] = s
	c.next = (c.next + 1) % len(c.window)
	if c.filled < len(c.window) {
		c.filled++
	}

	if !c.adaptive {
		return
	}

	success, latency := c.rolling()
	c.updateBatchSize(success)
	c.updateTimeout(success, latency)

	log.Debug().
		Float64("rolling_success", success).
		Float64("rolling_latency_secs", latency).
		Int("next_batch_size", c.batchSize).
		Dur("next_timeout", c.timeout).
		Msg("controller updated")
}

// NextBatchSize returns the batch size for the upcoming round.
func (c *Controller) NextBatchSize() int {
	if !c.adaptive {
		return c.initialBatch
	}
	return c.batchSize
}

// NextTimeout returns the per-batch timeout for the upcoming round.
func (c *Controller) NextTimeout() time.Duration {
	if !c.adaptive {
		return c.initialTimeout
	}
	return c.timeout
}

func (c *Controller) rolling() (success, latencySecs float64) {
	if c.filled == 0 {
		return 0, 0
	}
	for i := 0; i < c.filled; i++ {
		success += c.window[i].SuccessRate
		latencySecs += c.window[i].MeanLatency.Seconds()
	}
	return success / float64(c.filled), latencySecs / float64(c.filled)
}

func (c *Controller) updateBatchSize(success float64) {
	switch {
	case success > highSuccess:
		c.batchSize = min(c.batchSize+batchStep, c.maxBatch)
	case success < lowSuccess:
		c.batchSize = max(c.batchSize-batchStep, c.minBatch)
	}
}

func (c *Controller) updateTimeout(success, latencySecs float64) {
	cur := c.timeout
	next := cur

	if latencySecs > slowLatencyRatio*cur.Seconds() {
		next = scaleUp(cur)
	} else if latencySecs < fastLatencyRatio*cur.Seconds() {
		next = scaleDown(cur)
	}
	if success < lowSuccess {
		next = scaleUp(next)
	}

	// one step per round regardless of how the rules compose
	if next > scaleUp(cur) {
		next = scaleUp(cur)
	}
	if next < scaleDown(cur) {
		next = scaleDown(cur)
	}

	if ceil := c.initialTimeout * 3 / 2; next > ceil {
		next = ceil
	}
	if floor := c.initialTimeout * 4 / 5; next < floor {
		next = floor
	}

	c.timeout = next
}

// scaleUp and scaleDown apply one timeout step (x1.2 and x0.9) in integer
// duration arithmetic so repeated updates stay exact.
func scaleUp(d time.Duration) time.Duration {
	return d * 6 / 5
}

func scaleDown(d time.Duration) time.Duration {
	return d * 9 / 10
}
