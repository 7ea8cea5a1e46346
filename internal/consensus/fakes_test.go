package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moderntensor/mtnode/internal/config"
	"github.com/moderntensor/mtnode/internal/registry"
	"github.com/moderntensor/mtnode/internal/synapse"
)

// minerMode controls how a fake miner answers.
type minerMode string

const (
	modeOK        minerMode = "ok"        // well-formed reply with url + version
	modeBare      minerMode = "bare"      // reply with task id only
	modeMute      minerMode = "mute"      // never answers, blocks until cancelled
	modeRefuse    minerMode = "refuse"    // synchronous transport error
	modeMalformed minerMode = "malformed" // reply that does not parse
	modeWrongID   minerMode = "wrongid"   // parsed reply referencing another task
)

type fakeBehavior struct {
	mode  minerMode
	delay time.Duration
}

// fakeSender implements TaskSender with per-endpoint behaviors.
type fakeSender struct {
	mu        sync.Mutex
	behaviors map[string]fakeBehavior
	requests  []synapse.TaskRequest
}

func newFakeSender() *fakeSender {
	return &fakeSender{behaviors: make(map[string]fakeBehavior)}
}

func (f *fakeSender) setBehavior(endpoint string, b fakeBehavior) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behaviors[endpoint] = b
}

func (f *fakeSender) sent() []synapse.TaskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]synapse.TaskRequest(nil), f.requests...)
}

// batchSizes groups recorded requests by round.
func (f *fakeSender) batchSizes() map[int]int {
	sizes := make(map[int]int)
	for _, r := range f.sent() {
		sizes[r.Round]++
	}
	return sizes
}

func (f *fakeSender) SendTask(ctx context.Context, endpoint string, req synapse.TaskRequest) (synapse.TaskResponse, error) {
	f.mu.Lock()
	b := f.behaviors[endpoint]
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if b.delay > 0 {
		t := time.NewTimer(b.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return synapse.TaskResponse{}, ctx.Err()
		case <-t.C:
		}
	}

	switch b.mode {
	case modeMute:
		<-ctx.Done()
		return synapse.TaskResponse{}, ctx.Err()
	case modeRefuse:
		return synapse.TaskResponse{}, errors.New("connect: connection refused")
	case modeMalformed:
		return synapse.TaskResponse{}, fmt.Errorf("%w: unexpected byte", synapse.ErrMalformedReply)
	case modeWrongID:
		return synapse.TaskResponse{TaskID: "bogus"}, nil
	case modeBare:
		return synapse.TaskResponse{TaskID: req.TaskID}, nil
	default:
		return synapse.TaskResponse{
			TaskID:       req.TaskID,
			ResultURL:    "http://results.local/" + req.TaskID,
			ModelVersion: "v1.2",
			LatencySecs:  1,
		}, nil
	}
}

// fakeRegistry serves a fixed miner set, optionally failing.
type fakeRegistry struct {
	miners []registry.MinerInfo
	err    error
}

func (f *fakeRegistry) FetchActiveMiners(int) ([]registry.MinerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	active := make([]registry.MinerInfo, 0, len(f.miners))
	for _, m := range f.miners {
		if m.Status == registry.StatusActive {
			active = append(active, m)
		}
	}
	return active, nil
}

func (f *fakeRegistry) GetLatestSlot() (registry.SlotInfo, error) {
	return registry.SlotInfo{Slot: 1}, nil
}

// fakePublisher records publish calls.
type fakePublisher struct {
	mu     sync.Mutex
	calls  int
	last   map[string]float64
	err    error
}

func (f *fakePublisher) PublishScores(_ int64, scores map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = scores
	return f.err
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testMiners(n int) []registry.MinerInfo {
	miners := make([]registry.MinerInfo, 0, n)
	for i := 1; i <= n; i++ {
		miners = append(miners, registry.MinerInfo{
			UID:      fmt.Sprintf("0x%02x", i),
			Endpoint: fmt.Sprintf("http://miner-%d.local", i),
			Weight:   float64(i),
			Status:   registry.StatusActive,
		})
	}
	return miners
}

func testConsensusCfg() config.ConsensusEnvConfig {
	return config.ConsensusEnvConfig{
		BatchSizeInitial:     5,
		BatchSizeMin:         2,
		BatchSizeMax:         10,
		BatchTimeoutInitial:  150 * time.Millisecond,
		MinBreak:             10 * time.Millisecond,
		MaxConcurrent:        10,
		ScoreAggregation:     "average",
		RetryFailed:          true,
		AdaptiveBatch:        true,
		DeterministicScoring: true,
		PhaseGuard:           time.Millisecond,
	}
}
