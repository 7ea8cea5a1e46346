// Package minersim runs simulated miners for local networks and tests: a
// configurable responder behind the synapse task endpoint.
package minersim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/synapse"
)

// Behavior controls how a simulated miner answers tasks.
type Behavior struct {
	// Delay before answering.
	Delay time.Duration
	// FailureRate in [0,1]: fraction of tasks answered with a server error.
	FailureRate float64
	// Malformed makes every reply reference a bogus task id.
	Malformed bool
	// Mute makes the miner accept the request and never answer in time by
	// sleeping far past any reasonable batch timeout.
	Mute bool
	// ModelVersion reported in replies. Empty omits the field.
	ModelVersion string
	// ResultURL template; the task id is appended. Empty omits the field.
	ResultURLBase string
}

// Sim is one simulated miner.
type Sim struct {
	name     string
	behavior Behavior
	server   *synapse.Server
}

func NewSim(name string, addr string, behavior Behavior) *Sim {
	s := &Sim{name: name, behavior: behavior}
	s.server = synapse.NewServer(synapse.Config{
		Address:       addr,
		BodySizeLimit: 1 << 20,
	}, s.handle)
	return s
}

func (s *Sim) handle(req synapse.TaskRequest) (synapse.TaskResponse, error) {
	b := s.behavior

	if b.Mute {
		time.Sleep(10 * time.Minute)
	}
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
	if b.FailureRate > 0 && rand.Float64() < b.FailureRate {
		return synapse.TaskResponse{}, fmt.Errorf("simulated failure")
	}

	resp := synapse.TaskResponse{
		TaskID:       req.TaskID,
		ModelVersion: b.ModelVersion,
		LatencySecs:  b.Delay.Seconds(),
	}
	if b.Malformed {
		resp.TaskID = "bogus-" + req.TaskID
	}
	if b.ResultURLBase != "" {
		resp.ResultURL = b.ResultURLBase + "/" + req.TaskID
	}
	return resp, nil
}

// Run serves tasks until ctx is cancelled.
func (s *Sim) Run(ctx context.Context) error {
	log.Info().Str("miner", s.name).Msg("simulated miner started")
	return s.server.Start(ctx)
}
