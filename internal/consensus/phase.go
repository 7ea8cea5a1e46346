package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/config"
	"github.com/moderntensor/mtnode/internal/registry"
	"github.com/moderntensor/mtnode/internal/scoring"
	"github.com/moderntensor/mtnode/internal/utils/redis"
)

// RoundStage names the stages of the round state machine. No stage is
// skipped, even on empty batches.
type RoundStage string

const (
	StageIdle             RoundStage = "idle"
	StageSelecting        RoundStage = "selecting"
	StageDispatching      RoundStage = "dispatching"
	StageCollecting       RoundStage = "collecting"
	StageScoring          RoundStage = "scoring"
	StageControllerUpdate RoundStage = "controller_update"
	StageBreak            RoundStage = "break"
	StageAggregated       RoundStage = "aggregated"
)

// PhaseState owns everything with phase lifetime: the directory snapshot, the
// per-miner score histories, and the controller. Tasks and results belong to
// their round; only summaries end up here.
type PhaseState struct {
	Slot      int64
	StartedAt time.Time
	Deadline  time.Time

	directory  *Directory
	selector   *Selector
	scorer     *Scorer
	controller *Controller

	stage            RoundStage
	roundsStarted    int
	tasksSent        int
	resultsCollected int
}

func (p *PhaseState) setStage(s RoundStage) {
	p.stage = s
}

// Stage reports the current round stage, for diagnostics.
func (p *PhaseState) Stage() RoundStage {
	return p.stage
}

// Driver runs one phase at a time: an ordered sequence of rounds bounded by
// the phase deadline, then aggregation and publication.
type Driver struct {
	cfg        config.ConsensusEnvConfig
	subnetID   int
	validator  string
	registry   registry.RegistryInterface
	publisher  registry.PublisherInterface
	dispatcher *Dispatcher
	telemetry  redis.RedisInterface
	factory    TaskFactory
}

func NewDriver(
	cfg config.ConsensusEnvConfig,
	subnetID int,
	validator string,
	reg registry.RegistryInterface,
	sender TaskSender,
	pub registry.PublisherInterface,
	telemetry redis.RedisInterface,
) *Driver {
	return &Driver{
		cfg:        cfg,
		subnetID:   subnetID,
		validator:  validator,
		registry:   reg,
		publisher:  pub,
		dispatcher: NewDispatcher(sender, cfg.MaxConcurrent, validator),
		telemetry:  telemetry,
		factory:    DefaultTaskFactory,
	}
}

// SetTaskFactory installs the subnet's task payload builder.
func (d *Driver) SetTaskFactory(f TaskFactory) {
	if f != nil {
		d.factory = f
	}
}

// RunPhase executes rounds until the deadline guard, then aggregates one
// final score per miner and publishes the vector. A registry failure fails
// the phase closed: empty map, no publish. A publisher failure is returned as
// a warning alongside the scores; no error from inside a round escapes.
func (d *Driver) RunPhase(ctx context.Context, slot int64, deadline time.Time) (map[string]float64, error) {
	log.Info().Int64("slot", slot).Time("deadline", deadline).Msg("starting phase")

	miners, err := d.registry.FetchActiveMiners(d.subnetID)
	if err != nil {
		log.Error().Err(err).Int64("slot", slot).Msg("registry unreachable, failing phase closed")
		return map[string]float64{}, nil
	}

	state := &PhaseState{
		Slot:       slot,
		StartedAt:  time.Now(),
		Deadline:   deadline,
		directory:  NewDirectory(miners),
		scorer:     NewScorer(d.cfg.ScoreAggregation, d.cfg.DeterministicScoring),
		controller: NewController(d.cfg),
		stage:      StageIdle,
	}
	state.selector = NewSelector(state.directory, slot)

	log.Info().Int64("slot", slot).Int("active_miners", state.directory.Len()).Msg("directory snapshot built")

	guard := d.cfg.EffectivePhaseGuard()

	for round := 1; ; round++ {
		if ctx.Err() != nil {
			log.Info().Int64("slot", slot).Msg("phase cancelled at round boundary")
			break
		}
		remaining := time.Until(deadline)
		timeout := state.controller.NextTimeout()
		if remaining <= guard || remaining < timeout+d.cfg.MinBreak {
			log.Info().Int64("slot", slot).Dur("remaining", remaining).Msg("insufficient time for another round, stopping assignment")
			break
		}
		if state.directory.Len() == 0 {
			log.Warn().Int64("slot", slot).Msg("no active miners, ending phase")
			break
		}

		state.roundsStarted = round
		d.runRound(ctx, state, round)

		state.setStage(StageBreak)
		if ctx.Err() == nil && time.Until(deadline) > timeout+2*d.cfg.MinBreak {
			sleepCtx(ctx, d.cfg.MinBreak)
		}
		state.setStage(StageIdle)
	}

	state.setStage(StageAggregated)
	final := state.scorer.FinalScores()
	d.persistSummary(state, final)
	d.logPhaseSummary(state, final)

	if len(final) == 0 {
		return final, nil
	}
	if d.publisher != nil {
		if err := d.publisher.PublishScores(slot, final); err != nil {
			log.Warn().Err(err).Int64("slot", slot).Msg("publisher failed, scores remain available in memory")
			return final, fmt.Errorf("publish scores: %w", err)
		}
	}
	return final, nil
}

// runRound drives one pass of the round state machine. Any panic is confined
// to this round: it is logged and counted as a 0% success round.
func (d *Driver) runRound(ctx context.Context, state *PhaseState, round int) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Int("round", round).Msg("round failed, counting as zero success")
			state.setStage(StageControllerUpdate)
			state.controller.Observe(RoundSummary{SuccessRate: 0})
		}
	}()

	state.setStage(StageSelecting)
	timeout := state.controller.NextTimeout()
	batch := state.selector.Select(round, state.controller.NextBatchSize())

	log.Info().
		Int64("slot", state.Slot).
		Int("round", round).
		Int("batch", len(batch)).
		Dur("timeout", timeout).
		Msg("starting assignment round")

	state.setStage(StageDispatching)
	handle := d.dispatcher.Dispatch(ctx, state.Slot, round, batch, d.factory)

	state.setStage(StageCollecting)
	outcome := Collect(ctx, handle, round, timeout)
	state.tasksSent += len(outcome.Tasks)
	state.resultsCollected += len(outcome.Results)

	state.setStage(StageScoring)
	state.scorer.ScoreRound(state.Slot, outcome)

	if !d.cfg.RetryFailed {
		for _, e := range outcome.Errors {
			if e.Kind == ErrDispatch {
				state.directory.Bar(e.MinerUID)
			}
		}
	}

	state.setStage(StageControllerUpdate)
	state.controller.Observe(RoundSummary{
		SuccessRate: outcome.SuccessRate(),
		MeanLatency: outcome.MeanLatency(),
	})
}

// persistSummary stores the compact per-phase record, the only state that
// survives the phase. Telemetry is optional; a nil client skips it.
func (d *Driver) persistSummary(state *PhaseState, final map[string]float64) {
	summary := PhaseSummary{
		Slot:            state.Slot,
		Rounds:          state.roundsStarted,
		TasksSent:       state.tasksSent,
		ResultsReceived: state.resultsCollected,
		MinersScored:    len(final),
	}
	if len(final) > 0 {
		vals := make([]float64, 0, len(final))
		for _, v := range final {
			vals = append(vals, v)
		}
		summary.MeanFinalScore = scoring.Aggregate(scoring.MethodAverage, vals)
	}

	if d.telemetry == nil {
		return
	}
	payload, err := sonic.Marshal(summary)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal phase summary")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	key := fmt.Sprintf("mtnode:phase:%d", state.Slot)
	if err := d.telemetry.Set(ctx, key, string(payload), 0); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to persist phase summary")
	}
}

func (d *Driver) logPhaseSummary(state *PhaseState, final map[string]float64) {
	log.Info().
		Int64("slot", state.Slot).
		Int("rounds", state.roundsStarted).
		Int("tasks_sent", state.tasksSent).
		Int("results_received", state.resultsCollected).
		Int("miners_scored", len(final)).
		Msg("phase completed")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
