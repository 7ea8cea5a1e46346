package consensus

import (
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/scoring"
)

const (
	ScoreFloor = 0.05
	ScoreCeil  = 0.95

	baseScore         = 0.5
	fastBonus         = 0.20 // latency < 5s
	moderateBonus     = 0.10 // latency < 10s
	resultURLBonus    = 0.15
	modelVerBonus     = 0.05
	noiseSpan         = 0.15
	fastThreshold     = 5.0
	moderateCutoff    = 10.0
	historyCapDefault = 64
)

// SeedFunc supplies the noise seed for one round. The default draws from
// system entropy; deterministic mode pins it to (slot, round).
type SeedFunc func(slot int64, round int) uint64

// Scorer converts task outcomes into bounded scores and accumulates per-miner
// histories for the current phase.
type Scorer struct {
	deterministic bool
	aggregation   string
	seedFn        SeedFunc
	histories     map[string][]float64
	historyCap    int
}

func NewScorer(aggregation string, deterministic bool) *Scorer {
	s := &Scorer{
		deterministic: deterministic,
		aggregation:   aggregation,
		histories:     make(map[string][]float64),
		historyCap:    historyCapDefault,
	}
	if deterministic {
		s.seedFn = roundSeed
	} else {
		s.seedFn = func(int64, int) uint64 { return rand.Uint64() }
	}
	return s
}

// ScoreRound scores every result and error of a completed round and appends
// to the miners' histories. A panic while scoring a single result costs that
// miner the floor score; it never aborts the round.
func (s *Scorer) ScoreRound(slot int64, outcome RoundOutcome) {
	seed := s.seedFn(slot, outcome.Round)
	rng := rand.New(rand.NewPCG(seed, splitmix64(seed)))

	for _, r := range outcome.Results {
		score := s.scoreResult(r, rng)
		s.Append(r.MinerUID, score)
	}
	for _, e := range outcome.Errors {
		s.Append(e.MinerUID, ScoreFloor)
	}
}

func (s *Scorer) scoreResult(r Result, rng *rand.Rand) (score float64) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("task_id", r.TaskID).Msg("scorer panicked on result, using floor score")
			score = ScoreFloor
		}
	}()

	score = baseScore

	latency := r.ReportedSecs
	if latency <= 0 {
		latency = r.Latency.Seconds()
	}
	if latency > 0 && latency < fastThreshold {
		score += fastBonus
	} else if latency > 0 && latency < moderateCutoff {
		score += moderateBonus
	}

	if r.ResultURL != "" {
		score += resultURLBonus
	}
	if r.ModelVersion != "" {
		score += modelVerBonus
	}

	score = scoring.Clamp(score, ScoreFloor, ScoreCeil)

	if !s.deterministic {
		score += (rng.Float64()*2 - 1) * noiseSpan
	}

	return scoring.Clamp(score, ScoreFloor, ScoreCeil)
}

// Append adds one score to a miner's history, clamped to the valid band. The
// history has a soft cap; the oldest entries fall off first.
func (s *Scorer) Append(minerUID string, score float64) {
	score = scoring.Clamp(score, ScoreFloor, ScoreCeil)
	hist := append(s.histories[minerUID], score)
	if len(hist) > s.historyCap {
		hist = hist[len(hist)-s.historyCap:]
	}
	s.histories[minerUID] = hist
}

// History returns a miner's scores collected so far this phase.
func (s *Scorer) History(minerUID string) []float64 {
	return s.histories[minerUID]
}

// FinalScores aggregates each non-empty history into one final score. Each
// miner's final score is a function of its own history alone.
func (s *Scorer) FinalScores() map[string]float64 {
	final := make(map[string]float64, len(s.histories))
	for uid, hist := range s.histories {
		if len(hist) == 0 {
			continue
		}
		final[uid] = scoring.Aggregate(s.aggregation, hist)
	}
	return final
}

// ResultCount reports how many scores have been appended across all miners.
func (s *Scorer) ResultCount() int {
	total := 0
	for _, hist := range s.histories {
		total += len(hist)
	}
	return total
}
