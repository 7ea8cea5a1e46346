// Package consensus implements the validator consensus core: a per-phase
// scheduling engine that continuously assigns work to miners, scores the
// returned results, and aggregates one final score per miner for publication.
package consensus

import (
	"time"
)

// ErrorKind classifies a task that produced no scoreable result.
type ErrorKind string

const (
	ErrDispatch  ErrorKind = "dispatch_error"
	ErrTimeout   ErrorKind = "timeout"
	ErrMalformed ErrorKind = "malformed"
)

// MinerRef is one entry of the phase-start directory snapshot. The usage
// counter equals the number of tasks sent to this miner in the current phase.
type MinerRef struct {
	UID      string
	Endpoint string
	Weight   float64
	Usage    int
}

// Task is one unit of work addressed to a single miner. Tasks are created by
// the dispatcher just before sending and never mutated.
type Task struct {
	ID        string
	MinerUID  string
	Endpoint  string
	Payload   map[string]any
	CreatedAt time.Time
}

// Result is a miner's reply to a task.
type Result struct {
	TaskID       string
	MinerUID     string
	ReceivedAt   time.Time
	Latency      time.Duration // transport latency
	ResultURL    string
	ModelVersion string
	ReportedSecs float64 // miner's self-reported generation time
}

// TaskError records a task that did not produce a result.
type TaskError struct {
	TaskID   string
	MinerUID string
	Kind     ErrorKind
}

// RoundOutcome is the completed-batch record of one round. Every dispatched
// task appears exactly once: in Results or in Errors.
type RoundOutcome struct {
	Round   int
	Tasks   []Task
	Results []Result
	Errors  []TaskError
}

// SuccessRate is the fraction of tasks that came back as results.
func (o RoundOutcome) SuccessRate() float64 {
	if len(o.Tasks) == 0 {
		return 0
	}
	return float64(len(o.Results)) / float64(len(o.Tasks))
}

// MeanLatency averages the transport latency of received results.
func (o RoundOutcome) MeanLatency() time.Duration {
	if len(o.Results) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range o.Results {
		total += r.Latency
	}
	return total / time.Duration(len(o.Results))
}

// RoundSummary is the controller's view of one finished round.
type RoundSummary struct {
	SuccessRate float64
	MeanLatency time.Duration
}

// PhaseSummary is the only state that outlives a phase; it is persisted for
// telemetry.
type PhaseSummary struct {
	Slot            int64   `json:"slot"`
	Rounds          int     `json:"rounds"`
	TasksSent       int     `json:"tasks_sent"`
	ResultsReceived int     `json:"results_received"`
	MinersScored    int     `json:"miners_scored"`
	MeanFinalScore  float64 `json:"mean_final_score"`
}

// TaskFactory builds the subnet-defined payload for a task addressed to the
// given miner. Returning an error skips dispatch and records a dispatch_error.
type TaskFactory func(minerUID string, round int) (map[string]any, error)

// DefaultTaskFactory produces a minimal generic payload; subnets supply their
// own factory with real task bodies.
func DefaultTaskFactory(minerUID string, round int) (map[string]any, error) {
	return map[string]any{
		"kind":  "generic",
		"miner": minerUID,
		"round": round,
	}, nil
}

// splitmix64 mixes a seed into a well-distributed 64-bit value. Used for the
// selection tiebreak and round seeds so independent validators diverge.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// roundSeed derives the pseudo-random seed for one round of one phase.
func roundSeed(slot int64, round int) uint64 {
	return splitmix64(uint64(slot)<<20 ^ uint64(round))
}
