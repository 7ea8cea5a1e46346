// Package scheduler provides slot timing arithmetic and slot-driven
// callbacks for the validator runtime.
package scheduler

import (
	"time"

	"github.com/moderntensor/mtnode/pkg/chain"
)

// SlotPhase names the windows inside one consensus slot.
type SlotPhase string

const (
	PhaseTaskAssignment  SlotPhase = "task_assignment"
	PhaseTaskExecution   SlotPhase = "task_execution"
	PhaseConsensusScore  SlotPhase = "consensus_scoring"
	PhaseMetagraphUpdate SlotPhase = "metagraph_update"
)

// SlotConfig describes the timing of one slot and its phase windows.
type SlotConfig struct {
	SlotDuration    time.Duration
	TaskAssignment  time.Duration
	TaskExecution   time.Duration
	ConsensusScore  time.Duration
	MetagraphUpdate time.Duration
}

// DefaultSlotConfig matches the network's production slot layout.
func DefaultSlotConfig() SlotConfig {
	return SlotConfig{
		SlotDuration:    15 * time.Minute,
		TaskAssignment:  10 * time.Minute,
		TaskExecution:   2 * time.Minute,
		ConsensusScore:  2 * time.Minute,
		MetagraphUpdate: 1 * time.Minute,
	}
}

// SlotCallback is a callback that triggers every N slots.
// WARN: if the slot updater hangs and several trigger points pass, the
// callback fires once for the whole gap instead of once per missed point.
type SlotCallback struct {
	LastTriggerAtSlot int64
	// interval is the number of slots between triggers
	interval  int64
	executeFn func() error
}

type CallbackHandler interface {
	// Determines if the callback should trigger based on the current chain state
	ShouldTrigger(*chain.State) bool
	// Executes the callback logic and returns an error if it fails
	Execute() error
	// Returns the name of the callback, which may be inferred from the function name
	GetName() string
}
