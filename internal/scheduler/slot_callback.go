package scheduler

import (
	"time"

	"github.com/moderntensor/mtnode/pkg/chain"
)

// NewSlotCallback creates a new SlotCallback that triggers every N slots
func NewSlotCallback(interval int64, execute func() error) *SlotCallback {
	return &SlotCallback{
		LastTriggerAtSlot: -1,
		interval:          interval,
		executeFn:         execute,
	}
}

// ShouldTrigger checks if the callback should trigger based on slot interval and missed slots
func (sc *SlotCallback) ShouldTrigger(state *chain.State) bool {
	currentSlot := state.GetSlot()

	// If this is the first time, trigger if we're at the right interval
	if sc.LastTriggerAtSlot <= 0 {
		return currentSlot%sc.interval == 0
	}

	slotsSinceLastTrigger := currentSlot - sc.LastTriggerAtSlot
	return slotsSinceLastTrigger >= sc.interval
}

// Execute runs the callback. Failed executions keep LastTriggerAtSlot
// untouched so they retry on the next slot.
func (sc *SlotCallback) Execute() error {
	return sc.executeFn()
}

// GetName returns the callback name
func (sc *SlotCallback) GetName() string {
	return InferNameFromFunc(sc.executeFn)
}

// PhaseBoundaries returns the [start, end) offsets of each phase of a slot,
// keyed by phase, relative to the slot start.
func (c SlotConfig) PhaseBoundaries() map[SlotPhase][2]time.Duration {
	taskEnd := c.TaskAssignment
	execEnd := taskEnd + c.TaskExecution
	scoreEnd := execEnd + c.ConsensusScore
	return map[SlotPhase][2]time.Duration{
		PhaseTaskAssignment:  {0, taskEnd},
		PhaseTaskExecution:   {taskEnd, execEnd},
		PhaseConsensusScore:  {execEnd, scoreEnd},
		PhaseMetagraphUpdate: {scoreEnd, c.SlotDuration},
	}
}

// PhaseAt resolves which phase a slot offset falls into.
func (c SlotConfig) PhaseAt(offset time.Duration) SlotPhase {
	switch {
	case offset < c.TaskAssignment:
		return PhaseTaskAssignment
	case offset < c.TaskAssignment+c.TaskExecution:
		return PhaseTaskExecution
	case offset < c.TaskAssignment+c.TaskExecution+c.ConsensusScore:
		return PhaseConsensusScore
	default:
		return PhaseMetagraphUpdate
	}
}

// AssignmentDeadline computes the task-assignment deadline for a slot that
// started at the given time.
func (c SlotConfig) AssignmentDeadline(slotStart time.Time) time.Time {
	return slotStart.Add(c.TaskAssignment)
}
