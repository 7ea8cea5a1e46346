// Package chain tracks the validator's view of the Move chain: the current
// slot and the subnet it serves.
package chain

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

var stateMutex sync.RWMutex

type chainEnv struct {
	SubnetID int `env:"SUBNET_ID,default=1"`
}

// State holds the current slot and its start time. It uses a mutex to ensure
// thread-safe access to its fields.
type State struct {
	subnetID    int
	slot        int64
	slotStarted time.Time
}

func NewState() *State {
	ctx := context.Background()

	var envCfg chainEnv
	if err := envconfig.Process(ctx, &envCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to process environment variables for chain state")
	}

	return &State{
		subnetID: envCfg.SubnetID,
	}
}

// GetSlot safely reads the current slot number
func (s *State) GetSlot() int64 {
	stateMutex.RLock()
	defer stateMutex.RUnlock()
	return s.slot
}

func (s *State) GetSlotStarted() time.Time {
	stateMutex.RLock()
	defer stateMutex.RUnlock()
	return s.slotStarted
}

func (s *State) GetSubnetID() int {
	stateMutex.RLock()
	defer stateMutex.RUnlock()
	return s.subnetID
}

// UpdateSlot advances the slot number, ignoring stale updates.
func (s *State) UpdateSlot(slot int64, startedAt time.Time) bool {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	if slot <= s.slot {
		if slot < s.slot {
			log.Warn().
				Int64("current_slot", s.slot).
				Int64("new_slot", slot).
				Msg("new slot is behind current slot, not updating state")
		}
		return false
	}
	s.slot = slot
	s.slotStarted = startedAt
	return true
}
