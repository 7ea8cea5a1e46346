// Package core runs the validator node loop: it follows the chain's slot
// clock and fires registered slot callbacks.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/registry"
	"github.com/moderntensor/mtnode/internal/scheduler"
	"github.com/moderntensor/mtnode/pkg/chain"
)

func NewNode(reg registry.RegistryInterface) *Node {
	return &Node{
		Registry:   reg,
		ChainState: chain.NewState(),
	}
}

func (n *Node) RegisterCallback(callback scheduler.CallbackHandler) {
	n.callbacks = append(n.callbacks, callback)
	log.Debug().Str("callback", callback.GetName()).Msg("Registered callback")
}

// SlotUpdater polls the chain for the latest slot until ctx is cancelled,
// firing the registered callbacks whenever the slot advances.
func (n *Node) SlotUpdater(ctx context.Context) {
	t := time.NewTicker(SlotPollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			info, err := n.Registry.GetLatestSlot()
			if err != nil {
				log.Error().Err(err).Msg("Failed to fetch latest slot")
				continue
			}

			prev := n.ChainState.GetSlot()
			if !n.ChainState.UpdateSlot(info.Slot, time.Unix(info.StartedAt, 0)) {
				continue
			}

			log.Info().
				Int64("previous_slot", prev).
				Int64("current_slot", info.Slot).
				Msg("Updated latest slot")

			n.onSlotUpdate()
		}
	}
}

func (n *Node) onSlotUpdate() {
	state := n.ChainState
	for _, callback := range n.callbacks {
		if !callback.ShouldTrigger(state) {
			continue
		}
		log.Info().Str("callback", callback.GetName()).Msg("Executing callback")

		if err := callback.Execute(); err != nil {
			log.Error().Err(err).Str("callback", callback.GetName()).Msg("Failed to execute callback")
			continue
		}
		if sc, ok := callback.(*scheduler.SlotCallback); ok {
			sc.LastTriggerAtSlot = state.GetSlot()
		}
	}
}
