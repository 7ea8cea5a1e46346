package consensus

import (
	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/registry"
)

// Directory is the phase-start snapshot of active miners. It is built once
// per phase and never observes mid-phase registrations. The only mutations
// are the selector's usage-counter increments and Bar.
type Directory struct {
	miners []*MinerRef
	byUID  map[string]*MinerRef
	barred map[string]bool
}

// NewDirectory snapshots the registry's active set. Entries without an
// endpoint are kept; dispatch records them as dispatch errors so the round
// accounting stays complete.
func NewDirectory(infos []registry.MinerInfo) *Directory {
	d := &Directory{
		miners: make([]*MinerRef, 0, len(infos)),
		byUID:  make(map[string]*MinerRef, len(infos)),
		barred: make(map[string]bool),
	}
	for _, info := range infos {
		if info.Status != registry.StatusActive {
			continue
		}
		if _, dup := d.byUID[info.UID]; dup {
			log.Warn().Str("uid", info.UID).Msg("duplicate miner uid in registry snapshot, keeping first")
			continue
		}
		ref := &MinerRef{
			UID:      info.UID,
			Endpoint: info.Endpoint,
			Weight:   info.Weight,
		}
		d.miners = append(d.miners, ref)
		d.byUID[info.UID] = ref
	}
	return d
}

func (d *Directory) Len() int {
	return len(d.miners)
}

// All returns the snapshot entries. Callers must not add or remove miners.
func (d *Directory) All() []*MinerRef {
	return d.miners
}

func (d *Directory) Get(uid string) (*MinerRef, bool) {
	m, ok := d.byUID[uid]
	return m, ok
}

// Bar excludes a miner from selection for the rest of the phase. Used when
// retry_failed is disabled and the miner's endpoint failed at dispatch.
func (d *Directory) Bar(uid string) {
	if _, ok := d.byUID[uid]; ok {
		d.barred[uid] = true
	}
}

func (d *Directory) Barred(uid string) bool {
	return d.barred[uid]
}
