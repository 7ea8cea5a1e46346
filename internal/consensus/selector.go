package consensus

import (
	"hash/fnv"
	"sort"

	"github.com/rs/zerolog/log"
)

// Selector chooses round participants from the directory. Ranking is usage
// ascending so every miner eventually participates, then advertised weight
// descending, then a pseudo-random tiebreak seeded by (slot, round) so
// independent validators diverge instead of all hammering the same miners.
type Selector struct {
	dir  *Directory
	slot int64
}

func NewSelector(dir *Directory, slot int64) *Selector {
	return &Selector{dir: dir, slot: slot}
}

// Select returns up to targetK miners for the given round and increments each
// selected miner's usage counter.
func (s *Selector) Select(round, targetK int) []*MinerRef {
	if targetK <= 0 {
		return nil
	}

	seed := roundSeed(s.slot, round)
	candidates := make([]*MinerRef, 0, s.dir.Len())
	for _, m := range s.dir.All() {
		if s.dir.Barred(m.UID) {
			continue
		}
		candidates = append(candidates, m)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Usage != b.Usage {
			return a.Usage < b.Usage
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		ta, tb := tiebreak(seed, a.UID), tiebreak(seed, b.UID)
		if ta != tb {
			return ta < tb
		}
		return a.UID < b.UID
	})

	if targetK > len(candidates) {
		targetK = len(candidates)
	}
	selected := candidates[:targetK]
	for _, m := range selected {
		m.Usage++
	}

	log.Debug().Int("round", round).Int("selected", len(selected)).Msg("selected batch miners")
	return selected
}

// tiebreak is a stable per-candidate value derived from the round seed and
// the miner uid.
func tiebreak(seed uint64, uid string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(uid))
	return splitmix64(seed ^ h.Sum64())
}
