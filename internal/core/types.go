package core

import (
	"time"

	"github.com/moderntensor/mtnode/internal/registry"
	"github.com/moderntensor/mtnode/internal/scheduler"
	"github.com/moderntensor/mtnode/pkg/chain"
)

const (
	SlotPollInterval time.Duration = 10 * time.Second
)

type Node struct {
	Registry   registry.RegistryInterface
	ChainState *chain.State
	callbacks  []scheduler.CallbackHandler
}
