package system

import (
	"time"

	"github.com/l1jgo/stagescript/internal/core/event"
	coresys "github.com/l1jgo/stagescript/internal/core/system"
	"github.com/l1jgo/stagescript/internal/sim"
)

// CleanupSystem delivers this tick's events while the entities they name are
// still alive, then flushes the deferred destruction queue and closes the
// tick. Phase 5 (Cleanup).
type CleanupSystem struct {
	state *sim.State
	bus   *event.Bus
}

func NewCleanupSystem(state *sim.State, bus *event.Bus) *CleanupSystem {
	return &CleanupSystem{state: state, bus: bus}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if s.bus != nil {
		deliver(s.bus)
	}
	s.state.FlushDestroyed()
	s.state.AdvanceTick()
}
