package system

import (
	"time"

	coresys "github.com/l1jgo/stagescript/internal/core/system"
)

// Ticker fires the script tick event.
type Ticker interface {
	Tick()
}

// ScriptTickSystem fires "tick" after the simulation has advanced entities.
// Phase 3 (PostUpdate).
type ScriptTickSystem struct {
	scripts Ticker
}

func NewScriptTickSystem(scripts Ticker) *ScriptTickSystem {
	return &ScriptTickSystem{scripts: scripts}
}

func (s *ScriptTickSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ScriptTickSystem) Update(_ time.Duration) {
	s.scripts.Tick()
}
