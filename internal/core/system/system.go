package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: pick up script reloads, host input
	PhasePreUpdate               // 1: deliver last tick's engine events
	PhaseUpdate                  // 2: NPC behavior (built-in or override)
	PhasePostUpdate              // 3: script "tick" dispatch
	PhasePersist                 // 4: profile autosave
	PhaseCleanup                 // 5: destroy queued entities
)

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
