package system

import (
	"time"

	"github.com/l1jgo/stagescript/internal/core/event"
	coresys "github.com/l1jgo/stagescript/internal/core/system"
)

// maxDeliveryRounds bounds handlers that keep emitting events.
const maxDeliveryRounds = 8

// EventSystem delivers engine events emitted since the last delivery, such
// as a stage load or a script reload between ticks. Phase 1 (PreUpdate).
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventSystem) Update(_ time.Duration) {
	deliver(s.bus)
}

// deliver dispatches pending events, including those emitted by handlers,
// up to maxDeliveryRounds.
func deliver(bus *event.Bus) {
	for i := 0; i < maxDeliveryRounds && bus.Pending() > 0; i++ {
		bus.SwapBuffers()
		bus.DispatchAll()
	}
}
