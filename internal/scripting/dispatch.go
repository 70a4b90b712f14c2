package scripting

import lua "github.com/yuin/gopher-lua"

// Dispatcher maps event names to script callbacks. Callbacks run in
// registration order; a name may have any number of subscribers.
type Dispatcher struct {
	handlers map[string][]*lua.LFunction
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]*lua.LFunction)}
}

// On appends a callback.
func (d *Dispatcher) On(event string, fn *lua.LFunction) {
	d.handlers[event] = append(d.handlers[event], fn)
}

// Off removes the first registration of fn for event, by identity.
func (d *Dispatcher) Off(event string, fn *lua.LFunction) bool {
	hs := d.handlers[event]
	for i, h := range hs {
		if h == fn {
			d.handlers[event] = append(hs[:i:i], hs[i+1:]...)
			return true
		}
	}
	return false
}

// Handlers returns a snapshot; callbacks registered while an event is being
// dispatched run from the next dispatch on.
func (d *Dispatcher) Handlers(event string) []*lua.LFunction {
	hs := d.handlers[event]
	if len(hs) == 0 {
		return nil
	}
	out := make([]*lua.LFunction, len(hs))
	copy(out, hs)
	return out
}

func (d *Dispatcher) Count(event string) int { return len(d.handlers[event]) }
