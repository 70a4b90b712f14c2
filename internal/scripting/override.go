package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/l1jgo/stagescript/internal/sim"
)

// OverrideResult tells the NPC system what happened to an NPC's tick.
type OverrideResult int

const (
	NotOverridden  OverrideResult = iota // run built-in behavior
	Overridden                           // script handled the tick
	OverrideFailed                       // script errored; the tick was rolled back
)

// OverrideTable holds at most one script handler per NPC type.
type OverrideTable struct {
	handlers map[uint16]*lua.LFunction
}

func NewOverrideTable() *OverrideTable {
	return &OverrideTable{handlers: make(map[uint16]*lua.LFunction)}
}

// Set installs fn for npcType, last write wins. nil removes the override.
func (t *OverrideTable) Set(npcType uint16, fn *lua.LFunction) {
	if fn == nil {
		delete(t.handlers, npcType)
		return
	}
	t.handlers[npcType] = fn
}

func (t *OverrideTable) Get(npcType uint16) (*lua.LFunction, bool) {
	fn, ok := t.handlers[npcType]
	return fn, ok
}

func (t *OverrideTable) Len() int { return len(t.handlers) }

// Override runs the script handler for n's type instead of its built-in
// behavior. On error the NPC is restored to its state before the call.
func (h *Host) Override(n *sim.NPC) OverrideResult {
	if h.vm == nil {
		return NotOverridden
	}
	fn, ok := h.overrides.Get(n.Type)
	if !ok {
		return NotOverridden
	}
	snapshot := *n
	if err := h.call(fn, h.npcValue(n.ID)); err != nil {
		*n = snapshot
		h.overrideErrors.report(h.log, n, err)
		return OverrideFailed
	}
	return Overridden
}

// A broken handler fails once per NPC per tick, so reports are throttled
// per type and the skipped count is attached to the next one logged.
const (
	overrideErrorEvery = time.Second
	overrideErrorBurst = 5
)

type overrideErrorLog struct {
	limiters   map[uint16]*rate.Limiter
	suppressed map[uint16]int
}

func newOverrideErrorLog() *overrideErrorLog {
	return &overrideErrorLog{
		limiters:   make(map[uint16]*rate.Limiter),
		suppressed: make(map[uint16]int),
	}
}

func (l *overrideErrorLog) report(log *zap.Logger, n *sim.NPC, err error) {
	lim, ok := l.limiters[n.Type]
	if !ok {
		lim = rate.NewLimiter(rate.Every(overrideErrorEvery), overrideErrorBurst)
		l.limiters[n.Type] = lim
	}
	if !lim.Allow() {
		l.suppressed[n.Type]++
		return
	}
	fields := []zap.Field{
		zap.Error(err),
		zap.Uint16("npc_type", n.Type),
		zap.Uint32("npc_id", n.Slot()),
	}
	if skipped := l.suppressed[n.Type]; skipped > 0 {
		fields = append(fields, zap.Int("suppressed", skipped))
		delete(l.suppressed, n.Type)
	}
	log.Error("lua npc handler error", fields...)
}
