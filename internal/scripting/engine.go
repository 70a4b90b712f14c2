package scripting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/stagescript/internal/core/ecs"
	"github.com/l1jgo/stagescript/internal/core/event"
	"github.com/l1jgo/stagescript/internal/flags"
	"github.com/l1jgo/stagescript/internal/settings"
	"github.com/l1jgo/stagescript/internal/sim"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 2

// ErrScript wraps any error raised inside a script.
var ErrScript = errors.New("script error")

// Options configure the script host.
type Options struct {
	Dir                 string
	Encoding            string        // "utf-8" or "shift_jis"
	CallTimeout         time.Duration // 0 = no limit
	CompatPlayerSetters bool          // install setX/setY/setVelX/setVelY on players
}

// Deps are the host collaborators the bridge exposes to scripts.
type Deps struct {
	State       *sim.State
	Flags       *flags.Store
	Settings    *settings.Bridge
	StageParams *settings.Bridge
	Bus         *event.Bus // optional; forwards host events to scripts
	Log         *zap.Logger
}

// Host owns one gopher-lua VM and every table scripts can populate.
// Single-goroutine access only (game loop).
type Host struct {
	opts        Options
	state       *sim.State
	flags       *flags.Store
	settings    *settings.Bridge
	stageParams *settings.Bridge
	bus         *event.Bus
	log         *zap.Logger
	session     uuid.UUID

	vm         *lua.LState
	dispatcher *Dispatcher
	overrides  *OverrideTable
	digest     [32]byte
	scripts    int
	size       int

	overrideErrors *overrideErrorLog
}

// NewHost creates a host with no VM. Call Load or LoadScripts to start it.
func NewHost(opts Options, deps Deps) *Host {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Settings == nil {
		deps.Settings = settings.NewBridge("setting", log)
	}
	if deps.StageParams == nil {
		deps.StageParams = settings.NewBridge("stage param", log)
	}
	session := uuid.New()
	h := &Host{
		opts:        opts,
		state:       deps.State,
		flags:       deps.Flags,
		settings:    deps.Settings,
		stageParams: deps.StageParams,
		bus:         deps.Bus,
		session:     session,
		log:         log.With(zap.String("session", session.String())),
		dispatcher:  NewDispatcher(),
		overrides:   NewOverrideTable(),

		overrideErrors: newOverrideErrorLog(),
	}
	if h.bus != nil {
		h.subscribe(h.bus)
	}
	return h
}

// SessionID identifies this host run in logs and saved profiles.
func (h *Host) SessionID() uuid.UUID { return h.session }

// Running reports whether a VM is loaded.
func (h *Host) Running() bool { return h.vm != nil }

// Scripts returns how many scripts loaded successfully.
func (h *Host) Scripts() int { return h.scripts }

// SourceSize returns the total size in bytes of the loaded scripts.
func (h *Host) SourceSize() int { return h.size }

// Dispatcher exposes the event subscriber table.
func (h *Host) Dispatcher() *Dispatcher { return h.dispatcher }

// Overrides exposes the behavior override table.
func (h *Host) Overrides() *OverrideTable { return h.overrides }

// Global returns a script global, or nil when no VM is loaded.
func (h *Host) Global(name string) lua.LValue {
	if h.vm == nil {
		return lua.LNil
	}
	return h.vm.GetGlobal(name)
}

// Load reads the configured script directory and starts the VM.
func (h *Host) Load() error {
	scripts, err := ReadScripts(h.opts.Dir, h.opts.Encoding)
	if err != nil {
		return err
	}
	h.LoadScripts(scripts)
	return nil
}

// LoadScripts replaces the VM with a fresh one running scripts in order, then
// fires init. A script that fails to compile or run is logged and skipped.
func (h *Host) LoadScripts(scripts []Script) {
	h.Close()

	h.vm = lua.NewState(lua.Options{SkipOpenLibs: false})
	h.dispatcher = NewDispatcher()
	h.overrides = NewOverrideTable()
	h.overrideErrors = newOverrideErrorLog()
	h.digest = Digest(scripts)
	h.scripts = 0
	h.size = 0
	h.installAPI()

	for _, s := range scripts {
		fn, err := h.vm.Load(bytes.NewReader(s.Source), s.Name)
		if err != nil {
			h.log.Error("lua script compile error", zap.String("file", s.Name), zap.Error(err))
			continue
		}
		if err := h.call(fn); err != nil {
			h.log.Error("lua script load error", zap.String("file", s.Name), zap.Error(err))
			continue
		}
		h.scripts++
		h.size += len(s.Source)
		h.log.Debug("loaded lua script", zap.String("file", s.Name))
	}

	h.log.Info("lua scripts loaded",
		zap.Int("scripts", h.scripts),
		zap.Int("total", len(scripts)),
		zap.Int("api_version", APIVersion))
	h.Fire("init")
}

// Reload re-reads the script directory. When the script set is unchanged
// nothing happens and false is returned. Otherwise the VM is rebuilt, which
// discards every handler and override of the old one, and init then reload
// are fired.
func (h *Host) Reload() (bool, error) {
	scripts, err := ReadScripts(h.opts.Dir, h.opts.Encoding)
	if err != nil {
		return false, err
	}
	if h.vm != nil && Digest(scripts) == h.digest {
		h.log.Debug("lua scripts unchanged, reload skipped")
		return false, nil
	}
	h.LoadScripts(scripts)
	h.Fire("reload")
	if h.bus != nil {
		event.Emit(h.bus, event.ScriptsReloaded{Scripts: h.scripts})
	}
	return true, nil
}

// Close shuts down the VM. The host can be loaded again afterwards.
func (h *Host) Close() {
	if h.vm == nil {
		return
	}
	h.vm.Close()
	h.vm = nil
}

// Fire invokes every handler registered for name, in registration order.
// A failing handler is logged and skipped.
func (h *Host) Fire(name string, args ...lua.LValue) {
	if h.vm == nil {
		return
	}
	for _, fn := range h.dispatcher.Handlers(name) {
		if err := h.call(fn, args...); err != nil {
			h.log.Error("lua event handler error", zap.String("event", name), zap.Error(err))
		}
	}
}

// Tick fires the tick event with a handle to the current stage.
func (h *Host) Tick() {
	if h.vm == nil || h.dispatcher.Count("tick") == 0 {
		return
	}
	h.Fire("tick", h.stageValue())
}

// call runs fn in protected mode under the configured time limit.
func (h *Host) call(fn lua.LValue, args ...lua.LValue) error {
	if h.opts.CallTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.CallTimeout)
		defer cancel()
		h.vm.SetContext(ctx)
		defer h.vm.RemoveContext()
	}
	if err := h.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}
	return nil
}

// subscribe forwards engine events to scripts as named events.
func (h *Host) subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e event.StageLoaded) {
		h.Fire("stageLoad", lua.LNumber(e.StageID))
	})
	event.Subscribe(bus, func(e event.NpcDied) {
		if h.vm == nil {
			return
		}
		h.Fire("npcDeath", h.npcValue(e.ID), lua.LNumber(e.Type))
	})
}

// print goes to the log instead of stdout.
func (h *Host) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	h.log.Info("[lua] " + strings.Join(parts, "\t"))
	return 0
}

func (h *Host) npcValue(id ecs.EntityID) lua.LValue {
	return h.newHandle(kindNPC, id)
}

func (h *Host) playerValue(id ecs.EntityID) lua.LValue {
	return h.newHandle(kindPlayer, id)
}
