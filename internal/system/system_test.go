package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/stagescript/internal/core/event"
	coresys "github.com/l1jgo/stagescript/internal/core/system"
	"github.com/l1jgo/stagescript/internal/flags"
	"github.com/l1jgo/stagescript/internal/persist"
	"github.com/l1jgo/stagescript/internal/scripting"
	"github.com/l1jgo/stagescript/internal/sim"
)

const dt = 20 * time.Millisecond

type harness struct {
	state  *sim.State
	bus    *event.Bus
	host   *scripting.Host
	runner *coresys.Runner
}

func newHarness(t *testing.T, src string) *harness {
	t.Helper()
	bus := event.NewBus()
	state := sim.NewState(16, 4, bus)
	state.Stage = sim.Stage{ID: 1, Seed: 1}
	host := scripting.NewHost(scripting.Options{}, scripting.Deps{
		State: state,
		Flags: flags.NewStore(8000, 64),
		Bus:   bus,
		Log:   zap.NewNop(),
	})
	t.Cleanup(host.Close)
	host.LoadScripts([]scripting.Script{{Name: "test.lua", Source: []byte(src)}})

	runner := coresys.NewRunner()
	// registered out of phase order on purpose
	runner.Register(NewCleanupSystem(state, bus))
	runner.Register(NewScriptTickSystem(host))
	runner.Register(NewNpcSystem(state, host))
	runner.Register(NewEventSystem(bus))
	return &harness{state: state, bus: bus, host: host, runner: runner}
}

func (h *harness) spawn(t *testing.T, spec sim.NpcSpawn) *sim.NPC {
	t.Helper()
	n, err := h.state.SpawnNPC(spec)
	require.NoError(t, err)
	return n
}

func TestNpcSystem_OverrideReplacesBuiltin(t *testing.T) {
	h := newHarness(t, `
		doukutsu.setNPCHandler(5, function(npc) npc.velX = 3.0 end)
	`)
	n := h.spawn(t, sim.NpcSpawn{Type: sim.TypeWalker, X: sim.ToFixed(10), Y: sim.ToFixed(20)})

	h.runner.Tick(dt)

	assert.Equal(t, sim.ToFixed(3.0), n.VelX, "exactly the scripted value")
	assert.Equal(t, 3.0, sim.ToPixels(n.VelX))
	assert.Equal(t, uint16(0), n.ActionNum, "built-in walker never ran")
	assert.Equal(t, sim.ToFixed(13), n.X)
	assert.Equal(t, sim.ToFixed(20), n.Y)
}

func TestNpcSystem_BuiltinWithoutOverride(t *testing.T) {
	h := newHarness(t, ``)
	n := h.spawn(t, sim.NpcSpawn{Type: sim.TypeWalker, X: sim.ToFixed(10)})

	h.runner.Tick(dt)

	assert.Equal(t, uint16(1), n.ActionNum)
	assert.Equal(t, int32(-0x20), n.VelX)
	assert.Equal(t, sim.ToFixed(10)-0x20, n.X)
}

func TestNpcSystem_FailedOverrideSkipsTheTick(t *testing.T) {
	h := newHarness(t, `
		doukutsu.setNPCHandler(9, function(npc)
			npc.velX = 8
			error("bad handler")
		end)
	`)
	n := h.spawn(t, sim.NpcSpawn{Type: 9, X: sim.ToFixed(10)})
	n.VelX = sim.ToFixed(1)
	other := h.spawn(t, sim.NpcSpawn{Type: sim.TypeFaller})

	for i := 0; i < 3; i++ {
		h.runner.Tick(dt)
	}

	assert.Equal(t, sim.ToFixed(10), n.X)
	assert.Equal(t, sim.ToFixed(1), n.VelX)
	assert.NotZero(t, other.VelY, "other NPCs keep running")
	assert.Equal(t, uint64(3), h.state.Tick())
}

func TestTickOrdering(t *testing.T) {
	h := newHarness(t, `
		log = {}
		doukutsu.setNPCHandler(9, function(npc) table.insert(log, "npc") end)
		doukutsu.on("tick", function(stage) table.insert(log, "tick" .. stage:tick()) end)
		doukutsu.on("stageLoad", function(id) table.insert(log, "stage" .. id) end)
	`)
	h.spawn(t, sim.NpcSpawn{Type: 9})
	event.Emit(h.bus, event.StageLoaded{StageID: 1})

	h.runner.Tick(dt)
	h.runner.Tick(dt)

	assert.Equal(t, "stage1,npc,tick0,npc,tick1", joined(t, h, "log"))
}

func TestCleanup_NpcDeathSeesLiveNPC(t *testing.T) {
	h := newHarness(t, `
		deaths = {}
		doukutsu.on("npcDeath", function(npc) table.insert(deaths, npc.npcType .. "@" .. npc.id) end)
	`)
	n := h.spawn(t, sim.NpcSpawn{Type: sim.TypeTimedDespawn})
	n.ActionCounter = 98

	h.runner.Tick(dt)
	assert.Equal(t, "", joined(t, h, "deaths"))

	h.runner.Tick(dt)
	assert.Equal(t, "3@1", joined(t, h, "deaths"))
	assert.Equal(t, 0, h.state.NpcCount())
	_, err := h.state.NPC(n.ID)
	assert.ErrorIs(t, err, sim.ErrInvalidHandle)
}

// joined reads a global array of strings from the script VM.
func joined(t *testing.T, h *harness, name string) string {
	t.Helper()
	tbl, ok := h.host.Global(name).(*lua.LTable)
	require.True(t, ok, "global %s is not a table", name)
	parts := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		parts = append(parts, tbl.RawGetInt(i).String())
	}
	return strings.Join(parts, ",")
}

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) Reload() (bool, error) {
	f.calls++
	return f.err == nil, f.err
}

func TestReloadSystem(t *testing.T) {
	changes := make(chan string, 4)
	errs := make(chan error, 1)
	r := &fakeReloader{}
	s := NewReloadSystem(r, changes, errs, zap.NewNop())

	s.Update(dt)
	assert.Equal(t, 0, r.calls, "no changes, no reload")

	changes <- "a.lua"
	changes <- "b.lua"
	errs <- errors.New("watch overflow")
	s.Update(dt)
	assert.Equal(t, 1, r.calls, "changes are batched into one reload")

	r.err = errors.New("broken dir")
	changes <- "a.lua"
	s.Update(dt)
	assert.Equal(t, 2, r.calls)

	close(changes)
	close(errs)
	s.Update(dt)
	assert.Equal(t, 2, r.calls)
}

type memRepo struct {
	saved map[int]*persist.Profile
	saves int
}

func newMemRepo() *memRepo { return &memRepo{saved: make(map[int]*persist.Profile)} }

func (m *memRepo) Load(_ context.Context, slot int) (*persist.Profile, error) {
	p, ok := m.saved[slot]
	if !ok {
		return nil, persist.ErrNoProfile
	}
	return p, nil
}

func (m *memRepo) Save(_ context.Context, p *persist.Profile) error {
	m.saves++
	m.saved[p.Slot] = p
	return nil
}

func (m *memRepo) Close() error { return nil }

func TestPersistenceSystem_AutosaveOnlyOnChange(t *testing.T) {
	repo := newMemRepo()
	fl := flags.NewStore(8000, 64)
	s := NewPersistenceSystem(repo, fl, 3, uuid.New(), zap.NewNop(), 2)

	require.NoError(t, fl.SetFlag(10, true))
	s.Update(dt)
	assert.Equal(t, 0, repo.saves)
	s.Update(dt)
	assert.Equal(t, 1, repo.saves)

	s.Update(dt)
	s.Update(dt)
	assert.Equal(t, 1, repo.saves, "unchanged flags are not saved again")

	require.NoError(t, fl.SetSkipFlag(1, true))
	s.Update(dt)
	s.Update(dt)
	assert.Equal(t, 2, repo.saves)

	s.SaveNow()
	assert.Equal(t, 3, repo.saves)
}

func TestPersistenceSystem_Restore(t *testing.T) {
	repo := newMemRepo()
	fl := flags.NewStore(8000, 64)
	s := NewPersistenceSystem(repo, fl, 1, uuid.New(), zap.NewNop(), 0)

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	saved := flags.NewStore(8000, 64)
	require.NoError(t, saved.SetFlag(77, true))
	repo.saved[1] = persist.Snapshot(1, uuid.New(), saved)

	ok, err = s.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	v, err := fl.GetFlag(77)
	require.NoError(t, err)
	assert.True(t, v)

	s.Update(dt)
	assert.Equal(t, 0, repo.saves, "interval 0 disables autosave")
}

func TestEventSystem_DeliversChainedEvents(t *testing.T) {
	bus := event.NewBus()
	var got []string
	event.Subscribe(bus, func(e event.StageLoaded) {
		got = append(got, fmt.Sprintf("stage %d", e.StageID))
		event.Emit(bus, event.ScriptsReloaded{Scripts: e.StageID})
	})
	event.Subscribe(bus, func(e event.ScriptsReloaded) {
		got = append(got, fmt.Sprintf("reload %d", e.Scripts))
	})
	event.Emit(bus, event.StageLoaded{StageID: 2})

	NewEventSystem(bus).Update(dt)
	assert.Equal(t, []string{"stage 2", "reload 2"}, got)
	assert.Equal(t, 0, bus.Pending())
}
