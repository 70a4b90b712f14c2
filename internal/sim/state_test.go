package sim

import (
	"testing"

	"github.com/l1jgo/stagescript/internal/core/ecs"
	"github.com/l1jgo/stagescript/internal/core/event"
	"github.com/l1jgo/stagescript/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s := NewState(16, 4, event.NewBus())
	s.Stage = Stage{ID: 1, Seed: 99}
	return s
}

func TestFixedPoint(t *testing.T) {
	assert.Equal(t, int32(0x200), ToFixed(1))
	assert.Equal(t, int32(1536), ToFixed(3.0))
	assert.Equal(t, 3.0, ToPixels(ToFixed(3.0)))
	assert.Equal(t, -2.5, ToPixels(ToFixed(-2.5)))
}

func TestClampDirection(t *testing.T) {
	assert.Equal(t, DirLeft, ClampDirection(-3))
	assert.Equal(t, DirRight, ClampDirection(2))
	assert.Equal(t, DirFacingPlayer, ClampDirection(9))
}

func TestNPC_StaleHandleNeverResolves(t *testing.T) {
	s := newTestState(t)
	n, err := s.SpawnNPC(NpcSpawn{Type: TypeNull})
	require.NoError(t, err)
	old := n.ID

	require.NoError(t, s.KillNPC(old))
	assert.True(t, s.Dying(old))
	_, err = s.NPC(old)
	assert.NoError(t, err, "valid until the cleanup phase")

	assert.Equal(t, []ecs.EntityID{old}, s.FlushDestroyed())
	_, err = s.NPC(old)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	reused, err := s.SpawnNPC(NpcSpawn{Type: TypeWalker})
	require.NoError(t, err)
	assert.Equal(t, old.Index(), reused.ID.Index())

	_, err = s.NPC(old)
	assert.ErrorIs(t, err, ErrInvalidHandle, "a reused slot must not alias the old handle")
	got, ok := s.NPCBySlot(old.Index())
	require.True(t, ok)
	assert.Equal(t, TypeWalker, got.Type)

	_, err = s.NPC(ecs.NewEntityID(1000, 0))
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, s.KillNPC(old), ErrInvalidHandle)
}

func TestNPC_SlotFull(t *testing.T) {
	s := NewState(2, 1, nil)
	_, err := s.SpawnNPC(NpcSpawn{})
	require.NoError(t, err)
	_, err = s.SpawnNPC(NpcSpawn{Slot: 2})
	require.NoError(t, err)
	_, err = s.SpawnNPC(NpcSpawn{})
	assert.ErrorIs(t, err, ErrStageFull)
	_, err = s.SpawnNPC(NpcSpawn{Slot: 2})
	assert.ErrorIs(t, err, ErrStageFull)
}

func TestParent(t *testing.T) {
	s := newTestState(t)
	parent, _ := s.SpawnNPC(NpcSpawn{Type: TypeNull, X: ToFixed(10), Y: ToFixed(50)})
	child, _ := s.SpawnNPC(NpcSpawn{Type: TypeChild, ParentID: uint16(parent.Slot())})
	orphan, _ := s.SpawnNPC(NpcSpawn{Type: TypeNull})
	dangling, _ := s.SpawnNPC(NpcSpawn{Type: TypeNull, ParentID: 15})

	got, ok := s.Parent(child)
	require.True(t, ok)
	assert.Equal(t, parent.ID, got.ID)

	_, ok = s.Parent(orphan)
	assert.False(t, ok, "parent id 0 means no parent")
	_, ok = s.Parent(dangling)
	assert.False(t, ok, "empty slot means no parent")

	s.RunBuiltin(child)
	assert.Equal(t, parent.X, child.X)
	assert.Equal(t, parent.Y-16*Unit, child.Y)

	require.NoError(t, s.KillNPC(parent.ID))
	s.FlushDestroyed()
	s.RunBuiltin(child)
	assert.True(t, s.Dying(child.ID), "child despawns once its parent is gone")
}

func TestEachNPC_SlotOrder(t *testing.T) {
	s := newTestState(t)
	_, _ = s.SpawnNPC(NpcSpawn{Slot: 9, Type: 9})
	_, _ = s.SpawnNPC(NpcSpawn{Slot: 2, Type: 2})
	_, _ = s.SpawnNPC(NpcSpawn{Slot: 5, Type: 5})
	var types []uint16
	s.EachNPC(func(n *NPC) { types = append(types, n.Type) })
	assert.Equal(t, []uint16{2, 5, 9}, types)
	assert.Equal(t, 3, s.NpcCount())

	s.ClearNPCs()
	assert.Equal(t, 0, s.NpcCount())
}

func TestNPC_RandomDeterministicPerSpawn(t *testing.T) {
	a := newTestState(t)
	b := newTestState(t)
	na, _ := a.SpawnNPC(NpcSpawn{Type: TypeNull})
	nb, _ := b.SpawnNPC(NpcSpawn{Type: TypeNull})
	for i := 0; i < 20; i++ {
		assert.Equal(t, na.Random(0, 100), nb.Random(0, 100))
	}
}

func TestIntegrate_Bounds(t *testing.T) {
	s := newTestState(t)
	s.Stage.Width = ToFixed(100)
	s.Stage.Height = ToFixed(100)
	n, _ := s.SpawnNPC(NpcSpawn{X: ToFixed(1), Y: ToFixed(99)})
	n.VelX = -ToFixed(5)
	n.VelY = ToFixed(5)

	s.Integrate(n)
	assert.Equal(t, int32(0), n.X)
	assert.Equal(t, s.Stage.Height, n.Y)
	assert.Equal(t, HitLeftWall|HitFloor, n.Hit)
	assert.Equal(t, -ToFixed(5), n.VelX, "integration never touches velocity")

	n.VelX, n.VelY = ToFixed(1), -ToFixed(1)
	s.Integrate(n)
	assert.Equal(t, HitFlags(0), n.Hit)
}

func TestBuiltin_Walker(t *testing.T) {
	s := newTestState(t)
	n, _ := s.SpawnNPC(NpcSpawn{Type: TypeWalker, Direction: int(DirRight)})
	for i := 0; i < 20; i++ {
		s.RunBuiltin(n)
	}
	assert.Equal(t, int32(maxWalkVel), n.VelX)
	assert.Equal(t, uint16(1), n.ActionNum)

	n.Hit = HitRightWall
	s.RunBuiltin(n)
	assert.Equal(t, DirLeft, n.Direction)
}

func TestBuiltin_TimedDespawn(t *testing.T) {
	s := newTestState(t)
	n, _ := s.SpawnNPC(NpcSpawn{Type: TypeTimedDespawn})
	for i := 0; i < despawnTime; i++ {
		s.RunBuiltin(n)
	}
	assert.True(t, s.Dying(n.ID))
	assert.True(t, HasBuiltin(TypeTimedDespawn))
	assert.False(t, HasBuiltin(777))
}

func TestLoadStage(t *testing.T) {
	bus := event.NewBus()
	s := NewState(16, 4, bus)
	var loaded []int
	event.Subscribe(bus, func(e event.StageLoaded) { loaded = append(loaded, e.StageID) })

	err := s.LoadStage(&data.StageDef{
		ID: 12, Width: 320, Height: 240, Seed: 5,
		Npcs: []data.NpcSpawn{
			{Type: TypeWalker, X: 10, Y: 20},
			{Slot: 7, Type: TypeFaller, X: 1, Y: 2, Direction: 7},
		},
		Players: []data.PlayerSpawn{{X: 4, Y: 4, Life: 3, Local: true}, {X: 8, Y: 8, Life: 3, StageID: 13}},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, s.Stage.ID)
	assert.Equal(t, 2, s.NpcCount())

	n, ok := s.NPCBySlot(7)
	require.True(t, ok)
	assert.Equal(t, DirFacingPlayer, n.Direction)
	assert.Equal(t, uint16(7), n.RawDirection)

	assert.Len(t, s.OnlinePlayers(), 2)
	assert.Len(t, s.MapPlayers(), 1)

	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, []int{12}, loaded)
}
