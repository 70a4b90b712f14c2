package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayer_DamageRespectsInvincibility(t *testing.T) {
	p := &Player{Life: 10, MaxLife: 10}
	assert.True(t, p.Damage(3))
	assert.Equal(t, int16(7), p.Life)
	assert.False(t, p.Damage(3), "shock frames block damage")
	assert.Equal(t, int16(7), p.Life)

	p.Shock = 0
	p.Invincible = true
	assert.False(t, p.Damage(3))

	p.Invincible = false
	assert.True(t, p.Damage(100))
	assert.Equal(t, int16(0), p.Life)
	assert.False(t, (&Player{Life: 5}).Damage(0))
}

func TestDirectory_ReflectsMembership(t *testing.T) {
	s := newTestState(t)
	assert.Empty(t, s.OnlinePlayers())
	_, ok := s.LocalPlayer()
	assert.False(t, ok)

	host, err := s.AddPlayer(PlayerSpawn{StageID: 1, Local: true})
	require.NoError(t, err)
	guest, err := s.AddPlayer(PlayerSpawn{StageID: 1})
	require.NoError(t, err)

	local, ok := s.LocalPlayer()
	require.True(t, ok)
	assert.Equal(t, host.ID, local.ID)
	assert.Len(t, s.MapPlayers(), 2)

	require.NoError(t, s.Travel(guest.ID, 2))
	assert.Len(t, s.MapPlayers(), 1, "travel is reflected on the next call")
	assert.Len(t, s.OnlinePlayers(), 2)

	require.NoError(t, s.RemovePlayer(guest.ID))
	assert.Len(t, s.OnlinePlayers(), 1)
	_, err = s.Player(guest.ID)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, s.Travel(guest.ID, 1), ErrInvalidHandle)

	require.NoError(t, s.RemovePlayer(host.ID))
	_, ok = s.LocalPlayer()
	assert.False(t, ok)
}

func TestDirectory_FirstPlayerBecomesLocal(t *testing.T) {
	s := newTestState(t)
	first, _ := s.AddPlayer(PlayerSpawn{StageID: 1})
	local, ok := s.LocalPlayer()
	require.True(t, ok)
	assert.Equal(t, first.ID, local.ID)
}

func TestClosestPlayer(t *testing.T) {
	s := newTestState(t)
	n, _ := s.SpawnNPC(NpcSpawn{X: ToFixed(50), Y: 0})

	_, err := s.ClosestPlayer(n)
	assert.ErrorIs(t, err, ErrNoPlayers)

	far, _ := s.AddPlayer(PlayerSpawn{X: ToFixed(200), StageID: 1})
	near, _ := s.AddPlayer(PlayerSpawn{X: ToFixed(40), StageID: 1})
	_, _ = s.AddPlayer(PlayerSpawn{X: ToFixed(50), StageID: 7})

	got, err := s.ClosestPlayer(n)
	require.NoError(t, err)
	assert.Equal(t, near.ID, got.ID, "players on other stages are ignored")

	require.NoError(t, s.RemovePlayer(near.ID))
	got, err = s.ClosestPlayer(n)
	require.NoError(t, err)
	assert.Equal(t, far.ID, got.ID)
}

func TestTickPlayers(t *testing.T) {
	s := newTestState(t)
	p, _ := s.AddPlayer(PlayerSpawn{StageID: 1, Life: 3})
	p.VelX = 10
	p.Shock = 2
	s.TickPlayers()
	assert.Equal(t, int32(10), p.X)
	assert.Equal(t, uint16(1), p.Shock)
}
