package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/stagescript/internal/settings"
	"github.com/l1jgo/stagescript/internal/sim"
)

func TestFlags_RoundTrip(t *testing.T) {
	e := newScriptEnv(t, `
		doukutsu.setFlag(42, true)
		a = doukutsu.getFlag(42)
		doukutsu.setFlag(42, false)
		b = doukutsu.getFlag(42)
		doukutsu.setFlag(7)
		c = doukutsu.getFlag(7)
		untouched = doukutsu.getFlag(7999)
	`)

	assert.Equal(t, lua.LTrue, e.global("a"))
	assert.Equal(t, lua.LFalse, e.global("b"))
	assert.Equal(t, lua.LTrue, e.global("c"))
	assert.Equal(t, lua.LFalse, e.global("untouched"))
}

func TestFlags_PlanesAreIndependent(t *testing.T) {
	e := newScriptEnv(t, `
		before = doukutsu.getFlag(42)
		doukutsu.setSkipFlag(42, true)
		after = doukutsu.getFlag(42)
		skip = doukutsu.getSkipFlag(42)
		doukutsu.setFlag(3, true)
		skip3 = doukutsu.getSkipFlag(3)
	`)

	assert.Equal(t, e.global("before"), e.global("after"))
	assert.Equal(t, lua.LTrue, e.global("skip"))
	assert.Equal(t, lua.LFalse, e.global("skip3"))
}

func TestFlags_OutOfRange(t *testing.T) {
	e := newScriptEnv(t, `
		storyOK, storyErr = pcall(doukutsu.setFlag, 8000, true)
		skipOK = pcall(doukutsu.getSkipFlag, 64)
		negOK = pcall(doukutsu.getFlag, -1)
	`)

	assert.Equal(t, lua.LFalse, e.global("storyOK"))
	assert.Contains(t, e.global("storyErr").String(), "out of range")
	assert.Equal(t, lua.LFalse, e.global("skipOK"))
	assert.Equal(t, lua.LFalse, e.global("negOK"))
	assert.Equal(t, 0, e.flags.Story.Count())
}

func TestFlags_HugeIDsDoNotWrap(t *testing.T) {
	e := newScriptEnv(t, `
		setOK, setErr = pcall(doukutsu.setFlag, 4294967301, true)
		getOK = pcall(doukutsu.getFlag, 4294967301)
		skipOK = pcall(doukutsu.setSkipFlag, 4294967301, true)
		nanOK = pcall(doukutsu.setFlag, 0/0, true)
		low = doukutsu.getFlag(5)
	`)

	assert.Equal(t, lua.LFalse, e.global("setOK"))
	assert.Contains(t, e.global("setErr").String(), "out of range")
	assert.Equal(t, lua.LFalse, e.global("getOK"))
	assert.Equal(t, lua.LFalse, e.global("skipOK"))
	assert.Equal(t, lua.LFalse, e.global("nanOK"))
	assert.Equal(t, lua.LFalse, e.global("low"))
	assert.Equal(t, 0, e.flags.Story.Count())
	assert.Equal(t, 0, e.flags.Skip.Count())
}

func TestLookups_HugeIDsDoNotWrap(t *testing.T) {
	e := newScriptEnv(t)
	addPlayer(t, e.state, sim.PlayerSpawn{StageID: 1})
	spawn(t, e.state, sim.NpcSpawn{Type: 1})

	e.exec(t, `
		wrapped = doukutsu.player(4294967297)
		first = doukutsu.player(1)
		npcOK = pcall(doukutsu.getNPC, 4294967297)
		bigOK = pcall(doukutsu.getNPC, 1e300)
	`)

	assert.Equal(t, lua.LNil, e.global("wrapped"))
	assert.NotEqual(t, lua.LNil, e.global("first"))
	assert.Equal(t, lua.LFalse, e.global("npcOK"))
	assert.Equal(t, lua.LFalse, e.global("bigOK"))
}

func TestAudio(t *testing.T) {
	e := newScriptEnv(t, `
		doukutsu.playSfx(11)
		doukutsu.playSfxLoop(12)
		doukutsu.playMusic(3)
		doukutsu.playMusic(0, true)
	`)

	assert.Equal(t, []int{11}, e.audio.sfx)
	assert.Equal(t, []int{12}, e.audio.loops)
	assert.Equal(t, []string{"3/false", "0/true"}, e.audio.music)
}

func TestSettingsBridge(t *testing.T) {
	e := newEnv(t, Options{})
	var got []settings.Value
	e.settings.Handle("tickRate", func(v settings.Value) { got = append(got, v) })
	e.load(`
		doukutsu.setSetting("tickRate", 50)
		doukutsu.setSetting("tickRate", "fast")
		doukutsu.setSetting("tickRate", false)
		doukutsu.setSetting("tickRate", nil)
		doukutsu.setSetting("tickRate", {})
		doukutsu.setSetting("noSuchSetting", 1)
		doukutsu.setStageParam("fog", "thick")
	`)

	require.Len(t, got, 5)
	assert.Equal(t, settings.Number(50), got[0])
	assert.Equal(t, settings.String("fast"), got[1])
	assert.Equal(t, settings.Bool(false), got[2])
	assert.Equal(t, settings.KindNil, got[3].Kind)
	assert.Equal(t, settings.KindOpaque, got[4].Kind)
	assert.Equal(t, settings.Number(1), e.settings.Unhandled()["noSuchSetting"])
	assert.Equal(t, settings.String("thick"), e.stageParams.Unhandled()["fog"])
	assert.Empty(t, e.errorLogs("lua script load error"), "unknown keys are never errors")
}

func TestRSTable(t *testing.T) {
	e := newEnv(t, Options{})
	e.stageParams.Handle("lightingMode", func(v settings.Value) { e.state.Stage.Lighting = v.Str })
	e.load(`
		before = doukutsu.rs.lightingEnabled
		doukutsu.rs.lightingMode = "ambient"
		mode = doukutsu.rs.lightingMode
		after = doukutsu.rs.lightingEnabled
		roOK = pcall(function() doukutsu.rs.lightingEnabled = true end)
	`)

	assert.Equal(t, lua.LFalse, e.global("before"))
	assert.Equal(t, lua.LString("ambient"), e.global("mode"))
	assert.Equal(t, lua.LTrue, e.global("after"))
	assert.Equal(t, lua.LFalse, e.global("roOK"))
}

func TestCurrentStage(t *testing.T) {
	e := newScriptEnv(t, `
		first = doukutsu.currentStage
		writeOK = pcall(function() doukutsu.currentStage = 9 end)
		doukutsu.custom = "kept"
	`)
	e.state.Stage.ID = 4
	e.exec(t, `second = doukutsu.currentStage; custom = doukutsu.custom`)

	assert.Equal(t, lua.LNumber(1), e.global("first"))
	assert.Equal(t, lua.LNumber(4), e.global("second"))
	assert.Equal(t, lua.LFalse, e.global("writeOK"))
	assert.Equal(t, lua.LString("kept"), e.global("custom"))
}

func TestOverride_LastWriteWins(t *testing.T) {
	e := newScriptEnv(t, `
		doukutsu.setNPCHandler(5, function(npc) npc.actionNum = 1 end)
		doukutsu.setNPCHandler(5, function(npc) npc.actionNum = 2 end)
		doukutsu.on("clear", function() doukutsu.setNPCHandler(5, nil) end)
	`)
	n := spawn(t, e.state, sim.NpcSpawn{Type: 5})

	assert.Equal(t, 1, e.host.Overrides().Len())
	assert.Equal(t, Overridden, e.host.Override(n))
	assert.Equal(t, uint16(2), n.ActionNum)

	e.host.Fire("clear")
	assert.Equal(t, 0, e.host.Overrides().Len())
	assert.Equal(t, NotOverridden, e.host.Override(n))
}

func TestOverride_ErrorRestoresNPC(t *testing.T) {
	e := newScriptEnv(t, `
		doukutsu.setNPCHandler(9, function(npc)
			npc.x = 50
			npc.actionCounter = npc.actionCounter + 1
			error("handler bug")
		end)
	`)
	n := spawn(t, e.state, sim.NpcSpawn{Type: 9, X: sim.ToFixed(1)})
	other := spawn(t, e.state, sim.NpcSpawn{Type: 1, X: sim.ToFixed(2)})

	for i := 0; i < 3; i++ {
		assert.Equal(t, OverrideFailed, e.host.Override(n))
	}

	assert.Equal(t, sim.ToFixed(1), n.X)
	assert.Equal(t, uint16(0), n.ActionCounter)
	assert.Equal(t, sim.ToFixed(2), other.X)
	assert.Len(t, e.errorLogs("lua npc handler error"), 3)
}

func TestOverride_ErrorRewindsRandomStream(t *testing.T) {
	e := newScriptEnv(t, `
		doukutsu.setNPCHandler(9, function(npc)
			npc:random(0, 100)
			npc:random(0, 100)
			error("after rolling")
		end)
	`)
	n := spawn(t, e.state, sim.NpcSpawn{Type: 9})
	before := n.RNG

	require.Equal(t, OverrideFailed, e.host.Override(n))

	assert.Equal(t, before, n.RNG)
}

func TestOverride_ErrorLogsThrottledPerType(t *testing.T) {
	e := newScriptEnv(t, `
		doukutsu.setNPCHandler(9, function(npc) error("always") end)
	`)
	n := spawn(t, e.state, sim.NpcSpawn{Type: 9})

	for i := 0; i < overrideErrorBurst+20; i++ {
		assert.Equal(t, OverrideFailed, e.host.Override(n))
	}

	assert.Len(t, e.errorLogs("lua npc handler error"), overrideErrorBurst)
}

func TestSetNPCHandler_RejectsBadArguments(t *testing.T) {
	e := newScriptEnv(t, `
		typeOK = pcall(doukutsu.setNPCHandler, 70000, function() end)
		fnOK = pcall(doukutsu.setNPCHandler, 5, 12)
	`)

	assert.Equal(t, lua.LFalse, e.global("typeOK"))
	assert.Equal(t, lua.LFalse, e.global("fnOK"))
	assert.Equal(t, 0, e.host.Overrides().Len())
}
