package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/stagescript/internal/flags"
	"github.com/l1jgo/stagescript/internal/settings"
	"github.com/l1jgo/stagescript/internal/sim"
)

// installAPI builds the doukutsu global table (aliased as game) on a fresh VM.
func (h *Host) installAPI() {
	L := h.vm
	L.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	L.SetGlobal("print", L.NewFunction(h.luaPrint))
	h.installHandleTypes()

	api := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"playSfx":       h.apiPlaySfx,
		"playSfxLoop":   h.apiPlaySfxLoop,
		"playMusic":     h.apiPlayMusic,
		"getFlag":       h.apiGetFlag,
		"setFlag":       h.apiSetFlag,
		"getSkipFlag":   h.apiGetSkipFlag,
		"setSkipFlag":   h.apiSetSkipFlag,
		"players":       h.apiOnlinePlayers,
		"onlinePlayers": h.apiOnlinePlayers,
		"mapPlayers":    h.apiMapPlayers,
		"localPlayerId": h.apiLocalPlayerID,
		"player":        h.apiPlayer,
		"getNPC":        h.apiGetNPC,
		"setSetting":    h.apiSetSetting,
		"setStageParam": h.apiSetStageParam,
		"setNPCHandler": h.apiSetNPCHandler,
		"on":            h.apiOn,
		"off":           h.apiOff,
	})
	api.RawSetString("rs", h.newRSTable())

	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		if L.CheckString(2) == "currentStage" {
			L.Push(lua.LNumber(h.state.Stage.ID))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		key := L.CheckString(2)
		if key == "currentStage" {
			L.RaiseError("doukutsu.currentStage is read-only")
			return 0
		}
		t.RawSetString(key, L.Get(3))
		return 0
	}))
	L.SetMetatable(api, mt)

	L.SetGlobal("doukutsu", api)
	L.SetGlobal("game", api)
}

// newRSTable exposes lightingMode as a property backed by the stage-param
// bridge, and lightingEnabled as a read-only view of the stage.
func (h *Host) newRSTable() *lua.LTable {
	L := h.vm
	rs := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		switch L.CheckString(2) {
		case "lightingMode":
			L.Push(lua.LString(h.state.Stage.Lighting))
		case "lightingEnabled":
			L.Push(lua.LBool(h.state.Stage.Lighting != "" && h.state.Stage.Lighting != "none"))
		default:
			L.Push(lua.LNil)
		}
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		switch key := L.CheckString(2); key {
		case "lightingMode":
			h.stageParams.Set(key, toValue(L.Get(3)))
		case "lightingEnabled":
			L.RaiseError("rs.lightingEnabled is read-only")
		default:
			t.RawSetString(key, L.Get(3))
		}
		return 0
	}))
	L.SetMetatable(rs, mt)
	return rs
}

func (h *Host) apiPlaySfx(L *lua.LState) int {
	h.state.Audio.PlaySfx(L.CheckInt(1))
	return 0
}

func (h *Host) apiPlaySfxLoop(L *lua.LState) int {
	h.state.Audio.PlaySfxLoop(L.CheckInt(1))
	return 0
}

func (h *Host) apiPlayMusic(L *lua.LState) int {
	h.state.Audio.PlayMusic(L.CheckInt(1), L.OptBool(2, false))
	return 0
}

// checkFlagID rejects ids that do not fit a uint32 before converting, so a
// huge id can never wrap onto a low flag.
func checkFlagID(L *lua.LState, n int) uint32 {
	v := L.CheckNumber(n)
	if v < 0 {
		L.ArgError(n, "flag id must not be negative")
		return 0
	}
	if !(v <= math.MaxUint32) {
		L.RaiseError("flag %s: %s", v.String(), flags.ErrOutOfRange)
		return 0
	}
	return uint32(v)
}

func (h *Host) apiGetFlag(L *lua.LState) int {
	v, err := h.flags.GetFlag(checkFlagID(L, 1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LBool(v))
	return 1
}

func (h *Host) apiSetFlag(L *lua.LState) int {
	if err := h.flags.SetFlag(checkFlagID(L, 1), L.OptBool(2, true)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (h *Host) apiGetSkipFlag(L *lua.LState) int {
	v, err := h.flags.GetSkipFlag(checkFlagID(L, 1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LBool(v))
	return 1
}

func (h *Host) apiSetSkipFlag(L *lua.LState) int {
	if err := h.flags.SetSkipFlag(checkFlagID(L, 1), L.OptBool(2, true)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (h *Host) playerList(players []*sim.Player) *lua.LTable {
	t := h.vm.CreateTable(len(players), 0)
	for _, p := range players {
		t.Append(h.playerValue(p.ID))
	}
	return t
}

func (h *Host) onlinePlayers() *lua.LTable { return h.playerList(h.state.OnlinePlayers()) }
func (h *Host) mapPlayers() *lua.LTable    { return h.playerList(h.state.MapPlayers()) }

func (h *Host) apiOnlinePlayers(L *lua.LState) int {
	L.Push(h.onlinePlayers())
	return 1
}

func (h *Host) apiMapPlayers(L *lua.LState) int {
	L.Push(h.mapPlayers())
	return 1
}

func (h *Host) apiLocalPlayerID(L *lua.LState) int {
	p, ok := h.state.LocalPlayer()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(p.Slot()))
	return 1
}

// player(id) looks a player up by slot; player() returns the local player.
func (h *Host) apiPlayer(L *lua.LState) int {
	var (
		p  *sim.Player
		ok bool
	)
	if L.Get(1) == lua.LNil {
		p, ok = h.state.LocalPlayer()
	} else {
		id := L.CheckNumber(1)
		if id >= 1 && id <= math.MaxUint32 {
			p, ok = h.state.PlayerBySlot(uint32(id))
		}
	}
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(h.playerValue(p.ID))
	return 1
}

// getNPC returns nil for an empty slot and raises for a slot outside the table.
func (h *Host) apiGetNPC(L *lua.LState) int {
	id := L.CheckNumber(1)
	if !(id >= 1 && id <= lua.LNumber(h.state.NpcCapacity())) {
		L.ArgError(1, "npc id out of range")
		return 0
	}
	n, ok := h.state.NPCBySlot(uint32(id))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(h.npcValue(n.ID))
	return 1
}

func (h *Host) apiSetSetting(L *lua.LState) int {
	h.settings.Set(L.CheckString(1), toValue(L.Get(2)))
	return 0
}

func (h *Host) apiSetStageParam(L *lua.LState) int {
	h.stageParams.Set(L.CheckString(1), toValue(L.Get(2)))
	return 0
}

func (h *Host) apiSetNPCHandler(L *lua.LState) int {
	npcType := L.CheckInt(1)
	if npcType < 0 || npcType > 0xffff {
		L.ArgError(1, "npc type out of range")
		return 0
	}
	if L.Get(2) == lua.LNil {
		h.overrides.Set(uint16(npcType), nil)
		return 0
	}
	h.overrides.Set(uint16(npcType), L.CheckFunction(2))
	return 0
}

func (h *Host) apiOn(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	h.dispatcher.On(name, fn)
	L.Push(fn)
	return 1
}

func (h *Host) apiOff(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	L.Push(lua.LBool(h.dispatcher.Off(name, fn)))
	return 1
}

// toValue converts a script value for the settings bridges.
func toValue(v lua.LValue) settings.Value {
	switch v := v.(type) {
	case *lua.LNilType:
		return settings.Nil()
	case lua.LBool:
		return settings.Bool(bool(v))
	case lua.LNumber:
		return settings.Number(float64(v))
	case lua.LString:
		return settings.String(string(v))
	}
	return settings.Opaque(v)
}
