package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/stagescript/internal/core/ecs"
	"github.com/l1jgo/stagescript/internal/sim"
)

const (
	npcTypeName    = "npc"
	playerTypeName = "player"
	stageTypeName  = "stage"
)

// outOfScope is raised when a script touches a destroyed entity, or any
// handle issued in an earlier tick or on another stage.
const outOfScope = "reference went out of scope. DO NOT store/use references to game objects outside the event"

type handleKind uint8

const (
	kindNPC handleKind = iota + 1
	kindPlayer
	kindStage
)

// handle is the userdata payload for every game object a script sees. It
// carries identity and the tick and stage it was issued for; each access
// re-resolves against the simulation.
type handle struct {
	kind  handleKind
	id    ecs.EntityID
	tick  uint64
	stage int
}

func (h *Host) newHandle(kind handleKind, id ecs.EntityID) lua.LValue {
	ud := h.vm.NewUserData()
	ud.Value = &handle{kind: kind, id: id, tick: h.state.Tick(), stage: h.state.Stage.ID}
	switch kind {
	case kindNPC:
		h.vm.SetMetatable(ud, h.vm.GetTypeMetatable(npcTypeName))
	case kindPlayer:
		h.vm.SetMetatable(ud, h.vm.GetTypeMetatable(playerTypeName))
	}
	return ud
}

func (h *Host) stageValue() lua.LValue {
	ud := h.vm.NewUserData()
	ud.Value = &handle{kind: kindStage, tick: h.state.Tick(), stage: h.state.Stage.ID}
	h.vm.SetMetatable(ud, h.vm.GetTypeMetatable(stageTypeName))
	return ud
}

func checkHandle(L *lua.LState, n int, kind handleKind) *handle {
	ud := L.CheckUserData(n)
	hd, ok := ud.Value.(*handle)
	if !ok || hd.kind != kind {
		L.ArgError(n, "game object expected")
		return nil
	}
	return hd
}

func (h *Host) inScope(hd *handle) bool {
	return hd.tick == h.state.Tick() && hd.stage == h.state.Stage.ID
}

func (h *Host) checkNPC(L *lua.LState, n int) *sim.NPC {
	hd := checkHandle(L, n, kindNPC)
	if !h.inScope(hd) {
		L.RaiseError(outOfScope)
		return nil
	}
	npc, err := h.state.NPC(hd.id)
	if err != nil {
		L.RaiseError(outOfScope)
		return nil
	}
	return npc
}

func (h *Host) checkPlayer(L *lua.LState, n int) *sim.Player {
	hd := checkHandle(L, n, kindPlayer)
	if !h.inScope(hd) {
		L.RaiseError(outOfScope)
		return nil
	}
	p, err := h.state.Player(hd.id)
	if err != nil {
		L.RaiseError(outOfScope)
		return nil
	}
	return p
}

func (h *Host) checkStage(L *lua.LState, n int) {
	hd := checkHandle(L, n, kindStage)
	if !h.inScope(hd) {
		L.RaiseError(outOfScope)
	}
}

// handleEq compares identity, so two handles to the same NPC are equal.
func handleEq(L *lua.LState) int {
	a, aok := L.CheckUserData(1).Value.(*handle)
	b, bok := L.CheckUserData(2).Value.(*handle)
	L.Push(lua.LBool(aok && bok && *a == *b))
	return 1
}

func (h *Host) installHandleTypes() {
	L := h.vm

	npcMethods := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"hitCeiling":    h.npcHit(sim.HitCeiling),
		"hitFloor":      h.npcHit(sim.HitFloor),
		"hitLeftWall":   h.npcHit(sim.HitLeftWall),
		"hitRightWall":  h.npcHit(sim.HitRightWall),
		"getAnimRect":   h.npcGetAnimRect,
		"setAnimRect":   h.npcSetAnimRect,
		"random":        h.npcRandom,
		"parentNPC":     h.npcParent,
		"closestPlayer": h.npcClosestPlayer,
	})
	mt := L.NewTypeMetatable(npcTypeName)
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		n := h.checkNPC(L, 1)
		key := L.CheckString(2)
		if m := npcMethods.RawGetString(key); m != lua.LNil {
			L.Push(m)
			return 1
		}
		L.Push(npcField(n, key))
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(h.npcSetField))
	mt.RawSetString("__eq", L.NewFunction(handleEq))

	playerFuncs := map[string]lua.LGFunction{
		"damage": h.playerDamage,
	}
	if h.opts.CompatPlayerSetters {
		playerFuncs["setX"] = h.playerSetter(func(p *sim.Player, v int32) { p.X = v })
		playerFuncs["setY"] = h.playerSetter(func(p *sim.Player, v int32) { p.Y = v })
		playerFuncs["setVelX"] = h.playerSetter(func(p *sim.Player, v int32) { p.VelX = v })
		playerFuncs["setVelY"] = h.playerSetter(func(p *sim.Player, v int32) { p.VelY = v })
	}
	playerMethods := L.SetFuncs(L.NewTable(), playerFuncs)
	mt = L.NewTypeMetatable(playerTypeName)
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		p := h.checkPlayer(L, 1)
		key := L.CheckString(2)
		if m := playerMethods.RawGetString(key); m != lua.LNil {
			L.Push(m)
			return 1
		}
		L.Push(playerField(p, key))
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(h.playerSetField))
	mt.RawSetString("__eq", L.NewFunction(handleEq))

	stageMethods := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"tick":          h.stageTick,
		"stage":         h.stageID,
		"players":       h.stageList(h.onlinePlayers),
		"onlinePlayers": h.stageList(h.onlinePlayers),
		"mapPlayers":    h.stageList(h.mapPlayers),
		"localPlayerId": h.stageWrap(h.apiLocalPlayerID),
		"player":        h.stageWrap(h.apiPlayer),
		"npc":           h.stageWrap(h.apiGetNPC),
	})
	mt = L.NewTypeMetatable(stageTypeName)
	mt.RawSetString("__index", stageMethods)
	mt.RawSetString("__eq", L.NewFunction(handleEq))
}

func npcField(n *sim.NPC, key string) lua.LValue {
	switch key {
	case "id":
		return lua.LNumber(n.Slot())
	case "npcType":
		return lua.LNumber(n.Type)
	case "x":
		return lua.LNumber(sim.ToPixels(n.X))
	case "y":
		return lua.LNumber(sim.ToPixels(n.Y))
	case "velX":
		return lua.LNumber(sim.ToPixels(n.VelX))
	case "velY":
		return lua.LNumber(sim.ToPixels(n.VelY))
	case "velX2":
		return lua.LNumber(sim.ToPixels(n.VelX2))
	case "velY2":
		return lua.LNumber(sim.ToPixels(n.VelY2))
	case "actionNum":
		return lua.LNumber(n.ActionNum)
	case "actionCounter":
		return lua.LNumber(n.ActionCounter)
	case "actionCounter2":
		return lua.LNumber(n.ActionCounter2)
	case "actionCounter3":
		return lua.LNumber(n.ActionCounter3)
	case "animNum":
		return lua.LNumber(n.AnimNum)
	case "animCounter":
		return lua.LNumber(n.AnimCounter)
	case "life":
		return lua.LNumber(n.Life)
	case "flagNum":
		return lua.LNumber(n.FlagNum)
	case "eventNum":
		return lua.LNumber(n.EventNum)
	case "parentId":
		return lua.LNumber(n.ParentID)
	case "direction":
		return lua.LNumber(n.Direction)
	case "rawDirection":
		return lua.LNumber(n.RawDirection)
	}
	return lua.LNil
}

func (h *Host) npcSetField(L *lua.LState) int {
	n := h.checkNPC(L, 1)
	key := L.CheckString(2)

	if fixed := npcFixedField(n, key); fixed != nil {
		*fixed = sim.ToFixed(float64(L.CheckNumber(3)))
		return 0
	}
	if counter := npcCounterField(n, key); counter != nil {
		*counter = wrapU16(L.CheckNumber(3))
		return 0
	}
	switch key {
	case "direction":
		v := int(L.CheckNumber(3))
		n.Direction = sim.ClampDirection(v)
		n.RawDirection = uint16(v)
	case "rawDirection":
		n.RawDirection = wrapU16(L.CheckNumber(3))
	case "id", "npcType":
		L.RaiseError("npc field %q is read-only", key)
	default:
		L.RaiseError("unknown npc field %q", key)
	}
	return 0
}

func npcFixedField(n *sim.NPC, key string) *int32 {
	switch key {
	case "x":
		return &n.X
	case "y":
		return &n.Y
	case "velX":
		return &n.VelX
	case "velY":
		return &n.VelY
	case "velX2":
		return &n.VelX2
	case "velY2":
		return &n.VelY2
	}
	return nil
}

func npcCounterField(n *sim.NPC, key string) *uint16 {
	switch key {
	case "actionNum":
		return &n.ActionNum
	case "actionCounter":
		return &n.ActionCounter
	case "actionCounter2":
		return &n.ActionCounter2
	case "actionCounter3":
		return &n.ActionCounter3
	case "animNum":
		return &n.AnimNum
	case "animCounter":
		return &n.AnimCounter
	case "life":
		return &n.Life
	case "flagNum":
		return &n.FlagNum
	case "eventNum":
		return &n.EventNum
	case "parentId":
		return &n.ParentID
	}
	return nil
}

// wrapU16 stores a script number into a 16-bit field modulo 2^16.
func wrapU16(v lua.LNumber) uint16 {
	return uint16(int64(v))
}

func (h *Host) npcHit(flag sim.HitFlags) lua.LGFunction {
	return func(L *lua.LState) int {
		n := h.checkNPC(L, 1)
		L.Push(lua.LBool(n.Hit&flag != 0))
		return 1
	}
}

func (h *Host) npcGetAnimRect(L *lua.LState) int {
	n := h.checkNPC(L, 1)
	t := L.CreateTable(4, 0)
	t.Append(lua.LNumber(n.AnimRect.Left))
	t.Append(lua.LNumber(n.AnimRect.Top))
	t.Append(lua.LNumber(n.AnimRect.Right))
	t.Append(lua.LNumber(n.AnimRect.Bottom))
	L.Push(t)
	return 1
}

// setAnimRect accepts either a {l, t, r, b} table or four numbers.
func (h *Host) npcSetAnimRect(L *lua.LState) int {
	n := h.checkNPC(L, 1)
	var v [4]lua.LNumber
	if t, ok := L.Get(2).(*lua.LTable); ok {
		for i := range v {
			num, ok := t.RawGetInt(i + 1).(lua.LNumber)
			if !ok {
				L.ArgError(2, "rect must hold four numbers")
				return 0
			}
			v[i] = num
		}
	} else {
		for i := range v {
			v[i] = L.CheckNumber(i + 2)
		}
	}
	n.AnimRect = sim.Rect{Left: wrapU16(v[0]), Top: wrapU16(v[1]), Right: wrapU16(v[2]), Bottom: wrapU16(v[3])}
	return 0
}

func (h *Host) npcRandom(L *lua.LState) int {
	n := h.checkNPC(L, 1)
	lo := int32(L.CheckNumber(2))
	hi := int32(L.CheckNumber(3))
	L.Push(lua.LNumber(n.Random(lo, hi)))
	return 1
}

func (h *Host) npcParent(L *lua.LState) int {
	n := h.checkNPC(L, 1)
	parent, ok := h.state.Parent(n)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(h.npcValue(parent.ID))
	return 1
}

func (h *Host) npcClosestPlayer(L *lua.LState) int {
	n := h.checkNPC(L, 1)
	p, err := h.state.ClosestPlayer(n)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(h.playerValue(p.ID))
	return 1
}

func playerField(p *sim.Player, key string) lua.LValue {
	switch key {
	case "id":
		return lua.LNumber(p.Slot())
	case "x":
		return lua.LNumber(sim.ToPixels(p.X))
	case "y":
		return lua.LNumber(sim.ToPixels(p.Y))
	case "velX":
		return lua.LNumber(sim.ToPixels(p.VelX))
	case "velY":
		return lua.LNumber(sim.ToPixels(p.VelY))
	case "life":
		return lua.LNumber(p.Life)
	}
	return lua.LNil
}

func (h *Host) playerSetField(L *lua.LState) int {
	p := h.checkPlayer(L, 1)
	key := L.CheckString(2)
	if h.opts.CompatPlayerSetters {
		L.RaiseError("player fields are read-only in compatibility mode, use set%s", upperFirst(key))
		return 0
	}
	var dst *int32
	switch key {
	case "x":
		dst = &p.X
	case "y":
		dst = &p.Y
	case "velX":
		dst = &p.VelX
	case "velY":
		dst = &p.VelY
	case "id", "life":
		L.RaiseError("player field %q is read-only", key)
		return 0
	default:
		L.RaiseError("unknown player field %q", key)
		return 0
	}
	*dst = sim.ToFixed(float64(L.CheckNumber(3)))
	return 0
}

func (h *Host) playerSetter(set func(*sim.Player, int32)) lua.LGFunction {
	return func(L *lua.LState) int {
		p := h.checkPlayer(L, 1)
		set(p, sim.ToFixed(float64(L.CheckNumber(2))))
		return 0
	}
}

func (h *Host) playerDamage(L *lua.LState) int {
	p := h.checkPlayer(L, 1)
	p.Damage(int(L.CheckNumber(2)))
	return 0
}

func (h *Host) stageTick(L *lua.LState) int {
	h.checkStage(L, 1)
	L.Push(lua.LNumber(h.state.Tick()))
	return 1
}

func (h *Host) stageID(L *lua.LState) int {
	h.checkStage(L, 1)
	L.Push(lua.LNumber(h.state.Stage.ID))
	return 1
}

func (h *Host) stageList(list func() *lua.LTable) lua.LGFunction {
	return func(L *lua.LState) int {
		h.checkStage(L, 1)
		L.Push(list())
		return 1
	}
}

// stageWrap exposes a doukutsu function as a stage method, dropping self.
func (h *Host) stageWrap(fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		h.checkStage(L, 1)
		L.Remove(1)
		return fn(L)
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
