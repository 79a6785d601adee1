package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/game/dice"
)

// RegisterModules registers the engine.* Lua table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: The engine global is defined in L with roll, log, broadcast,
// and combatant functions.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	L.SetField(engine, "roll", L.NewFunction(m.luaRoll))
	L.SetField(engine, "log", L.NewFunction(m.luaLog))
	L.SetField(engine, "broadcast", L.NewFunction(m.luaBroadcast))
	L.SetField(engine, "combatant", L.NewFunction(m.luaCombatant))

	L.SetGlobal("engine", engine)
}

// luaRoll implements engine.roll(sides) -> number in [1, sides].
func (m *Manager) luaRoll(L *lua.LState) int {
	sides := L.CheckInt(1)
	if sides < 1 {
		L.ArgError(1, "sides must be >= 1")
		return 0
	}
	L.Push(lua.LNumber(dice.Roll(sides, m.dice)))
	return 1
}

// luaLog implements engine.log(msg).
func (m *Manager) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	m.logger.Info("script log", zap.String("msg", msg))
	return 0
}

// luaBroadcast implements engine.broadcast(room, msg). No-op when the
// Broadcast callback is not injected.
func (m *Manager) luaBroadcast(L *lua.LState) int {
	roomCode := L.CheckString(1)
	msg := L.CheckString(2)
	if m.Broadcast != nil {
		m.Broadcast(roomCode, msg)
	}
	return 0
}

// luaCombatant implements engine.combatant(uid) -> table or nil. No-op nil
// when the GetCombatant callback is not injected.
func (m *Manager) luaCombatant(L *lua.LState) int {
	uid := L.CheckString(1)
	if m.GetCombatant == nil {
		L.Push(lua.LNil)
		return 1
	}
	info := m.GetCombatant(uid)
	if info == nil {
		L.Push(lua.LNil)
		return 1
	}

	tbl := L.NewTable()
	L.SetField(tbl, "uid", lua.LString(info.UID))
	L.SetField(tbl, "name", lua.LString(info.Name))
	L.SetField(tbl, "hp", lua.LNumber(info.HP))
	L.SetField(tbl, "max_hp", lua.LNumber(info.MaxHP))
	L.SetField(tbl, "ac", lua.LNumber(info.AC))
	L.Push(tbl)
	return 1
}
