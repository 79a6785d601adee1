package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/game/dice"
)

// globalRoomCode is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no room VM is found.
const globalRoomCode = "__global__"

// CombatantInfo is a snapshot of a combatant's state passed to Lua callbacks.
type CombatantInfo struct {
	UID   string
	Name  string
	HP    int
	MaxHP int
	AC    int
}

// CombatEndResult carries the outcome of a room's on_combat_end hook.
type CombatEndResult struct {
	// BonusXP is extra experience granted to every surviving player.
	BonusXP int
	// Epilogue is an extra narrative line broadcast after the encounter.
	Epilogue string
}

// Manager owns one sandboxed LState per room and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook after all LoadRoom calls complete.
// Each room's LState is single-threaded; the manager lock serializes hook
// dispatch.
type Manager struct {
	mu      sync.Mutex
	states  map[string]*lua.LState
	cancels map[string]func()
	dice    dice.Source
	logger  *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	GetCombatant func(uid string) *CombatantInfo
	Broadcast    func(roomCode, msg string)
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty room map.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	return &Manager{
		states:  make(map[string]*lua.LState),
		cancels: make(map[string]func()),
		dice:    src,
		logger:  logger,
	}
}

// LoadRoom creates a sandboxed VM for roomCode, registers all engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: roomCode must be non-empty; scriptDir must be a readable directory.
// Postcondition: Room VM is registered; returns error on Lua load failure.
func (m *Manager) LoadRoom(roomCode, scriptDir string, instLimit int) error {
	return m.loadInto(roomCode, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible as a
// CallHook fallback from any room.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalRoomCode, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		if oldCancel := m.cancels[key]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[key] = L
	m.cancels[key] = cancel
	m.mu.Unlock()
	return nil
}

// Close releases all room VMs.
//
// Postcondition: CallHook returns (LNil, nil) for every room afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		if cancel := m.cancels[key]; cancel != nil {
			cancel()
		}
		L.Close()
	}
	m.states = make(map[string]*lua.LState)
	m.cancels = make(map[string]func())
}

// CallHook calls the named Lua global function in roomCode's VM. If the room
// has no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil) if
// the hook is not defined or no VM exists. Lua runtime errors are logged at
// Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(roomCode, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[roomCode]
	if !ok {
		L = m.states[globalRoomCode]
	}
	if L == nil {
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("room", roomCode),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// OnCombatEnd invokes the room's on_combat_end(outcome, round) hook and
// decodes its optional table result. A missing hook, a non-table return, or
// a Lua error all yield a zero CombatEndResult.
//
// Precondition: roomCode and outcome must be non-empty; round must be >= 1.
// Postcondition: Returns a non-nil result; BonusXP is never negative.
func (m *Manager) OnCombatEnd(roomCode, outcome string, round int) *CombatEndResult {
	ret, _ := m.CallHook(roomCode, "on_combat_end",
		lua.LString(outcome), lua.LNumber(round))

	res := &CombatEndResult{}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return res
	}
	if v, ok := tbl.RawGetString("bonus_xp").(lua.LNumber); ok && int(v) > 0 {
		res.BonusXP = int(v)
	}
	if v, ok := tbl.RawGetString("epilogue").(lua.LString); ok {
		res.Epilogue = string(v)
	}
	return res
}
