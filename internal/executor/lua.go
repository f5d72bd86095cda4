package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// runResponder runs <scriptsDir>/<apiID>.lua if it exists, calling the
// global respond(path, params) function. The script must return a table,
// which becomes the simulated response. handled is false when no script
// exists for the API.
func (e *Executor) runResponder(apiID, path string, params map[string]any) (map[string]any, bool, error) {
	scriptPath := filepath.Join(e.scriptsDir, apiID+".lua")
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, false, nil
	}

	lState := lua.NewState()
	defer lState.Close()

	// Allow os.getenv and os.time so scripts can read env vars and seed
	// math.random.
	lState.PreloadModule("os", osModuleLoader)

	absPath, err := filepath.Abs(scriptPath)
	if err != nil {
		return nil, false, fmt.Errorf("script path: %w", err)
	}
	if err := lState.DoFile(absPath); err != nil {
		return nil, false, fmt.Errorf("load script: %w", err)
	}

	fn := lState.GetGlobal("respond")
	if fn.Type() == lua.LTNil {
		return nil, false, fmt.Errorf("script must define global function respond(path, params)")
	}
	if fn.Type() != lua.LTFunction {
		return nil, false, fmt.Errorf("respond must be a function, got %s", fn.Type().String())
	}

	lState.Push(fn)
	lState.Push(lua.LString(path))
	lState.Push(paramsToTable(lState, params))
	if err := lState.PCall(2, 1, nil); err != nil {
		return nil, false, fmt.Errorf("respond(): %w", err)
	}

	ret := lState.Get(-1)
	lState.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, false, fmt.Errorf("respond() must return a table, got %s", ret.Type().String())
	}
	return tableToMap(tbl), true, nil
}

func paramsToTable(lState *lua.LState, params map[string]any) *lua.LTable {
	tbl := lState.NewTable()
	for k, v := range params {
		lState.SetField(tbl, k, goToLua(lState, v))
	}
	return tbl
}

func goToLua(lState *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := lState.NewTable()
		for _, item := range val {
			tbl.Append(goToLua(lState, item))
		}
		return tbl
	case map[string]any:
		return paramsToTable(lState, val)
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

func tableToMap(tbl *lua.LTable) map[string]any {
	out := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		out[k.String()] = luaToGo(v)
	})
	return out
}

func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Arrays come back as maps keyed by index; good enough for
		// simulated payloads.
		return tableToMap(val)
	default:
		return v.String()
	}
}

// osModuleLoader provides a minimal os module: getenv and time.
func osModuleLoader(lState *lua.LState) int {
	mod := lState.NewTable()
	lState.SetField(mod, "getenv", lState.NewFunction(func(ls *lua.LState) int {
		key := ls.CheckString(1)
		ls.Push(lua.LString(os.Getenv(key)))
		return 1
	}))
	lState.SetField(mod, "time", lState.NewFunction(func(ls *lua.LState) int {
		ls.Push(lua.LNumber(time.Now().Unix()))
		return 1
	}))
	lState.Push(mod)
	return 1
}
