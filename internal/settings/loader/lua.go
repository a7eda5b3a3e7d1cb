package loader

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// evalLua evaluates a Lua configuration chunk and returns the resulting
// table as a map. The chunk either returns a table:
//
//	return { words = { "spelld" }, enabled = true }
//
// or assigns one to a global named "config".
func evalLua(source string, data []byte) (map[string]any, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(string(data)); err != nil {
		return nil, newParseError(FormatLua, source, err)
	}

	var table *lua.LTable
	if L.GetTop() > 0 {
		if t, ok := L.Get(-1).(*lua.LTable); ok {
			table = t
		}
	}
	if table == nil {
		if t, ok := L.GetGlobal("config").(*lua.LTable); ok {
			table = t
		}
	}
	if table == nil {
		return nil, newParseError(FormatLua, source, errors.New("chunk must return a table or set a 'config' global"))
	}

	value := luaTableToGo(table, make(map[*lua.LTable]bool))
	config, ok := value.(map[string]any)
	if !ok {
		return nil, newParseError(FormatLua, source, errors.New("config table must use string keys"))
	}

	return config, nil
}

// luaValueToGo converts a Lua value to a Go value, tracking visited tables
// to break circular references.
func luaValueToGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return luaTableToGo(v, visited)
	default:
		return nil
	}
}

// luaTableToGo converts a Lua table to a slice when it is a contiguous
// 1-based array, otherwise to a string-keyed map.
func luaTableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	maxN := 0
	count := 0
	isArray := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			isArray = false
			return
		}
		if int(kn) > maxN {
			maxN = int(kn)
		}
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = luaValueToGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = luaValueToGo(v, visited)
	})
	return m
}
