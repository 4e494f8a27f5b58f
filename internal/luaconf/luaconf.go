// Package luaconf loads declarative plugin specifications from a Lua file.
//
// The spec file returns a list; each entry is either a bare source string
// or a table with source/name/version fields:
//
//	return {
//	    "https://github.com/owner/plugin",
//	    { source = "https://github.com/owner/other", version = "^1.0" },
//	    { source = "https://github.com/owner/pinned", version = "frozen" },
//	}
package luaconf

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keypack/internal/pack"
)

// ErrBadSpecFile is returned when the spec file does not evaluate to a
// list of plugin specs.
var ErrBadSpecFile = errors.New("bad plugin spec file")

// Load evaluates the Lua spec file at path and returns the declared specs
// in file order. Specs are not normalized here; validation stays with the
// manager.
func Load(path string) ([]pack.Spec, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("evaluate spec file: %w", err)
	}

	value := L.Get(-1)
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: expected a returned table, got %s", ErrBadSpecFile, value.Type())
	}

	var specs []pack.Spec
	var convErr error

	table.ForEach(func(key, entry lua.LValue) {
		if convErr != nil {
			return
		}
		// Only the array part declares plugins.
		if _, isNum := key.(lua.LNumber); !isNum {
			return
		}

		switch v := entry.(type) {
		case lua.LString:
			specs = append(specs, pack.ParseSpec(string(v)))
		case *lua.LTable:
			specs = append(specs, pack.Spec{
				Source:  stringField(v, "source"),
				Name:    stringField(v, "name"),
				Version: stringField(v, "version"),
			})
		default:
			convErr = fmt.Errorf("%w: entry %v must be a string or table, got %s",
				ErrBadSpecFile, key, entry.Type())
		}
	})

	if convErr != nil {
		return nil, convErr
	}
	return specs, nil
}

// stringField reads a string field from a Lua table, returning "" when the
// field is absent or not a string.
func stringField(t *lua.LTable, name string) string {
	if s, ok := t.RawGetString(name).(lua.LString); ok {
		return string(s)
	}
	return ""
}
