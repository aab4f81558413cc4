// Package reflector names message types. Typed actor requests are
// dispatched by the qualified name and described in call histories by the
// short one.
package reflector

import (
	"reflect"
	"sync"
)

// maxCacheSize bounds the name cache. Programs have few message types, so
// the cache is simply cleared when it fills up.
const maxCacheSize = 1024

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

type TypeInfo struct {
	Name  string       // "pkg/path.TypeName", used as dispatch key
	Short string       // "pkg.TypeName", used in diagnostics
	Type  reflect.Type // pointer types are unwrapped
}

// TypeInfoOf describes the dynamic type of x.
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

// TypeInfoFor describes T.
func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{Name: qualifiedName(t), Short: t.String(), Type: t}

	muCache.Lock()
	if len(cache) >= maxCacheSize {
		cache = make(map[reflect.Type]TypeInfo)
	}
	cache[t] = ti
	muCache.Unlock()
	return ti
}

// qualifiedName falls back to the type literal for unnamed types such as
// []string or map[string]int.
func qualifiedName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
