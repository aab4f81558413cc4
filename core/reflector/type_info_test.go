package reflector

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saveDoc struct {
	ID string
}

const saveDocName = "github.com/turingvideo/couchbase-lite-core/core/reflector.saveDoc"

func TestTypeInfoOf(t *testing.T) {
	ti := TypeInfoOf(saveDoc{ID: "a"})
	assert.Equal(t, saveDocName, ti.Name)
	assert.Equal(t, "reflector.saveDoc", ti.Short)
	assert.Equal(t, "saveDoc", ti.Type.Name())
}

func TestTypeInfoOf_pointer(t *testing.T) {
	ti := TypeInfoOf(&saveDoc{})
	assert.Equal(t, saveDocName, ti.Name)
	assert.NotEqual(t, reflect.Pointer, ti.Type.Kind())

	assert.Equal(t, saveDocName, TypeInfoFor[*saveDoc]().Name)
}

func TestTypeInfo_builtin(t *testing.T) {
	assert.Equal(t, "string", TypeInfoFor[string]().Name)
	assert.Equal(t, "[]int", TypeInfoOf([]int{1}).Name)
	assert.Equal(t, "map[string]int", TypeInfoFor[map[string]int]().Short)
}

func TestTypeInfo_nil(t *testing.T) {
	require.Equal(t, TypeInfo{}, TypeInfoForType(nil))
	require.Equal(t, TypeInfo{}, TypeInfoOf(nil))
}

func TestTypeInfo_cached(t *testing.T) {
	muCache.Lock()
	cache = make(map[reflect.Type]TypeInfo)
	muCache.Unlock()

	a := TypeInfoOf(saveDoc{})
	b := TypeInfoFor[saveDoc]()
	require.Equal(t, a, b)

	muCache.RLock()
	_, ok := cache[reflect.TypeFor[saveDoc]()]
	muCache.RUnlock()
	require.True(t, ok)
}

func TestTypeInfo_concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = TypeInfoOf(saveDoc{})
				_ = TypeInfoFor[int]()
			}
		}()
	}
	wg.Wait()
}
