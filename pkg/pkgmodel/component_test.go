package pkgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComponentSetDefaultsBuildAndRun(t *testing.T) {
	cs := NewComponentSet(nil)

	_, err := cs.Get(ComponentBuild)
	require.NoError(t, err)
	_, err = cs.Get(ComponentRun)
	require.NoError(t, err)
}

func TestComponentSetGetUnknownComponent(t *testing.T) {
	cs := NewComponentSet(nil)
	_, err := cs.Get(ComponentName("debug"))
	assert.IsType(t, ErrUnknownComponent{}, err)
}

func TestComponentSetClosureFollowsUses(t *testing.T) {
	cs := NewComponentSet([]Component{
		{Name: "lib", Files: []string{"lib/*"}},
		{Name: "headers", Files: []string{"include/*"}},
		{Name: "dev", Uses: []ComponentName{"lib", "headers"}},
	})

	closure, err := cs.Closure("dev")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ComponentName{"dev", "lib", "headers"}, closure)
}

func TestComponentSetClosureToleratesCycles(t *testing.T) {
	cs := NewComponentSet([]Component{
		{Name: "a", Uses: []ComponentName{"b"}},
		{Name: "b", Uses: []ComponentName{"a"}},
	})

	closure, err := cs.Closure("a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ComponentName{"a", "b"}, closure)
}

func TestComponentSetAllExpandsToEveryComponent(t *testing.T) {
	cs := NewComponentSet([]Component{
		{Name: "lib"},
		{Name: "headers"},
	})

	all, err := cs.Get(ComponentAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ComponentName{ComponentBuild, ComponentRun, "lib", "headers"}, all.Uses)
}
