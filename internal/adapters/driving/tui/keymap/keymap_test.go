package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_QuitBinding(t *testing.T) {
	km := DefaultKeyMap()

	keys := km.Quit.Keys()
	assert.Contains(t, keys, "q")
	assert.Contains(t, keys, "ctrl+c")
}

func TestDefaultKeyMap_SyncBindings(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, []string{"s"}, km.Sync.Keys())
	assert.Equal(t, []string{"S"}, km.Resume.Keys())
	assert.Equal(t, []string{"r"}, km.Refresh.Keys())
}

func TestDefaultKeyMap_NavigationBindings(t *testing.T) {
	km := DefaultKeyMap()

	assert.Contains(t, km.Up.Keys(), "k")
	assert.Contains(t, km.Down.Keys(), "j")
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()

	require.Len(t, help, 4)
	assert.Equal(t, "sync", help[0].Help().Desc)
	assert.Equal(t, "quit", help[3].Help().Desc)
}

func TestKeyMap_FullHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.FullHelp()

	require.Len(t, help, 3)
	assert.Len(t, help[1], 3)
}

func TestMatches(t *testing.T) {
	binding := key.NewBinding(key.WithKeys("a", "b"))

	assert.True(t, Matches("a", binding))
	assert.True(t, Matches("b", binding))
	assert.False(t, Matches("c", binding))
}
