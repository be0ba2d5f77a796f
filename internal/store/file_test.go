package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePreferenceStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.json")
	f := NewFilePreferenceStore(path)

	theme, err := f.Theme("u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme, theme)

	saved, err := f.SetTheme("u1", " Pink ")
	require.NoError(t, err)
	assert.Equal(t, ThemePink, saved)

	_, err = f.SetTheme("u1", "green")
	assert.ErrorIs(t, err, ErrInvalidTheme)

	reopened := NewFilePreferenceStore(path)
	theme, err = reopened.Theme("u1")
	require.NoError(t, err)
	assert.Equal(t, ThemePink, theme)

	theme, err = reopened.Theme("u2")
	require.NoError(t, err)
	assert.Equal(t, ThemeCyan, theme)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFilePreferenceStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	theme, err := NewFilePreferenceStore(path).Theme("u1")
	assert.Error(t, err)
	assert.Equal(t, DefaultTheme, theme)
}

func TestNormalizeTheme(t *testing.T) {
	got, err := NormalizeTheme("CYAN")
	require.NoError(t, err)
	assert.Equal(t, ThemeCyan, got)

	_, err = NormalizeTheme("")
	assert.ErrorIs(t, err, ErrInvalidTheme)
}
