package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()

	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("test_key", "test_value"))

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("str", "hello"))
	require.NoError(t, store.Set("num", 42))
	require.NoError(t, store.Set("flag", true))
	require.NoError(t, store.Set("list", []string{"a", "b"}))

	assert.Equal(t, "hello", store.GetString("str"))
	assert.Equal(t, 42, store.GetInt("num"))
	assert.True(t, store.GetBool("flag"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
}

func TestConfigStore_TypedGettersIgnoreWrongType(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("num", 42))

	assert.Equal(t, "", store.GetString("num"))
	assert.False(t, store.GetBool("num"))
	assert.Nil(t, store.GetStringSlice("num"))
}

func TestConfigStore_Delete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("test_key", "test_value"))
	require.NoError(t, store.Delete("test_key"))

	_, ok := store.Get("test_key")
	assert.False(t, ok)
}

func TestConfigStore_All(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("a", "one"))
	require.NoError(t, store.Set("b", "two"))

	all := store.All()
	assert.Equal(t, map[string]any{"a": "one", "b": "two"}, all)

	// Mutating the copy must not affect the store.
	all["a"] = "changed"
	assert.Equal(t, "one", store.GetString("a"))
}

func TestConfigStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyPage, "Talk:Go"))
	require.NoError(t, store.Set(KeyForegroundInterval, 30))
	require.NoError(t, store.Set(KeyIncludeCollapsed, true))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "Talk:Go", reopened.GetString(KeyPage))
	assert.Equal(t, 30, reopened.GetInt(KeyForegroundInterval))
	assert.True(t, reopened.GetBool(KeyIncludeCollapsed))
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()

	toml := []byte("[api]\nendpoint = \"https://en.wikipedia.org/w/api.php\"\n\n[viewer]\nmuted_authors = [\"Spammy\"]\n")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), toml, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "https://en.wikipedia.org/w/api.php", store.GetString(KeyAPIEndpoint))
	assert.Equal(t, []string{"Spammy"}, store.GetStringSlice(KeyMutedAuthors))
}
