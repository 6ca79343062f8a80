package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
)

func TestFileStore_ReadWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	store := NewFileStore(dir)

	key, err := store.Read(domain.ProviderKindOpenAI)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, store.Write(domain.ProviderKindAnthropic, "  sk-ant-123\n"))
	key, err = store.Read(domain.ProviderKindAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-123", key)

	info, err := os.Stat(filepath.Join(dir, "claude_api_key.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "api_key.txt"), []byte("sk-openai \n"), 0o644))
	key, err = store.Read(domain.ProviderKindOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", key)
}

func TestFileStore_EmptyKeyRemovesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Write(domain.ProviderKindGemini, "g-key"))
	require.NoError(t, store.Write(domain.ProviderKindGemini, "  "))

	_, err := os.Stat(filepath.Join(dir, "gemini_api_key.txt"))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Write(domain.ProviderKindGemini, ""))
}

func TestFileStore_UnknownProvider(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Read(domain.ProviderKindOllama)
	assert.Error(t, err)
	assert.Error(t, store.Write(domain.ProviderKindUnknown, "x"))
	assert.Empty(t, store.Path(domain.ProviderKindOllama))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(not set)", Mask(""))
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "********wxyz", Mask("sk-abcdwxyz"))
}
