package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

var fileNames = map[domain.ProviderKind]string{
	domain.ProviderKindOpenAI:    "api_key.txt",
	domain.ProviderKindAnthropic: "claude_api_key.txt",
	domain.ProviderKindGemini:    "gemini_api_key.txt",
}

// FileStore keeps one API key per provider as a flat text file.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing provider, or "" when the provider keeps no key.
func (f *FileStore) Path(provider domain.ProviderKind) string {
	name, ok := fileNames[provider]
	if !ok {
		return ""
	}
	return filepath.Join(f.dir, name)
}

// Read returns the trimmed key. A missing file is not an error.
func (f *FileStore) Read(provider domain.ProviderKind) (string, error) {
	path := f.Path(provider)
	if path == "" {
		return "", fmt.Errorf("provider %s has no credential file", provider)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write stores the trimmed key with owner-only permissions. An empty key removes the file.
func (f *FileStore) Write(provider domain.ProviderKind, key string) error {
	path := f.Path(provider)
	if path == "" {
		return fmt.Errorf("provider %s has no credential file", provider)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key = strings.TrimSpace(key)
	if key == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(f.dir, domain.DirectoryPermissions); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(key), domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, domain.SecureFilePermissions)
}

// Providers lists the providers that keep a key file.
func Providers() []domain.ProviderKind {
	return []domain.ProviderKind{domain.ProviderKindOpenAI, domain.ProviderKindAnthropic, domain.ProviderKindGemini}
}

// Mask hides all but the last four characters.
func Mask(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

var _ ports.CredentialStore = (*FileStore)(nil)
