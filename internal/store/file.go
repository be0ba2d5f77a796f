package store

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	ThemeCyan = "cyan"
	ThemePink = "pink"

	DefaultTheme = ThemeCyan
)

var ErrInvalidTheme = errors.New("theme must be cyan or pink")

// NormalizeTheme lower-cases and validates a theme name.
func NormalizeTheme(theme string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(theme))
	if t != ThemeCyan && t != ThemePink {
		return "", ErrInvalidTheme
	}
	return t, nil
}

type preferences struct {
	Themes map[string]string `json:"themes"`
}

// FilePreferenceStore persists per-user display preferences in one JSON file.
type FilePreferenceStore struct {
	mu   sync.Mutex
	path string
}

func NewFilePreferenceStore(path string) *FilePreferenceStore {
	return &FilePreferenceStore{path: path}
}

// Theme returns the stored theme for key, or DefaultTheme.
func (f *FilePreferenceStore) Theme(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.read()
	if err != nil {
		return DefaultTheme, err
	}
	if t, ok := p.Themes[key]; ok {
		if t, err := NormalizeTheme(t); err == nil {
			return t, nil
		}
	}
	return DefaultTheme, nil
}

func (f *FilePreferenceStore) SetTheme(key, theme string) (string, error) {
	t, err := NormalizeTheme(theme)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("preference key is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.read()
	if err != nil {
		return "", err
	}
	p.Themes[key] = t
	return t, f.write(p)
}

func (f *FilePreferenceStore) read() (*preferences, error) {
	p := &preferences{Themes: map[string]string{}}
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, errors.Wrap(err, "read preferences")
	}
	if err := json.Unmarshal(b, p); err != nil {
		return &preferences{Themes: map[string]string{}}, errors.Wrap(err, "decode preferences")
	}
	if p.Themes == nil {
		p.Themes = map[string]string{}
	}
	return p, nil
}

func (f *FilePreferenceStore) write(p *preferences) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create preferences dir")
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return errors.Wrap(err, "write preferences")
	}
	return errors.Wrap(os.Rename(tmp, f.path), "replace preferences")
}
