package prefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// FileKV persists values in a config file managed by viper. The format
// follows the file extension.
type FileKV struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

func OpenFile(path string) (*FileKV, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	return &FileKV{path: path, v: v}, nil
}

// DefaultPath is npat/prefs.json under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "npat", "prefs.json"), nil
}

func (f *FileKV) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.v.IsSet(key) {
		return "", false
	}
	return f.v.GetString(key), true
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v.Set(key, value)
	return f.write()
}

// Delete rebuilds the file without key; viper has no way to unset a value.
func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.v.IsSet(key) {
		return nil
	}
	nv := viper.New()
	nv.SetConfigFile(f.path)
	for k, val := range f.v.AllSettings() {
		if k != key {
			nv.Set(k, val)
		}
	}
	f.v = nv
	return f.write()
}

func (f *FileKV) write() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return f.v.WriteConfigAs(f.path)
}
