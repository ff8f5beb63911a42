package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// KV is a durable string key-value store
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

var (
	_ KV = (*FileKV)(nil)
	_ KV = (*MemoryKV)(nil)
)

// FileKV keeps entries in a single JSON object on disk, readable only by
// the owner.
type FileKV struct {
	path string
	lock sync.Mutex
}

func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (f *FileKV) Set(key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[key] = value
	return f.write(entries)
}

func (f *FileKV) Delete(key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.write(entries)
}

func (f *FileKV) read() (map[string]string, error) {
	entries := map[string]string{}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[FileKV] read %s", f.path)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "[FileKV] decode %s", f.path)
	}
	return entries, nil
}

func (f *FileKV) write(entries map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileKV] create directory")
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileKV] encode")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "[FileKV] write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrapf(err, "[FileKV] replace %s", f.path)
	}
	return nil
}

// MemoryKV is a process-local KV, used by tests and short-lived tools
type MemoryKV struct {
	entries map[string]string
	lock    sync.RWMutex
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.entries, key)
	return nil
}
