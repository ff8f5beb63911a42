package storage_test

import (
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-admin/client/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://127.0.0.1:8080"

func newTokenStore(t *testing.T, kv storage.KV) *storage.TokenStore {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	s, err := storage.NewTokenStore(kv, jar, baseURL)
	require.NoError(t, err)
	return s
}

func TestNewTokenStore_Validation(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	_, err = storage.NewTokenStore(nil, jar, baseURL)
	require.Error(t, err)
	_, err = storage.NewTokenStore(storage.NewMemoryKV(), nil, baseURL)
	require.Error(t, err)
	_, err = storage.NewTokenStore(storage.NewMemoryKV(), jar, "not a url")
	require.Error(t, err)
}

func TestTokenStore_SaveLoadClear(t *testing.T) {
	s := newTokenStore(t, storage.NewMemoryKV())

	token, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, token)
	require.Empty(t, s.CookieToken())

	require.NoError(t, s.Save("first-token", 7*24*time.Hour))
	token, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "first-token", token)
	require.Equal(t, "first-token", s.CookieToken())

	require.NoError(t, s.Save("second-token", 16*time.Hour))
	token, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "second-token", token)
	require.Equal(t, "second-token", s.CookieToken())

	require.NoError(t, s.Clear())
	token, err = s.Load()
	require.NoError(t, err)
	require.Empty(t, token)
	require.Empty(t, s.CookieToken())

	// clearing twice is harmless
	require.NoError(t, s.Clear())
}

func TestTokenStore_SaveRejectsInvalidInput(t *testing.T) {
	s := newTokenStore(t, storage.NewMemoryKV())
	require.Error(t, s.Save("", time.Hour))
	require.Error(t, s.Save("token", 0))
}

// failingDeleteKV refuses every Delete
type failingDeleteKV struct {
	*storage.MemoryKV
}

func (failingDeleteKV) Delete(string) error {
	return errors.New("disk full")
}

func TestTokenStore_ClearKeepsCookieWhenDeleteFails(t *testing.T) {
	s := newTokenStore(t, failingDeleteKV{storage.NewMemoryKV()})
	require.NoError(t, s.Save("kept-token", time.Hour))

	require.Error(t, s.Clear())

	token, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "kept-token", token)
	require.Equal(t, "kept-token", s.CookieToken(), "both copies still agree")
}

func TestTokenStore_Restore(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(storage.TokenKey, "resumed-token"))
	s := newTokenStore(t, kv)
	require.Empty(t, s.CookieToken())

	restored, err := s.Restore("other-token", time.Hour)
	require.NoError(t, err)
	require.False(t, restored)
	require.Empty(t, s.CookieToken())

	restored, err = s.Restore("resumed-token", time.Hour)
	require.NoError(t, err)
	require.True(t, restored)
	require.Equal(t, "resumed-token", s.CookieToken())

	_, err = s.Restore("", time.Hour)
	require.Error(t, err)
	_, err = s.Restore("resumed-token", 0)
	require.Error(t, err)

	require.NoError(t, s.Clear())
	restored, err = s.Restore("resumed-token", time.Hour)
	require.NoError(t, err)
	require.False(t, restored, "nothing to restore after a clear")
	require.Empty(t, s.CookieToken())
}

func TestFileKV_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	first := newTokenStore(t, storage.NewFileKV(path))
	require.NoError(t, first.Save("persisted-token", time.Hour))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a fresh process has an empty cookie jar but still finds the token
	second := newTokenStore(t, storage.NewFileKV(path))
	token, err := second.Load()
	require.NoError(t, err)
	require.Equal(t, "persisted-token", token)
	require.Empty(t, second.CookieToken())

	require.NoError(t, second.Clear())
	token, err = first.Load()
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	kv := storage.NewFileKV(path)
	_, _, err := kv.Get(storage.TokenKey)
	require.Error(t, err)
}

func TestMemoryKV(t *testing.T) {
	kv := storage.NewMemoryKV()
	_, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set("k", "v"))
	v, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, kv.Delete("k"))
	_, ok, err = kv.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}
