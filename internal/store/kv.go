package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"
)

// ErrInvalidKey is returned for keys that cannot be stored safely.
var ErrInvalidKey = errors.New("invalid key")

// checkKey rejects keys that could escape their namespace or that another
// key would alias. Keys are stored exactly as given.
func checkKey(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.TrimSpace(key) != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(key, "/\\") || strings.ContainsFunc(key, unicode.IsControl) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key, nil
}

// MemoryKV is an in-process KV with optional expiry.
type MemoryKV struct {
	items *cache.Cache
}

// NewMemoryKV creates a memory KV. A ttl of zero keeps entries forever.
func NewMemoryKV(ttl time.Duration) *MemoryKV {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryKV{items: cache.New(ttl, time.Minute)}
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.items.SetDefault(k, stored)
	return nil
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k, err := checkKey(key)
	if err != nil {
		return nil, false, err
	}
	v, ok := m.items.Get(k)
	if !ok {
		return nil, false, nil
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	m.items.Delete(k)
	return nil
}

// FileKV stores each key as a file in a directory.
type FileKV struct {
	dir string
}

// NewFileKV creates the directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) (string, error) {
	k, err := checkKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, k), nil
}

// Put writes through a temporary file so readers never see a partial value.
func (f *FileKV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
