package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/koios/frame-renderer/pkg/models"
)

// ErrNotFound is returned when a frame id is unknown.
var ErrNotFound = errors.New("not found")

// MemoryFrames is an in-process frame store.
type MemoryFrames struct {
	mu     sync.RWMutex
	frames map[string]json.RawMessage
}

// NewMemoryFrames creates an empty store.
func NewMemoryFrames() *MemoryFrames {
	return &MemoryFrames{frames: make(map[string]json.RawMessage)}
}

func (m *MemoryFrames) GetFrame(ctx context.Context, id string) (*models.FrameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.frames[id]
	if !ok {
		return nil, fmt.Errorf("frame %s: %w", id, ErrNotFound)
	}
	out := make(json.RawMessage, len(cfg))
	copy(out, cfg)
	return &models.FrameRecord{ID: id, Config: out}, nil
}

func (m *MemoryFrames) PutFrame(ctx context.Context, record *models.FrameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := make(json.RawMessage, len(record.Config))
	copy(cfg, record.Config)
	m.frames[record.ID] = cfg
	return nil
}
