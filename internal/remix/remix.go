package remix

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/pkg/models"
)

// ErrNoDraft is returned by Restore when nothing is stored under the key.
var ErrNoDraft = errors.New("no draft stored")

// FrameStore looks up saved frames by id.
type FrameStore interface {
	GetFrame(ctx context.Context, id string) (*models.FrameRecord, error)
}

// KV is a small transient byte store.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Remixer hydrates the editor from an existing frame.
type Remixer struct {
	Frames FrameStore
	Sizes  models.RenderSizes
	logger *zap.Logger
}

// NewRemixer creates a remixer reading from frames.
func NewRemixer(frames FrameStore, sizes models.RenderSizes, logger *zap.Logger) *Remixer {
	return &Remixer{Frames: frames, Sizes: sizes, logger: logger}
}

// Remix fetches frame id and returns its config as the starting point of a
// new frame: the id is cleared and stickers without ids get fresh ones. On
// any failure the default config is returned alongside the error.
func (r *Remixer) Remix(ctx context.Context, id string) (models.FrameConfig, error) {
	record, err := r.Frames.GetFrame(ctx, id)
	if err != nil {
		r.logger.Warn("Remix source unavailable", zap.String("frame_id", id), zap.Error(err))
		return models.DefaultConfig(), fmt.Errorf("failed to fetch frame %s: %w", id, err)
	}

	cfg, err := DecodeJSON(record.Config, r.Sizes)
	if err != nil {
		r.logger.Warn("Remix source is not a valid config", zap.String("frame_id", id), zap.Error(err))
		return models.DefaultConfig(), err
	}

	cfg.ID = ""
	for i := range cfg.Stickers {
		if cfg.Stickers[i].ID == "" {
			cfg.Stickers[i].ID = uuid.NewString()
		}
	}

	r.logger.Debug("Remixed frame",
		zap.String("frame_id", id),
		zap.String("type", string(cfg.Type)),
		zap.Int("stickers", len(cfg.Stickers)),
	)
	return cfg, nil
}

// Drafts persists in-progress configs through a KV.
type Drafts struct {
	KV    KV
	Sizes models.RenderSizes
}

// NewKey returns a fresh draft key.
func NewKey() string {
	return uuid.NewString()
}

// Save stores cfg under key in encoded form.
func (d *Drafts) Save(ctx context.Context, key string, cfg models.FrameConfig) error {
	code, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := d.KV.Put(ctx, key, []byte(code)); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Restore loads the draft under key. A missing or corrupt draft yields the
// default config and an error; a corrupt one is a *ConfigParseError.
func (d *Drafts) Restore(ctx context.Context, key string) (models.FrameConfig, error) {
	data, ok, err := d.KV.Get(ctx, key)
	if err != nil {
		return models.DefaultConfig(), fmt.Errorf("failed to load draft: %w", err)
	}
	if !ok {
		return models.DefaultConfig(), ErrNoDraft
	}
	cfg, err := Decode(string(data), d.Sizes)
	if err != nil {
		return models.DefaultConfig(), err
	}
	return cfg, nil
}
