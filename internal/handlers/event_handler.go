package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/engine"
	"github.com/koios/frame-renderer/internal/raster"
	"github.com/koios/frame-renderer/pkg/models"
)

// EventHandler turns queued export requests into export results
type EventHandler struct {
	renderer Renderer
	sizes    models.RenderSizes
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(renderer Renderer, sizes models.RenderSizes, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		renderer: renderer,
		sizes:    sizes,
		logger:   logger,
	}
}

// Handle processes an export request event. The returned result is always
// publishable; on error it carries the message and no image.
func (h *EventHandler) Handle(ctx context.Context, request *models.ExportRequest) (*models.ExportResult, error) {
	h.logger.Info("Processing export request",
		zap.String("uuid", request.UUID),
		zap.Bool("has_avatar", request.AvatarURL != ""))

	result := &models.ExportResult{
		UUID:        request.UUID,
		Width:       h.sizes.Canvas,
		Height:      h.sizes.Canvas,
		ProcessedAt: time.Now(),
	}

	if request.UUID == "" {
		h.logger.Error("Missing uuid")
		result.Error = "uuid is required"
		return result, fmt.Errorf("uuid is required")
	}

	cfg, validation, err := ParseConfig(request.Config, h.sizes)
	if err != nil {
		h.logger.Error("Invalid export config", zap.String("uuid", request.UUID), zap.Error(err))
		result.Error = fmt.Sprintf("invalid config: %v", err)
		return result, fmt.Errorf("invalid config: %w", err)
	}
	if !validation.Valid {
		h.logger.Warn("Export config failed validation, rendering fail-closed",
			zap.String("uuid", request.UUID),
			zap.Int("error_count", len(validation.Errors)))
	}

	// each export is its own target so queued exports never supersede each other
	rendered, err := h.renderer.Render(ctx, engine.Request{
		Target:    "export:" + request.UUID,
		Config:    cfg,
		AvatarURL: request.AvatarURL,
		Quality:   raster.QualityExport,
	})
	if err != nil {
		h.logger.Error("Export request failed",
			zap.Error(err),
			zap.String("uuid", request.UUID))
		result.Error = err.Error()
		return result, err
	}

	result.PNG = base64.StdEncoding.EncodeToString(rendered.Output.PNG)
	result.Failures = rendered.Output.Failures
	result.ProcessedAt = time.Now()

	h.logger.Info("Export request completed successfully",
		zap.String("uuid", request.UUID),
		zap.Int("png_bytes", len(rendered.Output.PNG)),
		zap.Int("asset_failures", len(result.Failures)))

	return result, nil
}
