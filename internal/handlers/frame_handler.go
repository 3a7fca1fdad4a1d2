package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/engine"
	"github.com/koios/frame-renderer/internal/metrics"
	"github.com/koios/frame-renderer/internal/raster"
	"github.com/koios/frame-renderer/internal/remix"
	"github.com/koios/frame-renderer/internal/store"
	"github.com/koios/frame-renderer/pkg/models"
)

// maxBodyBytes bounds config request bodies.
const maxBodyBytes = 1 << 20

// Renderer runs a render. Both engine.Engine and engine.WorkerPool satisfy it.
type Renderer interface {
	Render(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// PoolRenderer adapts a worker pool to Renderer.
type PoolRenderer struct {
	Pool *engine.WorkerPool
}

func (p PoolRenderer) Render(ctx context.Context, req engine.Request) (*engine.Result, error) {
	return p.Pool.Submit(ctx, req)
}

// FrameHandler handles HTTP requests for frame editing and export
type FrameHandler struct {
	renderer Renderer
	presets  *models.PresetRegistry
	remixer  *remix.Remixer
	drafts   *remix.Drafts
	metrics  *metrics.Metrics
	sizes    models.RenderSizes
	logger   *zap.Logger
}

// Deps bundles the collaborators of a FrameHandler. Metrics may be nil.
type Deps struct {
	Renderer Renderer
	Presets  *models.PresetRegistry
	Remixer  *remix.Remixer
	Drafts   *remix.Drafts
	Metrics  *metrics.Metrics
	Sizes    models.RenderSizes
}

// NewFrameHandler creates a new frame handler
func NewFrameHandler(deps Deps, logger *zap.Logger) *FrameHandler {
	return &FrameHandler{
		renderer: deps.Renderer,
		presets:  deps.Presets,
		remixer:  deps.Remixer,
		drafts:   deps.Drafts,
		metrics:  deps.Metrics,
		sizes:    deps.Sizes,
		logger:   logger,
	}
}

// RegisterRoutes registers the frame routes
func (h *FrameHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/presets", h.handlePresets).Methods(http.MethodGet)
	r.HandleFunc("/presets/{id}", h.handlePreset).Methods(http.MethodGet)
	r.HandleFunc("/validate", h.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/render", h.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/remix/encode", h.handleRemixEncode).Methods(http.MethodPost)
	r.HandleFunc("/remix/decode", h.handleRemixDecode).Methods(http.MethodGet)
	r.HandleFunc("/remix/{frameId}", h.handleRemix).Methods(http.MethodGet)
	r.HandleFunc("/drafts/{key}", h.handleSaveDraft).Methods(http.MethodPut)
	r.HandleFunc("/drafts/{key}", h.handleRestoreDraft).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Router builds a router with every frame route registered
func (h *FrameHandler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// handleHealth handles GET /health - returns service health status
func (h *FrameHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "frame-renderer",
		"version": "1.0.0",
	})
}

// handlePresets handles GET /presets - returns the preset catalog
func (h *FrameHandler) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := h.presets.GetPresetsList()
	h.writeJSON(w, http.StatusOK, presets)
	h.logger.Debug("Served presets list", zap.Int("count", len(presets)))
}

// handlePreset handles GET /presets/{id} - returns one preset or 404
func (h *FrameHandler) handlePreset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	preset, ok := h.presets.GetPreset(id)
	if !ok {
		http.Error(w, "Preset not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, preset)
}

// handleValidate handles POST /validate - validates a config document
func (h *FrameHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	_, response, _ := ParseConfig(body, h.sizes)
	h.writeJSON(w, http.StatusOK, response)

	h.logger.Debug("Validated config",
		zap.Bool("valid", response.Valid),
		zap.Int("error_count", len(response.Errors)))
}

// handleRender handles POST /render - renders a config to PNG
//
// Query parameters: quality (preview|export), avatar (image URL) and target
// (generation scope; a newer render for the same target supersedes this one).
func (h *FrameHandler) handleRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quality, err := raster.ParseQuality(query.Get("quality"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	cfg, validation, err := ParseConfig(body, h.sizes)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, validation)
		return
	}

	target := query.Get("target")
	if target == "" {
		target = "default"
	}

	result, err := h.renderer.Render(r.Context(), engine.Request{
		Target:    target,
		Config:    cfg,
		AvatarURL: query.Get("avatar"),
		Quality:   quality,
	})
	switch {
	case errors.Is(err, engine.ErrStaleRender):
		http.Error(w, "Render superseded", http.StatusConflict)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Render cancelled", http.StatusServiceUnavailable)
		return
	case err != nil:
		h.logger.Error("Render failed", zap.String("target", target), zap.Error(err))
		http.Error(w, "Render failed", http.StatusInternalServerError)
		return
	}

	failures, _ := json.Marshal(result.Output.Failures)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Asset-Failures", string(failures))
	w.Header().Set("X-Render-Generation", strconv.FormatUint(result.Generation, 10))
	w.Header().Set("X-Config-Valid", strconv.FormatBool(validation.Valid))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Output.PNG); err != nil {
		h.logger.Debug("Failed to write render response", zap.Error(err))
	}
}

// CodeResponse carries an encoded config
type CodeResponse struct {
	Code string `json:"code"`
}

// ParseErrorResponse reports a config that could not be restored. Config is
// the default fallback.
type ParseErrorResponse struct {
	Error  string             `json:"error"`
	Stage  string             `json:"stage,omitempty"`
	Config models.FrameConfig `json:"config"`
}

// handleRemixEncode handles POST /remix/encode - encodes a valid config
func (h *FrameHandler) handleRemixEncode(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	cfg, validation, err := ParseConfig(body, h.sizes)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, validation)
		return
	}
	if !validation.Valid {
		h.writeJSON(w, http.StatusUnprocessableEntity, validation)
		return
	}

	code, err := remix.Encode(cfg)
	if err != nil {
		h.logger.Error("Failed to encode config", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, CodeResponse{Code: code})
}

// handleRemixDecode handles GET /remix/decode?code= - decodes a config
func (h *FrameHandler) handleRemixDecode(w http.ResponseWriter, r *http.Request) {
	cfg, err := remix.Decode(r.URL.Query().Get("code"), h.sizes)
	if err != nil {
		h.writeParseError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// handleRemix handles GET /remix/{frameId} - hydrates a config from a stored frame
func (h *FrameHandler) handleRemix(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["frameId"]
	cfg, err := h.remixer.Remix(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, ParseErrorResponse{Error: "Frame not found", Config: cfg})
			return
		}
		h.writeParseError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// handleSaveDraft handles PUT /drafts/{key} - stores a draft config
func (h *FrameHandler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	cfg, validation, err := ParseConfig(body, h.sizes)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, validation)
		return
	}
	if !validation.Valid {
		h.writeJSON(w, http.StatusUnprocessableEntity, validation)
		return
	}

	if err := h.drafts.Save(r.Context(), key, cfg); err != nil {
		if errors.Is(err, store.ErrInvalidKey) {
			http.Error(w, "Invalid draft key", http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to save draft", zap.String("key", key), zap.Error(err))
		http.Error(w, "Failed to save draft", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestoreDraft handles GET /drafts/{key} - restores a draft config
func (h *FrameHandler) handleRestoreDraft(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	cfg, err := h.drafts.Restore(r.Context(), key)
	if err != nil {
		if errors.Is(err, remix.ErrNoDraft) {
			h.writeJSON(w, http.StatusNotFound, ParseErrorResponse{Error: "Draft not found", Config: cfg})
			return
		}
		if errors.Is(err, store.ErrInvalidKey) {
			http.Error(w, "Invalid draft key", http.StatusBadRequest)
			return
		}
		h.writeParseError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

func (h *FrameHandler) writeParseError(w http.ResponseWriter, err error) {
	var perr *remix.ConfigParseError
	if errors.As(err, &perr) {
		h.writeJSON(w, http.StatusUnprocessableEntity, ParseErrorResponse{
			Error:  perr.Error(),
			Stage:  perr.Stage,
			Config: models.DefaultConfig(),
		})
		return
	}
	h.logger.Error("Config restore failed", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, ParseErrorResponse{
		Error:  "Failed to load config",
		Config: models.DefaultConfig(),
	})
}

func (h *FrameHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Request body too large or unreadable", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return body, true
}

func (h *FrameHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
