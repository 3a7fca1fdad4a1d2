package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/assets"
	"github.com/koios/frame-renderer/internal/compose"
	"github.com/koios/frame-renderer/internal/metrics"
	"github.com/koios/frame-renderer/internal/raster"
	"github.com/koios/frame-renderer/pkg/models"
)

// Request is one render invocation.
type Request struct {
	// Target scopes generation tokens. Requests for different targets never
	// supersede each other; the quality is always part of the scope.
	Target    string
	Config    models.FrameConfig
	AvatarURL string
	Quality   raster.Quality

	// Generation is a token reserved by Issue. Zero lets Render take one.
	Generation uint64
}

func (r Request) scope() string {
	return r.Target + "/" + r.Quality.String()
}

// Result is a completed, current render.
type Result struct {
	Generation uint64
	Output     *raster.Output
	// Config is what was actually drawn: the sanitized form of the request.
	Config models.FrameConfig
	// Invalid is the validation error of the requested config, if any. The
	// render still completes with the fail-closed config.
	Invalid error
}

// Engine runs the load → compose → rasterize pipeline.
type Engine struct {
	sizes      models.RenderSizes
	loader     *assets.Loader
	compositor *compose.Compositor
	exporter   *raster.Exporter
	tracker    *Tracker
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New creates an engine. m may be nil.
func New(sizes models.RenderSizes, loader *assets.Loader, exporter *raster.Exporter, m *metrics.Metrics, logger *zap.Logger) (*Engine, error) {
	if err := sizes.Check(); err != nil {
		return nil, err
	}
	return &Engine{
		sizes:      sizes,
		loader:     loader,
		compositor: compose.NewCompositor(sizes),
		exporter:   exporter,
		tracker:    NewTracker(),
		metrics:    m,
		logger:     logger,
	}, nil
}

// Sizes returns the engine's render sizes.
func (e *Engine) Sizes() models.RenderSizes {
	return e.sizes
}

// Issue reserves req's generation token, superseding every earlier request
// for its target. An issued request must be passed to Render or Release.
func (e *Engine) Issue(req Request) Request {
	if req.Generation == 0 {
		req.Generation = e.tracker.Next(req.scope())
	}
	return req
}

// Release gives back the token of an issued request that will not be rendered.
func (e *Engine) Release(req Request) {
	if req.Generation != 0 {
		e.tracker.Done(req.scope())
	}
}

// Render supersedes earlier renders of the same target, unless req was
// already issued, then renders req. If another request for the target is
// issued before this one finishes, the output is discarded and
// ErrStaleRender returned.
func (e *Engine) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req = e.Issue(req)
	scope, gen := req.scope(), req.Generation
	defer e.tracker.Done(scope)

	result, err := e.render(ctx, req, gen)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case !e.tracker.IsCurrent(scope, gen):
		outcome = metrics.OutcomeStale
		result, err = nil, ErrStaleRender
	}

	if e.metrics != nil {
		e.metrics.ObserveRender(req.Quality.String(), outcome, time.Since(start))
	}

	fields := []zap.Field{
		zap.String("target", scope),
		zap.Uint64("generation", gen),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch outcome {
	case metrics.OutcomeOK:
		e.logger.Debug("Render completed", append(fields, zap.Int("asset_failures", len(result.Output.Failures)))...)
	case metrics.OutcomeStale:
		e.logger.Debug("Render superseded", fields...)
	default:
		e.logger.Warn("Render failed", append(fields, zap.Error(err))...)
	}

	return result, err
}

func (e *Engine) render(ctx context.Context, req Request, gen uint64) (*Result, error) {
	cfg, invalid := models.Sanitize(req.Config, e.sizes)
	if invalid != nil {
		e.logger.Info("Rendering fail-closed config", zap.Error(invalid))
	}

	set := e.loader.Load(ctx, assets.RefsFor(cfg, req.AvatarURL))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scene, err := e.compositor.Compose(cfg, req.AvatarURL, set)
	if err != nil {
		return nil, fmt.Errorf("failed to compose: %w", err)
	}
	if e.metrics != nil {
		for _, f := range scene.Failures {
			e.metrics.AssetFailed(elementKind(f.Element))
		}
	}

	out, err := e.exporter.Export(ctx, scene, raster.For(req.Quality, e.sizes))
	if err != nil {
		return nil, err
	}

	return &Result{Generation: gen, Output: out, Config: cfg, Invalid: invalid}, nil
}

// elementKind collapses indexed sticker elements into one label.
func elementKind(element string) string {
	if len(element) > 8 && element[:8] == "stickers" {
		return "sticker"
	}
	return element
}
