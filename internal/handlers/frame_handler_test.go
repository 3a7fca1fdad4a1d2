package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/koios/frame-renderer/internal/assets"
	"github.com/koios/frame-renderer/internal/engine"
	"github.com/koios/frame-renderer/internal/metrics"
	"github.com/koios/frame-renderer/internal/raster"
	"github.com/koios/frame-renderer/internal/remix"
	"github.com/koios/frame-renderer/internal/store"
	"github.com/koios/frame-renderer/pkg/models"
)

const solidConfig = `{"type":"SOLID","color1":"#ff0000","width":20}`

type testEnv struct {
	handler *FrameHandler
	router  http.Handler
	frames  *store.MemoryFrames
	kv      *store.MemoryKV
	engine  *engine.Engine
}

func setupTestHandler(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	sizes := models.DefaultSizes()

	exporter, err := raster.NewExporter()
	if err != nil {
		t.Fatalf("Failed to create exporter: %v", err)
	}
	m := metrics.New()
	eng, err := engine.New(sizes, assets.NewLoader(assets.DefaultOptions(), logger), exporter, m, logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	frames := store.NewMemoryFrames()
	kv := store.NewMemoryKV(0)

	h := NewFrameHandler(Deps{
		Renderer: eng,
		Presets:  models.NewPresetRegistry(sizes, logger),
		Remixer:  remix.NewRemixer(frames, sizes, logger),
		Drafts:   &remix.Drafts{KV: kv, Sizes: sizes},
		Metrics:  m,
		Sizes:    sizes,
	}, logger)

	return &testEnv{handler: h, router: h.Router(), frames: frames, kv: kv, engine: eng}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := setupTestHandler(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestPresets(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodGet, "/presets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var presets []models.Preset
	if err := json.Unmarshal(rec.Body.Bytes(), &presets); err != nil {
		t.Fatalf("Failed to decode presets: %v", err)
	}
	if len(presets) == 0 {
		t.Fatal("Expected built-in presets")
	}

	rec = env.do(t, http.MethodGet, "/presets/ocean-gradient", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/presets/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestValidate(t *testing.T) {
	env := setupTestHandler(t)

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantCode  string
	}{
		{"valid", solidConfig, true, ""},
		{"gradient without color2", `{"type":"GRADIENT","color1":"#fff","width":10}`, false, models.CodeRequired},
		{"custom image without url", `{"type":"CUSTOM_IMAGE","color1":"#fff","width":10}`, false, models.CodeRequired},
		{"unknown field", `{"type":"SOLID","color1":"#fff","width":10,"glow":true}`, false, CodeInvalidJSON},
		{"not json", `hello`, false, CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/validate", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			var resp ValidateResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Valid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v (%+v)", tt.wantValid, resp.Valid, resp.Errors)
			}
			if tt.wantCode != "" && (len(resp.Errors) == 0 || resp.Errors[0].Code != tt.wantCode) {
				t.Errorf("Expected first error code %s, got %+v", tt.wantCode, resp.Errors)
			}
		})
	}
}

func TestRender(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/render?quality=export", solidConfig)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if rec.Header().Get("X-Render-Generation") != "1" {
		t.Errorf("Expected generation 1, got %s", rec.Header().Get("X-Render-Generation"))
	}

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to decode png: %v", err)
	}
	if img.Bounds().Dx() != 1024 {
		t.Errorf("Expected 1024px export, got %d", img.Bounds().Dx())
	}
}

func TestRender_ReportsAssetFailures(t *testing.T) {
	env := setupTestHandler(t)
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	rec := env.do(t, http.MethodPost, "/render?avatar="+url.QueryEscape(missing.URL+"/a.png"), solidConfig)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var failures []models.AssetFailure
	if err := json.Unmarshal([]byte(rec.Header().Get("X-Asset-Failures")), &failures); err != nil {
		t.Fatalf("Failed to decode failures header: %v", err)
	}
	if len(failures) != 1 || failures[0].Element != "avatar" {
		t.Errorf("Unexpected failures: %+v", failures)
	}
}

func TestRender_RefusesFileAvatar(t *testing.T) {
	env := setupTestHandler(t)

	red := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(red, red.Bounds(), image.NewUniform(color.NRGBA{255, 0, 0, 255}), image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "secret.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, red); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rec := env.do(t, http.MethodPost, "/render?avatar="+url.QueryEscape("file://"+path), `{"type":"NONE","width":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var failures []models.AssetFailure
	if err := json.Unmarshal([]byte(rec.Header().Get("X-Asset-Failures")), &failures); err != nil {
		t.Fatalf("Failed to decode failures header: %v", err)
	}
	if len(failures) != 1 || failures[0].Element != "avatar" {
		t.Fatalf("Unexpected failures: %+v", failures)
	}

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to decode png: %v", err)
	}
	b := img.Bounds()
	c := color.NRGBAModel.Convert(img.At(b.Dx()/2, b.Dy()/2)).(color.NRGBA)
	if c.R != c.G || c.G != c.B {
		t.Errorf("Expected the grey placeholder at the centre, got %v", c)
	}
}

func TestRender_InvalidConfigRendersFailClosed(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/render", `{"type":"GRADIENT","color1":"#fff","width":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Config-Valid") != "false" {
		t.Errorf("Expected X-Config-Valid false")
	}
}

func TestRender_BadRequests(t *testing.T) {
	env := setupTestHandler(t)

	if rec := env.do(t, http.MethodPost, "/render?quality=ultra", solidConfig); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad quality, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/render", `{"type":`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad json, got %d", rec.Code)
	}
}

func TestRemixEncodeDecode(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/remix/encode", solidConfig)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var code CodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &code); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/remix/decode?code="+url.QueryEscape(code.Code), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var cfg models.FrameConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("Failed to decode config: %v", err)
	}
	if cfg.Type != models.FrameSolid || cfg.Width != 20 {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	rec = env.do(t, http.MethodGet, "/remix/decode?code=f1.%21%21", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
	var perr ParseErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &perr)
	if perr.Stage != remix.StageBase64 || perr.Config.Type != models.FrameNone {
		t.Errorf("Unexpected parse error response: %+v", perr)
	}

	rec = env.do(t, http.MethodPost, "/remix/encode", `{"type":"GRADIENT","color1":"#fff","width":10}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for invalid config, got %d", rec.Code)
	}
}

func TestRemixFromStore(t *testing.T) {
	env := setupTestHandler(t)
	ctx := context.Background()
	env.frames.PutFrame(ctx, &models.FrameRecord{ID: "abc", Config: json.RawMessage(solidConfig)})
	env.frames.PutFrame(ctx, &models.FrameRecord{ID: "bad", Config: json.RawMessage(`{"type":"SOLID"`)})

	rec := env.do(t, http.MethodGet, "/remix/abc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/remix/bad", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/remix/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestDrafts(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPut, "/drafts/session-1", solidConfig)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/drafts/session-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/drafts/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/drafts/a%5Cb", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a key with a separator, got %d", rec.Code)
	}

	env.kv.Put(context.Background(), "corrupt", []byte("not-a-draft"))
	rec = env.do(t, http.MethodGet, "/drafts/corrupt", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/render", solidConfig)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "frame_renders_total") {
		t.Error("Expected frame_renders_total in metrics output")
	}
}

func TestEventHandler(t *testing.T) {
	env := setupTestHandler(t)
	h := NewEventHandler(env.engine, models.DefaultSizes(), zap.NewNop())

	result, err := h.Handle(context.Background(), &models.ExportRequest{
		UUID:   "req-1",
		Config: json.RawMessage(solidConfig),
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.UUID != "req-1" || result.Width != 1024 {
		t.Errorf("Unexpected result: %+v", result)
	}
	data, err := base64.StdEncoding.DecodeString(result.PNG)
	if err != nil {
		t.Fatalf("PNG is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("PNG does not decode: %v", err)
	}

	result, err = h.Handle(context.Background(), &models.ExportRequest{UUID: "req-2", Config: json.RawMessage(`[]`)})
	if err == nil || result.Error == "" {
		t.Error("Expected an error result for a malformed config")
	}
}
