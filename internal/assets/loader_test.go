package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/koios/frame-renderer/pkg/models"
)

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLoader(opts Options) *Loader {
	l := NewLoader(opts, zap.NewNop())
	l.retryMin = time.Millisecond
	l.retryMax = 5 * time.Millisecond
	return l
}

func TestLoader_FetchHTTP(t *testing.T) {
	data := pngBytes(t, color.NRGBA{255, 0, 0, 255})
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	l := newTestLoader(DefaultOptions())
	img, err := l.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())

	// served from cache the second time
	_, err = l.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoader_RetriesTransientFailures(t *testing.T) {
	data := pngBytes(t, color.White)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Retries = 3
	l := newTestLoader(opts)

	_, err := l.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestLoader_DoesNotRetryNotFound(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Retries = 3
	l := newTestLoader(opts)

	_, err := l.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoader_SharesConcurrentFetches(t *testing.T) {
	data := pngBytes(t, color.Black)
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write(data)
	}))
	defer srv.Close()

	l := newTestLoader(DefaultOptions())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Fetch(context.Background(), srv.URL+"/same.png")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoader_DataURL(t *testing.T) {
	data := pngBytes(t, color.NRGBA{0, 255, 0, 255})
	l := newTestLoader(DefaultOptions())

	img, err := l.Fetch(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	r, g, _, _ := img.At(1, 1).RGBA()
	assert.Zero(t, r)
	assert.Equal(t, uint32(0xffff), g)
}

func TestLoader_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, color.White), 0644))

	opts := DefaultOptions()
	opts.AllowFile = true
	l := newTestLoader(opts)
	_, err := l.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
}

func TestLoader_FileURLRefusedByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, color.White), 0644))

	l := newTestLoader(DefaultOptions())
	_, err := l.Fetch(context.Background(), "file://"+path)
	assert.ErrorIs(t, err, ErrNotAllowed)

	set := l.Load(context.Background(), []Ref{{Element: ElementAvatar, URL: "file://" + path}})
	require.Len(t, set.Failures(), 1)
	assert.Equal(t, ElementAvatar, set.Failures()[0].Element)
}

func TestLoader_AllowedHosts(t *testing.T) {
	data := pngBytes(t, color.White)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Hosts = []string{"cdn.example.com"}
	l := newTestLoader(opts)

	// httptest listens on 127.0.0.1, which is not on the list
	_, err := l.Fetch(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrNotAllowed)

	assert.True(t, l.hostAllowed("cdn.example.com"))
	assert.True(t, l.hostAllowed("img.CDN.example.com"))
	assert.False(t, l.hostAllowed("evilcdn.example.com"))

	opts.Hosts = []string{"127.0.0.1"}
	l = newTestLoader(opts)
	_, err = l.Fetch(context.Background(), srv.URL+"/a.png")
	assert.NoError(t, err)
}

func TestLoader_SharedFetchSurvivesCancelledCaller(t *testing.T) {
	data := pngBytes(t, color.Black)
	var hits int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			close(started)
		}
		<-release
		w.Write(data)
	}))
	defer srv.Close()

	l := newTestLoader(DefaultOptions())
	target := srv.URL + "/slow.png"

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := l.Fetch(ctxA, target)
		errA <- err
	}()
	<-started

	errB := make(chan error, 1)
	go func() {
		_, err := l.Fetch(context.Background(), target)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	assert.NoError(t, <-errB)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoader_MaxBytes(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBytes = 10
	l := newTestLoader(opts)

	_, err := l.Fetch(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes(t, color.White)))
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestLoader_UndecodableImage(t *testing.T) {
	l := newTestLoader(DefaultOptions())
	_, err := l.Fetch(context.Background(), "data:text/plain,hello")
	assert.Error(t, err)
}

func TestLoader_LoadReportsFailuresAndContinues(t *testing.T) {
	good := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, color.White))
	l := newTestLoader(DefaultOptions())

	set := l.Load(context.Background(), []Ref{
		{Element: ElementAvatar, URL: good},
		{Element: ElementFrame, URL: "ftp://nowhere/frame.png"},
		{Element: StickerElement(0), URL: "data:image/png;base64,!!!"},
	})

	_, ok := set.Image(good)
	assert.True(t, ok)

	failures := set.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, ElementFrame, failures[0].Element)
	assert.Equal(t, "stickers[0]", failures[1].Element)

	var loadErr *AssetLoadError
	assert.True(t, errors.As(error(failures[0]), &loadErr))
}

func TestRefsFor(t *testing.T) {
	cfg := models.FrameConfig{
		Type:     models.FrameCustomImage,
		Color1:   "#fff",
		Width:    10,
		ImageURL: "https://cdn.example.com/frame.png",
		Stickers: []models.StickerConfig{
			{Icon: models.ParseIcon("star"), X: 0.5, Y: 0.5, Scale: 1},
			{Icon: models.ParseIcon("https://cdn.example.com/cat.png"), X: 0.5, Y: 0.5, Scale: 1},
		},
	}

	refs := RefsFor(cfg, "https://cdn.example.com/me.jpg")
	assert.Equal(t, []Ref{
		{Element: ElementAvatar, URL: "https://cdn.example.com/me.jpg"},
		{Element: ElementFrame, URL: "https://cdn.example.com/frame.png"},
		{Element: "stickers[1]", URL: "https://cdn.example.com/cat.png"},
	}, refs)

	cfg.Width = 0
	assert.Len(t, RefsFor(cfg, ""), 1)
}
