package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options configures a Loader.
type Options struct {
	Timeout     time.Duration // per fetch attempt
	MaxBytes    int64
	RateLimit   float64 // remote fetches per second, 0 disables throttling
	Retries     int
	CacheTTL    time.Duration
	Concurrency int

	// AllowFile enables file: URLs. Only local tooling should set it.
	AllowFile bool
	// Hosts restricts http(s) fetches to these hosts and their subdomains.
	// Empty allows any host.
	Hosts []string
}

// DefaultOptions returns conservative defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:     10 * time.Second,
		MaxBytes:    10 << 20,
		RateLimit:   20,
		Retries:     2,
		CacheTTL:    30 * time.Minute,
		Concurrency: 8,
	}
}

// Loader fetches and decodes external images for a render. Identical URLs
// requested concurrently share one fetch, and decoded images are cached.
type Loader struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	group   singleflight.Group
	cache   *cache.Cache
	logger  *zap.Logger

	retryMin time.Duration
	retryMax time.Duration
}

// NewLoader creates a loader.
func NewLoader(opts Options, logger *zap.Logger) *Loader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultOptions().MaxBytes
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &Loader{
		client:   &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		cache:    cache.New(ttl, 2*ttl),
		logger:   logger,
		retryMin: 100 * time.Millisecond,
		retryMax: 2 * time.Second,
	}
}

// Load fetches every ref concurrently and returns once all of them finished.
// Failures are recorded in the set and never abort the load.
func (l *Loader) Load(ctx context.Context, refs []Ref) *Set {
	set := NewSet()

	var eg errgroup.Group
	eg.SetLimit(l.opts.Concurrency)
	for _, ref := range refs {
		ref := ref
		eg.Go(func() error {
			img, err := l.Fetch(ctx, ref.URL)
			if err != nil {
				l.logger.Warn("Asset load failed",
					zap.String("element", ref.Element),
					zap.String("url", redact(ref.URL)),
					zap.Error(err))
				set.Fail(&AssetLoadError{Element: ref.Element, URL: ref.URL, Err: err})
				return nil
			}
			set.Put(ref.URL, img)
			return nil
		})
	}
	_ = eg.Wait()

	return set
}

// Fetch returns the decoded image at rawURL, using the cache when possible.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	if img, ok := l.cache.Get(rawURL); ok {
		return img.(image.Image), nil
	}

	// The shared fetch outlives any single caller; each caller only stops
	// waiting for it when its own context ends.
	ch := l.group.DoChan(rawURL, func() (interface{}, error) {
		if img, ok := l.cache.Get(rawURL); ok {
			return img, nil
		}
		fctx, cancel := l.detach(ctx)
		defer cancel()
		img, err := l.fetchWithRetry(fctx, rawURL)
		if err != nil {
			return nil, err
		}
		l.cache.SetDefault(rawURL, img)
		return img, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		l.logger.Debug("Asset fetch shared", zap.String("url", redact(rawURL)))
	}

	img, ok := res.Val.(image.Image)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", res.Val)
	}
	return img, nil
}

// detach drops ctx's cancellation and bounds the fetch by the worst case of
// every attempt timing out plus the longest backoff between them.
func (l *Loader) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if l.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	attempts := time.Duration(l.opts.Retries + 1)
	return context.WithTimeout(ctx, attempts*(l.opts.Timeout+l.retryMax))
}

func (l *Loader) fetchWithRetry(ctx context.Context, rawURL string) (image.Image, error) {
	boff := &backoff.Backoff{
		Min:    l.retryMin,
		Max:    l.retryMax,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= l.opts.Retries; attempt++ {
		data, err := l.read(ctx, rawURL)
		if err == nil {
			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("failed to decode image: %w", err)
			}
			return img, nil
		}
		lastErr = err
		if isPermanent(err) || attempt == l.opts.Retries {
			break
		}

		wait := boff.Duration()
		l.logger.Debug("Retrying asset fetch",
			zap.String("url", redact(rawURL)),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (l *Loader) read(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, permanent(fmt.Errorf("invalid asset url: %w", err))
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if !l.hostAllowed(u.Hostname()) {
			return nil, permanent(fmt.Errorf("%w: host %q", ErrNotAllowed, u.Hostname()))
		}
		return l.readHTTP(ctx, u.String())
	case "data":
		return decodeDataURL(u.Opaque, l.opts.MaxBytes)
	case "file":
		if !l.opts.AllowFile {
			return nil, permanent(fmt.Errorf("%w: scheme %q", ErrNotAllowed, u.Scheme))
		}
		return l.readFile(u.Path)
	default:
		return nil, permanent(fmt.Errorf("unsupported asset scheme %q", u.Scheme))
	}
}

func (l *Loader) hostAllowed(host string) bool {
	if len(l.opts.Hosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range l.opts.Hosts {
		h = strings.ToLower(strings.TrimPrefix(h, "."))
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (l *Loader) readHTTP(ctx context.Context, target string) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, permanent(err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, permanent(fmt.Errorf("fetch failed: status %d", resp.StatusCode))
	}

	return readLimited(resp.Body, l.opts.MaxBytes)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to open asset file: %w", err))
	}
	defer f.Close()
	return readLimited(f, l.opts.MaxBytes)
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	if int64(len(data)) > max {
		return nil, permanent(ErrTooLarge)
	}
	return data, nil
}

// decodeDataURL decodes the opaque part of a data: URL,
// "[<mediatype>][;base64],<data>".
func decodeDataURL(opaque string, max int64) ([]byte, error) {
	meta, payload, ok := strings.Cut(opaque, ",")
	if !ok {
		return nil, permanent(fmt.Errorf("malformed data url"))
	}

	var data []byte
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, permanent(fmt.Errorf("malformed data url payload: %w", err))
		}
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, permanent(fmt.Errorf("malformed data url payload: %w", err))
		}
		data = []byte(s)
	}

	if int64(len(data)) > max {
		return nil, permanent(ErrTooLarge)
	}
	return data, nil
}

// redact keeps data: URLs out of logs.
func redact(rawURL string) string {
	if len(rawURL) > 5 && strings.EqualFold(rawURL[:5], "data:") {
		return "data:..."
	}
	return rawURL
}
