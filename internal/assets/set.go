package assets

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/koios/frame-renderer/pkg/models"
)

// Element names used in failure reports.
const (
	ElementAvatar = "avatar"
	ElementFrame  = "frame"
)

// StickerElement names the i-th sticker.
func StickerElement(i int) string {
	return fmt.Sprintf("stickers[%d]", i)
}

// Ref is one image a render needs.
type Ref struct {
	Element string
	URL     string
}

// RefsFor lists every external image cfg needs, plus the avatar when set.
func RefsFor(cfg models.FrameConfig, avatarURL string) []Ref {
	var refs []Ref
	if avatarURL != "" {
		refs = append(refs, Ref{Element: ElementAvatar, URL: avatarURL})
	}
	if cfg.Type == models.FrameCustomImage && cfg.HasChrome() && cfg.ImageURL != "" {
		refs = append(refs, Ref{Element: ElementFrame, URL: cfg.ImageURL})
	}
	for i, s := range cfg.Stickers {
		if s.Icon.IsImage() {
			refs = append(refs, Ref{Element: StickerElement(i), URL: s.Icon.Ref})
		}
	}
	return refs
}

// Set is the complete result of loading a render's assets: decoded images by
// URL and failures by element. It is safe for concurrent use.
type Set struct {
	mu       sync.RWMutex
	images   map[string]image.Image
	failures map[string]*AssetLoadError
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{
		images:   make(map[string]image.Image),
		failures: make(map[string]*AssetLoadError),
	}
}

// Put records a decoded image.
func (s *Set) Put(url string, img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[url] = img
}

// Fail records a failed element.
func (s *Set) Fail(err *AssetLoadError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[err.Element] = err
}

// Image returns the decoded image for url.
func (s *Set) Image(url string) (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[url]
	return img, ok
}

// Failure returns the load error for an element, if any.
func (s *Set) Failure(element string) (*AssetLoadError, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	err, ok := s.failures[element]
	return err, ok
}

// Failures returns every load error sorted by element.
func (s *Set) Failures() []*AssetLoadError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AssetLoadError, 0, len(s.failures))
	for _, f := range s.failures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Element < out[j].Element })
	return out
}
