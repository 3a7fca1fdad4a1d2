package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Preset represents the preset.yaml structure for a catalog frame style
type Preset struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Summary  string    `yaml:"summary" json:"summary"`
	Author   string    `yaml:"author" json:"author"`
	Type     FrameType `yaml:"type" json:"type"`
	Color1   string    `yaml:"color1" json:"color1"`
	Color2   string    `yaml:"color2" json:"color2,omitempty"`
	Width    float64   `yaml:"width" json:"width"`
	ImageURL string    `yaml:"imageUrl" json:"imageUrl,omitempty"`

	// Runtime fields (not in preset.yaml)
	DirectoryPath string `yaml:"-" json:"directoryPath,omitempty"`
}

// Config returns the frame configuration the preset describes.
func (p *Preset) Config() FrameConfig {
	t, _ := ParseFrameType(string(p.Type))
	return FrameConfig{
		ID:       p.ID,
		Type:     t,
		Name:     p.Name,
		Color1:   p.Color1,
		Color2:   p.Color2,
		Width:    p.Width,
		ImageURL: p.ImageURL,
	}
}

// LoadPreset loads a preset.yaml file from the given directory
func LoadPreset(presetDir string, sizes RenderSizes) (*Preset, error) {
	presetPath := filepath.Join(presetDir, "preset.yaml")

	data, err := os.ReadFile(presetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse preset file: %w", err)
	}
	if preset.ID == "" {
		preset.ID = filepath.Base(presetDir)
	}
	preset.DirectoryPath = presetDir

	if err := preset.Config().Validate(sizes); err != nil {
		return nil, fmt.Errorf("preset %s: %w", preset.ID, err)
	}
	preset.Type = preset.Config().Type

	return &preset, nil
}

// PresetRegistry manages the collection of available frame presets
type PresetRegistry struct {
	mu      sync.RWMutex
	presets map[string]*Preset
	sizes   RenderSizes
	logger  *zap.Logger
}

// NewPresetRegistry creates a registry seeded with the built-in catalog
func NewPresetRegistry(sizes RenderSizes, logger *zap.Logger) *PresetRegistry {
	r := &PresetRegistry{
		presets: make(map[string]*Preset),
		sizes:   sizes,
		logger:  logger,
	}
	r.reset()
	return r
}

func (r *PresetRegistry) reset() {
	r.presets = make(map[string]*Preset, len(builtinPresets))
	for _, p := range builtinPresets {
		p := p
		r.presets[p.ID] = &p
	}
}

// LoadPresets scans the presets directory and adds every valid preset on top
// of the built-in catalog. A directory preset replaces a built-in with the same id.
func (r *PresetRegistry) LoadPresets(presetsDir string) error {
	// Structure: {presetsDir}/{preset_id}/preset.yaml
	entries, err := os.ReadDir(presetsDir)
	if err != nil {
		return fmt.Errorf("failed to read presets directory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		presetDir := filepath.Join(presetsDir, entry.Name())
		preset, err := LoadPreset(presetDir, r.sizes)
		if err != nil {
			// Log error but continue loading other presets
			r.logger.Warn("Skipping preset", zap.String("dir", presetDir), zap.Error(err))
			continue
		}

		r.logger.Debug("Loaded preset", zap.String("preset_id", preset.ID))
		r.presets[preset.ID] = preset
	}

	r.logger.Info("Presets loaded", zap.Int("count", len(r.presets)))
	return nil
}

// GetPreset returns a preset by ID
func (r *PresetRegistry) GetPreset(id string) (*Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.presets[id]
	return p, exists
}

// GetAllPresets returns a copy of the preset map
func (r *PresetRegistry) GetAllPresets() map[string]*Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]*Preset, len(r.presets))
	for k, v := range r.presets {
		result[k] = v
	}
	return result
}

// GetPresetsList returns all presets sorted by ID
func (r *PresetRegistry) GetPresetsList() []*Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	presets := make([]*Preset, 0, len(r.presets))
	for _, p := range r.presets {
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presets
}

var builtinPresets = []Preset{
	{ID: "none", Name: "No frame", Type: FrameNone, Color1: "#ffffff", Width: 0},
	{ID: "classic-white", Name: "Classic White", Type: FrameSolid, Color1: "#ffffff", Width: 15},
	{ID: "ocean-gradient", Name: "Ocean Gradient", Type: FrameGradient, Color1: "#00c6ff", Color2: "#0072ff", Width: 25},
	{ID: "sunset-gradient", Name: "Sunset", Type: FrameGradient, Color1: "#ff512f", Color2: "#f09819", Width: 20},
	{ID: "cyber-neon", Name: "Cyber Neon", Type: FrameNeon, Color1: "#39ff14", Color2: "#00ffff", Width: 12},
	{ID: "dashed-gold", Name: "Dashed Gold", Type: FrameDashed, Color1: "#ffd700", Width: 10},
	{ID: "double-royal", Name: "Royal Double", Type: FrameDouble, Color1: "#4b0082", Color2: "#ffd700", Width: 24},
	{ID: "memphis-pop", Name: "Memphis Pop", Type: FrameMemphis, Color1: "#ff6ec7", Width: 30},
	{ID: "geometric-mint", Name: "Geometric Mint", Type: FrameGeometric, Color1: "#3eb489", Width: 28},
	{ID: "star-burst", Name: "Star Burst", Type: FrameStar, Color1: "#ffcc00", Width: 30},
	{ID: "heart-love", Name: "Lovely Hearts", Type: FrameHeart, Color1: "#ff4d6d", Width: 30},
	{ID: "hexagon-steel", Name: "Steel Hexagon", Type: FrameHexagon, Color1: "#708090", Width: 20},
}
