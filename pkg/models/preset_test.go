package models

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeTestPreset(t *testing.T, dir, id, frameType string) {
	t.Helper()
	content := "id: " + id + "\nname: " + id + "\nsummary: test\nauthor: test\ntype: " + frameType + "\ncolor1: \"#ff0000\"\ncolor2: \"#0000ff\"\nwidth: 10\n"
	if err := os.WriteFile(filepath.Join(dir, "preset.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
}

func TestLoadPreset_Valid(t *testing.T) {
	dir := t.TempDir()
	writeTestPreset(t, dir, "my-preset", "gradient")

	p, err := LoadPreset(dir, DefaultSizes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "my-preset" {
		t.Errorf("ID = %q, want my-preset", p.ID)
	}
	if p.Type != FrameGradient {
		t.Errorf("Type = %q, want GRADIENT", p.Type)
	}
	if p.DirectoryPath != dir {
		t.Errorf("DirectoryPath = %q, want %q", p.DirectoryPath, dir)
	}
	cfg := p.Config()
	if cfg.Color2 != "#0000ff" || cfg.Width != 10 {
		t.Errorf("Config() = %+v", cfg)
	}
}

func TestLoadPreset_MissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadPreset(dir, DefaultSizes()); err == nil {
		t.Error("expected error for missing preset.yaml")
	}
}

func TestLoadPreset_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestPreset(t, dir, "broken", "TRIANGLE")

	if _, err := LoadPreset(dir, DefaultSizes()); err == nil {
		t.Error("expected error for unknown frame type")
	}
}

func TestLoadPreset_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "preset.yaml"), []byte(": : bad yaml [[["), 0644)

	if _, err := LoadPreset(dir, DefaultSizes()); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestPresetRegistry_Builtins(t *testing.T) {
	reg := NewPresetRegistry(DefaultSizes(), zap.NewNop())

	for _, p := range reg.GetPresetsList() {
		if err := p.Config().Validate(DefaultSizes()); err != nil {
			t.Errorf("builtin preset %s is invalid: %v", p.ID, err)
		}
	}

	ocean, ok := reg.GetPreset("ocean-gradient")
	if !ok {
		t.Fatal("expected ocean-gradient to exist")
	}
	if ocean.Color1 != "#00c6ff" || ocean.Color2 != "#0072ff" || ocean.Width != 25 {
		t.Errorf("ocean-gradient = %+v", ocean)
	}
}

func TestPresetRegistry_LoadPresets_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()

	validDir := filepath.Join(dir, "valid")
	os.MkdirAll(validDir, 0755)
	writeTestPreset(t, validDir, "valid", "SOLID")

	invalidDir := filepath.Join(dir, "broken")
	os.MkdirAll(invalidDir, 0755)
	writeTestPreset(t, invalidDir, "broken", "NOPE")

	os.WriteFile(filepath.Join(dir, "file.txt"), []byte("nope"), 0644)

	reg := NewPresetRegistry(DefaultSizes(), zap.NewNop())
	builtins := len(reg.GetPresetsList())
	if err := reg.LoadPresets(dir); err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}

	if got := len(reg.GetPresetsList()); got != builtins+1 {
		t.Errorf("expected %d presets, got %d", builtins+1, got)
	}
	if _, ok := reg.GetPreset("valid"); !ok {
		t.Error("expected 'valid' preset to be loaded")
	}
	if _, ok := reg.GetPreset("broken"); ok {
		t.Error("expected 'broken' preset to be skipped")
	}
}

func TestPresetRegistry_LoadPresets_NonexistentDir(t *testing.T) {
	reg := NewPresetRegistry(DefaultSizes(), zap.NewNop())
	if err := reg.LoadPresets("/nonexistent/path"); err == nil {
		t.Error("expected error for nonexistent directory")
	}
}

func TestPresetRegistry_GetAllPresets_ReturnsCopy(t *testing.T) {
	reg := NewPresetRegistry(DefaultSizes(), zap.NewNop())

	all := reg.GetAllPresets()
	all["hacked"] = &Preset{ID: "hacked"}
	if _, ok := reg.GetPreset("hacked"); ok {
		t.Error("GetAllPresets should return a copy")
	}
}

func TestPresetRegistry_ListSorted(t *testing.T) {
	reg := NewPresetRegistry(DefaultSizes(), zap.NewNop())
	list := reg.GetPresetsList()
	for i := 1; i < len(list); i++ {
		if list[i-1].ID > list[i].ID {
			t.Fatalf("list not sorted at %d: %s > %s", i, list[i-1].ID, list[i].ID)
		}
	}
}
