package compositor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const testConfigYAML = `
mode: library
debug: true
window:
  title: demo
  width: 640
logLevel: debug
`

// --- Defaults ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Mode != CompositionModeDefault {
		t.Errorf("Mode = %v, want default", cfg.Mode)
	}
	if cfg.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d, want 64", cfg.QueueCapacity)
	}
	if cfg.Window != (WindowConfig{Title: "compositor", Width: 1280, Height: 720}) {
		t.Errorf("Window = %+v", cfg.Window)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}
}

// --- LoadConfig ---

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != CompositionModeLibrary {
		t.Errorf("Mode = %v, want library", cfg.Mode)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.Window.Title != "demo" || cfg.Window.Width != 640 {
		t.Errorf("Window = %+v, want demo 640", cfg.Window)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("Window.Height = %d, want default 720", cfg.Window.Height)
	}
	if cfg.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d, want default 64", cfg.QueueCapacity)
	}
	lvl, err := cfg.Level()
	if err != nil || lvl != zerolog.DebugLevel {
		t.Errorf("Level = %v, %v; want debug", lvl, err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "mode: [", "parse config"},
		{"unknown mode", "mode: eager", "unknown composition mode"},
		{"negative queue", "queueCapacity: -1", "queueCapacity"},
		{"zero window", "window:\n  width: 0", "window size"},
		{"bad level", "logLevel: loud", "invalid logLevel"},
	}
	for _, tt := range tests {
		_, err := LoadConfig([]byte(tt.data))
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestConfigLevelEmptyIsInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = ""
	if lvl, err := cfg.Level(); err != nil || lvl != zerolog.InfoLevel {
		t.Errorf("Level = %v, %v; want info", lvl, err)
	}
}

// --- LoadConfigFile ---

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigFilePresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compositor.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Mode != CompositionModeLibrary || cfg.Window.Title != "demo" {
		t.Errorf("cfg = %+v", cfg)
	}
}

// --- Mode ---

func TestParseCompositionMode(t *testing.T) {
	tests := []struct {
		in   string
		want CompositionMode
		ok   bool
	}{
		{"", CompositionModeDefault, true},
		{"default", CompositionModeDefault, true},
		{" Library ", CompositionModeLibrary, true},
		{"eager", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseCompositionMode(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseCompositionMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestConfigMarshalRoundtripMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = CompositionModeLibrary
	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "mode: library") {
		t.Errorf("marshaled config missing mode name:\n%s", out)
	}
	back, err := LoadConfig(out)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if back != cfg {
		t.Errorf("roundtrip = %+v, want %+v", back, cfg)
	}
}
