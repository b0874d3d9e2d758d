package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/podtail/internal/source"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Source kinds.
const (
	KindKubectl = string(source.KindKubectl)
	KindDocker  = string(source.KindDocker)
	KindFile    = string(source.KindFile)
)

const (
	defaultConfigPath = "~/.config/podtail/config.toml"
	defaultKubectl    = "kubectl"
	defaultSaveDir    = "."

	// DefaultTail is how many existing lines each source replays.
	DefaultTail = 1000
)

// Config is the flat configuration for one podtail run. Fields tagged for
// TOML may come from the config file; the rest are set per invocation.
type Config struct {
	Kind          string   `toml:"kind"`
	KubectlPath   string   `toml:"kubectl_path"`
	Context       string   `toml:"context"`
	Namespaces    []string `toml:"namespaces"`
	AllNamespaces bool     `toml:"-"`
	AllContainers bool     `toml:"all_containers"`

	Filter  string `toml:"-"`
	Inverse bool   `toml:"-"`
	Tail    int    `toml:"tail"`
	Follow  bool   `toml:"-"`

	Highlight bool   `toml:"highlight"`
	Pattern   string `toml:"pattern"`

	Save    bool   `toml:"-"`
	SaveDir string `toml:"save_dir"`

	Color string `toml:"color"`
	Seed  int64  `toml:"seed"`
	TUI   bool   `toml:"tui"`

	Debug    bool   `toml:"debug"`
	DebugLog string `toml:"debug_log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Kind:        KindKubectl,
		KubectlPath: defaultKubectl,
		Tail:        DefaultTail,
		SaveDir:     defaultSaveDir,
		Color:       ColorAuto,
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config file at path over the built-in defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg.Normalize(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg.Normalize(), nil
}

// Normalize trims fields, fills blanks with defaults and expands paths.
func (c Config) Normalize() Config {
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	if c.Kind == "" {
		c.Kind = KindKubectl
	}
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	if c.Color == "" {
		c.Color = ColorAuto
	}

	c.KubectlPath = strings.TrimSpace(c.KubectlPath)
	if c.KubectlPath == "" {
		c.KubectlPath = defaultKubectl
	}
	if strings.HasPrefix(c.KubectlPath, "~") {
		c.KubectlPath = mustExpand(c.KubectlPath)
	}

	c.SaveDir = strings.TrimSpace(c.SaveDir)
	if c.SaveDir == "" {
		c.SaveDir = defaultSaveDir
	}
	c.SaveDir = mustExpand(c.SaveDir)

	if c.DebugLog = strings.TrimSpace(c.DebugLog); c.DebugLog != "" {
		c.DebugLog = mustExpand(c.DebugLog)
	}

	c.Context = strings.TrimSpace(c.Context)
	c.Pattern = strings.TrimSpace(c.Pattern)
	c.Namespaces = SplitList(c.Namespaces...)
	return c
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if !knownKind(c.Kind) {
		return fmt.Errorf("unknown source kind %q (want kubectl, docker or file)", c.Kind)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", c.Color)
	}
	if c.Tail < -1 {
		return fmt.Errorf("tail must be -1 (all lines) or more, got %d", c.Tail)
	}
	if c.Save && strings.TrimSpace(c.SaveDir) == "" {
		return errors.New("save requested without a save directory")
	}
	if c.AllNamespaces && len(c.Namespaces) > 0 {
		return errors.New("namespaces and all namespaces are mutually exclusive")
	}
	return nil
}

func knownKind(kind string) bool {
	for _, k := range source.Kinds() {
		if string(k) == kind {
			return true
		}
	}
	return false
}

// SplitList splits comma separated values, trimming blanks and dropping
// duplicates while keeping order.
func SplitList(values ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
