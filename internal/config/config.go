package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"gopkg.in/yaml.v3"

	"fractalcraft.ai/internal/palette"
	"fractalcraft.ai/internal/protocol"
)

// Version is the pattern file format this build writes and the newest it reads.
const Version = "1.0.0"

type Config struct {
	Version  string       `yaml:"version" json:"version"`
	Center   protocol.Pos `yaml:"center" json:"center"`
	Patterns []Pattern    `yaml:"patterns" json:"patterns"`
	Pacing   Pacing       `yaml:"pacing" json:"pacing"`
}

// Pattern describes one escape-time field to draw. Block is palette.Scheme or a block id.
type Pattern struct {
	Width   int     `yaml:"width" json:"width"`
	Height  int     `yaml:"height" json:"height"`
	MaxIter int     `yaml:"max_iter" json:"max_iter"`
	Scale   float64 `yaml:"scale" json:"scale"`
	Block   string  `yaml:"block" json:"block"`
	Label   string  `yaml:"label" json:"label"`
}

func (p Pattern) Cells() int { return p.Width * p.Height }

// Kind resolves Block. An empty Block is the palette, as after Normalize.
func (p Pattern) Kind() (palette.Kind, error) {
	if strings.TrimSpace(p.Block) == "" {
		return palette.Kind{Palette: true}, nil
	}
	return palette.ParseKind(strings.ToLower(strings.TrimSpace(p.Block)))
}

// Pacing throttles the command stream. Zero intervals disable a pause.
type Pacing struct {
	RemoveEvery         int `yaml:"remove_every" json:"remove_every"`
	RemovePauseMs       int `yaml:"remove_pause_ms" json:"remove_pause_ms"`
	DrawEvery           int `yaml:"draw_every" json:"draw_every"`
	DrawPauseMs         int `yaml:"draw_pause_ms" json:"draw_pause_ms"`
	SettleAfterRemoveMs int `yaml:"settle_after_remove_ms" json:"settle_after_remove_ms"`
}

func (p Pacing) RemovePause() time.Duration { return time.Duration(p.RemovePauseMs) * time.Millisecond }
func (p Pacing) DrawPause() time.Duration   { return time.Duration(p.DrawPauseMs) * time.Millisecond }
func (p Pacing) SettleAfterRemove() time.Duration {
	return time.Duration(p.SettleAfterRemoveMs) * time.Millisecond
}

// Defaults is the built-in session: four wool patterns centred at (0, 70, 0).
func Defaults() Config {
	return Config{
		Version: Version,
		Center:  protocol.Pos{X: 0, Y: 70, Z: 0},
		Patterns: []Pattern{
			{Width: 200, Height: 200, MaxIter: 30, Scale: 0.015, Block: palette.Scheme, Label: "GIANT Mandelbrot - Full View"},
			{Width: 300, Height: 300, MaxIter: 40, Scale: 0.010, Block: palette.Scheme, Label: "MASSIVE View - Huge Area"},
			{Width: 400, Height: 400, MaxIter: 50, Scale: 0.007, Block: palette.Scheme, Label: "COLOSSAL - Epic Scale"},
			{Width: 150, Height: 150, MaxIter: 100, Scale: 0.002, Block: palette.Scheme, Label: "Detailed Zoom - Seahorse Valley"},
		},
		Pacing: DefaultPacing(),
	}
}

func DefaultPacing() Pacing {
	return Pacing{
		RemoveEvery:         200,
		RemovePauseMs:       100,
		DrawEvery:           250,
		DrawPauseMs:         50,
		SettleAfterRemoveMs: 1000,
	}
}

// Load reads a pattern file over the defaults. An empty path returns the defaults.
// Keys absent from the file keep their default values; a patterns list replaces the
// built-in list wholesale.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := validateDocument(raw); err != nil {
		return cfg, fmt.Errorf("patterns.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("patterns.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("patterns.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.Version) == "" {
		c.Version = Version
	}
	for i := range c.Patterns {
		c.Patterns[i].Block = strings.ToLower(strings.TrimSpace(c.Patterns[i].Block))
		if c.Patterns[i].Block == "" {
			c.Patterns[i].Block = palette.Scheme
		}
		c.Patterns[i].Label = strings.TrimSpace(c.Patterns[i].Label)
	}
}

func (c Config) Validate() error {
	if err := checkVersion(c.Version); err != nil {
		return err
	}
	if len(c.Patterns) == 0 {
		return fmt.Errorf("patterns must not be empty")
	}
	for i, p := range c.Patterns {
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("patterns[%d] width/height must be > 0", i)
		}
		if p.MaxIter <= 0 {
			return fmt.Errorf("patterns[%d] max_iter must be > 0", i)
		}
		if !(p.Scale > 0) {
			return fmt.Errorf("patterns[%d] scale must be > 0", i)
		}
		if p.Label == "" {
			return fmt.Errorf("patterns[%d] label must not be empty", i)
		}
		if _, err := palette.ParseKind(p.Block); err != nil {
			return fmt.Errorf("patterns[%d] %w", i, err)
		}
	}
	pc := c.Pacing
	if pc.RemoveEvery < 0 || pc.DrawEvery < 0 || pc.RemovePauseMs < 0 || pc.DrawPauseMs < 0 || pc.SettleAfterRemoveMs < 0 {
		return fmt.Errorf("pacing values must be >= 0")
	}
	return nil
}

func checkVersion(v string) error {
	got, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(v), "v"))
	if err != nil {
		return fmt.Errorf("version %q: %w", v, err)
	}
	max := semver.New(Version)
	if got.Major != max.Major {
		return fmt.Errorf("version %s not supported (want %d.x)", got, max.Major)
	}
	if max.LessThan(*got) {
		return fmt.Errorf("version %s is newer than supported %s", got, max)
	}
	return nil
}

// JSON is the canonical rendering of the effective config, stored with each run.
func (c Config) JSON() string {
	b, _ := json.Marshal(c)
	return string(b)
}

func (c Config) Digest() string {
	sum := sha256.Sum256([]byte(c.JSON()))
	return hex.EncodeToString(sum[:])
}
