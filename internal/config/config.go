// Package config loads batch form definitions from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/calc"
	"github.com/goliatone/go-batchform/pkg/session"
	"github.com/goliatone/go-batchform/pkg/timerange"
	"github.com/goliatone/go-batchform/pkg/wizard"
)

// ErrUnsupportedFormat is returned for extensions other than yaml, yml and
// toml.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Defaults applied after decoding.
const (
	DefaultRenderer      = "vanilla"
	DefaultDraftDir      = ".batchform/drafts"
	DefaultSubmitTimeout = 30 * time.Second
)

// Config is one form definition.
type Config struct {
	Name      string         `yaml:"name" toml:"name"`
	Variant   string         `yaml:"variant" toml:"variant"`
	Overrides OverrideConfig `yaml:"overrides" toml:"overrides"`
	Steps     []StepConfig   `yaml:"steps" toml:"steps"`
	Schedule  Schedule       `yaml:"schedule" toml:"schedule"`
	Theme     ThemeConfig    `yaml:"theme" toml:"theme"`
	Renderer  string         `yaml:"renderer" toml:"renderer"`
	Submit    SubmitConfig   `yaml:"submit" toml:"submit"`
	Draft     DraftConfig    `yaml:"draft" toml:"draft"`

	// Dir is the directory of the loaded file. Relative step sources resolve
	// against it.
	Dir string `yaml:"-" toml:"-"`
}

// OverrideConfig adjusts the selected calculation variant.
type OverrideConfig struct {
	Multiplier      *float64                  `yaml:"multiplier" toml:"multiplier"`
	MultiplierTable map[string]float64        `yaml:"multiplier_table" toml:"multiplier_table"`
	StandardYield   *float64                  `yaml:"standard_yield" toml:"standard_yield"`
	Fields          map[string]string         `yaml:"fields" toml:"fields"`
	Rounding        map[string]RoundingConfig `yaml:"rounding" toml:"rounding"`
}

// RoundingConfig is a per-field precision policy. Carry is "raw" or
// "rounded".
type RoundingConfig struct {
	Places int32  `yaml:"places" toml:"places"`
	Carry  string `yaml:"carry" toml:"carry"`
}

// StepConfig declares one wizard step.
type StepConfig struct {
	Number         int      `yaml:"number" toml:"number"`
	Source         string   `yaml:"source" toml:"source"`
	Fields         []string `yaml:"fields" toml:"fields"`
	DefaultMessage string   `yaml:"default_message" toml:"default_message"`
}

// Schedule locates operation time records. Window values are Go durations
// ("12h", "90m").
type Schedule struct {
	timerange.Schedule `yaml:",inline"`
	MaxDuration        string `yaml:"max_duration" toml:"max_duration"`
	MaxGap             string `yaml:"max_gap" toml:"max_gap"`
}

// ThemeConfig describes an inline go-theme manifest.
type ThemeConfig struct {
	Name        string            `yaml:"name" toml:"name"`
	Variant     string            `yaml:"variant" toml:"variant"`
	Tokens      map[string]string `yaml:"tokens" toml:"tokens"`
	Templates   map[string]string `yaml:"templates" toml:"templates"`
	AssetPrefix string            `yaml:"asset_prefix" toml:"asset_prefix"`
	Assets      map[string]string `yaml:"assets" toml:"assets"`
}

// SubmitConfig configures the outbound endpoint.
type SubmitConfig struct {
	Endpoint string            `yaml:"endpoint" toml:"endpoint"`
	Headers  map[string]string `yaml:"headers" toml:"headers"`
	Timeout  string            `yaml:"timeout" toml:"timeout"`
}

// DraftConfig configures local draft storage.
type DraftConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Load reads path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes data in the format named by ext (".yaml", ".yml", ".toml").
func Parse(ext string, data []byte) (*Config, error) {
	var cfg Config
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Variant) == "" {
		c.Variant = calc.VariantStandard
	}
	if strings.TrimSpace(c.Renderer) == "" {
		c.Renderer = DefaultRenderer
	}
	if strings.TrimSpace(c.Draft.Dir) == "" {
		c.Draft.Dir = DefaultDraftDir
	}
	for i := range c.Steps {
		if c.Steps[i].Number == 0 {
			c.Steps[i].Number = i + 1
		}
	}
}

// Validate checks references that decoding cannot.
func (c *Config) Validate() error {
	if _, ok := calc.Lookup(c.Variant); !ok {
		return fmt.Errorf("config: unknown variant %q (known: %s)", c.Variant, strings.Join(calc.Names(), ", "))
	}
	seen := make(map[int]struct{}, len(c.Steps))
	for _, step := range c.Steps {
		if strings.TrimSpace(step.Source) == "" {
			return fmt.Errorf("config: step %d has no source", step.Number)
		}
		if _, dup := seen[step.Number]; dup {
			return fmt.Errorf("config: step %d declared twice", step.Number)
		}
		seen[step.Number] = struct{}{}
	}
	for field, rounding := range c.Overrides.Rounding {
		if _, err := parseCarry(rounding.Carry); err != nil {
			return fmt.Errorf("config: rounding %s: %w", field, err)
		}
	}
	if _, err := c.ScheduleOptions(); err != nil {
		return err
	}
	if _, err := c.SubmitTimeout(); err != nil {
		return err
	}
	return nil
}

// CalcVariant returns the catalogue variant with overrides applied.
func (c *Config) CalcVariant() (calc.Variant, error) {
	base, ok := calc.Lookup(c.Variant)
	if !ok {
		return calc.Variant{}, fmt.Errorf("config: unknown variant %q", c.Variant)
	}
	override := calc.Override{
		Multiplier:      c.Overrides.Multiplier,
		MultiplierTable: c.Overrides.MultiplierTable,
		StandardYield:   c.Overrides.StandardYield,
		Fields:          c.Overrides.Fields,
	}
	if len(c.Overrides.Rounding) > 0 {
		override.Rounding = make(map[string]calc.Rounding, len(c.Overrides.Rounding))
		for field, r := range c.Overrides.Rounding {
			carry, err := parseCarry(r.Carry)
			if err != nil {
				return calc.Variant{}, fmt.Errorf("config: rounding %s: %w", field, err)
			}
			override.Rounding[field] = calc.Rounding{Places: r.Places, Carry: carry}
		}
	}
	return base.WithOverride(override), nil
}

func parseCarry(raw string) (calc.Carry, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "rounded":
		return calc.CarryRounded, nil
	case "raw":
		return calc.CarryRaw, nil
	}
	return calc.CarryRounded, fmt.Errorf("unknown carry %q", raw)
}

// ScheduleOptions parses the schedule windows. Empty values keep the
// defaults.
func (c *Config) ScheduleOptions() (timerange.Options, error) {
	var opts timerange.Options
	var err error
	if opts.MaxDuration, err = parseDuration("schedule.max_duration", c.Schedule.MaxDuration); err != nil {
		return opts, err
	}
	if opts.MaxGap, err = parseDuration("schedule.max_gap", c.Schedule.MaxGap); err != nil {
		return opts, err
	}
	return opts, nil
}

// SubmitTimeout parses submit.timeout, defaulting to DefaultSubmitTimeout.
func (c *Config) SubmitTimeout() (time.Duration, error) {
	timeout, err := parseDuration("submit.timeout", c.Submit.Timeout)
	if err != nil {
		return 0, err
	}
	if timeout == 0 {
		timeout = DefaultSubmitTimeout
	}
	return timeout, nil
}

func parseDuration(name, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", name)
	}
	return d, nil
}

// WizardSteps converts the step list for wizard.New.
func (c *Config) WizardSteps() []wizard.Step {
	steps := make([]wizard.Step, 0, len(c.Steps))
	for _, step := range c.Steps {
		steps = append(steps, wizard.Step{
			Number:         step.Number,
			Fields:         step.Fields,
			DefaultMessage: step.DefaultMessage,
		})
	}
	return steps
}

// StepSources resolves step sources for a StepLoader. Relative file paths
// are joined with Dir.
func (c *Config) StepSources() []session.StepSource {
	out := make([]session.StepSource, 0, len(c.Steps))
	for _, step := range c.Steps {
		out = append(out, session.StepSource{Step: step.Number, Source: blueprint.SourceFor(c.ResolvePath(step.Source))})
	}
	return out
}

// ResolvePath joins relative file locations with Dir. URLs and absolute
// paths are returned as is.
func (c *Config) ResolvePath(location string) string {
	if location == "" || strings.Contains(location, "://") || filepath.IsAbs(location) || c.Dir == "" {
		return location
	}
	return filepath.Join(c.Dir, location)
}

// Manifest converts the inline theme to a go-theme manifest. It returns nil
// when no theme is configured.
func (c *Config) Manifest() *theme.Manifest {
	t := c.Theme
	if strings.TrimSpace(t.Name) == "" {
		return nil
	}
	return &theme.Manifest{
		Name:      t.Name,
		Version:   "local",
		Tokens:    t.Tokens,
		Templates: t.Templates,
		Assets: theme.Assets{
			Prefix: t.AssetPrefix,
			Files:  t.Assets,
		},
	}
}
