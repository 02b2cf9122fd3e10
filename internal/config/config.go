// Package config loads the wavecap configuration file.
//
// Configuration is YAML, validated against an embedded CUE schema before it
// is decoded into typed structs. Schema violations surface with the CUE
// error positions, so a bad config names the offending field instead of
// failing later inside the capture pipeline.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Duration is a time.Duration that unmarshals from YAML strings like "20ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full wavecap configuration.
type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	Store      StoreConfig      `yaml:"store"`
	Capture    CaptureConfig    `yaml:"capture"`
	Journal    JournalConfig    `yaml:"journal"`
	Export     ExportConfig     `yaml:"export"`
}

// InstrumentConfig selects and addresses the instrument transport.
type InstrumentConfig struct {
	// Transport is "tcp" or "serial".
	Transport string `yaml:"transport"`

	// Address is host:port for tcp, a device path for serial.
	Address string `yaml:"address"`

	// Baud applies to the serial transport only.
	Baud int `yaml:"baud"`
}

// StoreConfig bounds the in-memory waveform store.
type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

// CaptureConfig bounds the post-stop ready poll.
type CaptureConfig struct {
	ReadyPollInterval Duration `yaml:"ready_poll_interval"`
	ReadyTimeout      Duration `yaml:"ready_timeout"`
}

// JournalConfig locates the capture journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig sets export defaults for the CLI.
type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			Transport: "tcp",
			Address:   "127.0.0.1:5555",
			Baud:      115200,
		},
		Store:   StoreConfig{Capacity: 100},
		Capture: CaptureConfig{ReadyPollInterval: Duration(20 * time.Millisecond), ReadyTimeout: Duration(2 * time.Second)},
		Journal: JournalConfig{Path: "wavecap.db"},
		Export:  ExportConfig{Dir: ".", Format: "csv"},
	}
}

// Load reads, validates, and decodes the configuration at path. Fields the
// file omits keep their defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	// CUE validates the untyped document so schema errors carry field
	// positions; the typed decode below then cannot surprise us.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// validate unifies the document with the embedded #Config schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("locate #Config in schema: %w", err)
	}

	unified := def.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		var msgs []string
		for _, e := range cueerrors.Errors(err) {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("config does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
