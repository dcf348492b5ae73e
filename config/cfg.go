package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"scorewd/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	CacheConfig struct {
		Enable bool   `yaml:"enable"`
		Path   string `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required_if=Enable true"`
	}

	SourceConfig struct {
		// VersionCode is appended to every request as "?v=" to defeat stale
		// HTTP caches when a score is re-exported.
		VersionCode    string        `yaml:"version_code"`
		AuthToken      SecretString  `yaml:"auth_token,omitempty"`
		RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
		Cache          CacheConfig   `yaml:"cache"`
	}

	LoaderConfig struct {
		MaxInFlight   int           `yaml:"max_in_flight" validate:"min=1,max=16"`
		RetryCooldown time.Duration `yaml:"retry_cooldown" validate:"gt=0"`
	}

	PlaybackConfig struct {
		FrameRate int           `yaml:"frame_rate" validate:"min=1,max=240"`
		AltTrack  bool          `yaml:"alt_track"`
		SkipStep  time.Duration `yaml:"skip_step" validate:"gt=0"`
	}

	ViewConfig struct {
		ViewportWidth  float64       `yaml:"viewport_width" validate:"gt=0"`
		WindowHeight   float64       `yaml:"window_height" validate:"gt=0"`
		AutoScroll     bool          `yaml:"auto_scroll"`
		Zoomed         bool          `yaml:"zoomed"`
		ScrollDuration time.Duration `yaml:"scroll_duration" validate:"gte=0"`
	}

	RenderConfig struct {
		Width              int              `yaml:"width" validate:"gte=0,max=8192"`
		Format             common.OutputFmt `yaml:"format"`
		JPEGQuality        int              `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
		JPEGDensity        int              `yaml:"jpeg_dpi" validate:"gte=0,max=2400"`
		HighlightColor     string           `yaml:"highlight_color" validate:"required,hexcolor"`
		OutputNameTemplate string           `yaml:"output_name_template"`
		FileNameSlug       bool             `yaml:"file_name_slug"`
		SheetColumns       int              `yaml:"sheet_columns" validate:"min=1,max=16"`
		ThumbnailWidth     int              `yaml:"thumbnail_width" validate:"min=32,max=2048"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Source    SourceConfig   `yaml:"source"`
		Loader    LoaderConfig   `yaml:"loader"`
		Playback  PlaybackConfig `yaml:"playback"`
		View      ViewConfig     `yaml:"view"`
		Render    RenderConfig   `yaml:"render"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// FrameInterval returns duration of a single host frame.
func (conf *PlaybackConfig) FrameInterval() time.Duration {
	if conf.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(conf.FrameRate)
}
