package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig    `koanf:"browser" validate:"required"`
	Site      SiteConfig       `koanf:"site" validate:"required"`
	Timing    TimingConfig     `koanf:"timing" validate:"required"`
	Download  DownloadConfig   `koanf:"download" validate:"required"`
	Output    OutputConfig     `koanf:"output" validate:"required"`
	Overrides []OverrideConfig `koanf:"overrides" validate:"dive"`
}

// BrowserConfig holds settings for the controlled Chrome instance.
type BrowserConfig struct {
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	Headless   bool          `koanf:"headless"`
	NoSandbox  bool          `koanf:"no_sandbox"`
	ChromePath string        `koanf:"chrome_path"`
}

// SiteConfig describes the catalog site's page structure and API shapes.
type SiteConfig struct {
	BaseURL         string `koanf:"base_url" validate:"required,url"`
	Referer         string `koanf:"referer" validate:"required,url"`
	SpinnerSelector string `koanf:"spinner_selector" validate:"required"`
	PlayerSelector  string `koanf:"player_selector" validate:"required"`
	ConfigMarker    string `koanf:"config_marker" validate:"required"`
	ManifestField   string `koanf:"manifest_field" validate:"required"`
}

// TimingConfig holds the fixed waits of the discovery and resolution phases.
type TimingConfig struct {
	DiscoverySettle      time.Duration `koanf:"discovery_settle" validate:"required"`
	DiscoveryClickSettle time.Duration `koanf:"discovery_click_settle" validate:"required"`
	DiscoveryFallback    time.Duration `koanf:"discovery_fallback" validate:"required"`
	EpisodeSettle        time.Duration `koanf:"episode_settle" validate:"required"`
	ElementTimeout       time.Duration `koanf:"element_timeout" validate:"required"`
	PollTimeout          time.Duration `koanf:"poll_timeout" validate:"required"`
	PollInterval         time.Duration `koanf:"poll_interval" validate:"required,ltefield=PollTimeout"`
	EpisodeGap           time.Duration `koanf:"episode_gap"`
	TurnstileTimeout     time.Duration `koanf:"turnstile_timeout" validate:"required"`
}

// DownloadConfig holds settings for the external yt-dlp invocation.
type DownloadConfig struct {
	YtDlpPath           string `koanf:"yt_dlp_path" validate:"required"`
	FFmpegLocation      string `koanf:"ffmpeg_location"`
	ConcurrentFragments int    `koanf:"concurrent_fragments" validate:"min=1"`
	FilenameTemplate    string `koanf:"filename_template" validate:"required"`
}

// OutputConfig holds where per-series artifacts are written.
type OutputConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// OverrideConfig adds one entry to the link override table.
type OverrideConfig struct {
	SeriesID  int    `koanf:"series_id" validate:"required,min=1"`
	EpisodeID string `koanf:"episode_id" validate:"required"`
	URL       string `koanf:"url" validate:"required,url"`
}

// Default returns the configuration used for every key the file leaves out.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Timeout:  30 * time.Second,
			Headless: false,
		},
		Site: SiteConfig{
			BaseURL:         "https://kisskh.co",
			Referer:         "https://kisskh.co/",
			SpinnerSelector: ".spin.ng-star-inserted",
			PlayerSelector:  "video.video",
			ConfigMarker:    "Epconfig/",
			ManifestField:   "HlsUrl",
		},
		Timing: TimingConfig{
			DiscoverySettle:      5 * time.Second,
			DiscoveryClickSettle: 5 * time.Second,
			DiscoveryFallback:    10 * time.Second,
			EpisodeSettle:        2 * time.Second,
			ElementTimeout:       20 * time.Second,
			PollTimeout:          20 * time.Second,
			PollInterval:         500 * time.Millisecond,
			EpisodeGap:           500 * time.Millisecond,
			TurnstileTimeout:     20 * time.Second,
		},
		Download: DownloadConfig{
			YtDlpPath:           "yt-dlp",
			ConcurrentFragments: 10,
			FilenameTemplate:    `{{.Series}} - S01E{{printf "%02d" .Episode}}.mp4`,
		},
		Output: OutputConfig{
			Dir: ".",
		},
	}
}

// CatalogPrefix is the URL prefix every catalog link must start with.
func (s SiteConfig) CatalogPrefix() string {
	return s.BaseURL + "/Drama/"
}

// Load reads and validates configuration from a YAML file. Keys absent from
// the file keep their Default value; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking config %s: %w", path, err)
		}
	} else {
		k := koanf.New(".")

		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}

		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
