package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultKeywords is the built-in keyword set used to recognize
// like/vote-style controls. The crawl config extends it with user keywords,
// it never replaces it.
var DefaultKeywords = []string{
	// Chinese
	"点赞", "赞", "喜欢", "顶", "支持",
	"点踩", "踩", "不喜欢", "倒", "反对",
	"投票", "评分", "评价", "收藏", "分享",
	// English
	"like", "upvote", "up vote", "up-vote", "thumbs up", "+1",
	"dislike", "downvote", "down vote", "down-vote", "thumbs down", "-1",
	"vote", "rating", "rate", "favorite", "bookmark", "share", "react",
	"helpful", "recommend", "agree", "disagree", "support", "oppose",
}

// Config is the full application configuration. It is resolved once at
// startup (defaults, config file, env, flags) and treated as immutable for
// the duration of a run.
type Config struct {
	Logger   LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Crawl    CrawlConfig   `mapstructure:"crawl" yaml:"crawl"`
	Output   OutputConfig  `mapstructure:"output" yaml:"output"`
	Profiles ProfileConfig `mapstructure:"profiles" yaml:"profiles"`
}

// LoggerConfig holds the logging settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the browser instance driven by a crawl.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ScrollTimeout     time.Duration `mapstructure:"scroll_timeout" yaml:"scroll_timeout"`
	ClickTimeout      time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	CaptureTimeout    time.Duration `mapstructure:"capture_timeout" yaml:"capture_timeout"`
}

// CrawlConfig holds the per-run crawl session settings. The keyword set and
// threshold feed the matcher; scroll count and delay shape the per-URL
// pipeline.
type CrawlConfig struct {
	SimilarityThreshold int           `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	ScrollCount         int           `mapstructure:"scroll_count" yaml:"scroll_count"`
	Delay               time.Duration `mapstructure:"delay" yaml:"delay"`
	Keywords            []string      `mapstructure:"keywords" yaml:"keywords"`
	MatchConcurrency    int           `mapstructure:"match_concurrency" yaml:"match_concurrency"`
	ProfileName         string        `mapstructure:"profile_name" yaml:"profile_name"`
}

// OutputConfig controls where crawl records and captures land.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ProfileConfig controls browser profile storage.
type ProfileConfig struct {
	// Dir is the root directory holding one subdirectory per named profile.
	// Empty means $HOME/.crawler-for-attack/profiles.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// LoginWait bounds how long `profile login` keeps the interactive
	// browser open waiting for the user.
	LoginWait time.Duration `mapstructure:"login_wait" yaml:"login_wait"`
	// LoginURL is the page opened for interactive authentication.
	LoginURL string `mapstructure:"login_url" yaml:"login_url"`
}

// SetDefaults registers default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "crawler-for-attack")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.scroll_timeout", "10s")
	v.SetDefault("browser.click_timeout", "10s")
	v.SetDefault("browser.capture_timeout", "20s")

	// -- Crawl --
	v.SetDefault("crawl.similarity_threshold", 70)
	v.SetDefault("crawl.scroll_count", 3)
	v.SetDefault("crawl.delay", "2s")
	v.SetDefault("crawl.keywords", []string{})
	v.SetDefault("crawl.match_concurrency", 4)
	v.SetDefault("crawl.profile_name", "")

	// -- Output --
	v.SetDefault("output.dir", "output")

	// -- Profiles --
	v.SetDefault("profiles.dir", "")
	v.SetDefault("profiles.login_wait", "5m")
	v.SetDefault("profiles.login_url", "about:blank")
}

// FromViper unmarshals and validates a configuration snapshot.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefault returns a configuration populated with defaults only.
func NewDefault() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		// Defaults must always validate.
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// AllKeywords returns the built-in keyword set plus any user-supplied
// keywords, deduplicated with order preserved.
func (c *CrawlConfig) AllKeywords() []string {
	seen := make(map[string]struct{}, len(DefaultKeywords)+len(c.Keywords))
	out := make([]string, 0, len(DefaultKeywords)+len(c.Keywords))
	for _, kw := range append(append([]string{}, DefaultKeywords...), c.Keywords...) {
		if _, dup := seen[kw]; dup || kw == "" {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Crawl.SimilarityThreshold < 0 || c.Crawl.SimilarityThreshold > 100 {
		return fmt.Errorf("crawl.similarity_threshold must be in [0,100], got %d", c.Crawl.SimilarityThreshold)
	}
	if c.Crawl.ScrollCount < 0 {
		return fmt.Errorf("crawl.scroll_count must be >= 0, got %d", c.Crawl.ScrollCount)
	}
	if c.Crawl.Delay < 0 {
		return fmt.Errorf("crawl.delay must be >= 0, got %s", c.Crawl.Delay)
	}
	if c.Crawl.MatchConcurrency <= 0 {
		return fmt.Errorf("crawl.match_concurrency must be positive, got %d", c.Crawl.MatchConcurrency)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be positive, got %s", c.Browser.NavigationTimeout)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	return nil
}
