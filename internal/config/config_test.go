package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 70, cfg.Crawl.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Crawl.ScrollCount)
	assert.Equal(t, 2*time.Second, cfg.Crawl.Delay)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, 5*time.Minute, cfg.Profiles.LoginWait)
}

func TestFromViperYAMLOverrides(t *testing.T) {
	yaml := []byte(`
crawl:
  similarity_threshold: 85
  scroll_count: 5
  keywords:
    - subscribe
browser:
  headless: true
output:
  dir: /tmp/crawl-out
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 85, cfg.Crawl.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Crawl.ScrollCount)
	assert.Equal(t, []string{"subscribe"}, cfg.Crawl.Keywords)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "/tmp/crawl-out", cfg.Output.Dir)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Crawl.Delay)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "threshold above range",
			mutate:  func(c *Config) { c.Crawl.SimilarityThreshold = 101 },
			wantErr: "similarity_threshold",
		},
		{
			name:    "threshold below range",
			mutate:  func(c *Config) { c.Crawl.SimilarityThreshold = -1 },
			wantErr: "similarity_threshold",
		},
		{
			name:    "negative scroll count",
			mutate:  func(c *Config) { c.Crawl.ScrollCount = -1 },
			wantErr: "scroll_count",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Crawl.Delay = -time.Second },
			wantErr: "delay",
		},
		{
			name:    "zero match concurrency",
			mutate:  func(c *Config) { c.Crawl.MatchConcurrency = 0 },
			wantErr: "match_concurrency",
		},
		{
			name:    "empty output dir",
			mutate:  func(c *Config) { c.Output.Dir = "" },
			wantErr: "output.dir",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefault()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestAllKeywords(t *testing.T) {
	c := &CrawlConfig{Keywords: []string{"subscribe", "like", "follow"}}

	all := c.AllKeywords()

	// Built-ins come first, user keywords are appended, duplicates collapse.
	assert.Equal(t, DefaultKeywords[0], all[0])
	assert.Contains(t, all, "subscribe")
	assert.Contains(t, all, "follow")
	counts := map[string]int{}
	for _, kw := range all {
		counts[kw]++
	}
	assert.Equal(t, 1, counts["like"])
}

func TestAllKeywordsDefaultsOnly(t *testing.T) {
	c := &CrawlConfig{}
	assert.Equal(t, len(DefaultKeywords), len(c.AllKeywords()))
}
