package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./link-comb.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://feeds.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Resolver configuration
	RequestTimeout    int `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"10" description:"Per-request timeout for redirect resolution in seconds"`
	MaxRedirects      int `long:"max-redirects" env:"MAX_REDIRECTS" default:"10" description:"Maximum redirects to follow per resolution request"`
	RateLimitDelay    int `long:"rate-limit-delay" env:"RATE_LIMIT_DELAY" default:"500" description:"Minimum spacing between outbound resolution requests in milliseconds"`
	ResolveRetries    int `long:"resolve-retries" env:"RESOLVE_RETRIES" default:"3" description:"HTTP attempts per decode on the redirect path"`
	MaxRetries        int `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Maximum scheduled retries per article before permanent failure"`
	BackoffBase       int `long:"backoff-base" env:"BACKOFF_BASE" default:"60" description:"Base retry backoff in seconds"`
	MaxJitter         int `long:"max-jitter" env:"MAX_JITTER" default:"10" description:"Maximum backoff jitter in seconds"`
	LegacyIDThreshold int `long:"legacy-id-threshold" env:"LEGACY_ID_THRESHOLD" default:"150" description:"Identifier length below which a marker-prefixed link counts as legacy encoded"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"LinkComb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		RequestTimeout:    raw.RequestTimeout,
		MaxRedirects:      raw.MaxRedirects,
		RateLimitDelay:    raw.RateLimitDelay,
		ResolveRetries:    raw.ResolveRetries,
		MaxRetries:        raw.MaxRetries,
		BackoffBase:       raw.BackoffBase,
		MaxJitter:         raw.MaxJitter,
		LegacyIDThreshold: raw.LegacyIDThreshold,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
