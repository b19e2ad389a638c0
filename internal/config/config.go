package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Scraper  ScraperConfig
	Output   OutputConfig
	Database DatabaseConfig
}

type AppConfig struct {
	LogLevel  string
	LogFormat string
}

type ScraperConfig struct {
	BaseURL     string
	Robust      bool
	VerifyTLS   bool
	BrowserPath string
	Headless    bool
	UserAgent   string

	RequestTimeout  time.Duration
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration

	// 0 means retry until the failure clears.
	MaxFetchRetries    int
	MaxDiscoveryCycles int
}

type OutputConfig struct {
	Dir         string
	CSV         bool
	IncludeHTML bool
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

// Enabled reports whether a Postgres sink was configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.DBHost) != ""
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidValue       = errors.New("invalid configuration value")
)

const (
	keyLogLevel  = "LOG_LEVEL"
	keyLogFormat = "LOG_FORMAT"

	keyBaseURL            = "SCRAPER_BASE_URL"
	keyRobust             = "SCRAPER_ROBUST"
	keyVerifyTLS          = "SCRAPER_VERIFY_TLS"
	keyBrowserPath        = "SCRAPER_BROWSER_PATH"
	keyHeadless           = "SCRAPER_HEADLESS"
	keyUserAgent          = "SCRAPER_USER_AGENT"
	keyRequestTimeout     = "SCRAPER_REQUEST_TIMEOUT"
	keyPageLoadTimeout    = "SCRAPER_PAGE_LOAD_TIMEOUT"
	keySettleDelay        = "SCRAPER_SETTLE_DELAY"
	keyMaxFetchRetries    = "SCRAPER_MAX_FETCH_RETRIES"
	keyMaxDiscoveryCycles = "SCRAPER_MAX_DISCOVERY_CYCLES"

	keyOutputDir         = "OUTPUT_DIR"
	keyOutputCSV         = "OUTPUT_CSV"
	keyOutputIncludeHTML = "OUTPUT_INCLUDE_HTML"

	keyDBHost                = "DB_HOST"
	keyDBPort                = "DB_PORT"
	keyDBName                = "DB_NAME"
	keyDBUser                = "DB_USER"
	keyDBPassword            = "DB_PASSWORD"
	keyDBSSLMode             = "DB_SSL_MODE"
	keyDBConnectTimeout      = "DB_CONNECT_TIMEOUT"
	keyDBPoolMaxConns        = "DB_POOL_MAX_CONNS"
	keyDBPoolMinConns        = "DB_POOL_MIN_CONNS"
	keyDBPoolMaxConnLifetime = "DB_POOL_MAX_CONN_LIFETIME"
	keyDBPoolMaxConnIdleTime = "DB_POOL_MAX_CONN_IDLE_TIME"
	keyDBPoolHealthCheck     = "DB_POOL_HEALTH_CHECK_PERIOD"
)

// flagKeys maps command-line flags onto the environment keys they override.
var flagKeys = map[string]string{
	"log-level":            keyLogLevel,
	"log-format":           keyLogFormat,
	"base-url":             keyBaseURL,
	"robust":               keyRobust,
	"verify-tls":           keyVerifyTLS,
	"browser-path":         keyBrowserPath,
	"headless":             keyHeadless,
	"max-fetch-retries":    keyMaxFetchRetries,
	"max-discovery-cycles": keyMaxDiscoveryCycles,
	"output-dir":           keyOutputDir,
	"csv":                  keyOutputCSV,
	"include-html":         keyOutputIncludeHTML,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")

	v.SetDefault(keyBaseURL, "https://www.duapune.com/")
	v.SetDefault(keyRobust, true)
	v.SetDefault(keyVerifyTLS, true)
	v.SetDefault(keyBrowserPath, "")
	v.SetDefault(keyHeadless, true)
	v.SetDefault(keyUserAgent, "")
	v.SetDefault(keyRequestTimeout, 60*time.Second)
	v.SetDefault(keyPageLoadTimeout, 60*time.Second)
	v.SetDefault(keySettleDelay, 5*time.Second)
	v.SetDefault(keyMaxFetchRetries, 8)
	v.SetDefault(keyMaxDiscoveryCycles, 5)

	v.SetDefault(keyOutputDir, "data")
	v.SetDefault(keyOutputCSV, true)
	v.SetDefault(keyOutputIncludeHTML, true)

	v.SetDefault(keyDBHost, "")
	v.SetDefault(keyDBPort, "5432")
	v.SetDefault(keyDBName, "")
	v.SetDefault(keyDBUser, "")
	v.SetDefault(keyDBPassword, "")
	v.SetDefault(keyDBSSLMode, "disable")
	v.SetDefault(keyDBConnectTimeout, 5*time.Second)
	v.SetDefault(keyDBPoolMaxConns, 4)
	v.SetDefault(keyDBPoolMinConns, 0)
	v.SetDefault(keyDBPoolMaxConnLifetime, time.Duration(0))
	v.SetDefault(keyDBPoolMaxConnIdleTime, time.Duration(0))
	v.SetDefault(keyDBPoolHealthCheck, time.Duration(0))
}

// RegisterFlags declares the command-line overrides on fs. Flag defaults are
// only placeholders; unset flags never shadow the environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log encoding (console, json)")
	fs.String("base-url", "https://www.duapune.com/", "landing page of the job portal")
	fs.Bool("robust", true, "retry transient network and rendering failures")
	fs.Bool("verify-tls", true, "verify TLS certificates on plain HTTP fetches")
	fs.String("browser-path", "", "path to the Chrome/Chromium executable")
	fs.Bool("headless", true, "run the browser without a window")
	fs.Int("max-fetch-retries", 8, "retry ceiling per fetch, 0 for unbounded")
	fs.Int("max-discovery-cycles", 5, "discovery restarts before giving up, 0 for unbounded")
	fs.String("output-dir", "data", "directory for CSV exports")
	fs.Bool("csv", true, "write the records as CSV")
	fs.Bool("include-html", true, "include the page_html column in exports")
}

// Load reads configuration from the environment (and a .env file if present).
func Load() (Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with explicitly set flags in fs taking precedence.
func LoadWithFlags(fs *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	str := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	cfg := Config{
		App: AppConfig{
			LogLevel:  strings.ToLower(str(keyLogLevel)),
			LogFormat: strings.ToLower(str(keyLogFormat)),
		},
		Scraper: ScraperConfig{
			BaseURL:            str(keyBaseURL),
			Robust:             v.GetBool(keyRobust),
			VerifyTLS:          v.GetBool(keyVerifyTLS),
			BrowserPath:        str(keyBrowserPath),
			Headless:           v.GetBool(keyHeadless),
			UserAgent:          str(keyUserAgent),
			RequestTimeout:     v.GetDuration(keyRequestTimeout),
			PageLoadTimeout:    v.GetDuration(keyPageLoadTimeout),
			SettleDelay:        v.GetDuration(keySettleDelay),
			MaxFetchRetries:    v.GetInt(keyMaxFetchRetries),
			MaxDiscoveryCycles: v.GetInt(keyMaxDiscoveryCycles),
		},
		Output: OutputConfig{
			Dir:         str(keyOutputDir),
			CSV:         v.GetBool(keyOutputCSV),
			IncludeHTML: v.GetBool(keyOutputIncludeHTML),
		},
		Database: DatabaseConfig{
			DBHost:                str(keyDBHost),
			DBPort:                str(keyDBPort),
			DBName:                str(keyDBName),
			DBUser:                str(keyDBUser),
			DBPassword:            v.GetString(keyDBPassword),
			DBSSLMode:             str(keyDBSSLMode),
			ConnectTimeout:        v.GetDuration(keyDBConnectTimeout),
			PoolMaxConns:          v.GetInt32(keyDBPoolMaxConns),
			PoolMinConns:          v.GetInt32(keyDBPoolMinConns),
			PoolMaxConnLifetime:   v.GetDuration(keyDBPoolMaxConnLifetime),
			PoolMaxConnIdleTime:   v.GetDuration(keyDBPoolMaxConnIdleTime),
			PoolHealthCheckPeriod: v.GetDuration(keyDBPoolHealthCheck),
		},
	}

	var missing []string
	if cfg.Scraper.BaseURL == "" {
		missing = append(missing, keyBaseURL)
	}
	if cfg.Database.Enabled() {
		for key, val := range map[string]string{
			keyDBPort: cfg.Database.DBPort,
			keyDBName: cfg.Database.DBName,
			keyDBUser: cfg.Database.DBUser,
		} {
			if val == "" {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	var invalid []string
	if cfg.Scraper.MaxFetchRetries < 0 {
		invalid = append(invalid, keyMaxFetchRetries)
	}
	if cfg.Scraper.MaxDiscoveryCycles < 0 {
		invalid = append(invalid, keyMaxDiscoveryCycles)
	}
	if cfg.Scraper.RequestTimeout <= 0 {
		invalid = append(invalid, keyRequestTimeout)
	}
	if cfg.Scraper.PageLoadTimeout <= 0 {
		invalid = append(invalid, keyPageLoadTimeout)
	}
	if cfg.Scraper.SettleDelay < 0 {
		invalid = append(invalid, keySettleDelay)
	}
	switch cfg.App.LogFormat {
	case "console", "json":
	default:
		invalid = append(invalid, keyLogFormat)
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidValue, strings.Join(invalid, ", "))
	}

	return cfg, nil
}
