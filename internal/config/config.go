// Package config resolves command-line flags, CSE_* environment variables
// and an optional config file into one Config.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/cse/internal/extract"
	"github.com/FranksOps/cse/internal/fingerprint"
	"github.com/FranksOps/cse/internal/output"
	"github.com/FranksOps/cse/internal/serp"
	"github.com/FranksOps/cse/pkg/httpclient"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix             = "CSE"
	DefaultSearchEngineID = "b2d87ae5a9c2e40da"
	DefaultTotalPages     = 10
	DefaultCountry        = "countryUS"
	DefaultLogLevel       = "warn"
)

// Keys shared by flags, environment variables (CSE_<KEY>) and config files.
const (
	KeyQuery          = "query"
	KeyTotalPages     = "total_pages"
	KeySearchEngineID = "search_engine_id"
	KeyAPIKey         = "api_key"
	KeyCountry        = "country"
	KeyDateRestrict   = "date_restrict"
	KeyEndpoint       = "endpoint"
	KeyPolicy         = "policy"
	KeyMinLineLength  = "min_line_length"
	KeyTimeout        = "timeout"
	KeyUserAgent      = "user_agent"
	KeyTLSProfile     = "tls_profile"
	KeyRespectRobots  = "respect_robots"
	KeyOnPageError    = "on_page_error"
	KeyFormat         = "format"
	KeyPreview        = "preview"
	KeySummary        = "summary"
	KeyNoProgress     = "no_progress"
	KeyMetricsAddr    = "metrics_addr"
	KeyLogLevel       = "log_level"
	KeyConfig         = "config"
)

var (
	// ErrMissingQuery is returned when no query was given anywhere.
	ErrMissingQuery = errors.New("config: query is required")
	// ErrInvalidValue wraps any option that fails to parse.
	ErrInvalidValue = errors.New("config: invalid value")
)

// defaults backs every key that has one. min_line_length uses -1 for
// "whatever the policy says".
var defaults = map[string]any{
	KeyTotalPages:     DefaultTotalPages,
	KeySearchEngineID: DefaultSearchEngineID,
	KeyCountry:        DefaultCountry,
	KeyEndpoint:       serp.DefaultEndpoint,
	KeyPolicy:         string(extract.ModeMain),
	KeyMinLineLength:  -1,
	KeyTimeout:        httpclient.DefaultTimeout,
	KeyTLSProfile:     string(fingerprint.ProfileChrome),
	KeyOnPageError:    string(serp.PolicyAbort),
	KeyFormat:         string(output.FormatText),
	KeyLogLevel:       DefaultLogLevel,
}

// Config is the resolved configuration of one run.
type Config struct {
	Query          string
	TotalPages     int
	APIKey         string
	SearchEngineID string
	Country        string
	DateRestrict   string
	Endpoint       string

	Policy        extract.Policy
	Timeout       time.Duration
	UserAgent     string
	TLSProfile    fingerprint.Profile
	RespectRobots bool
	OnPageError   serp.PageErrorPolicy

	Format      output.Format
	Preview     int
	Summary     bool
	NoProgress  bool
	MetricsAddr string
	LogLevel    slog.Level
}

// SearchQuery returns the search API parameters.
func (c Config) SearchQuery() serp.Query {
	return serp.Query{
		Text:           c.Query,
		APIKey:         c.APIKey,
		SearchEngineID: c.SearchEngineID,
		Country:        c.Country,
		DateRestrict:   c.DateRestrict,
	}
}

// NormalizeFlagName lets --total-pages and --total_pages name the same flag.
func NormalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "-", "_"))
}

// RegisterFlags defines every option on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(NormalizeFlagName)

	fs.StringP(KeyQuery, "q", "", "search query (required)")
	fs.IntP(KeyTotalPages, "t", DefaultTotalPages, "upper bound for result offsets; one API request per 10 results")
	fs.StringP(KeySearchEngineID, "e", DefaultSearchEngineID, "programmable search engine id (cx); -se is accepted")
	fs.String(KeyCountry, DefaultCountry, "country restriction (cr)")
	fs.String(KeyDateRestrict, "", "restrict results by date, e.g. d7, m1")
	fs.String(KeyEndpoint, serp.DefaultEndpoint, "search API endpoint")

	fs.String(KeyPolicy, string(extract.ModeMain), "extraction policy: main or body")
	fs.Int(KeyMinLineLength, -1, "drop lines shorter than this many characters (default 50 for main, 0 for body)")
	fs.Duration(KeyTimeout, httpclient.DefaultTimeout, "per-request timeout")
	fs.String(KeyUserAgent, "", "fixed User-Agent (default rotates browser agents)")
	fs.String(KeyTLSProfile, string(fingerprint.ProfileChrome), "TLS fingerprint: go, chrome, firefox, safari, random")
	fs.Bool(KeyRespectRobots, false, "skip pages disallowed by robots.txt")
	fs.String(KeyOnPageError, string(serp.PolicyAbort), "on a failed result page: abort or skip")

	fs.String(KeyFormat, string(output.FormatText), "output format: text, jsonl, csv")
	fs.Int(KeyPreview, 0, "print at most this many characters per page (0 prints all)")
	fs.Bool(KeySummary, false, "print a run summary to stderr")
	fs.Bool(KeyNoProgress, false, "disable the progress bar")
	fs.String(KeyMetricsAddr, "", "serve Prometheus metrics on this address")
	fs.String(KeyLogLevel, DefaultLogLevel, "log level: debug, info, warn, error")
	fs.String(KeyConfig, "", "config file (yaml, json or toml)")
}

// NewViper returns a viper instance reading fs and CSE_* variables. fs may
// be nil.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}
	return v, nil
}

// Load resolves v into a Config. Flags beat environment variables, which
// beat the config file, which beats defaults.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		Query:          strings.TrimSpace(v.GetString(KeyQuery)),
		APIKey:         v.GetString(KeyAPIKey),
		SearchEngineID: v.GetString(KeySearchEngineID),
		Country:        v.GetString(KeyCountry),
		DateRestrict:   v.GetString(KeyDateRestrict),
		Endpoint:       v.GetString(KeyEndpoint),
		UserAgent:      v.GetString(KeyUserAgent),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
	}
	cfg.withDefaults()

	if cfg.Query == "" {
		return Config{}, ErrMissingQuery
	}

	// viper's GetInt and friends turn unparsable values into zero, so typed
	// keys go through the erroring casts.
	var err error
	if cfg.TotalPages, err = intValue(v, KeyTotalPages); err != nil {
		return Config{}, err
	}
	if cfg.Preview, err = intValue(v, KeyPreview); err != nil {
		return Config{}, err
	}
	minLineLength, err := intValue(v, KeyMinLineLength)
	if err != nil {
		return Config{}, err
	}
	if cfg.Timeout, err = durationValue(v, KeyTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RespectRobots, err = boolValue(v, KeyRespectRobots); err != nil {
		return Config{}, err
	}
	if cfg.Summary, err = boolValue(v, KeySummary); err != nil {
		return Config{}, err
	}
	if cfg.NoProgress, err = boolValue(v, KeyNoProgress); err != nil {
		return Config{}, err
	}

	mode, err := extract.ParseMode(v.GetString(KeyPolicy))
	if err != nil {
		return Config{}, invalid(KeyPolicy, err)
	}
	cfg.Policy = extract.PolicyFor(mode)
	if minLineLength >= 0 {
		cfg.Policy.MinLineLength = minLineLength
	}

	if cfg.TLSProfile, err = fingerprint.ParseProfile(v.GetString(KeyTLSProfile)); err != nil {
		return Config{}, invalid(KeyTLSProfile, err)
	}
	if cfg.OnPageError, err = serp.ParsePageErrorPolicy(v.GetString(KeyOnPageError)); err != nil {
		return Config{}, invalid(KeyOnPageError, err)
	}
	if cfg.Format, err = output.ParseFormat(v.GetString(KeyFormat)); err != nil {
		return Config{}, invalid(KeyFormat, err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, invalid(KeyLogLevel, err)
	}

	switch {
	case cfg.TotalPages < 0:
		return Config{}, invalid(KeyTotalPages, fmt.Errorf("must not be negative, got %d", cfg.TotalPages))
	case cfg.Preview < 0:
		return Config{}, invalid(KeyPreview, fmt.Errorf("must not be negative, got %d", cfg.Preview))
	case cfg.Timeout <= 0:
		return Config{}, invalid(KeyTimeout, fmt.Errorf("must be positive, got %s", cfg.Timeout))
	}

	return cfg, nil
}

// withDefaults fills values an environment variable or config file may
// have blanked.
func (c *Config) withDefaults() {
	if c.SearchEngineID == "" {
		c.SearchEngineID = DefaultSearchEngineID
	}
	if c.Endpoint == "" {
		c.Endpoint = serp.DefaultEndpoint
	}
}

func intValue(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, invalid(key, err)
	}
	return n, nil
}

func boolValue(v *viper.Viper, key string) (bool, error) {
	b, err := cast.ToBoolE(v.Get(key))
	if err != nil {
		return false, invalid(key, err)
	}
	return b, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil {
		return 0, invalid(key, err)
	}
	return d, nil
}

func invalid(key string, err error) error {
	return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
}
