// file: internal/config/config.go
// version: 2.2.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jdfalk/manga-organizer/internal/matcher"
)

// Config holds application configuration
type Config struct {
	DatabaseType string // "pebble" (default) or "sqlite"
	DatabasePath string

	LibraryDir           string
	InboxDir             string
	UploadTempDir        string
	OrganizationStrategy string // auto, copy, hardlink, reflink, move

	// Oracle (OpenAI-compatible chat completions)
	OracleEnabled     bool
	OracleAPIKeys     []string
	OracleModel       string
	OracleBaseURL     string
	OracleMinInterval time.Duration
	OracleKeyCooldown time.Duration

	// Matcher policy
	AutoMatchThreshold float64
	EscalateThreshold  float64
	ReviewThreshold    float64
	EditWeight         float64
	TokenWeight        float64
	ShortlistFloor     float64
	ShortlistSize      int
	OracleTimeout      time.Duration
	ArcVocabulary      []string
	SpinoffVocabulary  []string

	WatchInbox    bool
	WatchDebounce time.Duration
	Workers       int

	LogLevel  string
	LogFormat string // console or json

	Host string
	Port int

	BasicAuthEnabled  bool
	BasicAuthUsername string
	BasicAuthPassword string
	UploadRateLimit   int   // upload requests per minute per client
	MaxUploadBytes    int64 // request body cap for /upload
	SSEHeartbeat      time.Duration

	CatalogCacheTTL time.Duration
	PolicyFile      string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	defaults := matcher.DefaultPolicy()

	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("database_path", "manga.db")
	viper.SetDefault("library_dir", "library")
	viper.SetDefault("inbox_dir", "")
	viper.SetDefault("upload_temp_dir", "")
	viper.SetDefault("organization_strategy", "auto")

	viper.SetDefault("oracle_api_keys", []string{})
	viper.SetDefault("oracle_model", "gemini-2.0-flash")
	viper.SetDefault("oracle_base_url", "")
	viper.SetDefault("oracle_min_interval", 6500*time.Millisecond)
	viper.SetDefault("oracle_key_cooldown", 90*time.Second)

	viper.SetDefault("auto_match_threshold", defaults.AutoMatchThreshold)
	viper.SetDefault("escalate_threshold", defaults.EscalateThreshold)
	viper.SetDefault("review_threshold", defaults.ReviewThreshold)
	viper.SetDefault("edit_weight", defaults.EditWeight)
	viper.SetDefault("token_weight", defaults.TokenWeight)
	viper.SetDefault("shortlist_floor", defaults.ShortlistFloor)
	viper.SetDefault("shortlist_size", defaults.ShortlistSize)
	viper.SetDefault("oracle_timeout", defaults.OracleTimeout)
	viper.SetDefault("arc_vocabulary", defaults.ArcVocabulary)
	viper.SetDefault("spinoff_vocabulary", defaults.SpinoffVocabulary)

	viper.SetDefault("watch_inbox", false)
	viper.SetDefault("watch_debounce", 2*time.Second)
	viper.SetDefault("workers", 2)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")

	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8484)
	viper.SetDefault("basic_auth_enabled", false)
	viper.SetDefault("basic_auth_username", "")
	viper.SetDefault("basic_auth_password", "")
	viper.SetDefault("upload_rate_limit", 60)
	viper.SetDefault("max_upload_bytes", int64(512<<20))
	viper.SetDefault("sse_heartbeat", 15*time.Second)

	viper.SetDefault("catalog_cache_ttl", 30*time.Second)
	viper.SetDefault("policy_file", "")

	AppConfig = Config{
		DatabaseType:         viper.GetString("database_type"),
		DatabasePath:         viper.GetString("database_path"),
		LibraryDir:           viper.GetString("library_dir"),
		InboxDir:             viper.GetString("inbox_dir"),
		UploadTempDir:        viper.GetString("upload_temp_dir"),
		OrganizationStrategy: viper.GetString("organization_strategy"),

		OracleEnabled:     viper.GetBool("oracle_enabled"),
		OracleAPIKeys:     splitList(viper.GetStringSlice("oracle_api_keys")),
		OracleModel:       viper.GetString("oracle_model"),
		OracleBaseURL:     viper.GetString("oracle_base_url"),
		OracleMinInterval: viper.GetDuration("oracle_min_interval"),
		OracleKeyCooldown: viper.GetDuration("oracle_key_cooldown"),

		AutoMatchThreshold: viper.GetFloat64("auto_match_threshold"),
		EscalateThreshold:  viper.GetFloat64("escalate_threshold"),
		ReviewThreshold:    viper.GetFloat64("review_threshold"),
		EditWeight:         viper.GetFloat64("edit_weight"),
		TokenWeight:        viper.GetFloat64("token_weight"),
		ShortlistFloor:     viper.GetFloat64("shortlist_floor"),
		ShortlistSize:      viper.GetInt("shortlist_size"),
		OracleTimeout:      viper.GetDuration("oracle_timeout"),
		ArcVocabulary:      splitList(viper.GetStringSlice("arc_vocabulary")),
		SpinoffVocabulary:  splitList(viper.GetStringSlice("spinoff_vocabulary")),

		WatchInbox:    viper.GetBool("watch_inbox"),
		WatchDebounce: viper.GetDuration("watch_debounce"),
		Workers:       viper.GetInt("workers"),

		LogLevel:  viper.GetString("log_level"),
		LogFormat: viper.GetString("log_format"),

		Host: viper.GetString("host"),
		Port: viper.GetInt("port"),

		BasicAuthEnabled:  viper.GetBool("basic_auth_enabled"),
		BasicAuthUsername: viper.GetString("basic_auth_username"),
		BasicAuthPassword: viper.GetString("basic_auth_password"),
		UploadRateLimit:   viper.GetInt("upload_rate_limit"),
		MaxUploadBytes:    viper.GetInt64("max_upload_bytes"),
		SSEHeartbeat:      viper.GetDuration("sse_heartbeat"),

		CatalogCacheTTL: viper.GetDuration("catalog_cache_ttl"),
		PolicyFile:      viper.GetString("policy_file"),
	}

	// Normalize database type
	switch strings.ToLower(AppConfig.DatabaseType) {
	case "sqlite", "sqlite3":
		AppConfig.DatabaseType = "sqlite"
	default:
		AppConfig.DatabaseType = "pebble"
	}
	if len(AppConfig.OracleAPIKeys) == 0 {
		AppConfig.OracleAPIKeys = splitList([]string{os.Getenv("ORACLE_API_KEYS")})
	}
	if AppConfig.Workers < 1 {
		AppConfig.Workers = 1
	}
	// A key list implies the oracle unless it was switched off explicitly.
	if len(AppConfig.OracleAPIKeys) > 0 && !viper.IsSet("oracle_enabled") {
		AppConfig.OracleEnabled = true
	}
}

// MatcherPolicy builds the engine policy from the configured thresholds.
// An invalid combination falls back to the reference policy.
func (c Config) MatcherPolicy() matcher.Policy {
	p := matcher.Policy{
		AutoMatchThreshold: c.AutoMatchThreshold,
		EscalateThreshold:  c.EscalateThreshold,
		ReviewThreshold:    c.ReviewThreshold,
		EditWeight:         c.EditWeight,
		TokenWeight:        c.TokenWeight,
		ShortlistFloor:     c.ShortlistFloor,
		ShortlistSize:      c.ShortlistSize,
		OracleTimeout:      c.OracleTimeout,
		ArcVocabulary:      c.ArcVocabulary,
		SpinoffVocabulary:  c.SpinoffVocabulary,
	}
	if p.Validate() != nil {
		return matcher.DefaultPolicy()
	}
	return p
}

// splitList flattens comma-separated entries, which is how list values
// arrive from environment variables such as MANGA_ORACLE_API_KEYS.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
