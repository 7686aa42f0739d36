package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for cartscout.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Crawler CrawlerConfig `mapstructure:"crawler" yaml:"crawler"`
	Auth    AuthConfig    `mapstructure:"auth"    yaml:"auth"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SiteConfig identifies the target retail site.
type SiteConfig struct {
	BaseURL    string `mapstructure:"base_url"     yaml:"base_url"`
	SignInPath string `mapstructure:"sign_in_path" yaml:"sign_in_path"`
}

// CrawlerConfig controls fetching and pacing.
type CrawlerConfig struct {
	Delay             time.Duration `mapstructure:"delay"                yaml:"delay"`
	PageDelay         time.Duration `mapstructure:"page_delay"           yaml:"page_delay"`
	MaxRetries        int           `mapstructure:"max_retries"          yaml:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"          yaml:"retry_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"      yaml:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"  yaml:"requests_per_minute"`
	UserAgent         string        `mapstructure:"user_agent"           yaml:"user_agent"`
	RespectRobotsTxt  bool          `mapstructure:"respect_robots_txt"   yaml:"respect_robots_txt"`
	MaxReviewsPerPage int           `mapstructure:"max_reviews_per_page" yaml:"max_reviews_per_page"`
}

// AuthConfig controls the scripted login flow and session persistence.
type AuthConfig struct {
	CookiesFile     string        `mapstructure:"cookies_file"     yaml:"cookies_file"`
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout" yaml:"liveness_timeout"`
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
}

// StorageConfig controls result output.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	DataDir         string `mapstructure:"data_dir"         yaml:"data_dir"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:    "https://www.amazon.com",
			SignInPath: "/ap/signin",
		},
		Crawler: CrawlerConfig{
			Delay:             2 * time.Second,
			PageDelay:         1 * time.Second,
			MaxRetries:        3,
			RetryDelay:        1 * time.Second,
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 30,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RespectRobotsTxt:  true,
			MaxReviewsPerPage: 10,
		},
		Auth: AuthConfig{
			CookiesFile:     "cookies.json",
			LivenessTimeout: 10 * time.Second,
			Headless:        true,
		},
		Storage: StorageConfig{
			Type:            "json",
			DataDir:         "data",
			MongoDatabase:   "cartscout",
			MongoCollection: "products",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
