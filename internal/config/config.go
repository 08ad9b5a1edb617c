package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"proxycrawl/internal/logger"
)

var configLogger = logger.New("config")

type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper" validate:"required"`
	Checker  CheckerConfig  `mapstructure:"checker" validate:"required"`
	Store    StoreConfig    `mapstructure:"store" validate:"required"`
	Crawler  CrawlerConfig  `mapstructure:"crawler" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
}

type ScraperConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	Format          string        `mapstructure:"format" validate:"required,oneof=table text"`
	TableSelector   string        `mapstructure:"table_selector"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"required,min=1s,max=2m"`
	UserAgents      []string      `mapstructure:"user_agents"`
	RandomUserAgent bool          `mapstructure:"random_user_agent"`
	StrictParsing   bool          `mapstructure:"strict_parsing"`
}

type CheckerConfig struct {
	TestURL     string        `mapstructure:"test_url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"required,min=1s,max=1m"`
	MaxWorkers  int           `mapstructure:"max_workers" validate:"required,min=1,max=200"`
	ProxyScheme string        `mapstructure:"proxy_scheme" validate:"required,oneof=http socks5"`
	DelayMin    time.Duration `mapstructure:"delay_min" validate:"min=0s"`
	DelayMax    time.Duration `mapstructure:"delay_max" validate:"gtefield=DelayMin"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required,min=1"`
}

type CrawlerConfig struct {
	CountriesURL  string        `mapstructure:"countries_url" validate:"required,url"`
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	ArchivePrefix string        `mapstructure:"archive_prefix" validate:"required,url"`
	ArchiveSuffix string        `mapstructure:"archive_suffix" validate:"required"`
	DataDir       string        `mapstructure:"data_dir" validate:"required,min=1"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"required,min=1s,max=5m"`
	Parallelism   int           `mapstructure:"parallelism" validate:"required,min=1,max=64"`
	DelayMin      time.Duration `mapstructure:"delay_min" validate:"min=0s"`
	DelayMax      time.Duration `mapstructure:"delay_max" validate:"gtefield=DelayMin"`
	ProxyScheme   string        `mapstructure:"proxy_scheme" validate:"required,oneof=http socks5"`
	MaxCountries  int           `mapstructure:"max_countries" validate:"min=0"`
}

type DatabaseConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path" validate:"required_if=Enabled true"`
	MaxAge  time.Duration `mapstructure:"max_age" validate:"omitempty,min=1h,max=8760h"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty,listen_addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=console json"`
}

// DefaultMaxWorkers mirrors a thread pool sized from the CPU count, capped at
// the validator limit.
func DefaultMaxWorkers() int {
	n := runtime.NumCPU() * 5
	if n > 200 {
		n = 200
	}
	return n
}

// setDefaults configures default values for viper
func setDefaults(v *viper.Viper) {
	// Scraper defaults
	v.SetDefault("scraper.url", "https://free-proxy-list.net/")
	v.SetDefault("scraper.format", "table")
	v.SetDefault("scraper.table_selector", "table.table.table-striped.table-bordered")
	v.SetDefault("scraper.timeout", "5s")
	v.SetDefault("scraper.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	})
	v.SetDefault("scraper.random_user_agent", false)
	v.SetDefault("scraper.strict_parsing", false)

	// Checker defaults
	v.SetDefault("checker.test_url", "https://ipinfo.io/json")
	v.SetDefault("checker.timeout", "5s")
	v.SetDefault("checker.max_workers", DefaultMaxWorkers())
	v.SetDefault("checker.proxy_scheme", "http")
	v.SetDefault("checker.delay_min", "1s")
	v.SetDefault("checker.delay_max", "5s")

	// Store defaults
	v.SetDefault("store.path", "./proxy/proxy_list.txt")

	// Crawler defaults
	v.SetDefault("crawler.countries_url", "https://data.worldbank.org/country")
	v.SetDefault("crawler.base_url", "https://data.worldbank.org")
	v.SetDefault("crawler.archive_prefix", "https://api.worldbank.org/v2/en/country/")
	v.SetDefault("crawler.archive_suffix", "csv")
	v.SetDefault("crawler.data_dir", "./data")
	v.SetDefault("crawler.timeout", "10s")
	v.SetDefault("crawler.parallelism", 4)
	v.SetDefault("crawler.delay_min", "1s")
	v.SetDefault("crawler.delay_max", "5s")
	v.SetDefault("crawler.proxy_scheme", "http")
	v.SetDefault("crawler.max_countries", 0)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "./proxy/history.db")
	v.SetDefault("database.max_age", "168h")

	// Metrics defaults
	v.SetDefault("metrics.listen_addr", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig loads configuration from multiple sources with validation
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/proxycrawl")

	// Set environment variable prefix and enable reading from env
	v.SetEnvPrefix("PROXYCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Load .env file into the process environment if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		configLogger.WarnBg("Failed to load .env file: %v", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		configLogger.InfoBg("No config file found, using defaults and environment variables")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate runs the struct validation rules against an already built config
func Validate(config *Config) error {
	validate := validator.New()

	if err := registerCustomValidators(validate); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// registerCustomValidators adds custom validation rules
func registerCustomValidators(validate *validator.Validate) error {
	// host:port, where the host part may be empty (":9090")
	return validate.RegisterValidation("listen_addr", func(fl validator.FieldLevel) bool {
		addr := fl.Field().String()
		idx := strings.LastIndex(addr, ":")
		return idx >= 0 && idx < len(addr)-1
	})
}

// SaveConfigTemplate generates a sample configuration file
func SaveConfigTemplate(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}

	return nil
}

// PrintConfig displays the current configuration (for debugging)
func PrintConfig(config *Config) {
	configLogger.InfoBg("Configuration loaded:")
	configLogger.InfoBg("  Scraper: %s (format: %s, strict: %v, user agents: %d)",
		config.Scraper.URL, config.Scraper.Format, config.Scraper.StrictParsing, len(config.Scraper.UserAgents))
	configLogger.InfoBg("  Checker: %d workers, %v timeout, delay %v-%v, scheme: %s, test url: %s",
		config.Checker.MaxWorkers, config.Checker.Timeout, config.Checker.DelayMin, config.Checker.DelayMax,
		config.Checker.ProxyScheme, config.Checker.TestURL)
	configLogger.InfoBg("  Store: %s", config.Store.Path)
	configLogger.InfoBg("  Crawler: %s -> %s (parallelism: %d)", config.Crawler.CountriesURL, config.Crawler.DataDir, config.Crawler.Parallelism)
	if config.Database.Enabled {
		configLogger.InfoBg("  Database: %s (Max Age: %v)", config.Database.Path, config.Database.MaxAge)
	} else {
		configLogger.InfoBg("  Database: [DISABLED]")
	}
	if config.Metrics.ListenAddr != "" {
		configLogger.InfoBg("  Metrics: %s", config.Metrics.ListenAddr)
	}
}
