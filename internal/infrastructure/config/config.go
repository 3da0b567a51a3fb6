package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/docforge/backend/internal/domain/printing"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Log        LogConfig
	Storage    StorageConfig
	Printing   PrintingConfig
	Generation GenerationConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite database file
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// StorageConfig holds the local file store and optional object mirror settings
type StorageConfig struct {
	BasePath string
	BaseURL  string
	Optimize bool // re-encode PNG and JPEG uploads

	Mirror            string // none, s3, minio
	Bucket            string
	Endpoint          string
	Region            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// PrintingConfig holds PDF encoder settings
type PrintingConfig struct {
	Engine            string // chromedp, wkhtmltopdf
	PageSize          string // A4, Letter, Legal
	DefaultFontFamily string
	Timeout           time.Duration
	ChromeRemoteURL   string
	NoSandbox         bool
	WkhtmltopdfPath   string
	QRModuleSize      int
}

// GenerationConfig holds pipeline behavior settings
type GenerationConfig struct {
	// Strict turns unresolved variables and missing asset files into errors
	Strict         bool
	TempCleanupAge time.Duration
}

// TelemetryConfig holds OpenTelemetry and metrics configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
	// MetricsTextfile, when set, receives Prometheus metrics in text format on exit
	MetricsTextfile string
}

// Enumerations accepted by validate
var (
	DatabaseDrivers = []string{"postgres", "sqlite"}
	PrintingEngines = []string{"chromedp", "wkhtmltopdf"}
	MirrorDrivers   = []string{"none", "s3", "minio"}
)

// Load loads configuration from config.toml in the usual locations and the environment
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from the given file (or the usual locations when
// empty), then environment variables.
// Priority (highest to lowest):
// 1. Environment variables with DOCGEN_ prefix (e.g., DOCGEN_STORAGE_BASE_PATH)
// 2. Variables from an optional .env file in the working directory
// 3. The config file
// 4. Built-in defaults
func LoadFrom(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/docgen")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DOCGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage.optimize", true)
	v.SetDefault("storage.use_path_style", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Storage: StorageConfig{
			BasePath:          v.GetString("storage.base_path"),
			BaseURL:           v.GetString("storage.base_url"),
			Optimize:          v.GetBool("storage.optimize"),
			Mirror:            v.GetString("storage.mirror"),
			Bucket:            v.GetString("storage.bucket"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Printing: PrintingConfig{
			Engine:            v.GetString("printing.engine"),
			PageSize:          v.GetString("printing.page_size"),
			DefaultFontFamily: v.GetString("printing.default_font_family"),
			Timeout:           v.GetDuration("printing.timeout"),
			ChromeRemoteURL:   v.GetString("printing.chrome_remote_url"),
			NoSandbox:         v.GetBool("printing.no_sandbox"),
			WkhtmltopdfPath:   v.GetString("printing.wkhtmltopdf_path"),
			QRModuleSize:      v.GetInt("printing.qr_module_size"),
		},
		Generation: GenerationConfig{
			Strict:         v.GetBool("generation.strict"),
			TempCleanupAge: v.GetDuration("generation.temp_cleanup_age"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsTextfile:   v.GetString("telemetry.metrics_textfile"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "docgen"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "docgen"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "docgen.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./data"
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "/files"
	}
	if cfg.Storage.Mirror == "" {
		cfg.Storage.Mirror = "none"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Printing.Engine == "" {
		cfg.Printing.Engine = "chromedp"
	}
	if cfg.Printing.PageSize == "" {
		cfg.Printing.PageSize = string(printing.PageSizeA4)
	}
	if cfg.Printing.DefaultFontFamily == "" {
		cfg.Printing.DefaultFontFamily = printing.DefaultFontFamily
	}
	// zero keeps the encoder default
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
	if cfg.Printing.WkhtmltopdfPath == "" {
		cfg.Printing.WkhtmltopdfPath = "wkhtmltopdf"
	}
	if cfg.Printing.QRModuleSize == 0 {
		cfg.Printing.QRModuleSize = 10
	}
	if cfg.Generation.TempCleanupAge == 0 {
		cfg.Generation.TempCleanupAge = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "docgen"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !slices.Contains(DatabaseDrivers, c.Database.Driver) {
		return fmt.Errorf("database.driver must be one of %v, got %q", DatabaseDrivers, c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if !slices.Contains(PrintingEngines, c.Printing.Engine) {
		return fmt.Errorf("printing.engine must be one of %v, got %q", PrintingEngines, c.Printing.Engine)
	}
	if _, err := c.Printing.ParsedPageSize(); err != nil {
		return fmt.Errorf("printing.page_size: %w", err)
	}
	if c.Printing.Timeout < 0 {
		return fmt.Errorf("printing.timeout cannot be negative")
	}
	if c.Printing.QRModuleSize < 1 || c.Printing.QRModuleSize > 50 {
		return fmt.Errorf("printing.qr_module_size must be between 1 and 50, got %d", c.Printing.QRModuleSize)
	}

	if !slices.Contains(MirrorDrivers, c.Storage.Mirror) {
		return fmt.Errorf("storage.mirror must be one of %v, got %q", MirrorDrivers, c.Storage.Mirror)
	}
	if c.Storage.Mirror != "none" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.mirror is %q", c.Storage.Mirror)
	}
	if c.Generation.TempCleanupAge < 0 {
		return fmt.Errorf("generation.temp_cleanup_age cannot be negative")
	}

	if c.App.Env == "production" && c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// ParsedPageSize returns the configured page size
func (p PrintingConfig) ParsedPageSize() (printing.PageSize, error) {
	return printing.ParsePageSize(p.PageSize)
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
