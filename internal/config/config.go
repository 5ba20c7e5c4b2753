package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	MinIO   MinIOConfig   `yaml:"minio" mapstructure:"minio"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	PDF     PDFConfig     `yaml:"pdf" mapstructure:"pdf"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the snapshot persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MinIOConfig holds object storage settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// RedisConfig holds Redis snapshot store settings.
type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// PDFConfig configures PDF text extraction and field templates.
type PDFConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
	TemplatesPath string `yaml:"templates_path" mapstructure:"templates_path"`
}

// ExtractConfig configures the site extractors.
type ExtractConfig struct {
	PatternsPath string `yaml:"patterns_path" mapstructure:"patterns_path"`
}

// SessionConfig configures per-site timeouts and pacing.
type SessionConfig struct {
	HandlerTimeoutMs int            `yaml:"handler_timeout_ms" mapstructure:"handler_timeout_ms"`
	StallTimeoutMs   int            `yaml:"stall_timeout_ms" mapstructure:"stall_timeout_ms"`
	SiteTimeoutsMs   map[string]int `yaml:"site_timeouts_ms" mapstructure:"site_timeouts_ms"`
	SiteDelayMs      int            `yaml:"site_delay_ms" mapstructure:"site_delay_ms"`
	RetryAttempts    int            `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// StallTimeout returns the post-login stall timeout for a site.
func (s SessionConfig) StallTimeout(site string) time.Duration {
	if ms, ok := s.SiteTimeoutsMs[strings.ToLower(site)]; ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return time.Duration(s.StallTimeoutMs) * time.Millisecond
}

// ExportConfig configures CSV/XLSX exports.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEBT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", "extracted_data")
	v.SetDefault("store.sqlite_path", "debt.db")
	v.SetDefault("minio.bucket", "debt-snapshots")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "debt:")
	v.SetDefault("redis.ttl_hours", 0)
	v.SetDefault("pdf.provider", "local")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("pdf.mistral_model", "mistral-ocr-latest")
	v.SetDefault("session.handler_timeout_ms", 300000)
	v.SetDefault("session.stall_timeout_ms", 180000)
	v.SetDefault("session.site_timeouts_ms", map[string]int{
		"si":     60000,
		"intrum": 3000000,
	})
	v.SetDefault("session.site_delay_ms", 2000)
	v.SetDefault("session.retry_attempts", 2)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "file":
		if c.Store.Dir == "" {
			missing = append(missing, "store.dir is required")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			missing = append(missing, "store.sqlite_path is required")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	case "minio":
		if c.MinIO.Endpoint == "" {
			missing = append(missing, "minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			missing = append(missing, "minio.bucket is required")
		}
	case "redis":
		if c.Redis.Addr == "" {
			missing = append(missing, "redis.addr is required")
		}
	default:
		missing = append(missing, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	case "parse-pdf", "replay":
		if c.PDF.Provider == "mistral" && c.PDF.MistralKey == "" {
			missing = append(missing, "pdf.mistral_api_key is required")
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
