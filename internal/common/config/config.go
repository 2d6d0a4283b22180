package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers" validate:"dive"`
	Interpreter   InterpreterConfig       `mapstructure:"interpreter"`
	Session       SessionConfig           `mapstructure:"session"`
	Fallback      FallbackConfig          `mapstructure:"fallback"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active" validate:"gte=0"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdle        int    `mapstructure:"max_idle" validate:"gte=0"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single URL, folded into Addresses
	Index     string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active" validate:"gte=0"`
	Timeout       int  `mapstructure:"timeout" validate:"gte=0"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries" validate:"gte=0"` // For error handling
}

// --- Assistant Configuration ---

// InterpreterConfig tunes the interpretation pipeline.
type InterpreterConfig struct {
	FallbackThreshold float64 `mapstructure:"fallback_threshold" validate:"gte=0,lte=1"`
	RequestTimeout    int     `mapstructure:"request_timeout" validate:"gte=0"` // milliseconds
	// RulesFile replaces the built-in intent rule table when set.
	RulesFile string `mapstructure:"rules_file"`
	// Catalog selects the inventory backend.
	Catalog  string `mapstructure:"catalog" validate:"oneof=memory postgres"`
	Search   bool   `mapstructure:"search"`
	Cache    bool   `mapstructure:"cache"`
	CacheTTL int    `mapstructure:"cache_ttl" validate:"gte=0"` // milliseconds
}

// SessionConfig selects and tunes the session context store.
type SessionConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL           int    `mapstructure:"ttl" validate:"gte=0"`            // milliseconds
	SweepInterval int    `mapstructure:"sweep_interval" validate:"gte=0"` // milliseconds
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// FallbackConfig configures the optional model-backed classifier.
type FallbackConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	APIKey  string  `mapstructure:"api_key"`
	Model   string  `mapstructure:"model"`
	Timeout int     `mapstructure:"timeout" validate:"gte=0"` // milliseconds
	Rate    float64 `mapstructure:"rate" validate:"gte=0"`    // calls per second
	Burst   int     `mapstructure:"burst" validate:"gte=0"`
}

// NotificationConfig holds settings for low-stock alerts.
type NotificationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
	Timeout   int    `mapstructure:"timeout" validate:"gte=0"` // milliseconds
	SNS       struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email" validate:"omitempty,email"`
		ToEmails  []string `mapstructure:"to_emails" validate:"dive,email"`
	} `mapstructure:"ses"`
}

// ObservabilityConfig holds metrics and tracing settings.
type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}
