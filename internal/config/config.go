package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Safety     SafetyConfig     `mapstructure:"safety"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Callback   CallbackConfig   `mapstructure:"callback"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TLS       bool   `mapstructure:"tls"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled    bool               `mapstructure:"enabled"`
	URL        string             `mapstructure:"url"`
	StreamName string             `mapstructure:"stream_name"`
	Subjects   NATSSubjectsConfig `mapstructure:"subjects"`
}

type NATSSubjectsConfig struct {
	Intelligence string `mapstructure:"intelligence"`
	Terminated   string `mapstructure:"terminated"`
	ScamDetected string `mapstructure:"scam_detected"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// EngagementConfig controls per-session conversation behavior.
type EngagementConfig struct {
	MaxMemoryTurns      int           `mapstructure:"max_memory_turns"`
	MaxTurns            int           `mapstructure:"max_turns"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	TerminationKeywords []string      `mapstructure:"termination_keywords"`
}

type ClassifierConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ScamThreshold float64       `mapstructure:"scam_threshold"`
	TypeThreshold float64       `mapstructure:"type_threshold"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type GeneratorConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
}

type ExtractorConfig struct {
	NERAPIURL     string        `mapstructure:"ner_api_url"`
	NERAPIKey     string        `mapstructure:"ner_api_key"`
	NERModel      string        `mapstructure:"ner_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Scope         string        `mapstructure:"scope"` // "message" or "transcript"
}

type SafetyConfig struct {
	ExemptEchoedDigits bool `mapstructure:"exempt_echoed_digits"`
}

type ScoringConfig struct {
	Weights ScoringWeights `mapstructure:"weights"`
}

type ScoringWeights struct {
	ScamProbability float64 `mapstructure:"scam_probability"`
	EntityVolume    float64 `mapstructure:"entity_volume"`
	RiskFlags       float64 `mapstructure:"risk_flags"`
}

type CallbackConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/scambait-lab")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("SCAMBAIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.enabled", "SCAMBAIT_REDIS_ENABLED")
	v.BindEnv("redis.tls", "SCAMBAIT_REDIS_TLS")
	v.BindEnv("redis.host", "SCAMBAIT_REDIS_HOST")
	v.BindEnv("redis.port", "SCAMBAIT_REDIS_PORT")
	v.BindEnv("redis.password", "SCAMBAIT_REDIS_PASSWORD")
	v.BindEnv("database.enabled", "SCAMBAIT_DATABASE_ENABLED")
	v.BindEnv("database.host", "SCAMBAIT_DATABASE_HOST")
	v.BindEnv("database.port", "SCAMBAIT_DATABASE_PORT")
	v.BindEnv("database.user", "SCAMBAIT_DATABASE_USER")
	v.BindEnv("database.password", "SCAMBAIT_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "SCAMBAIT_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "SCAMBAIT_DATABASE_SSLMODE")
	v.BindEnv("nats.enabled", "SCAMBAIT_NATS_ENABLED")
	v.BindEnv("nats.url", "SCAMBAIT_NATS_URL")
	v.BindEnv("app.environment", "SCAMBAIT_APP_ENVIRONMENT")
	v.BindEnv("auth.api_key", "SCAMBAIT_AUTH_API_KEY")
	v.BindEnv("classifier.api_key", "SCAMBAIT_CLASSIFIER_API_KEY")
	v.BindEnv("generator.api_key", "SCAMBAIT_GENERATOR_API_KEY")
	v.BindEnv("extractor.ner_api_key", "SCAMBAIT_EXTRACTOR_NER_API_KEY")
	v.BindEnv("callback.url", "SCAMBAIT_CALLBACK_URL")

	// Read config file; env-only operation is fine when none is found
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "scambait-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "scambait")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "ENGAGEMENTS")
	v.SetDefault("nats.subjects.intelligence", "engagements.intelligence")
	v.SetDefault("nats.subjects.terminated", "engagements.terminated")
	v.SetDefault("nats.subjects.scam_detected", "engagements.scam_detected")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.requests_per_hour", 3000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("engagement.max_memory_turns", 10)
	v.SetDefault("engagement.max_turns", 20)
	v.SetDefault("engagement.session_ttl", time.Hour)
	v.SetDefault("engagement.sweep_interval", 10*time.Minute)
	v.SetDefault("engagement.termination_keywords", []string{
		"goodbye", "bye", "hang up", "stop calling", "not interested",
	})

	v.SetDefault("classifier.timeout", 10*time.Second)
	v.SetDefault("classifier.scam_threshold", 0.5)
	v.SetDefault("classifier.type_threshold", 0.3)
	v.SetDefault("classifier.cache_ttl", 15*time.Minute)

	v.SetDefault("generator.timeout", 20*time.Second)
	v.SetDefault("generator.max_tokens", 150)
	v.SetDefault("generator.temperature", 0.7)

	v.SetDefault("extractor.timeout", 10*time.Second)
	v.SetDefault("extractor.min_confidence", 0.5)
	v.SetDefault("extractor.scope", "message")

	v.SetDefault("safety.exempt_echoed_digits", false)

	v.SetDefault("scoring.weights.scam_probability", 0.6)
	v.SetDefault("scoring.weights.entity_volume", 0.2)
	v.SetDefault("scoring.weights.risk_flags", 0.2)

	v.SetDefault("callback.timeout", 10*time.Second)
}
