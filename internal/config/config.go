package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig
	CMS       CMSConfig
	Providers ProvidersConfig
	Upload    UploadConfig
	Jobs      JobsConfig
	Auth      AuthConfig
	Kafka     KafkaConfig
	Logging   LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CMSConfig holds the connection to the CMS backend REST API
type CMSConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// ProvidersConfig holds the external media provider endpoints
type ProvidersConfig struct {
	Cloudinary CloudinaryConfig
	Mux        MuxConfig
}

// CloudinaryConfig holds the image/asset provider configuration. The
// provider's private signing secret stays on the CMS backend; only the
// public API key lives here.
type CloudinaryConfig struct {
	BaseURL   string
	CloudName string
	APIKey    string
	Folder    string
}

// MuxConfig holds the video streaming provider configuration
type MuxConfig struct {
	ChunkSize int64
}

// UploadConfig holds selection and staging limits
type UploadConfig struct {
	MaxImageSize int64
	MaxVideoSize int64
	SpoolDir     string
	SpoolTTL     time.Duration
}

// JobsConfig holds job registry behavior
type JobsConfig struct {
	CompletedTTL time.Duration
}

// AuthConfig holds authentication specific configuration
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// KafkaConfig holds the content-changed broadcast configuration
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	ClientID string
	Topic    string
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Read from environment variables
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")

	// CMS defaults
	v.SetDefault("cms.baseURL", "http://localhost:8000")
	v.SetDefault("cms.timeout", "30s")

	// Provider defaults
	v.SetDefault("providers.cloudinary.baseURL", "https://api.cloudinary.com")
	v.SetDefault("providers.cloudinary.folder", "studio")
	v.SetDefault("providers.mux.chunkSize", 5*1024*1024)

	// Upload defaults
	v.SetDefault("upload.maxImageSize", 10*1024*1024)
	v.SetDefault("upload.maxVideoSize", 500*1024*1024)
	v.SetDefault("upload.spoolDir", "/tmp/studio-media/spool")
	v.SetDefault("upload.spoolTTL", "24h")

	// Job registry defaults
	v.SetDefault("jobs.completedTTL", "5s")

	// Auth defaults
	v.SetDefault("auth.enabled", true)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.clientID", "studio-media")
	v.SetDefault("kafka.topic", "content.changed")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
