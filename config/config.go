package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env        string
	ServerPort int
	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP set the client
	// address. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
	Database          DatabaseConfig
	JWT               JWTConfig
	Upload            UploadConfig
	Storage           StorageConfig
	Redis             RedisConfig
	MQ                MQConfig
	RateLimit         RateLimitConfig
	Log               LogConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type UploadConfig struct {
	// MaxFileSize is the largest accepted resume, in bytes.
	MaxFileSize int64
}

type StorageConfig struct {
	// Backend is one of "local", "minio" or "gcs".
	Backend string
	Local   LocalStorageConfig
	Minio   MinioConfig
	GCS     GCSConfig
}

type LocalStorageConfig struct {
	Path string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	URL string
}

type MQConfig struct {
	// Backend is one of "rabbitmq", "pubsub" or empty to disable events.
	Backend  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL string
	// Exchange is the topic exchange events are routed through.
	Exchange      string
	QueueDurable  bool
	PrefetchCount int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type RateLimitConfig struct {
	AuthPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() Config {
	env := getEnv("ENV", EnvDevelopment)
	if env == EnvDevelopment || env == "dev" {
		_ = godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "hirehub"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "hirehub_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	storageConfig := StorageConfig{
		Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		Local: LocalStorageConfig{
			Path: getEnv("UPLOAD_PATH", "public/uploads"),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "resumes"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	mqConfig := MQConfig{
		Backend: strings.ToLower(getEnv("MQ_BACKEND", "")),
		RabbitMQ: RabbitMQConfig{
			URL:           getEnv("RABBITMQ_URL", ""),
			Exchange:      getEnv("RABBITMQ_EXCHANGE", "hirehub.events"),
			QueueDurable:  getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			PrefetchCount: getEnvInt("RABBITMQ_PREFETCH_COUNT", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		Env:               env,
		ServerPort:        getEnvInt("SERVER_PORT", 8080),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		Database:          dbConfig,
		JWT: JWTConfig{
			Secret:    strings.TrimSpace(getEnv("JWT_SECRET", "")),
			ExpiresIn: getEnvDuration("JWT_EXPIRES_TIME", 7*24*time.Hour),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvInt64("UPLOAD_MAX_FILE_SIZE", 2<<20),
		},
		Storage: storageConfig,
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		MQ: mqConfig,
		RateLimit: RateLimitConfig{
			AuthPerMinute: getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 20),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.ExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_TIME must be positive")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.RateLimit.AuthPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_AUTH_PER_MINUTE must be positive")
	}
	switch c.Storage.Backend {
	case "local", "minio", "gcs":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.MQ.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		return fmt.Errorf("unsupported MQ_BACKEND %q", c.MQ.Backend)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int64
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
