package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Reaper    ReaperConfig    `mapstructure:"reaper"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// AIConfig 出题模型配置。APIKeys 可配置多个，每次调用随机选取一个。
type AIConfig struct {
	APIKeys        []string `mapstructure:"api_keys"`
	Model          string   `mapstructure:"model"`
	MaxSourceChars int      `mapstructure:"max_source_chars"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string // mysql, postgres, sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	Path      string // sqlite 文件路径
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioSecure   bool   `mapstructure:"minio_secure"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// QuizConfig 组卷与作答相关的默认值
type QuizConfig struct {
	// StrictCapacity 为 true 时，提交成绩会在同一事务内锁定试卷、重新计数后再写入
	StrictCapacity         bool          `mapstructure:"strict_capacity"`
	TicketTTL              time.Duration `mapstructure:"ticket_ttl_hours"`
	PublicBaseURL          string        `mapstructure:"public_base_url"`
	DefaultTimeLimit       int           `mapstructure:"default_time_limit"`
	DefaultMaxStudents     int           `mapstructure:"default_max_students"`
	DefaultQuestionsToShow int           `mapstructure:"default_questions_to_show"`
	DefaultQuestionCount   int           `mapstructure:"default_question_count"`
	MaxQuestionCount       int           `mapstructure:"max_question_count"`
}

// ReaperConfig 已删除试卷的定期清理
type ReaperConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Schedule      string `mapstructure:"schedule"`
	RetentionDays int    `mapstructure:"retention_days"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("QUIZGEN")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")
	viper.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("server.port", "PORT")

	// AI
	viper.BindEnv("ai.api_keys", "GEMINI_API_KEYS")
	viper.BindEnv("ai.model", "GEMINI_MODEL")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Quiz
	viper.BindEnv("quiz.strict_capacity", "QUIZ_STRICT_CAPACITY")
	viper.BindEnv("quiz.public_base_url", "PUBLIC_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Quiz.TicketTTL = cfg.Quiz.TicketTTL * time.Hour
	cfg.AI.APIKeys = cleanKeys(cfg.AI.APIKeys)
	cfg.applyDefaults()

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.JWT.ExpireTime <= 0 {
		c.JWT.ExpireTime = 24 * time.Hour
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-flash-latest"
	}
	if c.AI.MaxSourceChars <= 0 {
		c.AI.MaxSourceChars = 4000
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 120
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.LocalPath == "" {
		c.Storage.LocalPath = "uploads"
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = 20
	}
	if c.Quiz.TicketTTL <= 0 {
		c.Quiz.TicketTTL = 24 * time.Hour
	}
	if c.Quiz.DefaultTimeLimit <= 0 {
		c.Quiz.DefaultTimeLimit = 20
	}
	if c.Quiz.DefaultMaxStudents <= 0 {
		c.Quiz.DefaultMaxStudents = 100
	}
	if c.Quiz.DefaultQuestionsToShow <= 0 {
		c.Quiz.DefaultQuestionsToShow = 20
	}
	if c.Quiz.DefaultQuestionCount <= 0 {
		c.Quiz.DefaultQuestionCount = 5
	}
	if c.Quiz.MaxQuestionCount <= 0 {
		c.Quiz.MaxQuestionCount = 100
	}
	if c.Reaper.Schedule == "" {
		c.Reaper.Schedule = "@daily"
	}
	if c.Reaper.RetentionDays <= 0 {
		c.Reaper.RetentionDays = 30
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 600
	}
	if c.RateLimit.WindowMinutes <= 0 {
		c.RateLimit.WindowMinutes = 1
	}
}

// cleanKeys 去掉空白和空项，环境变量里的 "k1, k2" 也能正确解析
func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, part := range strings.Split(k, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
