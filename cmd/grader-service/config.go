package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bugdojo/internal/common/cache"
	"bugdojo/internal/common/db"
	"bugdojo/internal/common/mq"
	"bugdojo/internal/common/storage"
	"bugdojo/internal/grader/aigen"
	"bugdojo/internal/grader/sandbox"
	"bugdojo/internal/grader/sandbox/engine"
	"bugdojo/internal/grader/service"
	"bugdojo/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultArchiveBucket = "submissions"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// ArchiveConfig holds submission archive settings.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
}

// AppConfig holds grader-service configuration. Database, Redis, Kafka and
// MinIO are all optional: a zero value disables that integration and the
// service runs on the built-in demo problems.
type AppConfig struct {
	Server   ServerConfig         `yaml:"server"`
	Logger   logger.Config        `yaml:"logger"`
	Database db.MySQLConfig       `yaml:"database"`
	Redis    cache.RedisConfig    `yaml:"redis"`
	Kafka    mq.KafkaConfig       `yaml:"kafka"`
	MinIO    storage.MinIOConfig  `yaml:"minio"`
	Archive  ArchiveConfig        `yaml:"archive"`
	Engine   engine.Config        `yaml:"engine"`
	Executor sandbox.Config       `yaml:"executor"`
	Grading  service.GradeOptions `yaml:"grading"`
	AIGen    aigen.Config         `yaml:"aigen"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Archive.Bucket == "" {
		cfg.Archive.Bucket = defaultArchiveBucket
	}
	if cfg.Executor.MaxConcurrent == 0 {
		cfg.Executor.MaxConcurrent = sandbox.DefaultConfig().MaxConcurrent
	}
	if cfg.AIGen.BaseURL == "" {
		defaults := aigen.DefaultConfig()
		defaults.APIKey = cfg.AIGen.APIKey
		if cfg.AIGen.Model != "" {
			defaults.Model = cfg.AIGen.Model
		}
		cfg.AIGen = defaults
	}
	if cfg.AIGen.APIKey == "" {
		cfg.AIGen.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &cfg, nil
}
