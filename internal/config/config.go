// Package config loads runtime settings from the environment, with an
// optional YAML registry overriding per-backend model settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/models"
)

// Config is the application configuration.
type Config struct {
	ServiceName string
	Host        string
	Port        int
	GinMode     string
	LogLevel    string

	DefaultModel models.ModelType

	SessionTTL      time.Duration
	SessionMaxTurns int

	Backends map[models.ModelType]*llm.Config
}

// registryFile is the YAML shape of an optional per-backend settings file.
// Credentials never live in it; those stay in the environment.
type registryFile struct {
	Backends []llm.Config `yaml:"backends"`
}

// Load reads .env (config/.env first, then ./.env) and assembles the full
// configuration. Missing credentials are not an error here; the backend
// simply fails construction later.
func Load(log *logrus.Logger) (*Config, error) {
	for _, path := range []string{"config/.env", ".env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				log.WithField("path", path).Debug("loaded .env file")
				break
			}
		}
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "meetinsight"),
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnvAsInt("PORT", 8080),
		GinMode:     getEnv("GIN_MODE", "release"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DefaultModel: models.ModelType(getEnv("DEFAULT_MODEL", string(models.ModelApertus))),

		SessionTTL:      getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionMaxTurns: getEnvAsInt("SESSION_MAX_TURNS", 100),

		Backends: map[models.ModelType]*llm.Config{
			models.ModelApertus: {
				Provider: models.ModelApertus,
				APIKey:   getEnv("APERTUS_API_KEY", ""),
				BaseURL:  getEnv("APERTUS_API_URL", ""),
				Model:    getEnv("APERTUS_MODEL", ""),
			},
			models.ModelAzureOpenAI: {
				Provider: models.ModelAzureOpenAI,
				APIKey:   getEnv("AZURE_OPENAI_API_KEY", ""),
				BaseURL:  getEnv("AZURE_OPENAI_API_ENDPOINT", ""),
				Model:    getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			},
			models.ModelHuggingFace: {
				Provider: models.ModelHuggingFace,
				APIKey:   getEnv("HF_TOKEN", ""),
				BaseURL:  getEnv("HF_ENDPOINT_URL", ""),
				Model:    getEnv("HF_MODEL", ""),
			},
			models.ModelLocal: {
				Provider: models.ModelLocal,
				BaseURL:  getEnv("LOCAL_LLM_URL", ""),
				Model:    getEnv("LOCAL_LLM_MODEL", ""),
			},
		},
	}

	for _, bc := range cfg.Backends {
		bc.Timeout = getEnvAsDuration("LLM_TIMEOUT", 60*time.Second)
		bc.RateLimit = getEnvAsInt("LLM_RATE_LIMIT", 60)
		bc.MaxFailures = getEnvAsInt("LLM_MAX_FAILURES", 5)
	}

	if path := getEnv("MODELS_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyRegistry(path); err != nil {
			return nil, fmt.Errorf("apply model registry %s: %w", path, err)
		}
		log.WithField("path", path).Info("applied model registry overrides")
	}

	return cfg, nil
}

// applyRegistry overlays non-credential backend settings from a YAML file.
func (c *Config) applyRegistry(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var reg registryFile
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	for _, override := range reg.Backends {
		base, ok := c.Backends[override.Provider]
		if !ok {
			return fmt.Errorf("unknown backend %q in registry", override.Provider)
		}
		if override.BaseURL != "" {
			base.BaseURL = override.BaseURL
		}
		if override.Model != "" {
			base.Model = override.Model
		}
		if override.Timeout > 0 {
			base.Timeout = override.Timeout
		}
		if override.RateLimit > 0 {
			base.RateLimit = override.RateLimit
		}
		if override.MaxFailures > 0 {
			base.MaxFailures = override.MaxFailures
		}
	}
	return nil
}

// ConfigureFactory installs every backend config into the factory.
func (c *Config) ConfigureFactory(factory *llm.Factory) {
	for provider, bc := range c.Backends {
		factory.SetConfig(provider, bc)
	}
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return log
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
