package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultInterviewConfigPath = "config/interview.yaml"

// app config
type Config struct {
	Provider       string
	Port           string
	JWTSecret      string
	AllowedOrigins []string
	RedisAddr      string
	Database       DatabaseConfig
	Interview      InterviewConfig
	Janitor        JanitorConfig
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// InterviewConfig holds the parameters fixed for every session.
type InterviewConfig struct {
	TotalQuestions    int           `yaml:"total_questions"`
	TimeBudgetSeconds int           `yaml:"time_budget_seconds"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	QuestionFallback  bool          `yaml:"question_fallback"`
}

type JanitorConfig struct {
	Schedule  string
	IdleTTL   time.Duration
	RetainTTL time.Duration
}

func defaultInterviewConfig() InterviewConfig {
	return InterviewConfig{
		TotalQuestions:    5,
		TimeBudgetSeconds: 60,
		TickInterval:      time.Second,
		CallTimeout:       30 * time.Second,
		QuestionFallback:  true,
	}
}

// loads configuration from an optional .env file, environment variables and
// the interview YAML file
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	interviewPath := os.Getenv("INTERVIEW_CONFIG")
	interview, err := LoadInterviewConfig(interviewPath)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Provider:       getEnvOrDefault("AI_PROVIDER", "gemini"),
		Port:           getEnvOrDefault("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("POSTGRES_DB", "postgres"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		Interview: *interview,
		Janitor: JanitorConfig{
			Schedule:  getEnvOrDefault("SESSION_SWEEP_SCHEDULE", "@every 1m"),
			IdleTTL:   getEnvDuration("SESSION_IDLE_TTL", 2*time.Hour),
			RetainTTL: getEnvDuration("SESSION_RETAIN_TTL", 15*time.Minute),
		},
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadInterviewConfig reads the interview YAML file over the defaults. An
// empty path falls back to config/interview.yaml, and a missing default file
// leaves the defaults in place.
func LoadInterviewConfig(path string) (*InterviewConfig, error) {
	cfg := defaultInterviewConfig()

	explicit := path != ""
	if !explicit {
		path = defaultInterviewConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read interview config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse interview config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid interview config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c InterviewConfig) Validate() error {
	if c.TotalQuestions <= 0 {
		return errors.New("total_questions must be positive")
	}
	if c.TimeBudgetSeconds <= 0 {
		return errors.New("time_budget_seconds must be positive")
	}
	if c.TickInterval <= 0 {
		return errors.New("tick_interval must be positive")
	}
	if c.CallTimeout <= 0 {
		return errors.New("call_timeout must be positive")
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if config.Janitor.IdleTTL <= 0 || config.Janitor.RetainTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL and SESSION_RETAIN_TTL must be positive")
	}
	// Gemini validation is handled by gemini.NewConfig()
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
