package config

import (
	"time"

	"github.com/af-corp/genroute/internal/models"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Generation GenerationConfig `yaml:"generation"`
	Routing    RoutingConfig    `yaml:"routing"`
	Feedback   FeedbackConfig   `yaml:"feedback"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// RedisConfig is optional. With no addresses the spend counter and rate limiter are disabled.
type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// GenerationConfig holds the raw model configuration. Use ModelConfig for the validated form.
type GenerationConfig struct {
	Primary         string   `yaml:"primary"`
	FallbackChain   []string `yaml:"fallback_chain"`
	ReasoningEffort string   `yaml:"reasoning_effort"`
	Temperature     float64  `yaml:"temperature"`
	MaxTokens       int      `yaml:"max_tokens"`
	SystemPrompt    string   `yaml:"system_prompt"`
}

// ModelConfig validates the generation section.
func (g GenerationConfig) ModelConfig() (models.ModelConfig, error) {
	return models.NewModelConfig(g.Primary, g.FallbackChain, g.ReasoningEffort, g.Temperature, g.MaxTokens)
}

type RoutingConfig struct {
	AttemptTimeout time.Duration        `yaml:"attempt_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

type FeedbackConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	ValidatorURL     string        `yaml:"validator_url"`
	ValidatorTimeout time.Duration `yaml:"validator_timeout"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     300 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize: 20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Generation: GenerationConfig{
			Primary:         string(models.TierGPT5Mini),
			FallbackChain:   []string{string(models.TierGPT41Mini), string(models.TierGPT4oMini)},
			ReasoningEffort: string(models.EffortLow),
			Temperature:     0.7,
			MaxTokens:       4000,
		},
		Routing: RoutingConfig{
			AttemptTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 30 * time.Second,
			},
		},
		Feedback: FeedbackConfig{
			MaxIterations:    5,
			ValidatorTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
	}
}
