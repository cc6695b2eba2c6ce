// Package config loads worker configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Operating modes for the worker.
const (
	// ModeSynchronous processes jobs inside the webhook request.
	ModeSynchronous = "synchronous"
	// ModeStandalone only acknowledges webhooks; the queue poller does the work.
	ModeStandalone = "standalone"
)

// Config holds the static configuration for the worker process.
type Config struct {
	Mode     string `env:"OPERATING_MODE" envDefault:"synchronous"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR"`

	// Admission ceilings. Rendering rejects above the ceiling, publishing queues.
	RenderMaxConcurrent  int `env:"RENDER_MAX_CONCURRENT" envDefault:"1"`
	PublishMaxConcurrent int `env:"PUBLISH_MAX_CONCURRENT" envDefault:"2"`

	PollIntervalSeconds  int `env:"POLL_INTERVAL_SECONDS" envDefault:"5"`
	RenderTimeoutSeconds int `env:"RENDER_TIMEOUT_SECONDS" envDefault:"600"`

	PublishRetryMax           int `env:"PUBLISH_RETRY_MAX" envDefault:"3"`
	PublishRetryBaseSeconds   int `env:"PUBLISH_RETRY_BASE_SECONDS" envDefault:"2"`
	PublishHTTPTimeoutSeconds int `env:"PUBLISH_HTTP_TIMEOUT_SECONDS" envDefault:"60"`

	RendererBin string `env:"RENDERER_BIN" envDefault:"mulmocast"`
	FFprobeBin  string `env:"FFPROBE_BIN" envDefault:"ffprobe"`

	WorkspaceRoot string `env:"WORKSPACE_ROOT" envDefault:"/tmp/showgeki2"`
	QueueName     string `env:"JOB_QUEUE_NAME" envDefault:"showgeki2:jobs"`

	AlertWebhookURL string `env:"ALERT_WEBHOOK_URL"`
}

// Load reads configuration from the environment. A .env file is loaded first
// when present so local runs do not need exported variables.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Mode != ModeSynchronous && cfg.Mode != ModeStandalone {
		return nil, fmt.Errorf("invalid OPERATING_MODE %q", cfg.Mode)
	}
	if cfg.RenderMaxConcurrent < 1 {
		return nil, fmt.Errorf("RENDER_MAX_CONCURRENT must be >= 1")
	}
	if cfg.PublishMaxConcurrent < 1 {
		return nil, fmt.Errorf("PUBLISH_MAX_CONCURRENT must be >= 1")
	}

	return &cfg, nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

func (c *Config) PublishRetryBase() time.Duration {
	return time.Duration(c.PublishRetryBaseSeconds) * time.Second
}

func (c *Config) PublishHTTPTimeout() time.Duration {
	return time.Duration(c.PublishHTTPTimeoutSeconds) * time.Second
}
