package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"3001"`

	UpstreamBaseURL   string        `env:"UPSTREAM_BASE_URL" envDefault:"https://60s.viki.moe"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamUserAgent string        `env:"UPSTREAM_USER_AGENT" envDefault:"PulseHub/1.0.0"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30m"`
	// RedisAddr 为空时使用进程内缓存
	RedisAddr   string `env:"REDIS_ADDR"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"pulsehub:"`

	CronSpec string `env:"CRON_SPEC" envDefault:"*/5 * * * *"`

	// PlatformsFile 为空时使用内置的平台注册表
	PlatformsFile string `env:"PLATFORMS_FILE"`
	// WebRoot 前端构建产物目录，为空时不托管静态文件
	WebRoot string `env:"WEB_ROOT"`
}

// Load 读取可选的 .env 文件与环境变量；单个变量格式错误时回退到默认值
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Printf("warn: parse env: %v", err)
	}
	applyDefaults(cfg)

	log.Printf("config loaded: port=%s upstream=%s ttl=%s cron=%s redis=%t",
		cfg.AppPort, cfg.UpstreamBaseURL, cfg.CacheTTL, cfg.CronSpec, cfg.RedisAddr != "")
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.AppPort == "" {
		cfg.AppPort = "3001"
	}
	if cfg.UpstreamBaseURL == "" {
		cfg.UpstreamBaseURL = "https://60s.viki.moe"
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	if cfg.UpstreamUserAgent == "" {
		cfg.UpstreamUserAgent = "PulseHub/1.0.0"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.CronSpec == "" {
		cfg.CronSpec = "*/5 * * * *"
	}
}
