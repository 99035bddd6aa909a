package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngrelay/internal/i18n"
)

const envPrefix = "RELAY_"

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		OperatorID       int64    `env:"OPERATOR_ID,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=admin,relay"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		LogColors        bool     `env:"LOG_COLORS,default=true"`
		DotPath          string   `env:"DOT_PATH,default=~/.ngrelay"`
		Storage          Storage
		Dispatch         Dispatch
		MetricsAddr      string `env:"METRICS_ADDR,default=:2112"`
	}

	Storage struct {
		DBName      string `env:"DB_NAME,default=relay.db"`
		DatabaseURL string `env:"DATABASE_URL"`
	}

	Dispatch struct {
		Workers      int           `env:"WORKERS,default=4"`
		EventTimeout time.Duration `env:"EVENT_TIMEOUT,default=1m"`
		PollTimeout  int           `env:"POLL_TIMEOUT,default=60"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// LoadFrom reads the configuration from lookuper, which is consulted with the RELAY_ prefix.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath

	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	if !i18n.IsSupported(cfg.DefaultLanguage) {
		return nil, fmt.Errorf("unsupported language %q, use one of %v", cfg.DefaultLanguage, i18n.GetLanguagesList())
	}

	if cfg.OperatorID == 0 {
		return nil, fmt.Errorf("operator id must not be zero")
	}
	if cfg.Dispatch.Workers < 1 {
		cfg.Dispatch.Workers = 1
	}
	if cfg.Dispatch.PollTimeout < 0 {
		cfg.Dispatch.PollTimeout = 0
	}
	return cfg, nil
}

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}
