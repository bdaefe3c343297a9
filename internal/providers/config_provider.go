package providers

import (
	"cgd/internal/structures"
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"strings"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "CGD_LOG_LEVEL")
	viper.BindEnv("storage.path", "CGD_STORAGE_PATH")
	viper.BindEnv("rateLimit.consentLimit", "CGD_RATELIMIT_CONSENT")
	viper.BindEnv("rateLimit.collectLimit", "CGD_RATELIMIT_COLLECT")
	viper.BindEnv("captcha.secrets.recaptcha", "CGD_RECAPTCHA_SECRET")
	viper.BindEnv("captcha.secrets.hcaptcha", "CGD_HCAPTCHA_SECRET")
	viper.BindEnv("captcha.secrets.turnstile", "CGD_TURNSTILE_SECRET")
	viper.BindEnv("cache.enabled", "CGD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "CGD_CACHE_SIZE")

	viper.SetDefault("rateLimit.consentLimit", 5)
	viper.SetDefault("rateLimit.collectLimit", 60)
	viper.SetDefault("rateLimit.window", "1m")
	viper.SetDefault("rateLimit.sweepInterval", "5m")
	viper.SetDefault("captcha.timeout", "5s")
	viper.SetDefault("captcha.maxAttempts", 3)
	viper.SetDefault("cache.ttl", "30s")
	viper.SetDefault("archive.interval", "1h")
	viper.SetDefault("archive.retention", "720h")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "ConsentGateDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
