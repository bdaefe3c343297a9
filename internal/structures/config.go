package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type StorageConfig struct {
	Path string `yaml:"path" validate:"required|unixPath"`
}

type RateLimitConfig struct {
	ConsentLimit  int           `yaml:"consentLimit" validate:"required|min:1"`
	CollectLimit  int           `yaml:"collectLimit" validate:"required|min:1"`
	Window        time.Duration `yaml:"window" validate:"required|min:1"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

type CaptchaConfig struct {
	Timeout     time.Duration     `yaml:"timeout"`
	MaxAttempts int               `yaml:"maxAttempts"`
	Secrets     map[string]string `yaml:"secrets"`
}

type ArchiveConfig struct {
	Dir       string        `yaml:"dir"`
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SiteSeed declares a tenant that must exist at startup. Key and Salt are
// generated when left empty. Salt is never rewritten for an existing site.
type SiteSeed struct {
	Key             string   `yaml:"key"`
	Salt            string   `yaml:"salt"`
	PolicyVersion   string   `yaml:"policyVersion" validate:"required"`
	OriginWhitelist []string `yaml:"originWhitelist"`
	CaptchaProvider string   `yaml:"captchaProvider"`
	CaptchaSiteKey  string   `yaml:"captchaSiteKey"`
	CaptchaSecret   string   `yaml:"captchaSecret"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server          `yaml:"webServer"`
	Logger    LoggerConfig    `yaml:"logger"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Captcha   CaptchaConfig   `yaml:"captcha"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Cache     CacheConfig     `yaml:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Sites     []SiteSeed      `yaml:"sites"`
}
