// Package config loads the proxy configuration.
//
// Sources are applied in order, later ones winning: built-in defaults, the
// YAML file, a .env file, TWITTER_PROXY_* environment variables and finally
// command-line flags that were set explicitly.
package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TWITTER_PROXY_"

// Config is the proxy configuration after file, env and flag layering.
type Config struct {
	Listen          string          `yaml:"listen"`
	CookieFile      string          `yaml:"cookie_file"`
	Accounts        string          `yaml:"accounts"`
	Proxy           string          `yaml:"proxy"`
	SessionDB       string          `yaml:"session_db"`
	SessionTTL      time.Duration   `yaml:"session_ttl"`
	AuthCooldown    time.Duration   `yaml:"auth_cooldown"`
	BanCooldown     time.Duration   `yaml:"ban_cooldown"`
	Captcha         CaptchaConfig   `yaml:"captcha"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Logger          LoggerConfig    `yaml:"logger"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

type CaptchaConfig struct {
	CapsolverKey string `yaml:"capsolver_key"`
}

type RateLimitConfig struct {
	// RequestsPerWindow of 0 keeps the client's default.
	RequestsPerWindow int `yaml:"requests_per_window"`
}

type LoggerConfig struct {
	Level  LogLevel `yaml:"level"`
	Format string   `yaml:"format"`
}

// LogLevel is a zap level read from YAML text or a flag.
type LogLevel zapcore.Level

func (l LogLevel) MarshalYAML() (interface{}, error) {
	return zapcore.Level(l).String(), nil
}

func (l *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return l.Set(s)
}

func (l *LogLevel) Set(s string) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	*l = LogLevel(level)
	return nil
}

func (l LogLevel) String() string { return zapcore.Level(l).String() }

func (l LogLevel) Type() string { return "level" }

// Zap returns the level as a zapcore.Level.
func (l LogLevel) Zap() zapcore.Level { return zapcore.Level(l) }

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		SessionDB:       "sessions.db",
		SessionTTL:      24 * time.Hour,
		AuthCooldown:    time.Hour,
		BanCooldown:     6 * time.Hour,
		Logger:          LoggerConfig{Level: LogLevel(zapcore.InfoLevel), Format: "json"},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads path (optional) and envFile (optional, ignored when missing)
// on top of the defaults, then applies the environment.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open config %s", path)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "decode config %s", path)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "load env file %s", envFile)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LISTEN":        &c.Listen,
		"COOKIE_FILE":   &c.CookieFile,
		"ACCOUNTS":      &c.Accounts,
		"PROXY":         &c.Proxy,
		"SESSION_DB":    &c.SessionDB,
		"CAPSOLVER_KEY": &c.Captcha.CapsolverKey,
		"LOG_FORMAT":    &c.Logger.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_TTL":      &c.SessionTTL,
		"AUTH_COOLDOWN":    &c.AuthCooldown,
		"BAN_COOLDOWN":     &c.BanCooldown,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", envPrefix, name)
		}
		*dst = d
	}

	if v, ok := lookup(envPrefix + "RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%sRATE_LIMIT", envPrefix)
		}
		c.RateLimit.RequestsPerWindow = n
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		if err := c.Logger.Level.Set(v); err != nil {
			return errors.Wrapf(err, "%sLOG_LEVEL", envPrefix)
		}
	}
	return nil
}

// Flags holds the command-line overrides registered by BindFlags.
type Flags struct {
	fs *pflag.FlagSet

	listen     string
	cookieFile string
	accounts   string
	proxy      string
	sessionDB  string
	logLevel   LogLevel
	logFormat  string
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, logLevel: LogLevel(zapcore.InfoLevel)}
	fs.StringVarP(&f.listen, "listen", "l", "", "address to listen on, e.g. :8080")
	fs.StringVar(&f.cookieFile, "cookie-file", "", "JSON cookie export of the primary account")
	fs.StringVar(&f.accounts, "accounts", "", "user:pass[:auth_token:ct0[:totp]] list, comma separated")
	fs.StringVar(&f.proxy, "proxy", "", "default outbound proxy URL")
	fs.StringVar(&f.sessionDB, "session-db", "", "bbolt file persisting login sessions")
	fs.Var(&f.logLevel, "log-level", "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "json or console")
	return f
}

// Apply copies the flags the user actually set onto c.
func (f *Flags) Apply(c *Config) {
	set := map[string]func(){
		"listen":      func() { c.Listen = f.listen },
		"cookie-file": func() { c.CookieFile = f.cookieFile },
		"accounts":    func() { c.Accounts = f.accounts },
		"proxy":       func() { c.Proxy = f.proxy },
		"session-db":  func() { c.SessionDB = f.sessionDB },
		"log-level":   func() { c.Logger.Level = f.logLevel },
		"log-format":  func() { c.Logger.Format = f.logFormat },
	}
	for name, apply := range set {
		if f.fs.Changed(name) {
			apply()
		}
	}
}

// Validate checks that the proxy can start with c.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("invalid config: listen")
	}
	if c.CookieFile == "" && strings.TrimSpace(c.Accounts) == "" {
		return errors.New("invalid config: one of cookie_file or accounts is required")
	}
	switch c.Logger.Format {
	case "", "json", "console":
	default:
		return errors.Errorf("invalid config: logger.format %q", c.Logger.Format)
	}
	if c.SessionTTL < 0 || c.AuthCooldown < 0 || c.BanCooldown < 0 || c.ShutdownTimeout < 0 {
		return errors.New("invalid config: durations must not be negative")
	}
	if c.RateLimit.RequestsPerWindow < 0 {
		return errors.New("invalid config: rate_limit.requests_per_window")
	}
	return nil
}
