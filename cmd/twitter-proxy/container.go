package main

import (
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go-stealth/ratelimit"
	"go.uber.org/dig"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/captcha"
	"github.com/anatolykoptev/go-twitter-proxy/internal/config"
	"github.com/anatolykoptev/go-twitter-proxy/internal/httpserver"
	"github.com/anatolykoptev/go-twitter-proxy/internal/logging"
	"github.com/anatolykoptev/go-twitter-proxy/internal/service"
)

func ProvideConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logger.Level.Zap(),
		Format: cfg.Logger.Format,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}

func ProvideSessionStore(cfg *config.Config) (*twitter.SessionStore, error) {
	return twitter.OpenSessionStore(cfg.SessionDB)
}

// accounts puts the cookie-file account first so it becomes the primary.
func accounts(cfg *config.Config) ([]*twitter.Account, error) {
	var out []*twitter.Account
	if cfg.CookieFile != "" {
		cookies, err := twitter.LoadCookieFile(cfg.CookieFile)
		if err != nil {
			return nil, err
		}
		acc, err := twitter.NewCookieAccount(cookies)
		if err != nil {
			return nil, fmt.Errorf("cookie file %s: %w", cfg.CookieFile, err)
		}
		out = append(out, acc)
	}
	out = append(out, twitter.ParseAccounts(cfg.Accounts)...)
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable account in cookie_file or accounts")
	}
	return out, nil
}

func ProvideClient(cfg *config.Config, sessions *twitter.SessionStore, logger *logging.Logger) (*twitter.Client, error) {
	accs, err := accounts(cfg)
	if err != nil {
		return nil, err
	}

	cc := twitter.ClientConfig{
		Accounts:      accs,
		DefaultProxy:  cfg.Proxy,
		Sessions:      sessions,
		SessionTTL:    cfg.SessionTTL,
		AuthCooldown:  cfg.AuthCooldown,
		BanCooldown:   cfg.BanCooldown,
		CaptchaSolver: captcha.New(cfg.Captcha.CapsolverKey),
		MetricsHook: func(endpoint string, success, rateLimited bool) {
			logger.Debug("twitter request",
				slog.String("endpoint", endpoint),
				slog.Bool("success", success),
				slog.Bool("rate_limited", rateLimited))
		},
	}
	if n := cfg.RateLimit.RequestsPerWindow; n > 0 {
		cc.RateLimit = ratelimit.DefaultConfig
		cc.RateLimit.RequestsPerWindow = n
	}

	logger.Info("logging in", slog.Int("accounts", len(accs)))
	client, err := twitter.NewClient(cc)
	if err != nil {
		return nil, err
	}
	logger.Info("logged in", slog.String("primary", client.Primary().Username))
	return client, nil
}

func ProvideService(client *twitter.Client) *service.Service {
	return service.New(client)
}

func ProvideServer(cfg *config.Config, svc *service.Service, logger *logging.Logger) *httpserver.Server {
	return httpserver.New(svc, logger.Logger, cfg.Listen)
}

func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(ProvideConfig); err != nil {
		return nil, fmt.Errorf("failed to provide config: %w", err)
	}
	if err := container.Provide(ProvideLogger); err != nil {
		return nil, fmt.Errorf("failed to provide logger: %w", err)
	}
	if err := container.Provide(ProvideSessionStore); err != nil {
		return nil, fmt.Errorf("failed to provide session store: %w", err)
	}
	if err := container.Provide(ProvideClient); err != nil {
		return nil, fmt.Errorf("failed to provide twitter client: %w", err)
	}
	if err := container.Provide(ProvideService); err != nil {
		return nil, fmt.Errorf("failed to provide service: %w", err)
	}
	if err := container.Provide(ProvideServer); err != nil {
		return nil, fmt.Errorf("failed to provide http server: %w", err)
	}

	return container, nil
}
