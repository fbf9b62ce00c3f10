package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/jrsteele09/go-imagen-client/apiclient"
	"github.com/jrsteele09/go-imagen-client/auth"
	"github.com/jrsteele09/go-imagen-client/generation"
	"github.com/jrsteele09/go-imagen-client/internal/config"
	"github.com/jrsteele09/go-imagen-client/internal/logging"
	"github.com/jrsteele09/go-imagen-client/preferences"
	"github.com/jrsteele09/go-imagen-client/session"
	"github.com/jrsteele09/go-imagen-client/storage"
	"github.com/jrsteele09/go-imagen-client/storage/redisstore"
	"github.com/jrsteele09/go-imagen-client/storage/sealed"
	"github.com/jrsteele09/go-imagen-client/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     config.Config
	configErr  error

	appOnce sync.Once
	app     *app
	appErr  error
}

// app is the wired client: one session store, one API client and the
// services built on them.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	repo     storage.Repo
	sessions *session.Store
	client   *apiclient.Client
	auth     *auth.Service
	gen      *generation.Service
	prefs    *preferences.Store
	registry *prometheus.Registry
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureApp(ctx context.Context) (*app, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = newApp(ctx, cfg)
	})
	return c.app, c.appErr
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	if closer, ok := c.app.repo.(storage.Closer); ok {
		return closer.Close()
	}
	return nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logging.New(os.Stderr, cfg.GetLogLevel(), cfg.GetLogFormat()).
		With().Str("app", cfg.GetAppName()).Str("env", cfg.GetEnv()).Logger()

	if err := os.MkdirAll(cfg.GetDataFolder(), 0o700); err != nil {
		return nil, fmt.Errorf("create data folder: %w", err)
	}
	repo, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(ctx, repo,
		session.WithLogger(log),
		session.OnClear(func() {
			fmt.Fprintln(os.Stderr, "Session ended. Run `imagenctl login` to sign in again.")
		}),
	)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	client, err := apiclient.New(cfg.GetBaseURL(), sessions,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		apiclient.WithLogger(log),
		apiclient.WithRefreshPath(cfg.GetRefreshPath()),
		apiclient.WithAuthFailureStatuses(cfg.GetAuthFailureStatuses()...),
		apiclient.WithPublicPaths(auth.DefaultPaths().Public()...),
		apiclient.WithRefreshTimeout(cfg.GetRefreshTimeout()),
		apiclient.WithRefreshLock(cfg.GetRefreshLockFile()),
		apiclient.WithMetrics(registry),
		apiclient.WithUserAgent("imagenctl/"+version),
	)
	if err != nil {
		return nil, err
	}

	prefs, err := preferences.NewStore(ctx, repo, preferences.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		sessions: sessions,
		client:   client,
		auth:     auth.NewService(client, sessions, auth.WithLogger(log)),
		gen:      generation.NewService(client, generation.WithLogger(log)),
		prefs:    prefs,
		registry: registry,
	}, nil
}

// openStorage builds the configured backend, sealed when a seal key is set.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Repo, error) {
	var (
		repo interface {
			storage.Repo
			io.Closer
		}
		err error
	)
	switch backend := cfg.GetStorageBackend(); backend {
	case "memory":
		repo, err = sqlite.Open(ctx, ":memory:")
	case "sqlite", "":
		repo, err = sqlite.Open(ctx, cfg.GetSQLitePath())
	case "redis":
		repo, err = redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
			Prefix:   cfg.GetStorageKeyPrefix(),
		})
	default:
		return nil, errors.New("unknown storage backend " + backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.GetStorageBackend(), err)
	}
	if key := cfg.GetSealKey(); key != "" {
		return sealed.New(repo, key), nil
	}
	return repo, nil
}
