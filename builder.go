package identikit

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/identikit/identikit/device"
	"github.com/identikit/identikit/gateway"
	"github.com/identikit/identikit/session"
	"github.com/identikit/identikit/storage"
)

// Builder assembles a Flow. Configure during initialization, call Build once,
// then treat the result as the single owner of journey state.
type Builder struct {
	config     Config
	backend    storage.Backend
	redis      *redis.Client
	httpClient *http.Client
	logger     zerolog.Logger
	haveLogger bool
	auditSink  AuditSink
	api        AuthAPI

	built bool
}

// New starts a Builder with defaults; at minimum the API base URL and a
// storage choice must be supplied before Build.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// DefaultConfig exposes the built-in defaults so callers can adjust a field
// or two instead of assembling a Config from scratch.
func DefaultConfig() Config {
	return defaultConfig()
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the auth API base URL.
func (b *Builder) WithBaseURL(url string) *Builder {
	b.config.API.BaseURL = url
	return b
}

// WithStorage supplies an explicit storage backend; it wins over WithRedis
// and the configured SQLite path.
func (b *Builder) WithStorage(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis stores client state in Redis, namespaced by Storage.RedisPrefix.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient substitutes the HTTP client used by the gateway.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithLogger attaches a structured logger; the default discards everything.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	b.haveLogger = true
	return b
}

// WithAuditSink receives journey audit events when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithAuthAPI replaces the gateway entirely. Intended for tests; when set,
// the base URL and HTTP client are ignored.
func (b *Builder) WithAuthAPI(api AuthAPI) *Builder {
	b.api = api
	return b
}

// Build wires storage, device identity, session store, and gateway into a
// Flow positioned at Landing.
func (b *Builder) Build() (*Flow, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := b.backend
	var ownedSQLite *storage.SQLiteBackend
	if backend == nil && b.redis != nil {
		backend = storage.NewRedisBackend(b.redis, cfg.Storage.RedisPrefix)
	}
	if backend == nil && cfg.Storage.SQLitePath != "" {
		sq, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		backend = sq
		ownedSQLite = sq
	}
	if backend == nil {
		return nil, errors.New("storage backend required: use WithStorage, WithRedis, or Storage.SQLitePath")
	}

	if !b.haveLogger {
		b.logger = zerolog.Nop()
	}

	dev := device.New(backend, cfg.Device.Label)
	sessions := session.NewStore(backend, dev)

	api := b.api
	var gw *gateway.Client
	if api == nil {
		if cfg.API.BaseURL == "" {
			if ownedSQLite != nil {
				_ = ownedSQLite.Close()
			}
			return nil, errors.New("API.BaseURL required")
		}
		hc := b.httpClient
		if hc == nil {
			hc = &http.Client{Timeout: cfg.API.Timeout}
		}
		gw = gateway.NewClient(cfg.API.BaseURL, sessions,
			gateway.WithHTTPClient(hc), gateway.WithLogger(b.logger))
		api = gw
	}

	b.built = true
	return &Flow{
		config:      cfg,
		api:         api,
		gateway:     gw,
		sessions:    sessions,
		device:      dev,
		ownedSQLite: ownedSQLite,
		metrics:     NewMetrics(cfg.Metrics),
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		log:         b.logger,
		state:       JourneyLanding,
	}, nil
}
