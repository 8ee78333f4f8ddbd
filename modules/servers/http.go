package servers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
	"github.com/Deepreo/mathengine/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"go.elastic.co/apm/module/apmfiber/v2"
)

const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultServerHeader    = "mathengine"
	DefaultBodyLimit       = 64 * 1024
	DefaultPort            = "8080"
	DefaultHost            = "localhost"
	DefaultAllowedOrigins  = "*"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultSwaggerUIPath   = "/api/swagger/*"
	DefaultRateLimitWindow = time.Minute
)

type HttpServer struct {
	app    *fiber.App
	cfg    *HttpServerConfig
	logger *slog.Logger

	middlewares []core.Middleware

	closeOnce sync.Once
	closing   chan struct{}
}

// HttpServerConfig is bound from the "server" config section. A zero
// WriteTimeout keeps /stream connections open.
type HttpServerConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ServerHeader   string        `mapstructure:"server_header"`
	BodyLimit      int           `mapstructure:"body_limit" validate:"gte=0"`
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	Host           string        `mapstructure:"host"`
	AllowedOrigins string        `mapstructure:"allowed_origins"`
	Features       Features      `mapstructure:"features"`
}

type Features struct {
	RequestID   RequestID   `mapstructure:"request_id"`
	Proxy       Proxy       `mapstructure:"proxy"`
	RateLimit   RateLimit   `mapstructure:"rate_limit"`
	HealthCheck HealthCheck `mapstructure:"health_check"`
	Etag        Etag        `mapstructure:"etag"`
	ElasticAPM  ElasticAPM  `mapstructure:"elastic_apm"`
	SwaggerUI   SwaggerUI   `mapstructure:"swagger_ui"`
}

type Etag struct {
	Enabled bool `mapstructure:"enabled"`
}

type ElasticAPM struct {
	Enabled bool `mapstructure:"enabled"`
}

type RequestID struct {
	Enabled bool `mapstructure:"enabled"`
}

type Proxy struct {
	Enabled        bool     `mapstructure:"enabled"`
	ProxyHeader    string   `mapstructure:"proxy_header"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type RateLimit struct {
	Enabled    bool          `mapstructure:"enabled"`
	Max        int           `mapstructure:"max"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type HealthCheck struct {
	Enabled bool `mapstructure:"enabled"`
}

type SwaggerUI struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func DefaultConfig() HttpServerConfig {
	return HttpServerConfig{
		ReadTimeout:    DefaultReadTimeout,
		ServerHeader:   DefaultServerHeader,
		BodyLimit:      DefaultBodyLimit,
		Port:           DefaultPort,
		Host:           DefaultHost,
		AllowedOrigins: DefaultAllowedOrigins,
	}
}

// WithConfig overlays the non-zero fields of cfg onto the defaults.
func WithConfig(cfg *HttpServerConfig) func(*HttpServerConfig) {
	return func(s *HttpServerConfig) {
		if cfg.ReadTimeout != 0 {
			s.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout != 0 {
			s.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.ServerHeader != "" {
			s.ServerHeader = cfg.ServerHeader
		}
		if cfg.BodyLimit != 0 {
			s.BodyLimit = cfg.BodyLimit
		}
		if cfg.Port != "" {
			s.Port = cfg.Port
		}
		if cfg.Host != "" {
			s.Host = cfg.Host
		}
		if cfg.AllowedOrigins != "" {
			s.AllowedOrigins = cfg.AllowedOrigins
		}
		s.Features = cfg.Features
	}
}

func NewHttpServer(logger *slog.Logger, options ...func(*HttpServerConfig)) (*HttpServer, error) {
	cfg := DefaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fiberConfig, err := buildFiberConfig(&cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	server := &HttpServer{
		cfg:     &cfg,
		logger:  logger.With("component", "http"),
		closing: make(chan struct{}),
	}
	fiberConfig.ErrorHandler = server.errorHandler
	server.app = fiber.New(fiberConfig)
	server.applyMiddlewares()
	return server, nil
}

func (s *HttpServer) applyMiddlewares() {
	s.app.Use(recover.New())
	s.app.Use(helmet.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Accept, Authorization, Content-Type",
		ExposeHeaders:    "Content-Length, X-Request-ID",
		AllowCredentials: s.cfg.AllowedOrigins != "*",
		MaxAge:           300,
	}))
	if s.cfg.Features.RequestID.Enabled {
		s.app.Use(requestid.New())
	}
	if s.cfg.Features.RateLimit.Enabled {
		expiration := s.cfg.Features.RateLimit.Expiration
		if expiration <= 0 {
			expiration = DefaultRateLimitWindow
		}
		s.app.Use(limiter.New(limiter.Config{
			Max:        s.cfg.Features.RateLimit.Max,
			Expiration: expiration,
			Next:       isStream,
		}))
	}
	if s.cfg.Features.HealthCheck.Enabled {
		s.app.Use(healthcheck.New())
	}
	if s.cfg.Features.Etag.Enabled {
		s.app.Use(etag.New(etag.Config{Next: isStream}))
	}
	if s.cfg.Features.ElasticAPM.Enabled {
		s.app.Use(apmfiber.Middleware())
	}
	if s.cfg.Features.SwaggerUI.Enabled {
		path := s.cfg.Features.SwaggerUI.Path
		if path == "" {
			path = DefaultSwaggerUIPath
		}
		registerSwaggerDoc(s.cfg.Host, s.cfg.Port)
		s.app.Get(path, swagger.New(swagger.Config{TryItOutEnabled: true}))
	}
}

// App exposes the fiber app for raw routes and tests.
func (s *HttpServer) App() *fiber.App {
	return s.app
}

// Done is closed when Shutdown starts so long-lived handlers can finish.
func (s *HttpServer) Done() <-chan struct{} {
	return s.closing
}

func (s *HttpServer) Addr() string {
	if s.cfg.Features.Proxy.Enabled {
		return fmt.Sprintf(":%s", s.cfg.Port)
	}
	return fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
}

func (s *HttpServer) Run() error {
	select {
	case <-s.closing:
		return nil
	default:
	}
	s.logger.Info("http server listening", "addr", s.Addr())
	return s.app.Listen(s.Addr())
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.app.ShutdownWithContext(ctx)
}

// Use adds middlewares around every endpoint registered afterwards.
func (s *HttpServer) Use(middleware ...core.Middleware) {
	s.middlewares = append(s.middlewares, middleware...)
}

func (s *HttpServer) Register(method, path string, handler core.HandlerFunc, reqFactory func() any) {
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		handler = s.middlewares[i](handler)
	}

	s.app.Add(method, path, func(c *fiber.Ctx) error {
		req := reqFactory()

		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil && !errors.Is(fiber.ErrUnprocessableEntity, err) {
				return s.writeError(c, errors.ValidationError(err))
			}
		}
		if err := c.ParamsParser(req); err != nil {
			return s.writeError(c, errors.ValidationError(err))
		}
		if err := c.QueryParser(req); err != nil {
			return s.writeError(c, errors.ValidationError(err))
		}

		if validator, ok := req.(core.Request); ok {
			if err := validator.Validate(); err != nil {
				return s.writeError(c, err)
			}
		}

		ctx := auth.WithToken(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		res, err := handler(ctx, req)
		if err != nil {
			return s.writeError(c, err)
		}
		return c.JSON(core.BaseResponse[any]{Success: true, Data: res})
	})
}

func (s *HttpServer) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(core.BaseResponse[any]{
			Error: &core.APIError{Message: fiberErr.Message},
		})
	}
	return s.writeError(c, err)
}

func buildFiberConfig(cfg *HttpServerConfig) (fiber.Config, error) {
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return fiber.Config{}, fmt.Errorf("timeouts must not be negative")
	}
	config := fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ServerHeader:          cfg.ServerHeader,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	}
	if config.BodyLimit == 0 {
		config.BodyLimit = DefaultBodyLimit
	}
	if cfg.Features.Proxy.Enabled {
		config.ProxyHeader = cfg.Features.Proxy.ProxyHeader
		if len(cfg.Features.Proxy.TrustedProxies) > 0 {
			config.EnableTrustedProxyCheck = true
			config.TrustedProxies = cfg.Features.Proxy.TrustedProxies
		}
	}
	return config, nil
}

func isStream(c *fiber.Ctx) bool {
	return c.Path() == StreamPath
}
