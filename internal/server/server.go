// Package server exposes the random data endpoints over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	rf "github.com/GL1KK/redisfirstapp"
	"github.com/GL1KK/redisfirstapp/generator"
	"github.com/GL1KK/redisfirstapp/hooks/stats"
)

const (
	Title   = "Random Data Generator API"
	Version = "1.0.0"
)

// Cache keys. One per endpoint, shared by every caller.
const (
	NumberKey = "random_number"
	UserKey   = "random_user"
)

const (
	DefaultNumberTTL = 30 * time.Second
	DefaultUserTTL   = 60 * time.Second
)

type Config struct {
	Host      string
	Port      int
	NumberTTL time.Duration // 0 => DefaultNumberTTL
	UserTTL   time.Duration // 0 => DefaultUserTTL
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Pinger reports store reachability; *store.Manager implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStatser exposes connection pool usage; *store.Manager implements it.
type PoolStatser interface {
	PoolStats() *redis.PoolStats
}

type Deps struct {
	Numbers   rf.Aside[generator.Number] // required
	Users     rf.Aside[generator.User]   // required
	Generator *generator.Generator       // required
	Logger    rf.Logger

	// Optional; nil disables the store check in /healthz and pool figures in /stats.
	Health Pinger
	Pool   PoolStatser
	Stats  *stats.Counters
}

type Server struct {
	e    *echo.Echo
	cfg  Config
	deps Deps
	log  rf.Logger
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Numbers == nil || deps.Users == nil || deps.Generator == nil {
		return nil, errors.New("server: numbers, users and generator are required")
	}
	if cfg.NumberTTL <= 0 {
		cfg.NumberTTL = DefaultNumberTTL
	}
	if cfg.UserTTL <= 0 {
		cfg.UserTTL = DefaultUserTTL
	}
	if deps.Logger == nil {
		deps.Logger = rf.NopLogger{}
	}

	s := &Server{
		e:    echo.New(),
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.With(rf.Fields{"component": "http"}),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = s.handleError

	s.e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.e.Use(middleware.Recover())
	s.e.Use(s.accessLog())
	s.e.Use(serverHeader)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.e.GET("/random-number", s.randomNumber)
	s.e.GET("/random-user", s.randomUser)
	s.e.GET("/healthz", s.healthz)
	s.e.GET("/stats", s.cacheStats)
}

// Handler is the root http.Handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Start serves on cfg.Addr until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("listening", rf.Fields{"addr": s.cfg.Addr(), "title": Title, "version": Version})
	return s.e.Start(s.cfg.Addr())
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func serverHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, Title+"/"+Version)
		return next(c)
	}
}

func (s *Server) accessLog() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info("request", rf.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
			})
			return nil
		},
	})
}
