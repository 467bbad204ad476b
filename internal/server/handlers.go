package server

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	rf "github.com/GL1KK/redisfirstapp"
	"github.com/GL1KK/redisfirstapp/hooks/stats"
)

// The request context is detached before Fetch: a client that hangs up must
// not leave a computed value unwritten.

func (s *Server) randomNumber(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	res, err := s.deps.Numbers.Fetch(ctx, NumberKey, s.cfg.NumberTTL, s.deps.Generator.Number)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) randomUser(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	res, err := s.deps.Users.Fetch(ctx, UserKey, s.cfg.UserTTL, s.deps.Generator.User)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) healthz(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(c.Request().Context()); err != nil {
			s.log.Warn("health check failed", rf.Fields{"err": err})
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

type poolStats struct {
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
}

type statsResponse struct {
	stats.Snapshot
	Pool *poolStats `json:"pool,omitempty"`
}

func (s *Server) cacheStats(c echo.Context) error {
	var out statsResponse
	if s.deps.Stats != nil {
		out.Snapshot = s.deps.Stats.Snapshot()
	}
	if s.deps.Pool != nil {
		if ps := s.deps.Pool.PoolStats(); ps != nil {
			out.Pool = &poolStats{
				TotalConns: ps.TotalConns,
				IdleConns:  ps.IdleConns,
				Hits:       ps.Hits,
				Misses:     ps.Misses,
				Timeouts:   ps.Timeouts,
			}
		}
	}
	return c.JSON(http.StatusOK, out)
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleError maps every failure to a generic body. Store and serialization
// failures become 500; the cause only reaches the log.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}

	f := rf.Fields{
		"method":     c.Request().Method,
		"path":       c.Path(),
		"status":     code,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"err":        err,
	}
	switch {
	case errors.Is(err, rf.ErrStoreUnavailable):
		f["class"] = "store_unavailable"
	case errors.Is(err, rf.ErrSerialization):
		f["class"] = "serialization"
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", f)
	} else {
		s.log.Debug("request rejected", f)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: http.StatusText(code)})
	}
	if err != nil {
		s.log.Error("write error response", rf.Fields{"err": err})
	}
}
