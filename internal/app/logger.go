package app

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	rf "github.com/GL1KK/redisfirstapp"
	"github.com/GL1KK/redisfirstapp/internal/config"
	logruslog "github.com/GL1KK/redisfirstapp/log/logrus"
	sloglog "github.com/GL1KK/redisfirstapp/log/slog"
	zaplog "github.com/GL1KK/redisfirstapp/log/zap"
)

// NewLogger builds the configured backend writing JSON lines to w. The
// returned flush func must run before exit.
func NewLogger(cfg config.Log, w io.Writer) (rf.Logger, func(), error) {
	level := strings.ToLower(cfg.Level)
	if level == "" {
		level = "info"
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "zap":
		l, err := zaplog.New(w, level)
		if err != nil {
			return nil, nil, errors.Wrap(err, "zap logger")
		}
		return l, func() { _ = l.Sync() }, nil
	case "logrus":
		l, err := logruslog.New(w, level)
		if err != nil {
			return nil, nil, errors.Wrap(err, "logrus logger")
		}
		return l, func() {}, nil
	case "slog":
		return sloglog.New(w, level), func() {}, nil
	default:
		return nil, nil, errors.Newf("unknown log backend %q", cfg.Backend)
	}
}
