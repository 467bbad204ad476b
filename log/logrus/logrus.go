package logrus

import (
	"io"

	rf "github.com/GL1KK/redisfirstapp"
	"github.com/sirupsen/logrus"
)

var _ rf.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New builds a JSON logrus logger writing to w at level.
func New(w io.Writer, level string) (LogrusLogger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return LogrusLogger{}, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return LogrusLogger{E: logrus.NewEntry(l)}, nil
}

func (l LogrusLogger) Debug(msg string, f rf.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f rf.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f rf.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f rf.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}

func (l LogrusLogger) With(f rf.Fields) rf.Logger {
	return LogrusLogger{E: l.E.WithFields(logrus.Fields(f))}
}
