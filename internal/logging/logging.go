// Package logging owns the process-wide zap loggers.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Log styles. Auto picks dev on a terminal and prod otherwise.
const (
	TypeAuto = "auto"
	TypeDev  = "dev"
	TypeProd = "prod"
)

var (
	mu          sync.Mutex
	globalLog   *zap.Logger
	globalSugar *zap.SugaredLogger
	globalLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Setup builds the global loggers at the given level and style, replacing
// any previous pair.
func Setup(level, logType string) (*zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, errors.Wrapf(err, "log level %q", level)
		}
	}

	lt, err := resolveType(logType)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	globalLevel.SetLevel(lvl)
	var config zap.Config
	if lt == TypeDev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = globalLevel

	log, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	log.Debug("Zap " + lt + " logging at " + lvl.String())

	globalLog = log
	globalSugar = log.Sugar()
	return globalSugar, nil
}

func resolveType(logType string) (string, error) {
	switch strings.ToLower(logType) {
	case "", TypeAuto:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return TypeDev, nil
		}
		return TypeProd, nil
	case TypeDev, "development":
		return TypeDev, nil
	case TypeProd, "production":
		return TypeProd, nil
	}
	return "", errors.Errorf("unknown log type %q, try [dev|prod]", logType)
}

// Get returns the global sugared logger. Before Setup it is a no-op logger
// so library code and tests can log unconditionally.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if globalSugar == nil {
		return zap.NewNop().Sugar()
	}
	return globalSugar
}

// SetLevel adjusts the level of the loggers built by Setup.
func SetLevel(l zapcore.Level) {
	globalLevel.SetLevel(l)
}

// Sync flushes buffered entries.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if globalLog != nil {
		_ = globalLog.Sync()
	}
}
