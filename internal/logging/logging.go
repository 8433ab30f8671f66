package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"proctor-quiz-service/internal/config"
)

// New builds the service logger. JSON output is used when requested or when
// stderr is not a terminal; otherwise the development console encoder.
func New(cfg config.Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, err
		}
	}

	var zcfg zap.Config
	if cfg.Log.Format == "json" || (cfg.Log.Format == "" && !isatty.IsTerminal(os.Stderr.Fd())) {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}
