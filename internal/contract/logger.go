package contract

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by InitLogger.
const (
	ConsoleLogFormat = "console"
	JSONLogFormat    = "json"
)

// InitLogger builds a zap logger from the level and format names and installs
// it as the global logger. Console output uses the development encoder.
func InitLogger(levelName, format string) error {
	var zapCfg zap.Config
	switch strings.ToLower(format) {
	case ConsoleLogFormat, "":
		zapCfg = zap.NewDevelopmentConfig()
	case JSONLogFormat:
		zapCfg = zap.NewProductionConfig()
	default:
		return eris.Errorf("invalid log format '%s'. must be console, json", format)
	}

	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return eris.Wrap(err, "contract: parse log level")
	}
	zapCfg.Level.SetLevel(level)
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "contract: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
