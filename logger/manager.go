package logger

import (
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
)

var customLoggerCreators = make(map[string]types.LoggerCreator)

func RegisterLogger(loggerName string, creator types.LoggerCreator) {
	customLoggerCreators[loggerName] = creator
}

// NewLogger builds the logger named by config.Type, "default" being zap.
// A nil config yields a no-op logger.
func NewLogger(config *types.LoggerConfig) (types.Logger, error) {
	if config == nil {
		return NewNop(), nil
	}

	loggerName := "default"
	if config.Type != "" {
		loggerName = config.Type
	}

	switch loggerName {
	case "default":
		return NewDefaultLogger(config)
	case "nop":
		return NewNop(), nil
	default:
		if creator, exists := customLoggerCreators[loggerName]; exists {
			return creator(config.Config)
		}
		return nil, types.Errorf(types.ErrLoggerTypeUnknown, "logger type: %s", loggerName)
	}
}

func NewNop() types.Logger {
	return NewZapWrapper(zap.NewNop())
}
