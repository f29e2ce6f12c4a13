package metrics

import (
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
)

// NewManager builds the metrics manager named by config.Type. A nil or
// disabled config yields types.ErrMetricsIsDisabled.
func NewManager(config *types.MetricsConfig, logger types.Logger) (types.MetricsManager, error) {
	if config == nil || !config.Enabled {
		return nil, types.ErrMetricsIsDisabled
	}

	var manager types.MetricsManager

	switch config.Type {
	case "memory":
		manager = NewMemoryMetrics(logger)
	case "prometheus":
		promMetrics, err := NewPrometheusMetrics(logger, config)
		if err != nil {
			return nil, types.WrapError(err, "failed to initialize metrics manager")
		}
		manager = promMetrics
	default:
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", config.Type)
	}

	logger.Info("Metrics manager initialized", zap.String("type", config.Type))
	return manager, nil
}
