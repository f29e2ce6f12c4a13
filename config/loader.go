package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-hookcache/types"
)

const readTimeout = 30 * time.Second

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadFromFile reads a YAML config over Defaults and validates the result.
func (l *Loader) LoadFromFile(configPath string) (config *types.Config, err error) {
	if configPath == "" {
		return config, types.ErrConfigNotFound
	}

	if _, err = os.Stat(configPath); os.IsNotExist(err) {
		return config, types.Errorf(types.ErrConfigNotFound, "file: %s", configPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	data, err := l.ReadFileWithTimeout(ctx, configPath)
	if err != nil {
		return config, types.WrapError(err, "failed to read config file")
	}

	return l.LoadFromBytes(data)
}

func (l *Loader) LoadFromBytes(data []byte) (*types.Config, error) {
	config := l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, types.Wrapf(types.ErrConfigParseFailed, err, "yaml")
	}

	if err := l.Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func (l *Loader) Validate(config *types.Config) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if err := l.validator.Struct(config); err != nil {
		return types.Wrapf(types.ErrConfigValidateFailed, err, "config")
	}

	return nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

// Defaults is an in-memory store with info logging and metrics off. Dependency
// lists and the plugin table are left nil so that the pipeline defaults apply
// unless the file sets them.
func (l *Loader) Defaults() *types.Config {
	return &types.Config{
		Name: "hookcache",
		Logger: &types.LoggerConfig{
			Type:  "default",
			Level: "info",
		},
		Store: &types.StoreConfig{
			Type: "memory",
		},
		Cache: &types.CacheConfig{},
		Metrics: &types.MetricsConfig{
			Enabled: false,
			Type:    "memory",
		},
	}
}
