package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrCacheKeyEmpty         = errors.New("cache key empty")
	ErrCacheConnectionFailed = errors.New("cache connection failed")
	ErrCacheTypeUnknown      = errors.New("cache type unknown")
	ErrCacheOperationFailed  = errors.New("cache operation failed")
	ErrCacheEntryCorrupt     = errors.New("cache entry corrupt")
	ErrStoreClosed           = errors.New("cache store closed")
	ErrNamespaceEmpty        = errors.New("cache namespace empty")
	ErrNamespaceInvalid      = errors.New("cache namespace invalid")
)

var (
	ErrDependencyMissing = errors.New("dependency file missing")
	ErrDependencyRead    = errors.New("dependency file read failed")
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrPluginIsNil          = errors.New("plugin is nil")
	ErrPluginNameEmpty      = errors.New("plugin name empty")
	ErrInterceptorClosed    = errors.New("interceptor closed")
	ErrStoreOpenerIsNil     = errors.New("store opener is nil")
	ErrBuildConfigIsNil     = errors.New("build config is nil")
	ErrVersionHashEmpty     = errors.New("version hash empty")
	ErrUnexpectedFlightType = errors.New("unexpected in-flight result type")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrMetricsIsDisabled  = errors.New("metrics manager is disabled")
)

var (
	ErrLogFileIsEmpty     = errors.New("log file is empty")
	ErrLogFileWrongFormat = errors.New("log file wrong format")
	ErrLoggerTypeUnknown  = errors.New("logger type unknown")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// Wrapf wraps err under baseErr so both match with errors.Is.
func Wrapf(baseErr, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", baseErr, fmt.Sprintf(format, args...), err)
}
