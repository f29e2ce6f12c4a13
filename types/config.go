package types

type Config struct {
	Name    string         `yaml:"name" json:"name"`
	Logger  *LoggerConfig  `yaml:"logger" json:"logger"`
	Store   *StoreConfig   `yaml:"store" json:"store" validate:"required"`
	Cache   *CacheConfig   `yaml:"cache" json:"cache" validate:"required"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level"`
	Config interface{} `yaml:"config" json:"config"`
}

type StoreConfig struct {
	Type   string      `yaml:"type" json:"type" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

type CacheConfig struct {
	CacheRoot           string                       `yaml:"cache_root" json:"cache_root"`
	OutDir              string                       `yaml:"out_dir" json:"out_dir"`
	Dependencies        []string                     `yaml:"dependencies" json:"dependencies" validate:"dive,min=1"`
	DefaultDependencies []string                     `yaml:"default_dependencies" json:"default_dependencies" validate:"dive,min=1"`
	Plugins             map[string]PluginCacheConfig `yaml:"plugins" json:"plugins" validate:"dive,keys,min=1,endkeys"`
	DedupeInFlight      bool                         `yaml:"dedupe_in_flight" json:"dedupe_in_flight"`
}

// PluginCacheConfig is the per plugin entry of the eligibility table.
type PluginCacheConfig struct {
	ExtraDependencies []string `yaml:"extra_dependencies" json:"extra_dependencies" validate:"dive,min=1"`
}

type MetricsConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Type    string            `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Config  interface{}       `yaml:"config" json:"config"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
}
