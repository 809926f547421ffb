package colorio

import "github.com/gogpu/colorio/internal/cache"

// ConfigOption configures a Config while it is built.
//
// Example:
//
//	b := colorio.NewConfigBuilder(
//	    colorio.WithEnvProvider(colorio.MapEnv{"SHOT": "sh010"}),
//	    colorio.WithOptimizationFlags(colorio.OptimizationAll),
//	)
type ConfigOption func(*configOptions)

// configOptions holds the optional settings of a Config.
type configOptions struct {
	env                EnvProvider
	flags              OptimizationFlags
	processorCache     bool
	processorCacheSize int
}

// defaultConfigOptions returns the defaults: the process environment,
// lossless optimization and an enabled processor cache.
func defaultConfigOptions() configOptions {
	return configOptions{
		env:                OSEnv{},
		flags:              OptimizationDefault,
		processorCache:     true,
		processorCacheSize: cache.DefaultCapacity,
	}
}

// WithEnvProvider sets where environment variables are looked up. The
// provider feeds context variables and OCIO_OPTIMIZATION_FLAGS.
func WithEnvProvider(p EnvProvider) ConfigOption {
	return func(o *configOptions) {
		if p != nil {
			o.env = p
		}
	}
}

// WithOptimizationFlags sets the flags used by DefaultCPUProcessor and
// DefaultGPUProcessor. A valid OCIO_OPTIMIZATION_FLAGS value in the
// environment takes precedence.
func WithOptimizationFlags(f OptimizationFlags) ConfigOption {
	return func(o *configOptions) {
		o.flags = f
	}
}

// WithProcessorCache enables or disables the config-level processor cache.
// Processors with dynamic properties are never cached.
func WithProcessorCache(enabled bool) ConfigOption {
	return func(o *configOptions) {
		o.processorCache = enabled
	}
}

// WithProcessorCacheSize bounds the processor cache to about n entries.
// Least recently used processors are dropped first. n <= 0 selects the
// default of 1024.
func WithProcessorCacheSize(n int) ConfigOption {
	return func(o *configOptions) {
		o.processorCacheSize = n
	}
}

// CacheStats reports processor cache usage.
type CacheStats = cache.Stats

// ProcessorCacheStats returns the hit, miss and eviction counts of the
// config's processor cache.
func (c *Config) ProcessorCacheStats() CacheStats {
	return c.processors.Stats()
}

// ProcessorOption configures the convenience processor constructors.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	ctx         *Context
	dir         Direction
	dataBypass  bool
	looksBypass bool
}

func defaultProcessorOptions() processorOptions {
	return processorOptions{dir: Forward, dataBypass: true}
}

// WithContext resolves file paths and variables through ctx instead of the
// config's current context.
func WithContext(ctx *Context) ProcessorOption {
	return func(o *processorOptions) {
		o.ctx = ctx
	}
}

// WithDirection builds the inverse processor when dir is Inverse.
func WithDirection(dir Direction) ProcessorOption {
	return func(o *processorOptions) {
		o.dir = dir
	}
}

// WithDataBypass controls whether conversions involving a data color space
// are skipped. It is on by default.
func WithDataBypass(enabled bool) ProcessorOption {
	return func(o *processorOptions) {
		o.dataBypass = enabled
	}
}

// WithLooksBypass skips the looks attached to a view.
func WithLooksBypass(enabled bool) ProcessorOption {
	return func(o *processorOptions) {
		o.looksBypass = enabled
	}
}
