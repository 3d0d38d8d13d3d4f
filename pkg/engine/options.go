package engine

import "github.com/txnlab/ccproc/pkg/common"

// Option configures a Processor at construction time.
type Option func(*config)

type config struct {
	keyRange    uint64
	workerCount int
}

func defaultConfig() config {
	return config{
		keyRange:    common.DefaultKeyRange,
		workerCount: common.DefaultWorkerCount,
	}
}

// WithKeyRange overrides the default dense key range [0, n).
func WithKeyRange(n uint64) Option {
	return func(c *config) { c.keyRange = n }
}

// WithWorkerCount overrides the default worker pool size.
func WithWorkerCount(n int) Option {
	return func(c *config) { c.workerCount = n }
}
