package common

import (
	"fmt"
	"io/ioutil"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultKeyRange is the size of the dense key space [0, N) that storage
	// pre-initializes, matching the original txn processor's InitStorage loop bound.
	DefaultKeyRange uint64 = 1000000

	// DefaultWorkerCount is the default size of the worker pool, matching the
	// original implementation's THREAD_COUNT.
	DefaultWorkerCount int = 8
)

// BenchConfig defines the configuration settings for the ccbench demonstration driver.
type BenchConfig struct {
	// Mode names the concurrency control protocol to run. See engine.ParseMode
	// for the recognized values.
	Mode string `yaml:"mode"`

	// KeyRange is the size of the dense key space the storage layer pre-initializes.
	KeyRange uint64 `yaml:"keyRange"`

	// WorkerCount is the number of workers in the processor's worker pool.
	WorkerCount int `yaml:"workerCount"`

	// LogLevel is the logrus level name (e.g. "info", "debug").
	LogLevel string `yaml:"logLevel"`
}

// NewDefaultBenchConfig returns a new default bench configuration.
func NewDefaultBenchConfig() *BenchConfig {
	return &BenchConfig{
		Mode:        "SERIAL",
		KeyRange:    DefaultKeyRange,
		WorkerCount: DefaultWorkerCount,
		LogLevel:    "info",
	}
}

// Validate validates a BenchConfig and returns an error if it's invalid.
func (conf *BenchConfig) Validate() error {
	if conf.Mode == "" {
		return fmt.Errorf("invalid mode provided in config")
	}
	if conf.KeyRange == 0 {
		return fmt.Errorf("invalid key range provided in config")
	}
	if conf.WorkerCount <= 0 {
		return fmt.Errorf("invalid worker count provided in config")
	}
	return nil
}

// LoadFromFile loads the config from the file. It assumes that config already has the defaults.
// In the case of an error, it leaves the config untouched.
func (conf *BenchConfig) LoadFromFile(path string) {
	log.Info(fmt.Sprintf("common::config::LoadFromFile; loading config from file %s", path))
	data, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error(fmt.Sprintf("common::config::LoadFromFile; error reading config from file %s, error %s", path, err))
		return
	}
	fconf := BenchConfig{}
	err = yaml.Unmarshal(data, &fconf)
	if err != nil {
		log.Error(fmt.Sprintf("common::config::LoadFromFile; error unmarshalling config from file %s, error %s", path, err))
		return
	}

	log.WithFields(log.Fields{"config": fconf}).Debug("common::config::LoadFromFile; read contents from the file")

	// populate fields
	if fconf.Mode != "" {
		conf.Mode = fconf.Mode
	}
	if fconf.KeyRange != 0 {
		conf.KeyRange = fconf.KeyRange
	}
	if fconf.WorkerCount != 0 {
		conf.WorkerCount = fconf.WorkerCount
	}
	if fconf.LogLevel != "" {
		conf.LogLevel = fconf.LogLevel
	}
}
