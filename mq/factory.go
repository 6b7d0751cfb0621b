package mq

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

/* ========================================================================
 * Producer factory
 * ========================================================================
 * Broker implementations register themselves on import; the factory
 * dispatches on the configured type.
 * ======================================================================== */

// ProducerFactory builds a Producer from config.
type ProducerFactory func(cfg *Config, logger *zap.Logger) (Producer, error)

var (
	producerFactories = make(map[Type]ProducerFactory)
	factoryMu         sync.RWMutex
)

// RegisterProducerFactory registers a broker implementation.
func RegisterProducerFactory(mqType Type, factory ProducerFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	producerFactories[mqType] = factory
}

// NewProducer creates a producer for the configured broker type.
func NewProducer(cfg *Config, logger *zap.Logger) (Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mq config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	factoryMu.RLock()
	factory, ok := producerFactories[cfg.Type]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}

	logger.Info("creating message producer",
		zap.String("type", string(cfg.Type)),
	)

	return factory(cfg, logger)
}

// AvailableTypes returns the registered broker types.
func AvailableTypes() []Type {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	types := make([]Type, 0, len(producerFactories))
	for t := range producerFactories {
		types = append(types, t)
	}
	return types
}
