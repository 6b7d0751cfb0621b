package mq

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

/* ========================================================================
 * Fx module
 * ======================================================================== */

// Module provides the configured Producer and closes it on shutdown.
var Module = fx.Module("mq",
	fx.Provide(ProvideProducer),
)

// ProducerParams are the producer's dependencies.
type ProducerParams struct {
	fx.In

	Config *Config
	Logger *zap.Logger
}

// ProvideProducer builds the producer for Fx.
func ProvideProducer(lc fx.Lifecycle, params ProducerParams) (Producer, error) {
	producer, err := NewProducer(params.Config, params.Logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
