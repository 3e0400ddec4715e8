package bus

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// New selects the event bus implementation for the configured tier.
// Community deployments get an in-process ChannelBus; Pro deployments
// fan pricing events out over NATS so workers can run out of process.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
