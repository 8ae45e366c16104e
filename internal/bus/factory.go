package bus

import (
	"fmt"
	"strings"

	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/pkg/errors"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
)

// New creates a Bus instance based on the configuration. When a
// journal path is configured the bus is wrapped so every published
// event is also appended to disk.
func New(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	base, err := newBase(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.JournalPath == "" {
		return base, nil
	}

	journal, err := NewJournal(cfg.JournalPath)
	if err != nil {
		base.Close()
		return nil, err
	}
	return NewJournaledBus(base, journal, log), nil
}

func newBase(cfg config.BusConfig) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := cfg.KafkaBrokerList()
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "raid-chat"
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "raid-chat-bus",
		})

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}
