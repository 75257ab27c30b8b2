package config

import (
	"log/slog"

	"github.com/odunayomike/report-card-generator-sub003/internal/events"
)

// EventConfig holds configuration for event publishing
type EventConfig struct {
	Enabled         bool
	Publisher       string // kafka, gochannel or mock
	KafkaBrokers    string
	ExamEventsTopic string
	ReportCardTopic string
}

func LoadEventConfig() EventConfig {
	return EventConfig{
		Enabled:         getEnvBool("EVENTS_ENABLED", false),
		Publisher:       getEnv("EVENTS_PUBLISHER", "kafka"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		ExamEventsTopic: getEnv("EXAM_EVENTS_TOPIC", "exam-events"),
		ReportCardTopic: getEnv("REPORT_CARD_TOPIC", "report-card-scores"),
	}
}

func (c *EventConfig) GetKafkaBrokers() []string {
	return splitList(c.KafkaBrokers)
}

func (c *EventConfig) Topics() events.Topics {
	return events.Topics{
		ExamEvents: c.ExamEventsTopic,
		ReportCard: c.ReportCardTopic,
	}
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"exam_topic", c.ExamEventsTopic,
			"report_card_topic", c.ReportCardTopic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			Topics:       c.Topics(),
			Logger:       logger,
		})
	case "gochannel":
		logger.Info("Using in-process gochannel event publisher")
		return events.NewWatermillEventPublisher(events.NewGoChannelPubSub(logger), c.Topics(), logger), nil
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}
