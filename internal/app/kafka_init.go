package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/messaging/kafka"
)

// initKafkaProducer создаёт Kafka producer по строке брокеров.
// Пустая строка означает работу без брокера.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if brokers == "" {
		logger.Info("KAFKA_BROKERS is empty, event publishing is disabled")
		return nil, nil
	}

	brokerList := make([]string, 0)
	for _, broker := range strings.Split(brokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokerList = append(brokerList, broker)
		}
	}
	if len(brokerList) == 0 {
		logger.Info("KAFKA_BROKERS contains no addresses, event publishing is disabled")
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	}
}
