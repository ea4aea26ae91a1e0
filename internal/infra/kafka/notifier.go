// Package kafka publishes payment events to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/app/payments"
)

// Notifier publishes confirmations to "<prefix>.confirmed" and
// discrepancies to "<prefix>.discrepancy", keyed by order id.
type Notifier struct {
	producer sarama.SyncProducer
	prefix   string
	log      logrus.FieldLogger
}

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func NewNotifier(producer sarama.SyncProducer, prefix string, log logrus.FieldLogger) *Notifier {
	if prefix == "" {
		prefix = "payments"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{producer: producer, prefix: prefix, log: log}
}

func (n *Notifier) ConfirmedTopic() string   { return n.prefix + ".confirmed" }
func (n *Notifier) DiscrepancyTopic() string { return n.prefix + ".discrepancy" }

func (n *Notifier) PaymentConfirmed(ctx context.Context, c payments.Confirmation) error {
	return n.publish(ctx, n.ConfirmedTopic(), c.OrderID, c)
}

func (n *Notifier) PaymentDiscrepancy(ctx context.Context, d payments.Discrepancy) error {
	return n.publish(ctx, n.DiscrepancyTopic(), d.OrderID, d)
}

func (n *Notifier) Close() error {
	return n.producer.Close()
}

func (n *Notifier) publish(ctx context.Context, topic, key string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", topic, err)
	}

	n.log.WithFields(logrus.Fields{
		"topic":     topic,
		"order_id":  key,
		"partition": partition,
		"offset":    offset,
	}).Debug("published payment event")
	return nil
}

var _ payments.Notifier = (*Notifier)(nil)
