// Package notify hands auto-checkout notices to the push-notification pipeline. Delivery to
// devices happens downstream of the topic; the engine only publishes.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Notification tells an employee that the engine closed their session.
type Notification struct {
	CompanyID    string    `json:"company_id"`
	EmployeeID   string    `json:"employee_id"`
	SessionID    string    `json:"session_id"`
	Reason       string    `json:"reason"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

// Dispatcher publishes notifications. Failures never affect the checkout that caused them.
type Dispatcher interface {
	AutoCheckout(ctx context.Context, n Notification) error
}

const dispatchTimeout = 5 * time.Second

// DispatchAsync publishes n in a goroutine with its own timeout; errors are logged.
func DispatchAsync(d Dispatcher, n Notification) {
	if d == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.AutoCheckout(ctx, n); err != nil {
			log.Printf("notify: auto-checkout notice for session %s failed: %v", n.SessionID, err)
		}
	}()
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher writes notifications to a Kafka topic keyed by employee.
type KafkaDispatcher struct {
	writer messageWriter
}

// NewKafkaDispatcher returns nil when brokers or topic are empty; a nil dispatcher drops notices.
func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaDispatcher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 20 * time.Millisecond,
	}}
}

// AutoCheckout implements Dispatcher.
func (d *KafkaDispatcher) AutoCheckout(ctx context.Context, n Notification) error {
	if d == nil || d.writer == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.CompanyID + "/" + n.EmployeeID),
		Value: payload,
		Time:  n.CheckedOutAt,
	})
}

// Close closes the writer. Safe on a nil dispatcher.
func (d *KafkaDispatcher) Close() error {
	if d == nil || d.writer == nil {
		return nil
	}
	return d.writer.Close()
}
