package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/usecase"

	"github.com/segmentio/kafka-go"
)

// MessageWriter は *kafka.Writer のうち使う部分
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaNotifier は注文イベントをJSONでトピックに流す。
// キーは注文番号なので、同じ注文のイベントは同じパーティションに並ぶ
type KafkaNotifier struct {
	w MessageWriter
}

func NewKafkaNotifier(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{w: w}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev usecase.OrderEvent) error {
	if ev.OrderNumber == "" {
		return errors.New("order event without order number")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderNumber),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
}

func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}
