// Package events は予約イベントをメッセージブローカーへ発行します
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

// Publisher は予約イベントの発行先です
type Publisher interface {
	Publish(ctx context.Context, event model.ReservationEvent) error
}

// AMQPPublisher は RabbitMQ の topic exchange にイベントを発行します
// ルーティングキーはイベント種別 (reservation.created など) です
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	log.Printf("RabbitMQ publisher ready on exchange %s", exchange)
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event model.ReservationEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ReservationID,
		Timestamp:    event.OccurredAt,
		Body:         b,
	})
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher はイベントを破棄します
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ReservationEvent) error {
	return nil
}

// Recorder は発行されたイベントを記録します
type Recorder struct {
	Events []model.ReservationEvent
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event model.ReservationEvent) error {
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}
