package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

// QueueSource はバッチ処理向けにキューに溜まった予約イベントを取り出します
type QueueSource struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewQueueSource(url, exchange, queue string) (*QueueSource, error) {
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
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "reservation.*", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind reservation.*: %w", err)
	}
	return &QueueSource{conn: conn, ch: ch, queue: q.Name}, nil
}

// Drain は最大 max 件のイベントを取り出して handle に渡します
// handle が成功した場合のみ ack し、失敗した場合はキューに戻します
func (s *QueueSource) Drain(ctx context.Context, max int, handle func(context.Context, []model.ReservationEvent) error) (int, error) {
	var batch []model.ReservationEvent
	var lastTag uint64

	for len(batch) < max {
		if err := ctx.Err(); err != nil {
			break
		}
		d, ok, err := s.ch.Get(s.queue, false)
		if err != nil {
			return 0, fmt.Errorf("get from %s: %w", s.queue, err)
		}
		if !ok {
			break
		}

		var event model.ReservationEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			log.Printf("discarding malformed reservation event %s: %v", d.MessageId, err)
			_ = d.Reject(false)
			continue
		}
		batch = append(batch, event)
		lastTag = d.DeliveryTag
	}

	if len(batch) == 0 {
		return 0, nil
	}

	if err := handle(ctx, batch); err != nil {
		if nerr := s.ch.Nack(lastTag, true, true); nerr != nil {
			log.Printf("nack failed: %v, original error: %v", nerr, err)
		}
		return 0, err
	}
	if err := s.ch.Ack(lastTag, true); err != nil {
		return 0, fmt.Errorf("ack: %w", err)
	}
	return len(batch), nil
}

func (s *QueueSource) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
