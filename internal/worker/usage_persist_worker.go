package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"gopherai-chat/internal/model"
	"gopherai-chat/internal/platform/rabbitmq"
)

type UsageRecorder interface {
	Create(ctx context.Context, usage *model.TokenUsage) error
}

// UsagePersistWorker drains token usage events from the queue into the
// usage ledger.
type UsagePersistWorker struct {
	conn      *amqp.Connection
	repo      UsageRecorder
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewUsagePersistWorker(conn *amqp.Connection, repo UsageRecorder, queueName string) *UsagePersistWorker {
	return &UsagePersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *UsagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					log.Error().Err(err).Str("queue", w.queueName).Msg("usage worker dropped delivery")
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *UsagePersistWorker) handle(ctx context.Context, body []byte) error {
	var usage model.TokenUsage
	if err := json.Unmarshal(body, &usage); err != nil {
		return fmt.Errorf("decode usage failed: %w", err)
	}
	if usage.SessionID == "" {
		return fmt.Errorf("decode usage failed: missing session id")
	}
	usage.ID = 0
	if err := w.repo.Create(ctx, &usage); err != nil {
		return err
	}
	return nil
}

func (w *UsagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
