package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"ddrelay/internal/domain"
)

var errClosed = errors.New("reply channel closed")

// RabbitMQ hands post requests to the poster worker over AMQP and waits for
// its reply on an exclusive queue, matched by correlation id.
type RabbitMQ struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchange     string
	routingKey   string
	replyQueue   string
	replyTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	pending map[string]chan amqp.Delivery
	done    chan struct{}
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
	// ReplyTimeout bounds the wait for a reply. Zero waits until ctx ends.
	ReplyTimeout time.Duration
}

type PostMessage struct {
	Action    string             `json:"action"`
	Request   domain.PostRequest `json:"request"`
	Timestamp time.Time          `json:"timestamp"`
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(format string, err error) (*RabbitMQ, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fail("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fail("bind queue: %w", err)
	}

	reply, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fail("declare reply queue: %w", err)
	}

	deliveries, err := ch.Consume(reply.Name, "", true, true, false, false, nil)
	if err != nil {
		return fail("consume reply queue: %w", err)
	}

	r := &RabbitMQ{
		conn:         conn,
		channel:      ch,
		exchange:     cfg.Exchange,
		routingKey:   cfg.RoutingKey,
		replyQueue:   reply.Name,
		replyTimeout: cfg.ReplyTimeout,
		logger:       logger.With("component", "poster"),
		pending:      make(map[string]chan amqp.Delivery),
		done:         make(chan struct{}),
	}
	go r.dispatch(deliveries)

	r.logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
		"reply_queue", reply.Name,
	)

	return r, nil
}

func (r *RabbitMQ) dispatch(deliveries <-chan amqp.Delivery) {
	defer close(r.done)

	for d := range deliveries {
		r.mu.Lock()
		waiter, ok := r.pending[d.CorrelationId]
		delete(r.pending, d.CorrelationId)
		r.mu.Unlock()

		if !ok {
			r.logger.Warn("dropping unmatched reply", "correlation_id", d.CorrelationId)
			continue
		}
		waiter <- d
	}
}

// Post publishes req and blocks until the worker replies. A reply that
// reports failure is returned as a *domain.PostError.
func (r *RabbitMQ) Post(ctx context.Context, req domain.PostRequest) (*domain.PostResult, error) {
	body, err := json.Marshal(PostMessage{
		Action:    "post",
		Request:   req,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	corrID := uuid.NewString()
	waiter := make(chan amqp.Delivery, 1)

	r.mu.Lock()
	r.pending[corrID] = waiter
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, corrID)
		r.mu.Unlock()
	}()

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode:  amqp.Persistent,
			ContentType:   "application/json",
			CorrelationId: corrID,
			ReplyTo:       r.replyQueue,
			Body:          body,
			Timestamp:     time.Now(),
		},
	)
	if err != nil {
		return nil, &domain.PostError{Subreddit: req.Subreddit, Reason: "publish", Cause: err}
	}

	r.logger.Debug("published post request",
		"subreddit", req.Subreddit,
		"correlation_id", corrID,
		"messages", len(req.Messages),
	)

	var timeout <-chan time.Time
	if r.replyTimeout > 0 {
		timer := time.NewTimer(r.replyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var reply amqp.Delivery
	select {
	case reply = <-waiter:
	case <-r.done:
		return nil, &domain.PostError{Subreddit: req.Subreddit, Reason: "await reply", Cause: errClosed}
	case <-timeout:
		return nil, &domain.PostError{Subreddit: req.Subreddit, Reason: "await reply", Cause: context.DeadlineExceeded}
	case <-ctx.Done():
		return nil, &domain.PostError{Subreddit: req.Subreddit, Reason: "await reply", Cause: ctx.Err()}
	}

	var result domain.PostResult
	if err := json.Unmarshal(reply.Body, &result); err != nil {
		return nil, &domain.PostError{Subreddit: req.Subreddit, Reason: "decode reply", Cause: err}
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "poster reported failure"
		}
		return &result, &domain.PostError{Subreddit: req.Subreddit, Reason: reason}
	}

	return &result, nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
