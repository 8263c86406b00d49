package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
)

// Consumer defaults.
const (
	DefaultStream     = "PROVIDERS"
	DefaultSubject    = "providers.events.>"
	DefaultDurable    = "discovery-index"
	DefaultMaxDeliver = 10
	DefaultAckWait    = 30 * time.Second
	DefaultNakDelay   = 5 * time.Second
)

// eventHandler is the consumer interface for the index projector (ISP).
type eventHandler interface {
	Handle(ctx context.Context, ev *event.Event) error
}

// message is the part of jetstream.Msg the consumer settles.
type message interface {
	Data() []byte
	Subject() string
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// Config configures the JetStream consumer.
type Config struct {
	URL          string
	Stream       string
	Subjects     []string
	Durable      string
	MaxDeliver   int
	AckWait      time.Duration
	NakDelay     time.Duration
	CreateStream bool
}

func (c *Config) applyDefaults() {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if len(c.Subjects) == 0 {
		c.Subjects = []string{DefaultSubject}
	}
	if c.Durable == "" {
		c.Durable = DefaultDurable
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = DefaultMaxDeliver
	}
	if c.AckWait <= 0 {
		c.AckWait = DefaultAckWait
	}
	if c.NakDelay <= 0 {
		c.NakDelay = DefaultNakDelay
	}
}

// Consumer feeds provider lifecycle events from a durable JetStream consumer
// into the projector, one message at a time.
type Consumer struct {
	cfg     Config
	handler eventHandler
	logger  *zap.Logger
	conn    *nats.Conn
}

// NewConsumer connects to NATS. Call Run to start consuming.
func NewConsumer(cfg Config, handler eventHandler, logger *zap.Logger) (*Consumer, error) {
	cfg.applyDefaults()
	conn, err := nats.Connect(cfg.URL,
		nats.Name("discovery"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Consumer{cfg: cfg, handler: handler, logger: logger, conn: conn}, nil
}

// Run consumes until ctx is cancelled, then stops the consumer and drains
// the connection.
func (c *Consumer) Run(ctx context.Context) error {
	js, err := jetstream.New(c.conn)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}

	if c.cfg.CreateStream {
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     c.cfg.Stream,
			Subjects: c.cfg.Subjects,
		}); err != nil {
			return fmt.Errorf("create stream %s: %w", c.cfg.Stream, err)
		}
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:        c.cfg.Durable,
		FilterSubjects: c.cfg.Subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        c.cfg.AckWait,
		MaxDeliver:     c.cfg.MaxDeliver,
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", c.cfg.Durable, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.process(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Stream, err)
	}
	c.logger.Info("consuming provider events",
		zap.String("stream", c.cfg.Stream),
		zap.Strings("subjects", c.cfg.Subjects),
		zap.String("durable", c.cfg.Durable),
	)

	<-ctx.Done()
	cc.Stop()
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", zap.Error(err))
	}
	return nil
}

// HealthCheck reports whether the NATS connection is up.
func (c *Consumer) HealthCheck(_ context.Context) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats: %s", c.conn.Status())
	}
	return nil
}

// Close closes the connection without draining.
func (c *Consumer) Close() {
	c.conn.Close()
}

// process settles one message: Ack on success, Term when redelivery cannot
// help, Nak with delay otherwise.
func (c *Consumer) process(ctx context.Context, msg message) {
	log := c.logger.With(zap.String("subject", msg.Subject()))

	ev, err := DecodeEvent(msg.Data())
	if err != nil {
		log.Error("undecodable event, terminating", zap.Error(err))
		settle(log, "term", msg.Term())
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.cfg.AckWait)
	defer cancel()

	err = c.handler.Handle(hctx, &ev)
	switch {
	case err == nil:
		settle(log, "ack", msg.Ack())
	case permanent(err):
		log.Error("event rejected, terminating",
			zap.String("event_id", ev.ID().String()), zap.Error(err))
		settle(log, "term", msg.Term())
	default:
		log.Warn("event failed, redelivering",
			zap.String("event_id", ev.ID().String()),
			zap.Duration("delay", c.cfg.NakDelay), zap.Error(err))
		settle(log, "nak", msg.NakWithDelay(c.cfg.NakDelay))
	}
}

// permanent reports errors that no redelivery can fix.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrUnknownEvent) ||
		errors.Is(err, domain.ErrInvalidEvent) ||
		errors.Is(err, domain.ErrValidation)
}

func settle(log *zap.Logger, op string, err error) {
	if err != nil {
		log.Warn("settle message failed", zap.String("op", op), zap.Error(err))
	}
}
