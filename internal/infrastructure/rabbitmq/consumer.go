package rabbitmq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/logger"
	"github.com/baechuer/curation-service/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	supportedVersion = 1

	bindingKey    = "interaction.*"
	routingPrefix = "interaction."
)

// Envelope is the message format published by the CRUD app's outbox.
type Envelope struct {
	MessageID  string          `json:"message_id"`
	Version    int             `json:"version"`
	TraceID    string          `json:"trace_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type InteractionPayload struct {
	ActorUserID    string    `json:"actor_user_id"`
	TargetEntityID string    `json:"target_entity_id"`
	CategoryID     string    `json:"category_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type InteractionStore interface {
	Append(ctx context.Context, ev domain.InteractionEvent) (bool, error)
}

type CategoryLookup interface {
	CategoryOf(ctx context.Context, entityID string) (string, error)
}

// Invalidator drops cached rankings for one category.
type Invalidator interface {
	Invalidate(ctx context.Context, categoryID string) error
}

type Config struct {
	URL       string
	Exchange  string
	Queue     string
	Prefetch  int
	RetryWait time.Duration
}

type Consumer struct {
	cfg        Config
	store      InteractionStore
	categories CategoryLookup
	rankings   Invalidator
}

func NewConsumer(cfg Config, store InteractionStore, categories CategoryLookup, rankings Invalidator) *Consumer {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Exchange = strings.TrimSpace(cfg.Exchange)
	if cfg.Queue == "" {
		cfg.Queue = "curation-service.interactions"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 20
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 5 * time.Second
	}
	return &Consumer{cfg: cfg, store: store, categories: categories, rankings: rankings}
}

// Run consumes until ctx is cancelled, reconnecting after broker failures.
func (c *Consumer) Run(ctx context.Context) {
	log := logger.Logger.With().Str("component", "rabbitmq_consumer").Logger()
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", c.cfg.RetryWait).Msg("consumer stopped; reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryWait):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, bindingKey, c.cfg.Exchange, false, nil); err != nil {
		return err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.Name, "curation-service", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.Logger.Info().Str("component", "rabbitmq_consumer").Str("queue", q.Name).Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			if err := c.Handle(ctx, d.RoutingKey, d.MessageId, d.Body); err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one delivery. A nil return means ack: malformed messages
// are dropped. An error means the delivery should be requeued.
func (c *Consumer) Handle(ctx context.Context, routingKey, amqpMessageID string, body []byte) error {
	log := logger.Logger.With().
		Str("component", "rabbitmq_consumer").
		Str("routing_key", routingKey).
		Logger()

	kind := domain.InteractionKind(strings.TrimPrefix(routingKey, routingPrefix))
	if !strings.HasPrefix(routingKey, routingPrefix) || !kind.Valid() || kind == domain.InteractionCreate {
		log.Warn().Msg("unsupported routing key; dropping")
		metrics.RecordInteractionConsumed(string(kind), "dropped")
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Warn().Err(err).Msg("invalid envelope json; dropping")
		metrics.RecordInteractionConsumed(string(kind), "dropped")
		return nil
	}
	if env.Version != supportedVersion {
		log.Warn().Int("version", env.Version).Msg("unsupported envelope version; dropping")
		metrics.RecordInteractionConsumed(string(kind), "dropped")
		return nil
	}

	var p InteractionPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Warn().Err(err).Msg("invalid payload json; dropping")
		metrics.RecordInteractionConsumed(string(kind), "dropped")
		return nil
	}
	p.ActorUserID = strings.TrimSpace(p.ActorUserID)
	p.TargetEntityID = strings.TrimSpace(p.TargetEntityID)
	if p.ActorUserID == "" || p.TargetEntityID == "" {
		log.Warn().Msg("missing fields; dropping")
		metrics.RecordInteractionConsumed(string(kind), "dropped")
		return nil
	}

	msgID := messageID(env.MessageID, amqpMessageID, routingKey, body)
	log = log.With().Str("message_id", msgID).Str("trace_id", strings.TrimSpace(env.TraceID)).Logger()

	at := p.OccurredAt
	if at.IsZero() {
		at = env.OccurredAt
	}
	if at.IsZero() {
		log.Warn().Msg("missing occurred_at; dropping")
		metrics.RecordInteractionConsumed(string(kind), "dropped")
		return nil
	}

	inserted, err := c.store.Append(ctx, domain.InteractionEvent{
		MessageID:      msgID,
		ActorUserID:    p.ActorUserID,
		TargetEntityID: p.TargetEntityID,
		CategoryID:     p.CategoryID,
		Kind:           kind,
		OccurredAt:     at.UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("append failed (requeue)")
		metrics.RecordInteractionConsumed(string(kind), "error")
		return err
	}
	if !inserted {
		log.Debug().Msg("duplicate delivery ignored")
		metrics.RecordInteractionConsumed(string(kind), "duplicate")
		return nil
	}

	if kind != domain.InteractionView {
		c.invalidate(ctx, p, log)
	}
	metrics.RecordInteractionConsumed(string(kind), "stored")
	return nil
}

// invalidate is best effort and category scoped; the global snapshot and
// views are picked up when cached rankings expire.
func (c *Consumer) invalidate(ctx context.Context, p InteractionPayload, log zerolog.Logger) {
	if c.rankings == nil {
		return
	}
	cat := strings.TrimSpace(p.CategoryID)
	if cat == "" && c.categories != nil {
		found, err := c.categories.CategoryOf(ctx, p.TargetEntityID)
		if err != nil {
			log.Warn().Err(err).Msg("category lookup failed")
		}
		cat = found
	}
	if cat == "" {
		return
	}
	if err := c.rankings.Invalidate(ctx, cat); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("category_id", cat).Msg("ranking invalidation failed")
	}
}

// messageID prefers the envelope id, then the AMQP id, then a body hash.
func messageID(envelopeID, amqpID, routingKey string, body []byte) string {
	if id := strings.TrimSpace(envelopeID); id != "" {
		return id
	}
	if id := strings.TrimSpace(amqpID); id != "" {
		return id
	}
	h := sha256.Sum256(append([]byte(routingKey+"\n"), body...))
	return "hash:" + hex.EncodeToString(h[:])
}
