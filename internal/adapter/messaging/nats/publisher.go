package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("catalog-service/nats-publisher")

// SubjectReplyCreated carries the notification emitted after a reply is
// posted to a review.
const SubjectReplyCreated = "store.review.reply_created"

// Publisher emits catalog events over NATS.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// NewPublisher connects to NATS with reconnect/error handlers wired into the
// service logger.
func NewPublisher(url string, log *logger.Logger, appName string) (*Publisher, error) {
	log.Info("NATS Publisher: connecting", zap.String("url", url))

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("%s NATS Publisher", appName)),
		nats.Timeout(10 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		log.Error("NATS Publisher: failed to connect", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info("NATS Publisher: successfully connected", zap.String("url", conn.ConnectedUrl()))

	return &Publisher{
		conn:   conn,
		logger: log.Named("NATSPublisher"),
	}, nil
}

// PublishReplyCreated emits the reply-created notification. The caller
// treats failures as non-fatal.
func (p *Publisher) PublishReplyCreated(ctx context.Context, event *domain.ReplyCreatedEvent) error {
	return p.publish(ctx, SubjectReplyCreated, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data interface{}) error {
	_, span := tracer.Start(ctx, fmt.Sprintf("NATS.Publish.%s", subject))
	defer span.End()

	jsonData, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("subject", subject), zap.Error(err))
		span.RecordError(err)
		return fmt.Errorf("failed to marshal data for subject %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = jsonData
	msg.Header = make(nats.Header)

	propagator := otel.GetTextMapPropagator()
	propagator.Inject(ctx, headerCarrier(msg.Header))

	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("Failed to publish message", zap.String("subject", subject), zap.Error(err))
		span.RecordError(err)
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	p.logger.Debug("Message published", zap.String("subject", subject), zap.Int("data_size_bytes", len(jsonData)))
	return nil
}

type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, value string) {
	nats.Header(c).Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	p.logger.Info("NATS Publisher: closing connection")
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Drain(); err != nil {
			p.logger.Error("NATS Publisher: failed to drain connection", zap.Error(err))
		}
		p.conn.Close()
	}
}
