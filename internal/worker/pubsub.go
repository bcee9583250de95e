package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger

	// MaxOutstanding caps concurrently handled messages. Default: 10.
	MaxOutstanding int
}

// PubSubHandler receives job messages from a Pub/Sub subscription and runs
// them through a Dispatcher.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	logger       zerolog.Logger
}

// NewPubSubHandler creates a Pub/Sub client for the subscription.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	if cfg.MaxOutstanding <= 0 {
		cfg.MaxOutstanding = 10
	}
	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	// A warm-up over many routes can outlast the default ack deadline.
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.SubscriptionName,
		dispatcher:   NewDispatcher(cfg.RefreshJob, cfg.Logger),
		logger:       cfg.Logger,
	}, nil
}

// Start receives messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscription).Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handle(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handle(ctx context.Context, msg *pubsub.Message) {
	start := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Time("publish_time", msg.PublishTime).
		Logger()

	jobType, err := h.dispatcher.Dispatch(ctx, msg.Attributes, msg.Data)
	logger = logger.With().Str("job_type", jobType).Dur("duration", time.Since(start)).Logger()

	switch {
	case errors.Is(err, ErrUnknownJob), errors.Is(err, ErrMalformedJob):
		logger.Warn().Err(err).Msg("dropping job message")
		msg.Ack()
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	default:
		logger.Info().Msg("job completed")
		msg.Ack()
	}
}
