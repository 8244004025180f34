package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cugtyt/agentloop/internal/logger"
)

type DistributedEventBus struct {
	nats           *nats.Conn
	jetStream      nats.JetStreamContext
	subscriptions  []*nats.Subscription
	createdStreams map[string]bool
	mu             sync.Mutex
	log            *logger.Logger
}

var _ EventBus = (*DistributedEventBus)(nil)

func NewDistributedEventBus(natsURL string) (*DistributedEventBus, error) {
	log := logger.Named("eventbus")

	nc, err := nats.Connect(natsURL,
		nats.Name("agentloop"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warnw("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	deb := &DistributedEventBus{
		nats:           nc,
		jetStream:      js,
		createdStreams: make(map[string]bool),
		log:            log,
	}

	log.Infow("connected to NATS", "url", natsURL)
	return deb, nil
}

func (deb *DistributedEventBus) ensureStreamForSubject(subject string) error {
	deb.mu.Lock()
	defer deb.mu.Unlock()

	if deb.createdStreams[subject] {
		return nil
	}

	if _, err := deb.jetStream.StreamInfo(subject); err != nil {
		streamConfig := &nats.StreamConfig{
			Name:       subject,
			Subjects:   []string{subject},
			Retention:  nats.LimitsPolicy,
			Storage:    nats.FileStorage,
			Duplicates: 2 * time.Minute,
			MaxAge:     24 * time.Hour,
		}

		if _, err := deb.jetStream.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", subject, err)
		}
		deb.log.Infow("created JetStream stream", "stream", subject)
	}

	deb.createdStreams[subject] = true
	return nil
}

func (deb *DistributedEventBus) Emit(event Event) error {
	subject := event.Subject()

	if err := deb.ensureStreamForSubject(subject); err != nil {
		return fmt.Errorf("failed to ensure stream for %s: %w", subject, err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := deb.jetStream.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	deb.log.Debugw("event emitted", "subject", subject)
	return nil
}

// Subscribe attaches a durable queue consumer. Messages are acked after the
// handler returns.
func (deb *DistributedEventBus) Subscribe(subject, queue string, handler Handler) error {
	if err := deb.ensureStreamForSubject(subject); err != nil {
		return err
	}

	consumerName := fmt.Sprintf("%s-consumer", queue)

	sub, err := deb.jetStream.QueueSubscribe(subject, queue,
		func(msg *nats.Msg) {
			handler(msg.Data)
			if err := msg.Ack(); err != nil {
				deb.log.Warnw("failed to ack message", "subject", subject, "error", err)
			}
		},
		nats.Durable(consumerName),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	deb.mu.Lock()
	deb.subscriptions = append(deb.subscriptions, sub)
	deb.mu.Unlock()

	deb.log.Infow("subscribed", "subject", subject, "queue", queue)
	return nil
}

func (deb *DistributedEventBus) Close() error {
	deb.mu.Lock()
	defer deb.mu.Unlock()

	for _, sub := range deb.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			deb.log.Warnw("error unsubscribing", "error", err)
		}
	}
	deb.subscriptions = nil

	if deb.nats != nil {
		deb.nats.Close()
	}

	deb.log.Info("event bus closed")
	return nil
}

func (deb *DistributedEventBus) IsConnected() bool {
	return deb.nats != nil && deb.nats.IsConnected()
}

func (deb *DistributedEventBus) Status() string {
	if deb.nats == nil {
		return "Not initialized"
	}
	if deb.nats.IsConnected() {
		return fmt.Sprintf("Connected to %s", deb.nats.ConnectedUrl())
	}
	return "Disconnected"
}
