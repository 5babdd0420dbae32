package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type Subscriber struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewSubscriber(conn *nats.Conn, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		conn:   conn,
		logger: logger.Named("NATSSubscriber"),
	}
}

// SubscribeListingEvents invokes handler for every listing change event.
// Malformed payloads are logged and dropped. The returned function
// unsubscribes.
func (s *Subscriber) SubscribeListingEvents(handler func(subject string, event ListingEvent)) (func(), error) {
	sub, err := s.conn.Subscribe(SubjectListingsAll, func(msg *nats.Msg) {
		var event ListingEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			s.logger.Error("Failed to unmarshal listing event",
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return
		}
		s.logger.Debug("Listing event received",
			zap.String("subject", msg.Subject),
			zap.String("listing_id", event.ListingID))
		handler(msg.Subject, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", SubjectListingsAll, err)
	}

	s.logger.Info("Subscribed to listing events", zap.String("subject", SubjectListingsAll))
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}, nil
}
