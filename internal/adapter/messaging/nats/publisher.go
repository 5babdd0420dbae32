package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectListingCreated = "listings.created"
	SubjectListingUpdated = "listings.updated"
	SubjectListingDeleted = "listings.deleted"

	// SubjectListingsAll matches every listing change event.
	SubjectListingsAll = "listings.>"
)

// ListingEvent is the payload carried on every listings.* subject.
type ListingEvent struct {
	ListingID string    `json:"listing_id"`
	Title     string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	log := logger.Named("NATS")
	conn, err := nats.Connect(url,
		nats.Timeout(10*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				log.Error("NATS async error", zap.String("subject", sub.Subject), zap.Error(err))
				return
			}
			log.Error("NATS async error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}

func NewPublisher(conn *nats.Conn, logger *zap.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger.Named("NATSPublisher"),
	}
}

func (p *Publisher) PublishListingCreated(listingID, title string) error {
	return p.publish(SubjectListingCreated, ListingEvent{
		ListingID:  listingID,
		Title:      title,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishListingUpdated(listingID string) error {
	return p.publish(SubjectListingUpdated, ListingEvent{
		ListingID:  listingID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishListingDeleted(listingID string) error {
	return p.publish(SubjectListingDeleted, ListingEvent{
		ListingID:  listingID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, event ListingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to marshal event for subject %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Error("Failed to publish event", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	p.logger.Debug("Event published", zap.String("subject", subject), zap.String("listing_id", event.ListingID))
	return nil
}

// Close drains the connection so queued messages flush before shutdown.
func (p *Publisher) Close() {
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Drain(); err != nil {
			p.logger.Warn("Error draining NATS connection", zap.Error(err))
		}
	}
}
