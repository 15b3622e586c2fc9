package events

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the subset of *nats.Conn used for forwarding.
type Publisher interface {
	Publish(subj string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// ForwardToNATS republishes every event of the given types on "<prefix>.<type>".
func ForwardToNATS(bus *EventBus, pub Publisher, prefix string, logger *zerolog.Logger, eventTypes ...string) {
	for _, evType := range eventTypes {
		subject := fmt.Sprintf("%s.%s", prefix, evType)
		bus.Subscribe(evType, func(event Event) error {
			if err := pub.Publish(subject, event.Payload); err != nil {
				return fmt.Errorf("publish %s: %w", subject, err)
			}
			logger.Debug().Str("subject", subject).Str("event_id", event.ID).Msg("Event forwarded")
			return nil
		})
	}
}

// ConnectNATS dials the server with reconnect logging.
func ConnectNATS(url string, logger *zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("roombooking"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
}
