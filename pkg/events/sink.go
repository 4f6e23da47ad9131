package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sink receives agent run events. Implementations must be safe for use
// from the run goroutine; publishing failures are reported but runs do
// not depend on them.
type Sink interface {
	Publish(e Event) error
}

// NullSink discards every event.
type NullSink struct{}

func (NullSink) Publish(Event) error { return nil }

// PublisherSink forwards events to a watermill publisher on a fixed
// topic.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
}

func NewPublisherSink(publisher message.Publisher, topic string) *PublisherSink {
	return &PublisherSink{publisher: publisher, topic: topic}
}

func (s *PublisherSink) Publish(e Event) error {
	payload, err := MarshalEvent(e)
	if err != nil {
		return errors.Wrap(err, "marshaling event")
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return errors.Wrapf(err, "publishing %s event", e.Type())
	}
	return nil
}

// SafePublish publishes and logs failures instead of propagating them.
// Agent runs use it so a broken sink never aborts a run.
func SafePublish(sink Sink, e Event) {
	if sink == nil {
		return
	}
	if err := sink.Publish(e); err != nil {
		log.Warn().Err(err).Str("event_type", string(e.Type())).Msg("failed to publish event")
	}
}
