package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/cbg-gallery/portal/internal/domain"
)

// PubSubArchivePublisher publishes archive lifecycle events to a Pub/Sub topic.
type PubSubArchivePublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubArchivePublisher constructs a Pub/Sub backed archive event publisher.
func NewPubSubArchivePublisher(topic *pubsub.Topic) (*PubSubArchivePublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub archive publisher: topic is required")
	}
	return &PubSubArchivePublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishArchiveEvent sends the event and waits for the server to acknowledge it.
func (p *PubSubArchivePublisher) PublishArchiveEvent(ctx context.Context, event domain.ArchiveEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub archive publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal archive event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", event.Event)
	setAttr(attrs, "archiveId", event.ArchiveID)
	setAttr(attrs, "providerItemId", event.ProviderItemID)
	setAttr(attrs, "artist", event.ArtistName)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish archive event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
