package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cbg-gallery/portal/internal/domain"
)

func TestPubSubArchivePublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "archive-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubArchivePublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubArchivePublisher: %v", err)
	}

	event := domain.ArchiveEvent{
		Event:          domain.EventArtworkArchived,
		ArchiveID:      "01HZX3R7Q9ARCHIVE",
		ProviderItemID: "ITEM123",
		Title:          "Harbor at Dusk",
		ArtistName:     "Ana Reyes",
		Actor:          "Gallery Staff",
		OccurredAt:     time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC),
	}

	if _, err := publisher.PublishArchiveEvent(ctx, event); err != nil {
		t.Fatalf("PublishArchiveEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload domain.ArchiveEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ArchiveID != event.ArchiveID || payload.Title != event.Title {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["event"]; attr != domain.EventArtworkArchived {
		t.Fatalf("expected event attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["title"]; ok {
		t.Fatalf("title attribute should not be present")
	}
}

func TestNewPubSubArchivePublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubArchivePublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
