package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// NotificationMessage is the contract emitted to the notification collaborator
// after a staffing mutation, proposal transition or compliance alert commits.
type NotificationMessage struct {
	OrganizationId string    `json:"organization_id"`
	RecipientId    int       `json:"recipient_id"`
	EventKind      string    `json:"event_kind"`
	ReferenceId    int       `json:"reference_id"`
	ReferenceType  string    `json:"reference_type"`
	Payload        []byte    `json:"payload"`
	CorrelationId  string    `json:"correlation_id"`
	EmittedAt      time.Time `json:"emitted_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex

	pubsubTopics   = map[string]*pubsub.Topic{}
	pubsubTopicsMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Application Default Credentials (service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	if pubsubClient == nil {
		pubsubClient = c
	} else {
		// Another goroutine won the race; close ours.
		_ = c.Close()
	}
	c2 := pubsubClient
	pubsubClientMu.Unlock()

	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return c2, nil
}

func CreateTopicIfNotExists(c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	ctx := context.Background()
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// getTopic resolves a topic handle once per process, creating the topic on
// first use so a fresh environment does not drop its first notification.
func getTopic(client *pubsub.Client, name string) (*pubsub.Topic, error) {
	pubsubTopicsMu.Lock()
	defer pubsubTopicsMu.Unlock()
	if t, ok := pubsubTopics[name]; ok {
		return t, nil
	}
	t, err := CreateTopicIfNotExists(client, name)
	if err != nil {
		return nil, err
	}
	pubsubTopics[name] = t
	return t, nil
}

// PublishNotification publishes and returns the Pub/Sub server-assigned message ID.
// Callers run this AFTER the database transaction commits; a failure here must
// never roll back the committed mutation.
func PublishNotification(ctx context.Context, msg NotificationMessage) (string, error) {
	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	topicName := os.Getenv("NOTIFICATION_TOPIC")
	if topicName == "" {
		return "", errors.New("NOTIFICATION_TOPIC is required")
	}

	t, err := getTopic(client, topicName)
	if err != nil {
		return "", err
	}
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := t.Publish(ctx, &pubsub.Message{
		Data: msgJSON,
	})

	id, err := result.Get(ctx)
	return id, err
}
