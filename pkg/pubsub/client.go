// Package pubsub owns the Pub/Sub connection the outbox publisher sends
// collection events through.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
	ErrTopicMissing      = errors.New("pubsub topic does not exist")
)

type Client struct {
	client       *pubsub.Client
	projectID    string
	createTopics bool
	logg         *logger.Logger

	mu     sync.Mutex
	topics []string
}

// NewClient connects and verifies the collections topic. Credentials come
// from cfg when set, otherwise from the environment; PUBSUB_EMULATOR_HOST is
// honoured by the SDK.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	sdk, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:       sdk,
		projectID:    projectID,
		createTopics: cfg.CreateTopics,
		logg:         logg,
	}
	if err := c.EnsureTopics(ctx, cfg.CollectionsTopic); err != nil {
		_ = sdk.Close()
		return nil, err
	}
	return c, nil
}

// EnsureTopics checks each topic exists, creating it when the client was
// configured to. Ensured topics are rechecked by Ping.
func (c *Client) EnsureTopics(ctx context.Context, names ...string) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, name := range names {
		full := TopicResourceName(c.projectID, name)
		if full == "" {
			return fmt.Errorf("topic name %q is invalid", name)
		}
		if err := c.ensure(ctx, full); err != nil {
			return err
		}
		c.mu.Lock()
		if !slices.Contains(c.topics, full) {
			c.topics = append(c.topics, full)
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *Client) ensure(ctx context.Context, full string) error {
	err := c.lookup(ctx, full)
	if !errors.Is(err, ErrTopicMissing) || !c.createTopics {
		return err
	}
	_, err = c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: full})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("creating topic %s: %w", full, err)
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "topic", full), "pubsub.topic_created")
	}
	return nil
}

func (c *Client) lookup(ctx context.Context, full string) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, full)
	default:
		return fmt.Errorf("checking topic %s: %w", full, err)
	}
}

// Publisher returns the SDK publisher for a topic id or full resource name.
// Callers own the handle and must Stop it.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping rechecks every ensured topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	c.mu.Lock()
	topics := slices.Clone(c.topics)
	c.mu.Unlock()
	for _, full := range topics {
		if err := c.lookup(ctx, full); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicResourceName expands a bare topic id into projects/<p>/topics/<id>.
// Full resource names pass through unchanged.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
