package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "moodcast"

	maxPoolSize = 4
	dialTimeout = 10 * time.Second
)

// ClientConfig holds the connection settings. Empty fields use local
// defaults.
type ClientConfig struct {
	URI      string
	Database string
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.URI == "" {
		c.URI = defaultURI
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	return c
}

func (c ClientConfig) options() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.URI).
		SetAppName("moodcast").
		SetMaxPoolSize(maxPoolSize).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(dialTimeout)
}

// Client is a connected session store database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects and pings so a bad URI fails at startup
func NewClient(ctx context.Context, config ClientConfig, logger *zap.Logger) (*Client, error) {
	config = config.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, config.options())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Session store connected", zap.String("database", config.Database))
	return &Client{
		Client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close disconnects, waiting at most until ctx is done
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect session store", zap.Error(err))
		return err
	}
	c.logger.Info("Session store disconnected")
	return nil
}
