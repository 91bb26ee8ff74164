package mongo

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "sufra"

	connectTimeout  = 10 * time.Second
	selectTimeout   = 5 * time.Second
	maxConnIdleTime = 30 * time.Minute
)

// ClientConfig holds configuration for the storage connection. Zero values
// fall back to local-development defaults.
type ClientConfig struct {
	URI      string
	Database string
}

// ConfigFromEnv reads MONGODB_URI and MONGODB_DATABASE.
func ConfigFromEnv() ClientConfig {
	return ClientConfig{
		URI:      os.Getenv("MONGODB_URI"),
		Database: os.Getenv("MONGODB_DATABASE"),
	}
}

// Client owns the driver connection and the database handle the
// repositories hang off.
type Client struct {
	client   *mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// Connect establishes and verifies the storage connection. The catalog,
// cart, and order repositories all share the one pooled client.
func Connect(ctx context.Context, config ClientConfig, logger *zap.Logger) (*Client, error) {
	if config.URI == "" {
		config.URI = defaultURI
	}
	if config.Database == "" {
		config.Database = defaultDatabase
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(maxConnIdleTime).
		SetServerSelectionTimeout(selectTimeout).
		SetConnectTimeout(connectTimeout)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	// The URI may carry credentials, so only the database name is logged.
	logger.Info("Connected to MongoDB", zap.String("database", config.Database))

	return &Client{
		client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close disconnects from storage.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
