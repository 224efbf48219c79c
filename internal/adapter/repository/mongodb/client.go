package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// NewClient connects to MongoDB and verifies the connection with a ping.
func NewClient(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Error("Failed to create MongoDB client", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		log.Error("Failed to ping MongoDB", zap.Error(err))
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("Successfully connected to MongoDB")
	return client, nil
}
