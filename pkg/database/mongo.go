package database

import (
	"context"
	"log"
	"study_notebook_backend/internal/config"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitMongo 连接 MongoDB 并 Ping 确认可用
func InitMongo(cfg *config.DocumentStoreConfig) (*mongo.Client, error) {
	log.Println("Attempting to connect to MongoDB...")

	uri := cfg.MongoURI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("MongoDB connection established")
	return client, nil
}
