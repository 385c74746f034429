package db

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

const mongoConnectTimeout = 10 * time.Second

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo dials the link store with the otel command monitor attached.
func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("mongodb connected", zap.String("database", dbName))
	return &Mongo{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (m *Mongo) Disconnect() error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}
