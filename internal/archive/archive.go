// Package archive keeps end-of-day summaries outside the operational store.
package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharmacare/backend/internal/domain"
)

type DailySummary struct {
	Date         string                     `bson:"date" json:"date"`
	Sales        domain.SalesReport         `bson:"sales" json:"sales"`
	Categories   []domain.CategoryBreakdown `bson:"categories" json:"categories"`
	TopMedicines []domain.TopMedicine       `bson:"top_medicines" json:"top_medicines"`
	Finance      domain.FinanceSummary      `bson:"finance" json:"finance"`
	StockAlerts  []domain.StockAlert        `bson:"stock_alerts" json:"stock_alerts"`
	GeneratedAt  time.Time                  `bson:"generated_at" json:"generated_at"`
}

type Archive interface {
	SaveDailySummary(ctx context.Context, summary DailySummary) error
}

type NoopArchive struct{}

func (NoopArchive) SaveDailySummary(_ context.Context, _ DailySummary) error {
	return nil
}

type MongoArchive struct {
	client   *mongo.Client
	dbName   string
	collName string
}

func NewMongoArchive(ctx context.Context, uri string, dbName string) (*MongoArchive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoArchive{
		client:   client,
		dbName:   dbName,
		collName: "daily_summaries",
	}, nil
}

// SaveDailySummary replaces any summary already stored for the same date.
func (a *MongoArchive) SaveDailySummary(ctx context.Context, summary DailySummary) error {
	collection := a.client.Database(a.dbName).Collection(a.collName)
	_, err := collection.ReplaceOne(ctx, bson.M{"date": summary.Date}, summary, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save daily summary %s: %w", summary.Date, err)
	}
	return nil
}

func (a *MongoArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
