package repository

import (
	"context"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/pkg/logger"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoDocumentStore 每个用户一个文档，userId 上有唯一索引
type MongoDocumentStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoDocumentStore(client *mongo.Client, database, collection string) *MongoDocumentStore {
	return &MongoDocumentStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// EnsureIndexes 创建 userId 唯一索引，保证每个用户只有一份文档
func (s *MongoDocumentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("userId_unique"),
	})
	return err
}

func (s *MongoDocumentStore) FindOrCreate(ctx context.Context, userID string, now time.Time) (*model.UserRecord, error) {
	filter := bson.M{"userId": userID}
	update := bson.M{"$setOnInsert": skeletonFields(now)}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var rec model.UserRecord
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if mongo.IsDuplicateKeyError(err) {
		// 两个请求同时 upsert 时后者撞唯一索引，此时文档已存在，再读一次即可
		logger.Log.Debug("Concurrent skeleton insert, retrying read", zap.String("userId", userID))
		err = s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	}
	if err != nil {
		return nil, err
	}
	return rec.Normalize(), nil
}

func (s *MongoDocumentStore) UpsertFields(ctx context.Context, userID string, patch model.RecordPatch, now time.Time) error {
	filter := bson.M{"userId": userID}
	update := buildUpsertUpdate(patch, now)

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		_, err = s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	}
	return err
}

func (s *MongoDocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoDocumentStore) Name() string {
	return "mongo"
}

// skeletonFields 新文档的空序列，userId 由查询条件写入
func skeletonFields(now time.Time) bson.M {
	return bson.M{
		string(model.SliceWrongAnswers):   []model.WrongAnswer{},
		string(model.SliceGoals):          []model.Goal{},
		string(model.SliceCalendarEvents): []model.CalendarEvent{},
		string(model.SliceScoreRecords):   []model.ScoreRecord{},
		"lastUpdated":                     now,
	}
}

// buildUpsertUpdate 出现的字段走 $set，缺失的字段只在插入时补空序列
func buildUpsertUpdate(patch model.RecordPatch, now time.Time) bson.M {
	set := bson.M{"lastUpdated": now}
	onInsert := skeletonFields(now)
	delete(onInsert, "lastUpdated")

	if patch.WrongAnswers != nil {
		set[string(model.SliceWrongAnswers)] = *patch.WrongAnswers
	}
	if patch.Goals != nil {
		set[string(model.SliceGoals)] = *patch.Goals
	}
	if patch.CalendarEvents != nil {
		set[string(model.SliceCalendarEvents)] = *patch.CalendarEvents
	}
	if patch.ScoreRecords != nil {
		set[string(model.SliceScoreRecords)] = *patch.ScoreRecords
	}
	for key := range set {
		delete(onInsert, key)
	}

	update := bson.M{"$set": set}
	if len(onInsert) > 0 {
		update["$setOnInsert"] = onInsert
	}
	return update
}
