package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/minestapp/minest-backend/database"
	"github.com/minestapp/minest-backend/models"
)

// TodoStore scopes every operation to the owning user; a todo belonging to
// another user is indistinguishable from a missing one.
type TodoStore interface {
	Create(ctx context.Context, todo *models.Todo) error
	FindPage(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Todo, int64, error)
	FindOne(ctx context.Context, userID, todoID bson.ObjectID) (*models.Todo, error)
	UpdateOne(ctx context.Context, userID, todoID bson.ObjectID, set bson.M) (*models.Todo, error)
	DeleteOne(ctx context.Context, userID, todoID bson.ObjectID) error
}

type MongoTodoStore struct {
	col *mongo.Collection
}

func NewMongoTodoStore(db *database.Mongo) *MongoTodoStore {
	return &MongoTodoStore{col: db.Collection("todos")}
}

func (s *MongoTodoStore) Create(ctx context.Context, todo *models.Todo) error {
	if todo.ID.IsZero() {
		todo.ID = bson.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, todo)
	return err
}

func (s *MongoTodoStore) FindPage(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Todo, int64, error) {
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOpts := options.Find().
		SetSort(sort).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	todos := make([]models.Todo, 0)
	if err := cursor.All(ctx, &todos); err != nil {
		return nil, 0, err
	}
	return todos, total, nil
}

func (s *MongoTodoStore) FindOne(ctx context.Context, userID, todoID bson.ObjectID) (*models.Todo, error) {
	var todo models.Todo
	err := s.col.FindOne(ctx, bson.M{"_id": todoID, "user": userID}).Decode(&todo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *MongoTodoStore) UpdateOne(ctx context.Context, userID, todoID bson.ObjectID, set bson.M) (*models.Todo, error) {
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var todo models.Todo
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": todoID, "user": userID}, bson.M{"$set": set}, opts).Decode(&todo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *MongoTodoStore) DeleteOne(ctx context.Context, userID, todoID bson.ObjectID) error {
	err := s.col.FindOneAndDelete(ctx, bson.M{"_id": todoID, "user": userID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
