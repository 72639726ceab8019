package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quickgpt/backend/internal/model"
)

const (
	chatsCollection = "chats"
	usersCollection = "users"

	// maxAppendAttempts bounds the optimistic retry loop in AppendMessages.
	maxAppendAttempts = 8
)

// ErrAppendContention is returned when an append lost the version race too many times.
var ErrAppendContention = errors.New("repository: too many concurrent appends")

// chatDocument is the stored shape: one document per chat with embedded messages,
// plus a version counter used for compare-and-swap appends.
type chatDocument struct {
	model.Chat `bson:",inline"`
	Version    int64 `bson:"version"`
}

// MongoRepository stores chats and users in MongoDB.
type MongoRepository struct {
	db    *mongo.Database
	chats *mongo.Collection
	users *mongo.Collection
	now   func() time.Time
}

// NewMongoRepository returns a Store backed by db. Call EnsureIndexes once at startup.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		db:    db,
		chats: db.Collection(chatsCollection),
		users: db.Collection(usersCollection),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the listing index on chats and the unique email index on users.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
		Options: options.Index().SetName("user_updated_idx"),
	})
	if err != nil {
		return fmt.Errorf("create chats index: %w", err)
	}
	_, err = r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (r *MongoRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	doc := chatDocument{Chat: *chat}
	// A nil slice would be stored as null and $push refuses to append to null.
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}
	_, err := r.chats.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (r *MongoRepository) ListChats(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := r.chats.Find(ctx, bson.M{"userId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	chats := make([]*model.Chat, 0)
	for cur.Next(ctx) {
		var doc chatDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		chats = append(chats, doc.normalized())
	}
	return chats, cur.Err()
}

func (r *MongoRepository) GetChat(ctx context.Context, ownerID, chatID string) (*model.Chat, error) {
	doc, err := r.findChat(ctx, ownerID, chatID)
	if err != nil {
		return nil, err
	}
	return doc.normalized(), nil
}

func (r *MongoRepository) DeleteChat(ctx context.Context, ownerID, chatID string) error {
	_, err := r.chats.DeleteOne(ctx, bson.M{"_id": chatID, "userId": ownerID})
	return err
}

// AppendMessages pushes msgs with a version-guarded FindOneAndUpdate. A lost race
// re-reads the chat and retries; a chat that disappeared in between surfaces as
// ErrNotFound on the re-read, so a deleted chat is never recreated.
func (r *MongoRepository) AppendMessages(ctx context.Context, ownerID, chatID string, msgs ...model.Message) (*model.Chat, error) {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		doc, err := r.findChat(ctx, ownerID, chatID)
		if err != nil {
			return nil, err
		}

		filter := bson.M{"_id": chatID, "userId": ownerID, "version": doc.Version}
		if doc.Version == 0 {
			// Documents written before versioning have no version field at all.
			filter["version"] = bson.M{"$in": bson.A{0, nil}}
		}
		update := bson.M{
			"$push": bson.M{"messages": bson.M{"$each": model.ClampTimestamps(doc.LastTimestamp(), msgs)}},
			"$inc":  bson.M{"version": 1},
			"$max":  bson.M{"updatedAt": r.now()},
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var updated chatDocument
		err = r.chats.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not append messages: %w", err)
		}
		return updated.normalized(), nil
	}
	return nil, ErrAppendContention
}

func (r *MongoRepository) CreateUser(ctx context.Context, user *model.User) error {
	u := *user
	u.Email = model.NormalizeEmail(u.Email)
	_, err := r.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findUser(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (r *MongoRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.db.Client().Disconnect(ctx)
}

func (r *MongoRepository) findChat(ctx context.Context, ownerID, chatID string) (*chatDocument, error) {
	var doc chatDocument
	err := r.chats.FindOne(ctx, bson.M{"_id": chatID, "userId": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *MongoRepository) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	err := r.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *chatDocument) normalized() *model.Chat {
	c := d.Chat
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}
	return &c
}
