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

// ErrNotFound is returned by every store lookup that matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique index rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// UserStore is the credential store contract consumed by the auth service.
// Credential fields (password hash, refresh/reset/verification tokens) are
// excluded from reads unless withSecrets is set.
type UserStore interface {
	FindByEmail(ctx context.Context, email string, withSecrets bool) (*models.User, error)
	FindByID(ctx context.Context, id bson.ObjectID, withSecrets bool) (*models.User, error)
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
	ClearRefreshToken(ctx context.Context, id bson.ObjectID) error
	SetResetFields(ctx context.Context, id bson.ObjectID, digest string, expires time.Time) error
	ClearResetFields(ctx context.Context, id bson.ObjectID) error
	SetPassword(ctx context.Context, id bson.ObjectID, hash string, clearReset bool) error
	MarkEmailVerified(ctx context.Context, id bson.ObjectID) error
	UpdateProfile(ctx context.Context, id bson.ObjectID, set bson.M) (*models.User, error)
}

// hiddenFields are projected out of default user reads.
var hiddenFields = []string{
	"passwordHash",
	"refreshToken",
	"verificationToken",
	"resetPasswordToken",
	"resetPasswordExpires",
}

type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *database.Mongo) *MongoUserStore {
	return &MongoUserStore{col: db.Collection("users")}
}

func defaultProjection() bson.M {
	proj := bson.M{}
	for _, f := range hiddenFields {
		proj[f] = 0
	}
	return proj
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M, withSecrets bool) (*models.User, error) {
	opts := options.FindOne()
	if !withSecrets {
		opts.SetProjection(defaultProjection())
	}

	var user models.User
	err := s.col.FindOne(ctx, filter, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string, withSecrets bool) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, withSecrets)
}

func (s *MongoUserStore) FindByID(ctx context.Context, id bson.ObjectID, withSecrets bool) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, withSecrets)
}

// FindByResetDigest matches the stored reset digest and re-checks expiry in
// the query itself, so a stale token never resolves to a user.
func (s *MongoUserStore) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	return s.findOne(ctx, bson.M{
		"resetPasswordToken":   digest,
		"resetPasswordExpires": bson.M{"$gt": now},
	}, true)
}

func (s *MongoUserStore) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"verificationToken": token}, true)
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, user)
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoUserStore) update(ctx context.Context, id bson.ObjectID, update bson.M) error {
	set, ok := update["$set"].(bson.M)
	if !ok {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now().UTC()

	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"refreshToken": token}})
}

func (s *MongoUserStore) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	return s.update(ctx, id, bson.M{"$unset": bson.M{"refreshToken": ""}})
}

func (s *MongoUserStore) SetResetFields(ctx context.Context, id bson.ObjectID, digest string, expires time.Time) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{
		"resetPasswordToken":   digest,
		"resetPasswordExpires": expires,
	}})
}

func (s *MongoUserStore) ClearResetFields(ctx context.Context, id bson.ObjectID) error {
	return s.update(ctx, id, bson.M{"$unset": bson.M{
		"resetPasswordToken":   "",
		"resetPasswordExpires": "",
	}})
}

func (s *MongoUserStore) SetPassword(ctx context.Context, id bson.ObjectID, hash string, clearReset bool) error {
	update := bson.M{"$set": bson.M{"passwordHash": hash}}
	if clearReset {
		update["$unset"] = bson.M{
			"resetPasswordToken":   "",
			"resetPasswordExpires": "",
		}
	}
	return s.update(ctx, id, update)
}

func (s *MongoUserStore) MarkEmailVerified(ctx context.Context, id bson.ObjectID) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"isEmailVerified": true},
		"$unset": bson.M{"verificationToken": ""},
	})
}

func (s *MongoUserStore) UpdateProfile(ctx context.Context, id bson.ObjectID, set bson.M) (*models.User, error) {
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(defaultProjection())

	var user models.User
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}
