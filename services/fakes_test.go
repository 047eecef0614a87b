package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/minestapp/minest-backend/models"
	"github.com/minestapp/minest-backend/store"
)

// fakeUserStore is an in-memory UserStore mirroring the Mongo
// implementation's semantics, including the hidden-field projection.
type fakeUserStore struct {
	users map[bson.ObjectID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[bson.ObjectID]*models.User)}
}

func (f *fakeUserStore) copyOf(u *models.User, withSecrets bool) *models.User {
	cp := *u
	if !withSecrets {
		cp.PasswordHash = ""
		cp.RefreshToken = ""
		cp.VerificationToken = ""
		cp.ResetPasswordToken = ""
		cp.ResetPasswordExpires = nil
	}
	return &cp
}

func (f *fakeUserStore) get(id bson.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string, withSecrets bool) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return f.copyOf(u, withSecrets), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) FindByID(ctx context.Context, id bson.ObjectID, withSecrets bool) (*models.User, error) {
	u, err := f.get(id)
	if err != nil {
		return nil, err
	}
	return f.copyOf(u, withSecrets), nil
}

func (f *fakeUserStore) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	for _, u := range f.users {
		if u.ResetPasswordToken == digest && u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			return f.copyOf(u, true), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.users {
		if u.VerificationToken != "" && u.VerificationToken == token {
			return f.copyOf(u, true), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.RefreshToken = token
	return nil
}

func (f *fakeUserStore) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.RefreshToken = ""
	return nil
}

func (f *fakeUserStore) SetResetFields(ctx context.Context, id bson.ObjectID, digest string, expires time.Time) error {
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.ResetPasswordToken = digest
	u.ResetPasswordExpires = &expires
	return nil
}

func (f *fakeUserStore) ClearResetFields(ctx context.Context, id bson.ObjectID) error {
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.ResetPasswordToken = ""
	u.ResetPasswordExpires = nil
	return nil
}

func (f *fakeUserStore) SetPassword(ctx context.Context, id bson.ObjectID, hash string, clearReset bool) error {
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if clearReset {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
	}
	return nil
}

func (f *fakeUserStore) MarkEmailVerified(ctx context.Context, id bson.ObjectID) error {
	u, err := f.get(id)
	if err != nil {
		return err
	}
	u.IsEmailVerified = true
	u.VerificationToken = ""
	return nil
}

func (f *fakeUserStore) UpdateProfile(ctx context.Context, id bson.ObjectID, set bson.M) (*models.User, error) {
	u, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if v, ok := set["firstName"].(string); ok {
		u.FirstName = v
	}
	if v, ok := set["lastName"].(string); ok {
		u.LastName = v
	}
	if v, ok := set["email"].(string); ok {
		u.Email = v
	}
	return f.copyOf(u, false), nil
}

// fakeSender records sent mail and optionally fails per message type.
type fakeSender struct {
	verifications []string // "to:token"
	resets        []string
	confirmations []string

	failResets        bool
	failConfirmations bool
}

func (f *fakeSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	f.verifications = append(f.verifications, fmt.Sprintf("%s:%s", to, token))
	return nil
}

func (f *fakeSender) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	if f.failResets {
		return errors.New("smtp unavailable")
	}
	f.resets = append(f.resets, fmt.Sprintf("%s:%s", to, token))
	return nil
}

func (f *fakeSender) SendPasswordChangeConfirmation(ctx context.Context, to string) error {
	if f.failConfirmations {
		return errors.New("smtp unavailable")
	}
	f.confirmations = append(f.confirmations, to)
	return nil
}

// fakeTodoStore records the last query so filter construction can be
// asserted without a database.
type fakeTodoStore struct {
	todos map[bson.ObjectID]*models.Todo

	lastFilter bson.M
	lastSort   bson.D
	lastSkip   int64
	lastLimit  int64
	pageResult []models.Todo
	pageTotal  int64
}

func newFakeTodoStore() *fakeTodoStore {
	return &fakeTodoStore{todos: make(map[bson.ObjectID]*models.Todo)}
}

func (f *fakeTodoStore) Create(ctx context.Context, todo *models.Todo) error {
	if todo.ID.IsZero() {
		todo.ID = bson.NewObjectID()
	}
	cp := *todo
	f.todos[todo.ID] = &cp
	return nil
}

func (f *fakeTodoStore) FindPage(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Todo, int64, error) {
	f.lastFilter = filter
	f.lastSort = sort
	f.lastSkip = skip
	f.lastLimit = limit
	return f.pageResult, f.pageTotal, nil
}

func (f *fakeTodoStore) FindOne(ctx context.Context, userID, todoID bson.ObjectID) (*models.Todo, error) {
	t, ok := f.todos[todoID]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTodoStore) UpdateOne(ctx context.Context, userID, todoID bson.ObjectID, set bson.M) (*models.Todo, error) {
	t, ok := f.todos[todoID]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	if v, ok := set["title"].(string); ok {
		t.Title = v
	}
	if v, ok := set["description"].(string); ok {
		t.Description = v
	}
	if v, ok := set["status"].(models.TodoStatus); ok {
		t.Status = v
	}
	if v, ok := set["priority"].(models.TodoPriority); ok {
		t.Priority = v
	}
	if v, ok := set["tags"].([]string); ok {
		t.Tags = v
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTodoStore) DeleteOne(ctx context.Context, userID, todoID bson.ObjectID) error {
	t, ok := f.todos[todoID]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.todos, todoID)
	return nil
}
