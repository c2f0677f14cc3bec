// Package mongo persists users in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	sp "github.com/secretpages/secretpages"
)

// Connect opens a client for uri and pings the deployment. The database
// name is taken from the uri path, defaulting to "secrets".
func Connect(ctx context.Context, uri string) (*mongo.Database, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongo: %w: %w", sp.ErrStoreUnavailable, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("pinging mongo: %w: %w", sp.ErrStoreUnavailable, err)
	}
	return client.Database(databaseName(uri)), client.Disconnect, nil
}

func databaseName(uri string) string {
	trimmed := uri
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		name := trimmed[idx+1:]
		if idx := strings.IndexAny(name, "?/"); idx >= 0 {
			name = name[:idx]
		}
		if name != "" {
			return name
		}
	}
	return "secrets"
}

// Store implements the user store over a mongo collection.
type Store struct {
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{users: db.Collection("users")}
}

// EnsureIndexes creates the unique indexes uniqueness checks rely on.
// The indexes are partial so documents without the field do not collide.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	exists := func(field string) *options.IndexOptions {
		return options.Index().SetUnique(true).
			SetPartialFilterExpression(bson.M{field: bson.M{"$exists": true}})
	}
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: exists("username")},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: exists("google_id")},
		{Keys: bson.D{{Key: "facebook_id", Value: 1}}, Options: exists("facebook_id")},
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}

func (s *Store) CreateLocalUser(ctx context.Context, username, passwordHash string) (*sp.User, error) {
	now := time.Now()
	user := &sp.User{
		ID:           sp.NewUserID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("username %q: %w", username, sp.ErrDuplicateUsername)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*sp.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*sp.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*sp.User, error) {
	var user sp.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sp.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &user, nil
}

func (s *Store) EnsureProviderUser(ctx context.Context, provider, providerID string) (*sp.User, error) {
	field, err := providerField(provider)
	if err != nil {
		return nil, err
	}
	user, err := s.findOne(ctx, bson.M{field: providerID})
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sp.ErrUserNotFound) {
		return nil, err
	}

	now := time.Now()
	user = &sp.User{ID: sp.NewUserID(), CreatedAt: now, UpdatedAt: now}
	switch provider {
	case sp.ProviderGoogle:
		user.GoogleID = providerID
	case sp.ProviderFacebook:
		user.FacebookID = providerID
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		// A concurrent callback for the same provider id may have won
		// the insert. The index guarantees the re-find sees it.
		if mongo.IsDuplicateKeyError(err) {
			return s.findOne(ctx, bson.M{field: providerID})
		}
		return nil, fmt.Errorf("inserting provider user: %w", err)
	}
	return user, nil
}

func (s *Store) AttachProvider(ctx context.Context, userID, provider, providerID string) (*sp.User, error) {
	field, err := providerField(provider)
	if err != nil {
		return nil, err
	}
	res, err := s.users.UpdateByID(ctx, userID, bson.M{
		"$set": bson.M{field: providerID, "updated_at": time.Now()},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s id %q: %w", provider, providerID, sp.ErrDuplicateProviderID)
		}
		return nil, fmt.Errorf("attaching provider: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, sp.ErrUserNotFound
	}
	return s.GetUserByID(ctx, userID)
}

func (s *Store) SetSecret(ctx context.Context, userID, secret string) error {
	res, err := s.users.UpdateByID(ctx, userID, bson.M{
		"$set": bson.M{"secret": secret, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("updating secret: %w", err)
	}
	if res.MatchedCount == 0 {
		return sp.ErrUserNotFound
	}
	return nil
}

func (s *Store) UsersWithSecrets(ctx context.Context) ([]*sp.User, error) {
	filter := bson.M{"secret": bson.M{"$exists": true, "$ne": ""}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing secrets: %w", err)
	}
	var users []*sp.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decoding secrets: %w", err)
	}
	return users, nil
}

func providerField(provider string) (string, error) {
	switch provider {
	case sp.ProviderGoogle:
		return "google_id", nil
	case sp.ProviderFacebook:
		return "facebook_id", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}
