package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	sp "github.com/secretpages/secretpages"
)

// Store implements the user store over a gorm DB. The DB must be opened
// with TranslateError so duplicate-key failures surface as
// gorm.ErrDuplicatedKey across drivers.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&UserModel{}); err != nil {
		return nil, fmt.Errorf("migrating users table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateLocalUser(ctx context.Context, username, passwordHash string) (*sp.User, error) {
	now := time.Now()
	model := &UserModel{
		ID:           sp.NewUserID(),
		Username:     strptr(username),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username %q: %w", username, sp.ErrDuplicateUsername)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return model.ToUser(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*sp.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*sp.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *Store) first(ctx context.Context, query string, args ...any) (*sp.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).Where(query, args...).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sp.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return model.ToUser(), nil
}

func (s *Store) EnsureProviderUser(ctx context.Context, provider, providerID string) (*sp.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	user, err := s.first(ctx, column+" = ?", providerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sp.ErrUserNotFound) {
		return nil, err
	}

	now := time.Now()
	model := &UserModel{ID: sp.NewUserID(), CreatedAt: now, UpdatedAt: now}
	switch provider {
	case sp.ProviderGoogle:
		model.GoogleID = strptr(providerID)
	case sp.ProviderFacebook:
		model.FacebookID = strptr(providerID)
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		// Lost the insert race to a concurrent callback; the winner's
		// row is what we want.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.first(ctx, column+" = ?", providerID)
		}
		return nil, fmt.Errorf("inserting provider user: %w", err)
	}
	return model.ToUser(), nil
}

func (s *Store) AttachProvider(ctx context.Context, userID, provider, providerID string) (*sp.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", userID).
		Updates(map[string]any{column: providerID, "updated_at": time.Now()})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%s id %q: %w", provider, providerID, sp.ErrDuplicateProviderID)
		}
		return nil, fmt.Errorf("attaching provider: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, sp.ErrUserNotFound
	}
	return s.GetUserByID(ctx, userID)
}

func (s *Store) SetSecret(ctx context.Context, userID, secret string) error {
	res := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", userID).
		Updates(map[string]any{"secret": secret, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("updating secret: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return sp.ErrUserNotFound
	}
	return nil
}

func (s *Store) UsersWithSecrets(ctx context.Context) ([]*sp.User, error) {
	var models []UserModel
	err := s.db.WithContext(ctx).
		Where("secret <> ''").
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing secrets: %w", err)
	}
	users := make([]*sp.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToUser())
	}
	return users, nil
}

func providerColumn(provider string) (string, error) {
	switch provider {
	case sp.ProviderGoogle:
		return "google_id", nil
	case sp.ProviderFacebook:
		return "facebook_id", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}
