// Package gorm persists users in a relational database through gorm.
package gorm

import (
	"time"

	sp "github.com/secretpages/secretpages"
)

// UserModel is the relational mapping of a user. The unique columns are
// pointers so absent values stay NULL and do not collide in the index.
type UserModel struct {
	ID           string  `gorm:"primaryKey"`
	Username     *string `gorm:"uniqueIndex"`
	PasswordHash string
	GoogleID     *string `gorm:"uniqueIndex"`
	FacebookID   *string `gorm:"uniqueIndex"`
	Secret       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToUser() *sp.User {
	return &sp.User{
		ID:           m.ID,
		Username:     deref(m.Username),
		PasswordHash: m.PasswordHash,
		GoogleID:     deref(m.GoogleID),
		FacebookID:   deref(m.FacebookID),
		Secret:       m.Secret,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
