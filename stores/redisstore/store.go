// Package redisstore adapts a redis client to the session manager's
// store interface so sessions survive process restarts.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const prefix = "session:"

// Store implements scs.Store on top of redis.
type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Find(token string) ([]byte, bool, error) {
	b, err := s.client.Get(context.Background(), prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("finding session: %w", err)
	}
	return b, true, nil
}

func (s *Store) Commit(token string, b []byte, expiry time.Time) error {
	err := s.client.Set(context.Background(), prefix+token, b, time.Until(expiry)).Err()
	if err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

func (s *Store) Delete(token string) error {
	if err := s.client.Del(context.Background(), prefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
