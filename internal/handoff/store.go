// Package handoff keeps in-flight payment state between the intent page
// and the confirmation page. The state lives under an opaque short-lived
// token instead of a global key-value blob, and callers must Clear it
// after any terminal outcome.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an unconfirmed payment handoff survives.
const DefaultTTL = 15 * time.Minute

var ErrNotFound = errors.New("handoff token not found or expired")

// Payload is the typed cross-page state of one in-flight payment.
type Payload struct {
	ScheduleID    int64  `json:"schedule_id"`
	ScheduledDate string `json:"scheduled_date"`
	StudentID     int64  `json:"student_id"`
	ClientSecret  string `json:"client_secret"`
	Amount        int64  `json:"amount"`
	PointsToUse   int64  `json:"points_to_use"`
	PaymentRef    string `json:"payment_ref"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Put stores the payload and returns the opaque token for it.
func (s *Store) Put(ctx context.Context, payload Payload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal handoff payload: %w", err)
	}

	token := uuid.NewString()
	if err := s.client.Set(ctx, key(token), raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store handoff payload: %w", err)
	}

	return token, nil
}

// Get returns the payload for a token, or ErrNotFound once it expired.
func (s *Store) Get(ctx context.Context, token string) (*Payload, error) {
	raw, err := s.client.Get(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load handoff payload: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal handoff payload: %w", err)
	}

	return &payload, nil
}

// Clear drops the token after a terminal outcome. Clearing an unknown or
// already expired token is not an error.
func (s *Store) Clear(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("clear handoff payload: %w", err)
	}
	return nil
}

func key(token string) string {
	return "handoff:" + token
}
