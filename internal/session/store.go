// Package session keeps per-user dashboard state shared across requests and instances.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const activeOrgPrefix = "active_org:"

// ActiveOrgStore holds each user's selected organization in Redis. The last write wins.
type ActiveOrgStore struct {
	client *redis.Client
}

// NewActiveOrgStore creates a Redis-backed active-organization store.
func NewActiveOrgStore(client *redis.Client) *ActiveOrgStore {
	return &ActiveOrgStore{client: client}
}

func activeOrgKey(userID uuid.UUID) string {
	return activeOrgPrefix + userID.String()
}

// ActiveOrg returns the user's selected organization, or nil when none is set.
func (s *ActiveOrgStore) ActiveOrg(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	raw, err := s.client.Get(ctx, activeOrgKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active org: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return &id, nil
}

// SetActiveOrg records the user's selection.
func (s *ActiveOrgStore) SetActiveOrg(ctx context.Context, userID, orgID uuid.UUID) error {
	if err := s.client.Set(ctx, activeOrgKey(userID), orgID.String(), 0).Err(); err != nil {
		return fmt.Errorf("set active org: %w", err)
	}
	return nil
}

// ClearActiveOrg removes the user's selection.
func (s *ActiveOrgStore) ClearActiveOrg(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, activeOrgKey(userID)).Err()
}
