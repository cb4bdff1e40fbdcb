package service

import (
	"context"

	"MicroblogServer/internal/domain"
)

type RelationshipsStore interface {
	Follow(ctx context.Context, followerID, followedID string) error
	Unfollow(ctx context.Context, followerID, followedID string) error
	IsFollowing(ctx context.Context, followerID, followedID string) (bool, error)
	ListFollowers(ctx context.Context, accountID string) ([]domain.AccountSummary, error)
	ListFollowing(ctx context.Context, accountID string) ([]domain.AccountSummary, error)
	CountFollows(ctx context.Context, accountID string) (domain.FollowStats, error)
}

type AccountLookup interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
}

type GraphService struct {
	Accounts      AccountLookup
	Relationships RelationshipsStore
}

// Follow is idempotent. Following yourself does nothing.
func (s *GraphService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == "" {
		return domain.ErrUnauthorized
	}
	if _, err := s.Accounts.GetAccountByID(ctx, targetID); err != nil {
		return err
	}
	if followerID == targetID {
		return nil
	}
	return s.Relationships.Follow(ctx, followerID, targetID)
}

func (s *GraphService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if followerID == "" {
		return domain.ErrUnauthorized
	}
	return s.Relationships.Unfollow(ctx, followerID, targetID)
}

func (s *GraphService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	return s.Relationships.IsFollowing(ctx, followerID, targetID)
}

func (s *GraphService) FollowersOf(ctx context.Context, accountID string) ([]domain.AccountSummary, error) {
	if _, err := s.Accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.Relationships.ListFollowers(ctx, accountID)
}

func (s *GraphService) FollowingOf(ctx context.Context, accountID string) ([]domain.AccountSummary, error) {
	if _, err := s.Accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.Relationships.ListFollowing(ctx, accountID)
}

func (s *GraphService) Stats(ctx context.Context, accountID string) (domain.FollowStats, error) {
	return s.Relationships.CountFollows(ctx, accountID)
}
