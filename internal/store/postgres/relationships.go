package postgres

import (
	"context"
	"errors"
	"fmt"

	"MicroblogServer/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RelationshipsStore struct {
	pool *pgxpool.Pool
}

func NewRelationshipsStore(pool *pgxpool.Pool) *RelationshipsStore {
	return &RelationshipsStore{pool: pool}
}

func (s *RelationshipsStore) Follow(ctx context.Context, followerID, followedID string) error {
	if !validID(followerID, followedID) {
		return domain.ErrNotFound
	}
	const q = `
		INSERT INTO relationships (follower_id, followed_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followed_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, followerID, followedID); err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23503" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (s *RelationshipsStore) Unfollow(ctx context.Context, followerID, followedID string) error {
	if !validID(followerID, followedID) {
		return nil
	}
	const q = `DELETE FROM relationships WHERE follower_id = $1 AND followed_id = $2`
	if _, err := s.pool.Exec(ctx, q, followerID, followedID); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (s *RelationshipsStore) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	if !validID(followerID, followedID) {
		return false, nil
	}
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM relationships WHERE follower_id = $1 AND followed_id = $2
		)
	`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, followerID, followedID).Scan(&ok); err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return ok, nil
}

func (s *RelationshipsStore) ListFollowers(ctx context.Context, accountID string) ([]domain.AccountSummary, error) {
	const q = `
		SELECT a.id, a.name
		FROM relationships r
		JOIN accounts a ON a.id = r.follower_id
		WHERE r.followed_id = $1
		ORDER BY r.created_at ASC, a.id ASC
	`
	return s.listSummaries(ctx, "list followers", q, accountID)
}

func (s *RelationshipsStore) ListFollowing(ctx context.Context, accountID string) ([]domain.AccountSummary, error) {
	const q = `
		SELECT a.id, a.name
		FROM relationships r
		JOIN accounts a ON a.id = r.followed_id
		WHERE r.follower_id = $1
		ORDER BY r.created_at ASC, a.id ASC
	`
	return s.listSummaries(ctx, "list following", q, accountID)
}

func (s *RelationshipsStore) listSummaries(ctx context.Context, op, q, accountID string) ([]domain.AccountSummary, error) {
	out := []domain.AccountSummary{}
	if !validID(accountID) {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idUUID pgtype.UUID
			sum    domain.AccountSummary
		)
		if err := rows.Scan(&idUUID, &sum.Name); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		sum.ID = uuidOrEmpty(idUUID)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}

func (s *RelationshipsStore) CountFollows(ctx context.Context, accountID string) (domain.FollowStats, error) {
	if !validID(accountID) {
		return domain.FollowStats{}, domain.ErrNotFound
	}
	const q = `
		SELECT
			(SELECT count(*) FROM relationships WHERE followed_id = $1),
			(SELECT count(*) FROM relationships WHERE follower_id = $1)
	`
	var st domain.FollowStats
	if err := s.pool.QueryRow(ctx, q, accountID).Scan(&st.Followers, &st.Following); err != nil {
		return domain.FollowStats{}, fmt.Errorf("count follows: %w", err)
	}
	return st, nil
}
