package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MicroblogServer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsStore struct {
	pool *pgxpool.Pool
}

func NewPostsStore(pool *pgxpool.Pool) *PostsStore {
	return &PostsStore{pool: pool}
}

const postColumns = `p.id, p.content, p.created_at, a.id, a.name`

func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		p        domain.Post
		idUUID   pgtype.UUID
		authorID pgtype.UUID
	)
	if err := row.Scan(&idUUID, &p.Content, &p.CreatedAt, &authorID, &p.Author.Name); err != nil {
		return domain.Post{}, err
	}
	p.ID = uuidOrEmpty(idUUID)
	p.Author.ID = uuidOrEmpty(authorID)
	return p, nil
}

func (s *PostsStore) CreatePost(ctx context.Context, authorID, content string, createdAt time.Time) (domain.Post, error) {
	if !validID(authorID) {
		return domain.Post{}, domain.ErrNotFound
	}
	const q = `
		WITH p AS (
			INSERT INTO posts (author_id, content, created_at)
			VALUES ($1, $2, $3)
			RETURNING id, author_id, content, created_at
		)
		SELECT ` + postColumns + `
		FROM p JOIN accounts a ON a.id = p.author_id
	`
	post, err := scanPost(s.pool.QueryRow(ctx, q, authorID, content, createdAt))
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23503" {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *PostsStore) GetPost(ctx context.Context, id string) (domain.Post, error) {
	if !validID(id) {
		return domain.Post{}, domain.ErrNotFound
	}
	const q = `
		SELECT ` + postColumns + `
		FROM posts p JOIN accounts a ON a.id = p.author_id
		WHERE p.id = $1
	`
	post, err := scanPost(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (s *PostsStore) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListFeed returns the account's own posts and those of accounts it follows.
func (s *PostsStore) ListFeed(ctx context.Context, accountID string, after domain.Cursor, limit int) ([]domain.Post, error) {
	if !validID(accountID) {
		return []domain.Post{}, nil
	}
	const q = `
		SELECT ` + postColumns + `
		FROM posts p JOIN accounts a ON a.id = p.author_id
		WHERE (p.author_id = $1
		       OR p.author_id IN (SELECT followed_id FROM relationships WHERE follower_id = $1))
		  AND ($2::timestamptz IS NULL OR (p.created_at, p.id) < ($2::timestamptz, $3::uuid))
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $4
	`
	return s.list(ctx, "list feed", q, accountID, after, limit)
}

func (s *PostsStore) ListPostsByAuthor(ctx context.Context, authorID string, after domain.Cursor, limit int) ([]domain.Post, error) {
	if !validID(authorID) {
		return []domain.Post{}, nil
	}
	const q = `
		SELECT ` + postColumns + `
		FROM posts p JOIN accounts a ON a.id = p.author_id
		WHERE p.author_id = $1
		  AND ($2::timestamptz IS NULL OR (p.created_at, p.id) < ($2::timestamptz, $3::uuid))
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $4
	`
	return s.list(ctx, "list posts by author", q, authorID, after, limit)
}

func (s *PostsStore) list(ctx context.Context, op, q, accountID string, after domain.Cursor, limit int) ([]domain.Post, error) {
	var afterAt, afterID any
	if !after.IsZero() {
		if !validID(after.ID) {
			return nil, domain.NewValidationError(map[string]string{"cursor": "is invalid"})
		}
		afterAt, afterID = after.CreatedAt, after.ID
	}

	rows, err := s.pool.Query(ctx, q, accountID, afterAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}
