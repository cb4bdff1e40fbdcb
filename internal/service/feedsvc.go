package service

import (
	"context"
	"iter"
	"time"

	"MicroblogServer/internal/domain"
)

const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

type PostsStore interface {
	CreatePost(ctx context.Context, authorID, content string, createdAt time.Time) (domain.Post, error)
	GetPost(ctx context.Context, id string) (domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	// ListFeed and ListPostsByAuthor return posts strictly after cursor in
	// created_at DESC, id DESC order.
	ListFeed(ctx context.Context, accountID string, after domain.Cursor, limit int) ([]domain.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string, after domain.Cursor, limit int) ([]domain.Post, error)
}

type ContentSanitizer interface {
	Sanitize(raw string) string
}

type FeedService struct {
	Posts     PostsStore
	Accounts  AccountLookup
	Sanitizer ContentSanitizer
	PageSize  int
	Events    EventRecorder
	Now       func() time.Time
}

// Feed yields the account's own posts and those of every account it follows,
// newest first. Nothing is fetched until the sequence is ranged over, and each
// range starts a fresh walk so it reflects the store at that time.
func (s *FeedService) Feed(ctx context.Context, accountID string) iter.Seq2[domain.Post, error] {
	size := clampLimit(s.PageSize)
	return func(yield func(domain.Post, error) bool) {
		var after domain.Cursor
		for {
			page, err := s.Posts.ListFeed(ctx, accountID, after, size)
			if err != nil {
				yield(domain.Post{}, err)
				return
			}
			for _, p := range page {
				if !yield(p, nil) {
					return
				}
			}
			if len(page) < size {
				return
			}
			after = domain.CursorAfter(page[len(page)-1])
		}
	}
}

// FeedPage returns one page of the feed and the cursor for the next one. The
// next cursor is zero when there is nothing more.
func (s *FeedService) FeedPage(ctx context.Context, accountID string, after domain.Cursor, limit int) ([]domain.Post, domain.Cursor, error) {
	limit = clampLimit(limit)
	record(s.Events, "feed_page")
	return paginate(limit, func(n int) ([]domain.Post, error) {
		return s.Posts.ListFeed(ctx, accountID, after, n)
	})
}

func (s *FeedService) PostsByAuthor(ctx context.Context, authorID string, after domain.Cursor, limit int) ([]domain.Post, domain.Cursor, error) {
	if _, err := s.Accounts.GetAccountByID(ctx, authorID); err != nil {
		return nil, domain.Cursor{}, err
	}
	limit = clampLimit(limit)
	return paginate(limit, func(n int) ([]domain.Post, error) {
		return s.Posts.ListPostsByAuthor(ctx, authorID, after, n)
	})
}

func (s *FeedService) CreatePost(ctx context.Context, actor domain.Account, raw string) (domain.Post, error) {
	if s.Now == nil {
		s.Now = time.Now
	}
	if actor.ID == "" {
		return domain.Post{}, domain.ErrUnauthorized
	}

	text := raw
	if s.Sanitizer != nil {
		text = s.Sanitizer.Sanitize(raw)
	}
	if msg := domain.ValidatePostContent(text); msg != "" {
		return domain.Post{}, domain.NewValidationError(map[string]string{"content": msg})
	}

	post, err := s.Posts.CreatePost(ctx, actor.ID, text, s.Now())
	if err != nil {
		return domain.Post{}, err
	}
	record(s.Events, "post_created")
	return post, nil
}

// DeletePost removes a post. Only its author may.
func (s *FeedService) DeletePost(ctx context.Context, actor domain.Account, postID string) error {
	if actor.ID == "" {
		return domain.ErrUnauthorized
	}
	post, err := s.Posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author.ID != actor.ID {
		return domain.ErrForbidden
	}
	return s.Posts.DeletePost(ctx, postID)
}

// paginate asks for one extra row to learn whether another page exists.
func paginate(limit int, fetch func(n int) ([]domain.Post, error)) ([]domain.Post, domain.Cursor, error) {
	posts, err := fetch(limit + 1)
	if err != nil {
		return nil, domain.Cursor{}, err
	}
	if len(posts) <= limit {
		return posts, domain.Cursor{}, nil
	}
	posts = posts[:limit]
	return posts, domain.CursorAfter(posts[len(posts)-1]), nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
