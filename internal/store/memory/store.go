// Package memory is an in-process implementation of every store the services
// use. It backs development runs without a database and scenario tests.
package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"MicroblogServer/internal/domain"
)

var errResetNeedsForce = errors.New("reset digest is cleared with ForceClearResetDigest")

type session struct {
	domain.Session
	IP        string
	UserAgent string
}

type post struct {
	ID        string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

type edge struct {
	follower string
	followed string
}

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	accounts map[string]domain.Account
	byEmail  map[string]string
	sessions map[string]session
	follows  map[edge]time.Time
	posts    map[string]post
}

func New() *Store {
	return &Store{
		now:      time.Now,
		accounts: map[string]domain.Account{},
		byEmail:  map[string]string{},
		sessions: map[string]session{},
		follows:  map[edge]time.Time{},
		posts:    map[string]post{},
	}
}

// WithClock replaces the clock used for created_at/updated_at columns.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateAccount(ctx context.Context, a domain.NewAccount) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(a.Email)
	if _, taken := s.byEmail[email]; taken {
		return domain.Account{}, domain.ErrEmailTaken
	}
	now := s.now()
	acct := domain.Account{
		ID:               uuid.NewString(),
		Name:             a.Name,
		Email:            email,
		Activated:        a.Activated,
		Admin:            a.Admin,
		CreatedAt:        now,
		UpdatedAt:        now,
		PasswordHash:     a.PasswordHash,
		ActivationDigest: a.ActivationDigest,
	}
	if a.Activated {
		acct.ActivatedAt = &now
	}
	s.accounts[acct.ID] = acct
	s.byEmail[email] = acct.ID
	return acct, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *Store) ListActivatedAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.Activated {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []domain.Account{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, upd domain.AccountUpdate) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	email := strings.ToLower(upd.Email)
	if owner, taken := s.byEmail[email]; taken && owner != id {
		return domain.Account{}, domain.ErrEmailTaken
	}
	delete(s.byEmail, acct.Email)
	acct.Name = upd.Name
	acct.Email = email
	if upd.PasswordHash != "" {
		acct.PasswordHash = upd.PasswordHash
	}
	acct.UpdatedAt = s.now()
	s.accounts[id] = acct
	s.byEmail[email] = id
	return acct, nil
}

func (s *Store) SetPasswordHash(ctx context.Context, accountID, passwordHash string) error {
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		a.PasswordHash = passwordHash
		return nil
	})
}

func (s *Store) MarkActivated(ctx context.Context, id string, when time.Time) error {
	return s.mutate(ctx, id, func(a *domain.Account) error {
		a.Activated = true
		a.ActivatedAt = &when
		a.ActivationDigest = ""
		return nil
	})
}

func (s *Store) SetTokenDigest(ctx context.Context, accountID string, kind domain.TokenKind, digest string, issuedAt time.Time) error {
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		switch kind {
		case domain.TokenRemember:
			a.RememberDigest = digest
		case domain.TokenReset:
			a.ResetDigest = digest
			a.ResetSentAt = &issuedAt
		case domain.TokenActivation:
			a.ActivationDigest = digest
		default:
			return errors.New("unknown token kind")
		}
		return nil
	})
}

func (s *Store) ClearTokenDigest(ctx context.Context, accountID string, kind domain.TokenKind) error {
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		switch kind {
		case domain.TokenRemember:
			a.RememberDigest = ""
		case domain.TokenActivation:
			a.ActivationDigest = ""
		case domain.TokenReset:
			return errResetNeedsForce
		default:
			return errors.New("unknown token kind")
		}
		return nil
	})
}

func (s *Store) ForceClearResetDigest(ctx context.Context, accountID string) error {
	return s.mutate(ctx, accountID, func(a *domain.Account) error {
		a.ResetDigest = ""
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, id string, fn func(*domain.Account) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&acct); err != nil {
		return err
	}
	acct.UpdatedAt = s.now()
	s.accounts[id] = acct
	return nil
}

// DeleteAccount cascades to the account's posts, relationships and sessions.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.byEmail, acct.Email)
	for pid, p := range s.posts {
		if p.AuthorID == id {
			delete(s.posts, pid)
		}
	}
	for e := range s.follows {
		if e.follower == id || e.followed == id {
			delete(s.follows, e)
		}
	}
	for sid, sess := range s.sessions {
		if sess.AccountID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, accountID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return "", domain.ErrNotFound
	}
	id := uuid.NewString()
	s.sessions[id] = session{
		Session:   domain.Session{ID: id, AccountID: accountID, CreatedAt: s.now(), ExpiresAt: expiresAt},
		IP:        ip,
		UserAgent: userAgent,
	}
	return id, nil
}

// GetSession only returns sessions that are neither revoked nor expired.
func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.RevokedAt != nil || !sess.ExpiresAt.After(s.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess.Session, nil
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if sess.RevokedAt == nil {
		sess.RevokedAt = &when
		s.sessions[sessionID] = sess
	}
	return nil
}

func (s *Store) Follow(ctx context.Context, followerID, followedID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[followerID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := s.accounts[followedID]; !ok {
		return domain.ErrNotFound
	}
	e := edge{follower: followerID, followed: followedID}
	if _, ok := s.follows[e]; !ok {
		s.follows[e] = s.now()
	}
	return nil
}

func (s *Store) Unfollow(ctx context.Context, followerID, followedID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows, edge{follower: followerID, followed: followedID})
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.follows[edge{follower: followerID, followed: followedID}]
	return ok, nil
}

func (s *Store) ListFollowers(ctx context.Context, accountID string) ([]domain.AccountSummary, error) {
	return s.listEdges(ctx, func(e edge) (string, bool) { return e.follower, e.followed == accountID })
}

func (s *Store) ListFollowing(ctx context.Context, accountID string) ([]domain.AccountSummary, error) {
	return s.listEdges(ctx, func(e edge) (string, bool) { return e.followed, e.follower == accountID })
}

// listEdges returns the accounts picked by match, in the order the
// relationships were created.
func (s *Store) listEdges(ctx context.Context, match func(edge) (string, bool)) ([]domain.AccountSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		at      time.Time
		summary domain.AccountSummary
	}
	hits := []hit{}
	for e, at := range s.follows {
		id, ok := match(e)
		if !ok {
			continue
		}
		if acct, found := s.accounts[id]; found {
			hits = append(hits, hit{at: at, summary: acct.Summary()})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].at.Equal(hits[j].at) {
			return hits[i].at.Before(hits[j].at)
		}
		return hits[i].summary.ID < hits[j].summary.ID
	})
	out := make([]domain.AccountSummary, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.summary)
	}
	return out, nil
}

func (s *Store) CountFollows(ctx context.Context, accountID string) (domain.FollowStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.FollowStats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st domain.FollowStats
	for e := range s.follows {
		if e.followed == accountID {
			st.Followers++
		}
		if e.follower == accountID {
			st.Following++
		}
	}
	return st, nil
}

func (s *Store) CreatePost(ctx context.Context, authorID, content string, createdAt time.Time) (domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return domain.Post{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[authorID]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	p := post{ID: uuid.NewString(), AuthorID: authorID, Content: content, CreatedAt: createdAt}
	s.posts[p.ID] = p
	return domain.Post{ID: p.ID, Author: acct.Summary(), Content: content, CreatedAt: createdAt}, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return domain.Post{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return s.toDomain(p), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) ListFeed(ctx context.Context, accountID string, after domain.Cursor, limit int) ([]domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPosts(after, limit, func(p post) bool {
		if p.AuthorID == accountID {
			return true
		}
		_, follows := s.follows[edge{follower: accountID, followed: p.AuthorID}]
		return follows
	}), nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, after domain.Cursor, limit int) ([]domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPosts(after, limit, func(p post) bool { return p.AuthorID == authorID }), nil
}

// listPosts must be called with the read lock held.
func (s *Store) listPosts(after domain.Cursor, limit int, keep func(post) bool) []domain.Post {
	matched := []post{}
	for _, p := range s.posts {
		if keep(p) && isAfter(p, after) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, func(a, b post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]domain.Post, 0, len(matched))
	for _, p := range matched {
		out = append(out, s.toDomain(p))
	}
	return out
}

// isAfter reports whether p sorts strictly after the cursor in newest-first
// order.
func isAfter(p post, c domain.Cursor) bool {
	if c.IsZero() {
		return true
	}
	if !p.CreatedAt.Equal(c.CreatedAt) {
		return p.CreatedAt.Before(c.CreatedAt)
	}
	return p.ID < c.ID
}

func (s *Store) toDomain(p post) domain.Post {
	return domain.Post{
		ID:        p.ID,
		Author:    s.accounts[p.AuthorID].Summary(),
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
	}
}
