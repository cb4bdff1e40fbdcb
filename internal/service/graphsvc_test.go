package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"MicroblogServer/internal/domain"
)

func TestFollowAndUnfollow(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	a := w.activeAccount(t, "A", "a@example.com", "foobar")
	b := w.activeAccount(t, "B", "b@example.com", "foobar")

	ok, err := w.graph.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, w.graph.Follow(ctx, a.ID, b.ID))
	require.NoError(t, w.graph.Follow(ctx, a.ID, b.ID))

	ok, err = w.graph.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, ok)

	followers, err := w.graph.FollowersOf(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, []domain.AccountSummary{a.Summary()}, followers)

	following, err := w.graph.FollowingOf(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []domain.AccountSummary{b.Summary()}, following)

	stats, err := w.graph.Stats(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, domain.FollowStats{Followers: 1, Following: 0}, stats)

	require.NoError(t, w.graph.Unfollow(ctx, a.ID, b.ID))
	ok, err = w.graph.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFollowSelfIsNoop(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	a := w.activeAccount(t, "A", "a@example.com", "foobar")

	require.NoError(t, w.graph.Follow(ctx, a.ID, a.ID))
	ok, err := w.graph.IsFollowing(ctx, a.ID, a.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFollowUnknownTarget(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	a := w.activeAccount(t, "A", "a@example.com", "foobar")

	err := w.graph.Follow(ctx, a.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = w.graph.Follow(ctx, "", a.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
