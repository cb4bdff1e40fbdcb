package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

func TestRegisterAndActivate(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	acct, err := w.accounts.Register(ctx, RegisterParams{
		Name:                 " Example User ",
		Email:                "Foo@ExAMPle.CoM",
		Password:             "foobar",
		PasswordConfirmation: "foobar",
	})
	require.NoError(t, err)
	require.Equal(t, "foo@example.com", acct.Email)
	require.Equal(t, "Example User", acct.Name)
	require.False(t, acct.Activated)

	mail := w.mailer.last(t)
	require.Equal(t, "activation", mail.Kind)

	_, err = w.auth.Login(ctx, "foo@example.com", "foobar", false, "", "")
	require.ErrorIs(t, err, domain.ErrAccountNotActivated)

	_, err = w.accounts.Activate(ctx, "foo@example.com", "wrong")
	require.ErrorIs(t, err, domain.ErrActivationInvalid)

	activated, err := w.accounts.Activate(ctx, "foo@example.com", mail.Token)
	require.NoError(t, err)
	require.True(t, activated.Activated)

	_, err = w.accounts.Activate(ctx, "foo@example.com", mail.Token)
	require.ErrorIs(t, err, domain.ErrActivationInvalid, "activation is single use")

	res, err := w.auth.Login(ctx, "foo@example.com", "foobar", false, "", "")
	require.NoError(t, err)
	require.Equal(t, acct.ID, res.Account.ID)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	_, err := w.accounts.Register(ctx, RegisterParams{Name: "", Email: "user@invalid", Password: "foo", PasswordConfirmation: "bar"})
	require.Equal(t, OutcomeValidationFailed, OutcomeOf(err))
	fields := domain.ValidationFields(err)
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
	require.Contains(t, fields, "password_confirmation")

	w.activeAccount(t, "Ann", "ann@example.com", "foobar")
	_, err = w.accounts.Register(ctx, RegisterParams{Name: "Ann", Email: "ANN@example.com", Password: "foobar"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestShowHidesUnactivatedAccounts(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	pending, err := w.store.CreateAccount(ctx, domain.NewAccount{Name: "P", Email: "p@example.com"})
	require.NoError(t, err)
	active := w.activeAccount(t, "A", "a@example.com", "foobar")

	_, err = w.accounts.Show(ctx, pending.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := w.accounts.Show(ctx, active.ID)
	require.NoError(t, err)
	require.Equal(t, active.ID, got.ID)

	list, err := w.accounts.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, active.ID, list[0].ID)
}

func TestWrongAccountCannotEditUpdateOrDestroy(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	ann := w.activeAccount(t, "Ann", "ann@example.com", "foobar")
	bob := w.activeAccount(t, "Bob", "bob@example.com", "foobar")

	_, err := w.accounts.Get(ctx, bob, ann.ID)
	require.Equal(t, OutcomeUnauthorized, OutcomeOf(err))

	_, err = w.accounts.Update(ctx, bob, ann.ID, UpdateParams{Name: "Hacked", Email: "hacked@example.com"})
	require.Equal(t, OutcomeUnauthorized, OutcomeOf(err))

	err = w.accounts.Destroy(ctx, bob, ann.ID)
	require.Equal(t, OutcomeUnauthorized, OutcomeOf(err))

	stored := w.reload(t, ann.ID)
	require.Equal(t, "Ann", stored.Name)
	require.Equal(t, "ann@example.com", stored.Email)

	_, err = w.accounts.Update(ctx, domain.Account{}, ann.ID, UpdateParams{Name: "X", Email: "x@example.com"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateOwnAccount(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	ann := w.activeAccount(t, "Ann", "ann@example.com", "foobar")

	updated, err := w.accounts.Update(ctx, ann, ann.ID, UpdateParams{Name: "Annie", Email: "ANNIE@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Annie", updated.Name)
	require.Equal(t, "annie@example.com", updated.Email)
	require.True(t, auth.PasswordMatches(updated.PasswordHash, "foobar"), "blank password keeps the old one")

	updated, err = w.accounts.Update(ctx, ann, ann.ID, UpdateParams{Name: "Annie", Email: "annie@example.com", Password: "secret1", PasswordConfirmation: "secret1"})
	require.NoError(t, err)
	require.True(t, auth.PasswordMatches(updated.PasswordHash, "secret1"))

	_, err = w.accounts.Update(ctx, ann, ann.ID, UpdateParams{Name: "Annie", Email: "bad@", Password: "x"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdminMayDestroyOthers(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	admin, created, err := w.accounts.Bootstrap(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, admin.Admin)
	require.True(t, admin.Activated)

	again, created, err := w.accounts.Bootstrap(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, admin.ID, again.ID)

	ann := w.activeAccount(t, "Ann", "ann@example.com", "foobar")
	require.NoError(t, w.accounts.Destroy(ctx, admin, ann.ID))
	_, err = w.store.GetAccountByID(ctx, ann.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDestroyCascadesPosts(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	ann := w.activeAccount(t, "Ann", "ann@example.com", "foobar")
	bob := w.activeAccount(t, "Bob", "bob@example.com", "foobar")

	post, err := w.feed.CreatePost(ctx, ann, "hello")
	require.NoError(t, err)
	require.NoError(t, w.graph.Follow(ctx, bob.ID, ann.ID))

	require.NoError(t, w.accounts.Destroy(ctx, ann, ann.ID))

	_, err = w.store.GetPost(ctx, post.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	following, err := w.graph.FollowingOf(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, following)
}

func TestBootstrapCreatesActivatedAdminOnce(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	acct, created, err := w.accounts.Bootstrap(ctx, "admin", "Admin@Example.com", "changeme")
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, acct.Admin)
	require.True(t, acct.Activated)
	require.Equal(t, "admin@example.com", acct.Email)

	again, created, err := w.accounts.Bootstrap(ctx, "admin", "admin@example.com", "different")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, acct.ID, again.ID)

	_, _, err = w.accounts.Bootstrap(ctx, "admin", "other@example.com", "short")
	require.ErrorIs(t, err, domain.ErrValidation)
}
