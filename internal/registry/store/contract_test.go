package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
	"credreg/pkg/testutil"
)

// runContract exercises behaviour every Store backend must share. newStore
// must return an empty store.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store defaults", func(t *testing.T) {
		s := newStore(t)

		count, err := s.CredentialCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = s.FindCredential(ctx, 1)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		exists, err := s.CredentialExists(ctx, 1)
		require.NoError(t, err)
		assert.False(t, exists)

		ids, err := s.RecipientCredentials(ctx, testutil.RecipientIdentity)
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)

		_, err = s.Admin(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("credential round trip", func(t *testing.T) {
		s := newStore(t)
		c := testutil.NewCredentialBuilder().WithID(7).Build()
		require.NoError(t, s.SaveCredential(ctx, c))

		got, err := s.FindCredential(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, c.Recipient, got.Recipient)
		assert.Equal(t, c.Title, got.Title)
		assert.True(t, c.CompletionDate.Equal(got.CompletionDate))
		assert.Equal(t, c.Digest(), got.Digest())

		got.IsRevoked = true
		require.NoError(t, s.SaveCredential(ctx, got))
		again, err := s.FindCredential(ctx, 7)
		require.NoError(t, err)
		assert.True(t, again.IsRevoked)
	})

	t.Run("recipient index keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []domain.CredentialID{3, 1, 2} {
			require.NoError(t, s.SaveCredential(ctx, testutil.NewCredentialBuilder().WithID(id).Build()))
			require.NoError(t, s.AppendRecipientCredential(ctx, testutil.RecipientIdentity, id))
		}
		ids, err := s.RecipientCredentials(ctx, testutil.RecipientIdentity)
		require.NoError(t, err)
		assert.Equal(t, []domain.CredentialID{3, 1, 2}, ids)

		other, err := s.RecipientCredentials(ctx, testutil.OtherIdentity)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("admin is set once", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetAdmin(ctx, testutil.AdminIdentity))
		assert.ErrorIs(t, s.SetAdmin(ctx, testutil.OtherIdentity), sentinel.ErrAlreadySet)

		admin, err := s.Admin(ctx)
		require.NoError(t, err)
		assert.Equal(t, testutil.AdminIdentity, admin)
	})

	t.Run("tx commits all writes", func(t *testing.T) {
		s := newStore(t)
		err := s.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			require.NoError(t, tx.SetCredentialCount(ctx, 1))
			require.NoError(t, tx.SaveCredential(ctx, testutil.NewCredentialBuilder().WithID(1).Build()))
			require.NoError(t, tx.AppendRecipientCredential(ctx, testutil.RecipientIdentity, 1))

			// reads inside the tx see its own writes
			n, err := tx.CredentialCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
			exists, err := tx.CredentialExists(ctx, 1)
			require.NoError(t, err)
			assert.True(t, exists)
			ids, err := tx.RecipientCredentials(ctx, testutil.RecipientIdentity)
			require.NoError(t, err)
			assert.Equal(t, []domain.CredentialID{1}, ids)
			return nil
		})
		require.NoError(t, err)

		n, err := s.CredentialCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)
		ids, err := s.RecipientCredentials(ctx, testutil.RecipientIdentity)
		require.NoError(t, err)
		assert.Equal(t, []domain.CredentialID{1}, ids)
	})

	t.Run("tx error discards all writes", func(t *testing.T) {
		s := newStore(t)
		boom := errors.New("boom")
		err := s.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			require.NoError(t, tx.SetCredentialCount(ctx, 1))
			require.NoError(t, tx.SaveCredential(ctx, testutil.NewCredentialBuilder().WithID(1).Build()))
			require.NoError(t, tx.AppendRecipientCredential(ctx, testutil.RecipientIdentity, 1))
			require.NoError(t, tx.SetAdmin(ctx, testutil.AdminIdentity))
			return boom
		})
		require.ErrorIs(t, err, boom)

		n, err := s.CredentialCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = s.FindCredential(ctx, 1)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		ids, err := s.RecipientCredentials(ctx, testutil.RecipientIdentity)
		require.NoError(t, err)
		assert.Empty(t, ids)
		_, err = s.Admin(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("set admin inside tx respects existing admin", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetAdmin(ctx, testutil.AdminIdentity))
		err := s.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			return tx.SetAdmin(ctx, testutil.OtherIdentity)
		})
		assert.ErrorIs(t, err, sentinel.ErrAlreadySet)
	})
}
